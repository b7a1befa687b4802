package auth

import "errors"

// AttemptState tracks a single authentication attempt from challenge
// issuance to its terminal outcome.
type AttemptState string

const (
	AttemptIssued    AttemptState = "issued"
	AttemptPresented AttemptState = "presented"
	AttemptAccepted  AttemptState = "accepted"
	AttemptRejected  AttemptState = "rejected"
)

// ErrAttemptSettled is returned when a response is presented for an
// attempt that already reached a terminal state.
var ErrAttemptSettled = errors.New("auth: attempt already settled")

// Attempt is the per-challenge state machine:
// issued -> presented -> {accepted, rejected}. An attempt is consumed
// by exactly one Present call; terminal states admit no transition.
type Attempt struct {
	Challenge string
	Subject   string
	state     AttemptState
}

// NewAttempt records a freshly issued challenge for subject.
func NewAttempt(subject, challenge string) *Attempt {
	return &Attempt{Challenge: challenge, Subject: subject, state: AttemptIssued}
}

// State returns the current attempt state.
func (a *Attempt) State() AttemptState { return a.state }

// Present consumes the attempt with a signed response, settling it as
// accepted or rejected. Presenting twice fails with ErrAttemptSettled
// and leaves the terminal state unchanged.
func (a *Attempt) Present(svc *Service, signatureB64, publicKeyB64 string) (AttemptState, error) {
	if a.state != AttemptIssued {
		return a.state, ErrAttemptSettled
	}
	a.state = AttemptPresented
	if svc.VerifyChallengeResponse(a.Challenge, signatureB64, publicKeyB64) {
		a.state = AttemptAccepted
	} else {
		a.state = AttemptRejected
	}
	return a.state, nil
}
