package tx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AgenticDao/CryptoA2A/internal/crypto"
	"github.com/AgenticDao/CryptoA2A/internal/models"
	"github.com/AgenticDao/CryptoA2A/internal/wallet"
)

const (
	testTo   = "0x2222222222222222222222222222222222222222"
	testHash = "0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
)

type stubBroadcaster struct {
	hash string
	err  error
}

func (b *stubBroadcaster) Submit(_ context.Context, _ *models.Transaction) (BroadcastResult, error) {
	if b.err != nil {
		return BroadcastResult{}, b.err
	}
	return BroadcastResult{Hash: b.hash, AcceptedAt: time.Now()}, nil
}

type stubStatusQuery struct {
	status string
	err    error
}

func (q *stubStatusQuery) GetStatus(_ context.Context, _ string) (string, error) {
	return q.status, q.err
}

func connectedSigner(t *testing.T) wallet.Provider {
	t.Helper()
	signer, err := wallet.NewProvider("local", wallet.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := signer.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	return signer
}

func TestCreate(t *testing.T) {
	m := NewManager("")
	transaction, err := m.Create(models.TransactionRequest{To: testTo}, "agent-1")
	if err != nil {
		t.Fatal(err)
	}
	if transaction.ID == "" {
		t.Fatal("created transaction has no id")
	}
	if transaction.Value != "0" {
		t.Fatalf("value = %q, want default 0", transaction.Value)
	}
	if transaction.Chain != crypto.ChainEthereum {
		t.Fatalf("chain = %q", transaction.Chain)
	}
	if transaction.Signed || transaction.Signature != "" || transaction.Hash != "" {
		t.Fatal("created transaction must carry no signing artifacts")
	}
	if transaction.Status != "" {
		t.Fatalf("created transaction has status %q before submission", transaction.Status)
	}
}

func TestCreateInvalidDestination(t *testing.T) {
	m := NewManager(crypto.ChainEthereum)
	for _, to := range []string{"", "0x123", "not-an-address", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"} {
		_, err := m.Create(models.TransactionRequest{To: to}, "agent-1")
		if !IsCode(err, CodeInvalidRequest) {
			t.Fatalf("to=%q: expected INVALID_REQUEST, got %v", to, err)
		}
	}
}

func TestSign(t *testing.T) {
	m := NewManager("")
	created, err := m.Create(models.TransactionRequest{To: testTo, Value: "100"}, "agent-1")
	if err != nil {
		t.Fatal(err)
	}

	signed, err := m.Sign(context.Background(), created, connectedSigner(t))
	if err != nil {
		t.Fatal(err)
	}
	if !signed.Signed || signed.Signature == "" {
		t.Fatal("sign did not attach a signature")
	}
	if created.Signed {
		t.Fatal("input transaction must be left unchanged")
	}
}

func TestSignUnavailableSigner(t *testing.T) {
	m := NewManager("")
	created, err := m.Create(models.TransactionRequest{To: testTo}, "agent-1")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := m.Sign(ctx, created, nil); !IsCode(err, CodeSigningUnavailable) {
		t.Fatalf("nil signer: %v", err)
	}

	disconnected, err := wallet.NewProvider("local", wallet.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Sign(ctx, created, disconnected); !IsCode(err, CodeSigningUnavailable) {
		t.Fatalf("disconnected signer: %v", err)
	}
	if created.Signed || created.Signature != "" {
		t.Fatal("failed sign must not mutate the transaction")
	}
}

func TestSignTwice(t *testing.T) {
	m := NewManager("")
	created, err := m.Create(models.TransactionRequest{To: testTo}, "agent-1")
	if err != nil {
		t.Fatal(err)
	}
	signer := connectedSigner(t)

	signed, err := m.Sign(context.Background(), created, signer)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Sign(context.Background(), signed, signer); !IsCode(err, CodeAlreadySigned) {
		t.Fatalf("expected ALREADY_SIGNED, got %v", err)
	}
}

func TestSubmitUnsigned(t *testing.T) {
	m := NewManager("")
	created, err := m.Create(models.TransactionRequest{To: testTo}, "agent-1")
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.Submit(context.Background(), created, &stubBroadcaster{hash: testHash})
	if !IsCode(err, CodeNotSigned) {
		t.Fatalf("expected NOT_SIGNED, got %v", err)
	}
}

func TestSubmit(t *testing.T) {
	m := NewManager("")
	created, err := m.Create(models.TransactionRequest{To: testTo, Value: "100"}, "agent-1")
	if err != nil {
		t.Fatal(err)
	}
	signed, err := m.Sign(context.Background(), created, connectedSigner(t))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := m.Submit(context.Background(), signed, &stubBroadcaster{hash: testHash})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Hash != testHash {
		t.Fatalf("hash = %q", resp.Hash)
	}
	if resp.Status != models.StatusPending {
		t.Fatalf("status = %q, want pending", resp.Status)
	}
	if signed.Hash != testHash || signed.Status != models.StatusPending {
		t.Fatal("submitted transaction not stamped with hash and pending status")
	}
	if s, ok := m.LastKnownStatus(testHash); !ok || s != models.StatusPending {
		t.Fatalf("memoized status = %q, %v", s, ok)
	}
}

func TestSubmitBroadcasterError(t *testing.T) {
	m := NewManager("")
	created, err := m.Create(models.TransactionRequest{To: testTo}, "agent-1")
	if err != nil {
		t.Fatal(err)
	}
	signed, err := m.Sign(context.Background(), created, connectedSigner(t))
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("ledger unreachable")
	if _, err := m.Submit(context.Background(), signed, &stubBroadcaster{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("broadcaster error not surfaced: %v", err)
	}
	if signed.Hash != "" || signed.Status != "" {
		t.Fatal("failed submission must not stamp the transaction")
	}
}

func submitPending(t *testing.T, m *Manager) string {
	t.Helper()
	created, err := m.Create(models.TransactionRequest{To: testTo}, "agent-1")
	if err != nil {
		t.Fatal(err)
	}
	signed, err := m.Sign(context.Background(), created, connectedSigner(t))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := m.Submit(context.Background(), signed, &stubBroadcaster{hash: testHash})
	if err != nil {
		t.Fatal(err)
	}
	return resp.Hash
}

func TestPollStatusLifecycle(t *testing.T) {
	m := NewManager("")
	hash := submitPending(t, m)
	ctx := context.Background()
	query := &stubStatusQuery{status: "pending"}

	status, err := m.PollStatus(ctx, hash, query)
	if err != nil || status != models.StatusPending {
		t.Fatalf("poll pending: %q, %v", status, err)
	}

	query.status = "confirmed"
	status, err = m.PollStatus(ctx, hash, query)
	if err != nil || status != models.StatusConfirmed {
		t.Fatalf("poll confirmed: %q, %v", status, err)
	}

	// Polling again with the same terminal answer stays stable.
	status, err = m.PollStatus(ctx, hash, query)
	if err != nil || status != models.StatusConfirmed {
		t.Fatalf("repoll confirmed: %q, %v", status, err)
	}
}

func TestPollStatusRegressionPoisons(t *testing.T) {
	m := NewManager("")
	hash := submitPending(t, m)
	ctx := context.Background()

	if _, err := m.PollStatus(ctx, hash, &stubStatusQuery{status: "confirmed"}); err != nil {
		t.Fatal(err)
	}

	// A collaborator claiming pending after confirmed is a regression.
	_, err := m.PollStatus(ctx, hash, &stubStatusQuery{status: "pending"})
	if !IsCode(err, CodeInconsistentState) {
		t.Fatalf("expected INCONSISTENT_STATE, got %v", err)
	}

	// The hash stays poisoned even for well-behaved answers.
	_, err = m.PollStatus(ctx, hash, &stubStatusQuery{status: "confirmed"})
	if !IsCode(err, CodeInconsistentState) {
		t.Fatalf("poisoned hash accepted a poll: %v", err)
	}

	// The memoized terminal state is preserved.
	if s, ok := m.LastKnownStatus(hash); !ok || s != models.StatusConfirmed {
		t.Fatalf("memoized status after poisoning = %q, %v", s, ok)
	}
}

// gateStatusQuery signals when GetStatus is entered and holds the
// answer back until released.
type gateStatusQuery struct {
	status  string
	entered chan struct{}
	release chan struct{}
}

func (q *gateStatusQuery) GetStatus(_ context.Context, _ string) (string, error) {
	close(q.entered)
	<-q.release
	return q.status, nil
}

func TestPollStatusConcurrentRegression(t *testing.T) {
	m := NewManager("")
	hash := submitPending(t, m)
	ctx := context.Background()

	// Slow poll reads "pending" from the collaborator while a faster
	// poll memoizes the terminal state.
	slow := &gateStatusQuery{
		status:  "pending",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	type pollResult struct {
		status models.TransactionStatus
		err    error
	}
	done := make(chan pollResult, 1)
	go func() {
		status, err := m.PollStatus(ctx, hash, slow)
		done <- pollResult{status, err}
	}()

	<-slow.entered
	if _, err := m.PollStatus(ctx, hash, &stubStatusQuery{status: "confirmed"}); err != nil {
		t.Fatal(err)
	}
	close(slow.release)

	result := <-done
	if !IsCode(result.err, CodeInconsistentState) {
		t.Fatalf("stale pending after confirmed: status = %q, err = %v", result.status, result.err)
	}
	if s, ok := m.LastKnownStatus(hash); !ok || s != models.StatusConfirmed {
		t.Fatalf("memoized status after overlapping polls = %q, %v", s, ok)
	}
}

func TestPollStatusUnknownVocabulary(t *testing.T) {
	m := NewManager("")
	hash := submitPending(t, m)

	_, err := m.PollStatus(context.Background(), hash, &stubStatusQuery{status: "warp-speed"})
	if !IsCode(err, CodeUnknownStatus) {
		t.Fatalf("expected UNKNOWN_STATUS, got %v", err)
	}
}

func TestPollStatusQueryError(t *testing.T) {
	m := NewManager("")
	hash := submitPending(t, m)

	boom := errors.New("rpc timeout")
	if _, err := m.PollStatus(context.Background(), hash, &stubStatusQuery{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("query error not surfaced: %v", err)
	}
	// A transport failure must not change the memoized status.
	if s, _ := m.LastKnownStatus(hash); s != models.StatusPending {
		t.Fatalf("status after failed poll = %q", s)
	}
}

func TestMapRawStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want models.TransactionStatus
		ok   bool
	}{
		{"pending", models.StatusPending, true},
		{"  Queued ", models.StatusPending, true},
		{"in_mempool", models.StatusPending, true},
		{"CONFIRMED", models.StatusConfirmed, true},
		{"finalized", models.StatusConfirmed, true},
		{"reverted", models.StatusFailed, true},
		{"dropped", models.StatusFailed, true},
		{"", "", false},
		{"unknown", "", false},
	}
	for _, tc := range cases {
		got, ok := MapRawStatus(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Errorf("MapRawStatus(%q) = %q, %v; want %q, %v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
