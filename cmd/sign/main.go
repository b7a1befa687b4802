package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Signs an auth challenge (or arbitrary stdin data) with an Ed25519
// private key, printing the base64 signature for the /auth/token
// exchange.
func main() {
	privKeyB64 := flag.String("key", "", "Base64-encoded Ed25519 private key")
	challenge := flag.String("challenge", "", "Challenge string to sign (or use stdin)")
	flag.Parse()

	if *privKeyB64 == "" {
		fmt.Fprintln(os.Stderr, "Usage: sign -key <private-key-base64> [-challenge <string>]")
		fmt.Fprintln(os.Stderr, "  Reads the challenge from stdin if -challenge not specified")
		os.Exit(1)
	}

	privKeyBytes, err := base64.StdEncoding.DecodeString(*privKeyB64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid private key: %v\n", err)
		os.Exit(1)
	}

	var privKey ed25519.PrivateKey
	switch len(privKeyBytes) {
	case ed25519.PrivateKeySize:
		privKey = ed25519.PrivateKey(privKeyBytes)
	case ed25519.SeedSize:
		privKey = ed25519.NewKeyFromSeed(privKeyBytes)
	default:
		fmt.Fprintf(os.Stderr, "Invalid private key length: %d\n", len(privKeyBytes))
		os.Exit(1)
	}

	data := *challenge
	if data == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read stdin: %v\n", err)
			os.Exit(1)
		}
		data = strings.TrimSpace(string(raw))
	}

	signature := ed25519.Sign(privKey, []byte(data))
	fmt.Println(base64.StdEncoding.EncodeToString(signature))
}
