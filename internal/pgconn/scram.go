// SPDX-License-Identifier: Apache-2.0

package pgconn

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// scramClient drives one SCRAM-SHA-256 exchange (RFC 5802), mirroring
// the three-message flow the server announces via AuthenticationSASL/
// SASLContinue/SASLFinal.
type scramClient struct {
	user     string
	password string

	clientNonce     string
	combinedNonce   string
	clientFirstBare string
	saltedPassword  []byte
	authMessage     string
}

func newScramClient(user, password string) (*scramClient, error) {
	nonce, err := randomNonce(24)
	if err != nil {
		return nil, err
	}
	return &scramClient{user: user, password: password, clientNonce: nonce}, nil
}

func randomNonce(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("pgconn: generating SCRAM nonce: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(buf), nil
}

// clientFirstMessage builds "n,,n=user,r=nonce", the GS2 header plus
// the bare first message the SASLInitialResponse body carries.
func (c *scramClient) clientFirstMessage() []byte {
	c.clientFirstBare = "n=" + saslEscape(c.user) + ",r=" + c.clientNonce
	return []byte("n,," + c.clientFirstBare)
}

// processServerFirst parses the server's "r=...,s=...,i=..." challenge
// and returns the client-final-message to send back.
func (c *scramClient) processServerFirst(serverFirst []byte) ([]byte, error) {
	fields := parseSCRAMFields(string(serverFirst))
	combinedNonce, ok := fields["r"]
	if !ok || !strings.HasPrefix(combinedNonce, c.clientNonce) {
		return nil, fmt.Errorf("pgconn: SCRAM server nonce does not extend client nonce")
	}
	saltB64, ok := fields["s"]
	if !ok {
		return nil, fmt.Errorf("pgconn: SCRAM server-first missing salt")
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return nil, fmt.Errorf("pgconn: decoding SCRAM salt: %w", err)
	}
	iterCount, ok := fields["i"]
	if !ok {
		return nil, fmt.Errorf("pgconn: SCRAM server-first missing iteration count")
	}
	iterations := 0
	if _, err := fmt.Sscanf(iterCount, "%d", &iterations); err != nil || iterations <= 0 {
		return nil, fmt.Errorf("pgconn: invalid SCRAM iteration count %q", iterCount)
	}

	c.combinedNonce = combinedNonce
	c.saltedPassword = pbkdf2.Key([]byte(c.password), salt, iterations, sha256.Size, sha256.New)

	clientFinalWithoutProof := "c=biws,r=" + combinedNonce
	c.authMessage = c.clientFirstBare + "," + string(serverFirst) + "," + clientFinalWithoutProof

	clientKey := hmacSHA256(c.saltedPassword, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)
	clientSignature := hmacSHA256(storedKey[:], []byte(c.authMessage))

	proof := make([]byte, len(clientKey))
	for i := range proof {
		proof[i] = clientKey[i] ^ clientSignature[i]
	}

	final := clientFinalWithoutProof + ",p=" + base64.StdEncoding.EncodeToString(proof)
	return []byte(final), nil
}

// verifyServerFinal checks the server's "v=..." signature against the
// one computed from the salted password, proving the server also knows
// the shared secret.
func (c *scramClient) verifyServerFinal(serverFinal []byte) error {
	fields := parseSCRAMFields(string(serverFinal))
	sigB64, ok := fields["v"]
	if !ok {
		return fmt.Errorf("pgconn: SCRAM server-final missing signature")
	}
	wantSig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return fmt.Errorf("pgconn: decoding SCRAM server signature: %w", err)
	}

	serverKey := hmacSHA256(c.saltedPassword, []byte("Server Key"))
	gotSig := hmacSHA256(serverKey, []byte(c.authMessage))
	if !hmac.Equal(gotSig, wantSig) {
		return fmt.Errorf("pgconn: SCRAM server signature mismatch, possible MITM")
	}
	return nil
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func parseSCRAMFields(s string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}

// saslEscape applies the SCRAM username escaping rule: '=' -> "=3D",
// ',' -> "=2C".
func saslEscape(s string) string {
	s = strings.ReplaceAll(s, "=", "=3D")
	s = strings.ReplaceAll(s, ",", "=2C")
	return s
}
