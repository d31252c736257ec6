package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"time"
)

const codeDigits = 6

var (
	// NowFunc and RandReader are swapped out in tests.
	NowFunc              = func() time.Time { return time.Now().UTC() }
	RandReader io.Reader = rand.Reader

	codeMax = big.NewInt(1_000_000)
)

// Code is a one-time login code. Only its hash is ever stored.
type Code struct {
	ID        int       `db:"id"`
	StudentID string    `db:"student_id"`
	CodeHash  string    `db:"code_hash"`
	ExpiresAt time.Time `db:"expires_at"` // UTC
	CreatedAt time.Time `db:"created_at"` // UTC
	Used      bool      `db:"used"`
}

// Expired reports whether now is past ExpiresAt. A code is still accepted at the expiry instant.
func (c Code) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Matches compares the plaintext code against the stored hash in constant time.
func (c Code) Matches(code string) bool {
	return subtle.ConstantTimeCompare([]byte(hashCode(code)), []byte(c.CodeHash)) == 1
}

func generateCode() (string, error) {
	n, err := rand.Int(RandReader, codeMax)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
