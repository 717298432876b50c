package security

import (
	"crypto/rand"
	"io"
)

// Алфавит без похожих символов (I/O/0/1); длина 32 — байт ложится
// на алфавит без смещения.
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewInviteCode генерирует криптостойкий код приглашения.
func NewInviteCode(n int) (string, error) {
	if n <= 0 {
		n = 8
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = inviteAlphabet[int(b[i])%len(inviteAlphabet)]
	}
	return string(b), nil
}
