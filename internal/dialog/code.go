package dialog

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// codeAlphabet is the character set for verification codes: uppercase
// letters and digits, easy to compare across two surfaces by eye.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewVerificationCode generates a fresh XXXX-XXXX code. One code lives
// for exactly one collection attempt and is shown identically on the
// in-protocol prompt and the external dialog.
func NewVerificationCode() (string, error) {
	size := big.NewInt(int64(len(codeAlphabet)))
	out := make([]byte, 0, 9)
	for i := 0; i < 8; i++ {
		if i == 4 {
			out = append(out, '-')
		}
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generating verification code: %w", err)
		}
		out = append(out, codeAlphabet[n.Int64()])
	}
	return string(out), nil
}
