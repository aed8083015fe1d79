package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// OTP parameters for the second login step.
const (
	otpLength = 6
	otpTTL    = 5 * time.Minute
)

// Ambiguous glyphs excluded so the code survives being read over the phone.
const otpAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateOTP returns a random login code.
func generateOTP() (string, error) {
	max := big.NewInt(int64(len(otpAlphabet)))
	buf := make([]byte, otpLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		buf[i] = otpAlphabet[n.Int64()]
	}
	return string(buf), nil
}
