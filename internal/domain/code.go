package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// referralCodeLen is the length of a referral code in hex characters.
const referralCodeLen = 8

// NewReferralCode returns a fresh referral code: 8 uppercase hex characters.
// Codes are immutable once assigned to an account; uniqueness is enforced by
// the store, and callers retry on the (vanishingly rare) collision.
func NewReferralCode() string {
	buf := make([]byte, referralCodeLen/2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; nothing
		// sensible to return, so fail loudly.
		panic("domain: reading random bytes: " + err.Error())
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
