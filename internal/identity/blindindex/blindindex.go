// Package blindindex computes keyed digests of email addresses so identities
// can be matched by email without storing it.
//
// Two distinct emails with the same digest would collide on the email index's
// unique constraint. That risk is accepted and not handled here.
package blindindex

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	dErrors "safeharbour/pkg/domain-errors"
)

type Index struct {
	secret []byte
}

func New(secret []byte) (*Index, error) {
	if len(secret) == 0 {
		return nil, dErrors.New(dErrors.CodeConfiguration, "blind index secret is not configured")
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &Index{secret: s}, nil
}

// Normalize lowercases and trims an email address.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Hash returns the hex HMAC-SHA256 of the normalized email.
func (i *Index) Hash(email string) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(Normalize(email)))
	return hex.EncodeToString(mac.Sum(nil))
}
