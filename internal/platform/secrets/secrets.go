// Package secrets decodes configured key material and derives purpose-bound
// sub-keys from a master secret.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	dErrors "safeharbour/pkg/domain-errors"
)

// KeySize is the size of every derived key.
const KeySize = 32

// Purposes bound into derived keys. Changing one rotates every value keyed by it.
const (
	PurposeCodec      = "safeharbour/uin-codec/v1"
	PurposeBlindIndex = "safeharbour/email-blind-index/v1"
)

// Generate creates a random hex-encoded master secret.
func Generate() (string, error) {
	buf := make([]byte, KeySize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Decode parses a hex-encoded secret.
func Decode(name, value string) ([]byte, error) {
	if value == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, name+" is not configured")
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, name+" must be hex encoded")
	}
	return key, nil
}

// Derive expands master into a KeySize key bound to purpose.
func Derive(master []byte, purpose string) ([]byte, error) {
	if len(master) == 0 {
		return nil, dErrors.New(dErrors.CodeConfiguration, "master secret is empty")
	}
	out := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(purpose)), out); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "derive key")
	}
	return out, nil
}

// Resolve returns the explicit key when set, otherwise derives it from master.
func Resolve(name, explicit, master, purpose string) ([]byte, error) {
	if explicit != "" {
		return Decode(name, explicit)
	}
	m, err := Decode("master secret", master)
	if err != nil {
		return nil, err
	}
	return Derive(m, purpose)
}
