//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseCaseID tests that parsing never panics on arbitrary input
// and always returns either a valid ID or an error.
func FuzzParseCaseID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE cases;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseCaseID(input)
		if err == nil {
			roundTrip, err2 := ParseCaseID(id.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
			if id.IsNil() {
				t.Error("nil ID was accepted")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseAllIDs ensures all ID types have consistent behavior.
func FuzzParseAllIDs(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		_, errCase := ParseCaseID(input)
		_, errOrg := ParseOrgID(input)
		_, errApproval := ParseApprovalID(input)
		_, errReveal := ParseRevealID(input)
		_, errAlert := ParseAlertID(input)

		accepted := errCase == nil
		for _, err := range []error{errOrg, errApproval, errReveal, errAlert} {
			if (err == nil) != accepted {
				t.Error("inconsistent parsing across ID types")
			}
		}
	})
}
