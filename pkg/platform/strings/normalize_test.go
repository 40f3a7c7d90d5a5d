package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type label string

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "nil", input: nil, want: nil},
		{name: "only blanks", input: []string{" ", ""}, want: nil},
		{name: "trims and lowercases", input: []string{" Chair ", "ESCALATION"}, want: []string{"chair", "escalation"}},
		{name: "keeps first occurrence order", input: []string{"b", "a", "B", "a "}, want: []string{"b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeNamedType(t *testing.T) {
	assert.Equal(t, []label{"chair"}, Normalize([]label{"Chair", "chair"}))
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"chair", "escalation"}, Split("chair, escalation,,Chair"))
	assert.Nil(t, Split(""))
}
