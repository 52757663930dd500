package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTags(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "trims and lowercases",
			in:   []string{"  Work ", "FOCUS"},
			want: []string{"work", "focus"},
		},
		{
			name: "drops empties",
			in:   []string{"", "   ", "rest"},
			want: []string{"rest"},
		},
		{
			name: "dedupes after folding",
			in:   []string{"work", "Work", " WORK "},
			want: []string{"work"},
		},
		{
			name: "composes decomposed unicode",
			in:   []string{"café", "café"},
			want: []string{"café"},
		},
		{
			name: "keeps first-seen order",
			in:   []string{"b", "a", "B"},
			want: []string{"b", "a"},
		},
		{
			name: "nil stays nil",
			in:   nil,
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeTags(tc.in))
		})
	}
}
