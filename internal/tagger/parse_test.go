package tagger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "comma separated",
			raw:  "sunset, beach, golden hour",
			want: []string{"sunset", "beach", "golden hour"},
		},
		{
			name: "newline separated with list markers",
			raw:  "- sunset\n- beach\n* waves",
			want: []string{"sunset", "beach", "waves"},
		},
		{
			name: "tags label stripped",
			raw:  "Tags: sunset, beach",
			want: []string{"sunset", "beach"},
		},
		{
			name: "lowercased and deduplicated",
			raw:  "Sunset, sunset, BEACH",
			want: []string{"sunset", "beach"},
		},
		{
			name: "preamble skipped",
			raw:  "Here are some tags for the photo\nsunset, beach",
			want: []string{"sunset", "beach"},
		},
		{
			name: "empty response",
			raw:  "",
			want: []string{},
		},
		{
			name: "whitespace only",
			raw:  "  \n  ,  ",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseResponse(tt.raw))
		})
	}
}
