package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAllowedOrigins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       []string
		want     []string
		allowAll bool
	}{
		{name: "empty"},
		{name: "comma separated", in: []string{"https://a.example, https://b.example/"}, want: []string{"https://a.example", "https://b.example"}},
		{name: "wildcard", in: []string{"https://a.example", "*"}, want: []string{"https://a.example"}, allowAll: true},
		{name: "blanks", in: []string{" , ", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, all := normalizeAllowedOrigins(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.allowAll, all)
		})
	}
}
