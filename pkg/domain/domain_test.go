package domain_test

import (
	"testing"

	"certwatch/pkg/domain"
	"certwatch/pkg/serrors"

	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "example.com", want: "example.com"},
		{name: "uppercase", in: "Example.COM", want: "example.com"},
		{name: "surrounding whitespace", in: "  example.com ", want: "example.com"},
		{name: "trailing dot", in: "example.com.", want: "example.com"},
		{name: "multi label", in: "sub.example.co.uk", want: "sub.example.co.uk"},
		{name: "empty", in: "", wantErr: true},
		{name: "only whitespace", in: "   ", wantErr: true},
		{name: "inner whitespace", in: "exa mple.com", wantErr: true},
		{name: "no dot", in: "localhost", wantErr: true},
		{name: "path separator", in: "example.com/evil", wantErr: true},
		{name: "leading dot", in: ".example.com", wantErr: true},
		{name: "empty label", in: "example..com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ValidateName(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, serrors.ErrBadRequest)

				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestIsSubdomainOf(t *testing.T) {
	require.True(t, domain.IsSubdomainOf("api.example.com", "example.com"))
	require.True(t, domain.IsSubdomainOf("a.b.example.com", "example.com"))
	require.False(t, domain.IsSubdomainOf("example.com", "example.com"), "exact match is not a subdomain")
	require.False(t, domain.IsSubdomainOf("evilexample.com", "example.com"), "suffix must align on a label boundary")
	require.False(t, domain.IsSubdomainOf("api.other.com", "example.com"))
}
