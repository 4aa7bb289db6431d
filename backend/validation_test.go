package backend_test

import (
	"testing"

	"github.com/jrsteele09/door-client/backend"
	autherrors "github.com/jrsteele09/door-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	a, err := backend.ParseAction(" OPEN ")
	require.NoError(t, err)
	require.Equal(t, backend.ActionOpen, a)

	a, err = backend.ParseAction("close")
	require.NoError(t, err)
	require.Equal(t, backend.ActionClose, a)

	_, err = backend.ParseAction("unlock")
	require.ErrorIs(t, err, autherrors.ErrInvalidAction)
}

func TestNormaliseEmail(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Jane@Example.com", "jane@example.com", false},
		{"  bob@example.org ", "bob@example.org", false},
		{"", "", true},
		{"no-at-sign", "", true},
		{"Jane <jane@example.com>", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := backend.NormaliseEmail(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, autherrors.ErrInvalidEmail)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
