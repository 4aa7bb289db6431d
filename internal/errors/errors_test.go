package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	autherrors "github.com/jrsteele09/door-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestNewStatusErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, autherrors.ErrAuthExpired},
		{http.StatusForbidden, autherrors.ErrAuthorizationDenied},
		{http.StatusBadRequest, autherrors.ErrRequest},
		{http.StatusNotFound, autherrors.ErrRequest},
		{http.StatusInternalServerError, autherrors.ErrServer},
		{http.StatusBadGateway, autherrors.ErrServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := autherrors.NewStatusError(tt.status, "")
			require.ErrorIs(t, err, tt.want)
			require.Equal(t, tt.want, autherrors.Kind(fmt.Errorf("call: %w", err)))
		})
	}
}

func TestKindUnknown(t *testing.T) {
	require.Nil(t, autherrors.Kind(fmt.Errorf("boom")))
}

func TestWrapfNil(t *testing.T) {
	require.NoError(t, autherrors.Wrapf(nil, "ctx"))
	err := autherrors.Wrapf(autherrors.ErrNetwork, "get %s", "/status")
	require.ErrorIs(t, err, autherrors.ErrNetwork)
	require.Equal(t, "get /status: network error", err.Error())
}
