package contexthelpers_test

import (
	"net/http/httptest"
	"testing"

	"github.com/myrjola/manuscript/internal/contexthelpers"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateContext(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	require.False(t, contexthelpers.IsAuthenticated(r.Context()))
	require.Empty(t, contexthelpers.AuthenticatedUserID(r.Context()))

	r = contexthelpers.AuthenticateContext(r, "user-1")
	require.True(t, contexthelpers.IsAuthenticated(r.Context()))
	require.Equal(t, "user-1", contexthelpers.AuthenticatedUserID(r.Context()))
}

func TestSetRequestID(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	require.Empty(t, contexthelpers.RequestID(r.Context()))
	r = contexthelpers.SetRequestID(r, "abc")
	require.Equal(t, "abc", contexthelpers.RequestID(r.Context()))
}
