package main

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/manuscript/internal/e2etest"
	"github.com/stretchr/testify/require"
)

func testLookupEnv(key string) (string, bool) {
	switch key {
	case "MANUSCRIPT_ADDR":
		return "localhost:0", true
	case "MANUSCRIPT_SQLITE_URL":
		return ":memory:", true
	case "MANUSCRIPT_BCRYPT_COST":
		return "4", true
	default:
		return "", false
	}
}

// startTestServer starts the server on an ephemeral port with a fresh in-memory database.
func startTestServer(t *testing.T) *e2etest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	server, err := e2etest.StartServer(ctx, io.Discard, testLookupEnv, run)
	require.NoError(t, err)
	return server
}

// signedInClient returns a client with a freshly registered user.
func signedInClient(t *testing.T, server *e2etest.Server, email string) *e2etest.Client {
	t.Helper()
	client, err := e2etest.NewClient(server.URL())
	require.NoError(t, err)
	_, err = client.SignUp(context.Background(), email, "correct horse", "")
	require.NoError(t, err)
	return client
}
