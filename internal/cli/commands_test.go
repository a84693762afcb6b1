package cli

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/pubsync/pubsync/internal/sync/session"
	"github.com/pubsync/pubsync/internal/sync/session/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginProfileLogout(t *testing.T) {
	t.Setenv(EnvServerURL, "")
	t.Setenv(EnvLogLevel, "")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			io.WriteString(w, `{"token":"tok","userId":3,"role":"user"}`)
		case "/users/me":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			io.WriteString(w, `{"id":3,"username":"bob"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, DefaultConfigFile)
	require.NoError(t, NewConfig(srv.URL).WriteConfig(cfgPath))

	run := func(args ...string) error {
		rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
		return rootCmd.Execute()
	}
	store, err := filestore.New(filepath.Join(dir, "session.yaml"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, run("login", "--email", "bob@example.com", "--password", "pw"))
	tok, ok, err := store.Get(ctx, session.KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", tok)

	require.NoError(t, run("profile"))
	require.NoError(t, run("whoami"))

	require.NoError(t, run("logout"))
	_, ok, err = store.Get(ctx, session.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, run("like", "1"), "toggles need a session")
	assert.Error(t, run("profile"))
}

func TestMissingConfig(t *testing.T) {
	rootCmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "feed"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}
