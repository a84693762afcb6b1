package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pubsync/pubsync/internal/common/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticConfig struct {
	url   string
	token string
}

func (c staticConfig) GetServerURL() string { return c.url }
func (c staticConfig) GetToken() string     { return c.token }

func TestDoRequestDecoratesRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/publications/search", r.URL.Path)
		assert.Equal(t, "go", r.URL.Query().Get("query"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(staticConfig{url: srv.URL + "/api", token: "tok"})
	resp, err := c.DoRequest(context.Background(), RequestOptions{
		Method:      http.MethodGet,
		Path:        "publications/search",
		QueryParams: map[string]string{"query": "go"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", string(resp.Body))
}

func TestDoRequestNoTokenNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"username":"ana"}`, string(body))
		w.Header().Set("Location", "/users/1")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(staticConfig{url: srv.URL})
	resp, err := c.DoRequest(context.Background(), RequestOptions{
		Method: http.MethodPost,
		Path:   "auth/register",
		Body:   []byte(`{"username":"ana"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "/users/1", resp.Location)
}

func TestDoRequestFailureStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"msg":"taken"}`))
	}))
	defer srv.Close()

	resp, err := NewClient(staticConfig{url: srv.URL}).DoRequest(context.Background(), RequestOptions{Method: http.MethodPut, Path: "users/me/username"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, `{"msg":"taken"}`, string(resp.Body))
}

func TestDoRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(staticConfig{url: srv.URL}, ClientOptions{Timeout: 50 * time.Millisecond})
	_, err := c.DoRequest(context.Background(), RequestOptions{Method: http.MethodGet, Path: "users/me"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNetworkTimeout, apperrors.KindOf(err))
	assert.ErrorIs(t, err, apperrors.ErrNetworkTimeout)
}

func TestDoRequestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(staticConfig{url: url}).DoRequest(context.Background(), RequestOptions{Method: http.MethodPost, Path: "auth/login"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNetworkIO, apperrors.KindOf(err))
}

func TestDoRequestRetriesGetOnDroppedConnection(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	c := NewClient(staticConfig{url: srv.URL}, ClientOptions{RetryAttempts: 3, RetryDelay: time.Millisecond})
	resp, err := c.DoRequest(context.Background(), RequestOptions{Method: http.MethodGet, Path: "categories"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDoRequestCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(staticConfig{url: srv.URL}).DoRequest(ctx, RequestOptions{Method: http.MethodPost, Path: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestCanceled)
}

func TestDoRequestInvalidServerURL(t *testing.T) {
	_, err := NewClient(staticConfig{url: "not a url"}).DoRequest(context.Background(), RequestOptions{Method: http.MethodGet})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindClientValidation, apperrors.KindOf(err))
}

func TestRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := NewClient(staticConfig{url: srv.URL}, ClientOptions{RateLimit: 20, RateBurst: 1})
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.DoRequest(context.Background(), RequestOptions{Method: http.MethodPost, Path: "x"})
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
