package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPCaller_Validation(t *testing.T) {
	_, err := NewHTTPCaller("not a url at all ://", nil)
	assert.Error(t, err)

	_, err = NewHTTPCaller("/just/a/path", nil)
	assert.Error(t, err)

	caller, err := NewHTTPCaller("http://localhost:8080", nil)
	require.NoError(t, err)
	assert.NotNil(t, caller)
}

func TestHTTPCaller_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/schedules", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"s-1"}`))
	}))
	defer srv.Close()

	caller, err := NewHTTPCaller(srv.URL, http.Header{"Content-Type": []string{"application/json"}})
	require.NoError(t, err)

	resp, err := caller.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/api/v1/schedules",
		Body:   []byte(`{"title":"standup"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"id":"s-1"}`, string(resp.Body))
	assert.Greater(t, resp.Duration, time.Duration(0))
}

func TestHTTPCaller_RequestHeaderOverridesDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	caller, err := NewHTTPCaller(srv.URL, http.Header{"Authorization": []string{"Bearer stale"}})
	require.NoError(t, err)

	resp, err := caller.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/me",
		Header: http.Header{"Authorization": []string{"Bearer fresh"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPCaller_PerCallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	caller, err := NewHTTPCaller(srv.URL, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = caller.Do(context.Background(), Request{
		Method:  http.MethodGet,
		Path:    "/slow",
		Timeout: 30 * time.Millisecond,
	})
	assert.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHTTPCaller_JoinsBasePath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	caller, err := NewHTTPCaller(srv.URL+"/api/", nil)
	require.NoError(t, err)

	_, err = caller.Do(context.Background(), Request{Method: http.MethodGet, Path: "/health"})
	require.NoError(t, err)
	assert.Equal(t, "/api/health", gotPath)
}
