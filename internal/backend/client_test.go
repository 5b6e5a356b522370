package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com", "", nil)
	assert.Error(t, err)
}

func TestGetSendsTokenAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/thing", r.URL.Path)
		assert.Equal(t, "3.86", r.URL.Query().Get("lat"))
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "melen"})
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/v1/", "secret", srv.Client())
	require.NoError(t, err)

	var out struct{ Name string }
	require.NoError(t, c.Get(context.Background(), "/thing", url.Values{"lat": {"3.86"}}, &out))
	assert.Equal(t, "melen", out.Name)
}

func TestPostEncodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var in map[string]int
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]int{"double": in["n"] * 2})
	}))
	defer srv.Close()

	c, err := New(srv.URL, "", nil)
	require.NoError(t, err)

	var out struct{ Double int }
	require.NoError(t, c.Post(context.Background(), "/x", map[string]int{"n": 21}, &out))
	assert.Equal(t, 42, out.Double)
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message", `{"message":"token expired"}`, "token expired"},
		{"error", `{"error":"bad lat"}`, "bad lat"},
		{"plain", "upstream down\n", "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := New(srv.URL, "t", nil)
			require.NoError(t, err)

			err = c.Get(context.Background(), "/", nil, nil)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}
