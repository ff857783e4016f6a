package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bnpl-checkout/shared"
)

func newBackend(t *testing.T, h http.HandlerFunc) *BackendClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewBackendClient(srv.URL, "test-key", srv.Client())
}

func TestBackend_CreateLinkToken(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/create_link_token", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		json.NewEncoder(w).Encode(map[string]string{"link_token": "link-sandbox-123"})
	})

	tok, err := c.CreateLinkToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "link-sandbox-123", tok)
}

func TestBackend_SetAccessToken(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "public-sandbox-1", body["publicToken"])
		w.WriteHeader(http.StatusBadGateway)
	})

	err := c.SetAccessToken(context.Background(), "public-sandbox-1")
	assert.True(t, IsStatus(err, http.StatusBadGateway))
}

func TestBackend_FetchVerificationStatus(t *testing.T) {
	var gotPath, gotUser string
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser = r.URL.Query().Get("privyId")
		w.Write([]byte(`{}`))
	})

	_, has, err := c.FetchVerificationStatus(context.Background(), shared.SourceRevolut, "did:privy:1")
	require.NoError(t, err)
	assert.False(t, has)
	assert.Equal(t, "/underwriting/get-revolut-or-privy", gotPath)
	assert.Equal(t, "did:privy:1", gotUser)

	_, _, err = c.FetchVerificationStatus(context.Background(), "", "did:privy:1")
	require.NoError(t, err)
	assert.Equal(t, "/underwriting/get-privy", gotPath)
}

func TestBackend_Unconfigured(t *testing.T) {
	c := NewBackendClient("", "", nil)
	_, err := c.CreateLinkToken(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestHasData(t *testing.T) {
	assert.False(t, HasData([]byte(`{}`)))
	assert.False(t, HasData([]byte(`[]`)))
	assert.False(t, HasData([]byte(`null`)))
	assert.False(t, HasData([]byte(`not json`)))
	assert.True(t, HasData([]byte(`[{"a":1}]`)))
	assert.True(t, HasData([]byte(`{"data":{}}`)))
}
