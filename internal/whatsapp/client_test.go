package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendText(t *testing.T) {
	var captured textMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/123456/messages", r.URL.Path)
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer server.Close()

	client := NewClient("token-abc", "123456", nil)
	client.SetGraphAPIBase(server.URL)

	err := client.SendText(context.Background(), "+971501234567", "Hello!")
	require.NoError(t, err)
	assert.Equal(t, "whatsapp", captured.MessagingProduct)
	assert.Equal(t, "+971501234567", captured.To)
	assert.Equal(t, "Hello!", captured.Text.Body)
}

func TestClientSendTextAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"invalid token"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient("bad-token", "123456", nil)
	client.SetGraphAPIBase(server.URL)

	err := client.SendText(context.Background(), "+971501234567", "Hello!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
