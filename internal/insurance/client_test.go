package insurance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyActiveCoverage(t *testing.T) {
	var captured verifyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/verify", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("X-API-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "active",
			"provider": "Daman Health Insurance",
			"plan_name": "Enhanced Plan",
			"member_id": "DHI-445566",
			"expiry_date": "2027-03-01"
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key-123", nil)

	status, err := client.Verify(context.Background(), "+971501234567", "784-1234-1234567-1")
	require.NoError(t, err)
	assert.Equal(t, "active", status.Status)
	assert.Equal(t, "Daman Health Insurance", status.Provider)
	assert.Equal(t, "DHI-445566", status.MemberID)
	assert.Equal(t, "784-1234-1234567-1", captured.EmiratesID)
}

func TestVerifyNotFoundIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "not_found"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil)

	status, err := client.Verify(context.Background(), "+971501234567", "784-9999-9999999-9")
	require.NoError(t, err)
	assert.Equal(t, "not_found", status.Status)
}

func TestVerifyGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil)

	_, err := client.Verify(context.Background(), "+971501234567", "784-1234-1234567-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestVerifyRejectsUnknownStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status": "pending"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", nil)

	_, err := client.Verify(context.Background(), "+971501234567", "784-1234-1234567-1")
	require.Error(t, err)
}
