package hetzner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRobotClient_ListServers_UnwrapsEntries(t *testing.T) {
	var user, pass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		assert.Equal(t, "/server", r.URL.Path)
		fmt.Fprint(w, `[
			{"server": {"server_ip": "88.1.2.3", "server_number": 123, "server_name": "storage-1", "product": "AX41-NVMe", "dc": "FSN1-DC14", "status": "ready"}},
			{"server": {"server_ip": "88.1.2.4", "server_number": 124, "server_name": "storage-2", "product": "AX41-NVMe", "dc": "FSN1-DC14", "status": "ready"}}
		]`)
	}))
	defer server.Close()

	client := NewRobotClient("robot-user", "robot-pass", WithRobotBaseURL(server.URL))
	servers, err := client.ListServers(context.Background())

	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, "88.1.2.3", servers[0].ServerIP)
	assert.Equal(t, int64(124), servers[1].ServerNumber)
	assert.Equal(t, "robot-user", user)
	assert.Equal(t, "robot-pass", pass)
}

func TestRobotClient_GetServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/server/88.1.2.3", r.URL.Path)
		fmt.Fprint(w, `{"server": {"server_ip": "88.1.2.3", "server_number": 123, "server_name": "storage-1", "product": "AX41-NVMe", "dc": "FSN1-DC14", "status": "ready", "paid_until": "2026-12-31"}}`)
	}))
	defer server.Close()

	client := NewRobotClient("u", "p", WithRobotBaseURL(server.URL))
	got, err := client.GetServer(context.Background(), "88.1.2.3")

	require.NoError(t, err)
	assert.Equal(t, "storage-1", got.ServerName)
	assert.Equal(t, "2026-12-31", got.PaidUntil)
}

func TestRobotClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"status": 401, "code": "UNAUTHORIZED"}}`)
	}))
	defer server.Close()

	client := NewRobotClient("u", "wrong", WithRobotBaseURL(server.URL))
	_, err := client.ListServers(context.Background())

	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "robot", apiErr.API)
}
