package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"notistream/client"
	"notistream/internal/domain"
)

func TestClientAgainstServer(t *testing.T) {
	ts := setupServer(t)
	token := authToken(t, "user-1")

	var (
		mu     sync.Mutex
		events []client.EventName
	)
	stream := client.New(client.Config{
		URL:            ts.server.URL + "/api/notifications/stream",
		Token:          token,
		CoalesceWindow: 20 * time.Millisecond,
		OnEvent: func(name client.EventName, payload []byte) {
			mu.Lock()
			events = append(events, name)
			mu.Unlock()
		},
	})

	stream.Start()
	defer stream.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && stream.State() != client.StateConnected {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, client.StateConnected, stream.State())

	payload, err := json.Marshal(map[string]string{
		"user_id": "user-1",
		"type":    string(domain.TypeBookingCreated),
		"message": "created",
	})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, ts.server.URL+"/api/notifications", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+authToken(t, "admin"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	// Wait for the coalesced callback itself; stopping earlier would
	// cancel the pending dispatch.
	seenNew := func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, name := range events {
			if name == client.EventNew {
				return true
			}
		}
		return false
	}
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !seenNew() {
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, seenNew())
	require.Equal(t, client.EventNew, stream.LastEvent())

	stream.Stop()
	require.Equal(t, client.StateIdle, stream.State())
}

func TestClientRejectedToken(t *testing.T) {
	ts := setupServer(t)

	stream := client.New(client.Config{
		URL:                      ts.server.URL + "/api/notifications/stream",
		Token:                    "not-a-jwt",
		BaseDelay:                10 * time.Millisecond,
		MaxDelay:                 40 * time.Millisecond,
		PollInterval:             time.Minute,
		MaxRetriesBeforeFallback: 3,
	})

	stream.Start()
	defer stream.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && stream.State() != client.StatePolling {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, client.StatePolling, stream.State())
	require.True(t, stream.IsUsingFallback())
}
