package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/novasniper/novadash/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second, zap.NewNop()), server
}

func TestFetchTokens(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/functions/fetchTokens", r.URL.Path)

		var req struct {
			Category types.FeedCategory `json:"category"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, types.FeedConfirmed, req.Category)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"tokens": []map[string]interface{}{
				{"address": "addr1", "symbol": "AAA", "price": 0.42},
				{"address": "addr2", "symbol": "BBB", "price": 1.05},
			},
		})
	})

	tokens, err := client.FetchTokens(context.Background(), types.FeedConfirmed)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "addr1", tokens[0].Address, "feed order is preserved")
	assert.Equal(t, 0.42, tokens[0].Price)
}

func TestFetchTokensServerError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.FetchTokens(context.Background(), types.FeedEarly)
	require.Error(t, err)
}

func TestStartAllPhases(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/startAllPhases", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})

	require.NoError(t, client.StartAllPhases(context.Background()))
}

func TestStartAllPhasesRefused(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "already running",
		})
	})

	err := client.StartAllPhases(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestPriceAlertSystemEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "monitor", req["action"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"monitoring": map[string]interface{}{
				"alertsTriggered": 3,
				"alertsChecked":   10,
			},
		})
	})

	resp, err := client.PriceAlertSystem(context.Background(), AlertRequest{Action: AlertActionMonitor})
	require.NoError(t, err)
	require.NotNil(t, resp.Monitoring)
	assert.Equal(t, 3, resp.Monitoring.AlertsTriggered)
}

func TestPriceAlertSystemFailureEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "alert limit reached",
		})
	})

	_, err := client.PriceAlertSystem(context.Background(), AlertRequest{Action: AlertActionCreate})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alert limit reached")
}

func TestPerformSafetyChecks(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/performSafetyChecks", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"safetyCheck": map[string]interface{}{
				"overallScore":   72.5,
				"honeypotResult": "passed",
			},
		})
	})

	check, err := client.PerformSafetyChecks(context.Background(), "addr1")
	require.NoError(t, err)
	assert.Equal(t, "addr1", check.TokenAddress)
	assert.Equal(t, 72.5, check.OverallScore)
}

func TestListWatchlist(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/entities/WatchlistToken", r.URL.Path)
		assert.Equal(t, "user@example.com", r.URL.Query().Get("userEmail"))

		_ = json.NewEncoder(w).Encode([]map[string]interface{}{
			{"id": "e1", "tokenSymbol": "AAA"},
		})
	})

	entries, err := client.ListWatchlist(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "e1", entries[0].ID)
}

func TestUpdateWatchlistPartialPatch(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/entities/WatchlistToken/e1", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["alertEnabled"])
		assert.NotContains(t, body, "alertThreshold", "unset fields are omitted")

		w.WriteHeader(http.StatusOK)
	})

	enabled := true
	err := client.UpdateWatchlist(context.Background(), "e1", WatchlistPatch{AlertEnabled: &enabled})
	require.NoError(t, err)
}

func TestDeleteWatchlist(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/entities/WatchlistToken/e2", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.DeleteWatchlist(context.Background(), "e2"))
}

func TestWhoAmI(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/me", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"email":     "user@example.com",
			"full_name": "Test User",
		})
	})

	user, err := client.WhoAmI(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, "Test User", user.FullName)
}

func TestContextCancellation(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"tokens": []interface{}{}})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.FetchTokens(ctx, types.FeedEarly)
	require.Error(t, err)
}
