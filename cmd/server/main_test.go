package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mes_planner/internal/metrics"
)

func TestMux_Health(t *testing.T) {
	server := httptest.NewServer(newMux(http.NotFoundHandler()))
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))
}

func TestMux_Metrics(t *testing.T) {
	metrics.ScenarioFinished("optimal")

	server := httptest.NewServer(newMux(http.NotFoundHandler()))
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `mes_scenarios_total{status="optimal"}`)
}

func TestMux_WebSocketRoute(t *testing.T) {
	hit := false
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		w.WriteHeader(http.StatusTeapot)
	})
	server := httptest.NewServer(newMux(ws))
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.True(t, hit)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}
