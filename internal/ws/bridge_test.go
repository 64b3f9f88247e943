package ws

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mes_planner/internal/milp"
	"mes_planner/internal/planner"
	"mes_planner/internal/report"
)

func newTestBridge() (*Bridge, *Client) {
	hub := testHub()
	client := &Client{hub: hub, send: make(chan []byte, 256)}
	hub.Register(client)
	bridge := NewBridge(hub, zerolog.New(io.Discard))
	bridge.SetRun("run-1")
	return bridge, client
}

func receiveEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	msg := <-c.send
	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func TestBridge_OnStage(t *testing.T) {
	bridge, client := newTestBridge()

	bridge.OnStage(planner.StageUpdate{
		Scenario: "baseline",
		Stage:    planner.StageSolve,
		Time:     time.Date(2024, 11, 21, 12, 0, 0, 0, time.UTC),
	})

	env := receiveEnvelope(t, client)
	assert.Equal(t, TypeRunStage, env.Type)

	var p RunStagePayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "run-1", p.RunID)
	assert.Equal(t, "baseline", p.Scenario)
	assert.Equal(t, "solve", p.Stage)
	assert.Equal(t, "2024-11-21T12:00:00Z", p.Time)
}

func TestBridge_OnModel(t *testing.T) {
	bridge, client := newTestBridge()

	bridge.OnModel(planner.ModelStats{Scenario: "baseline", Variables: 100, Constraints: 250, Branches: 68, Rows: 192})

	env := receiveEnvelope(t, client)
	assert.Equal(t, TypeRunModel, env.Type)

	var p RunModelPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, 100, p.Variables)
	assert.Equal(t, 250, p.Constraints)
	assert.Equal(t, 68, p.Branches)
	assert.Equal(t, 192, p.Rows)
}

func TestBridge_OnOutcome(t *testing.T) {
	bridge, client := newTestBridge()

	bridge.OnOutcome(planner.Outcome{
		Scenario: "baseline",
		Status:   milp.StatusOptimal,
		Solver:   "highs",
		Elapsed:  2500 * time.Millisecond,
		Files:    report.Paths("results", "baseline"),
		Metrics: report.Metrics{
			TotalCost:       1000,
			InvestmentCost:  400,
			OperationalCost: 600,
			GasImport:       50,
			ElecImport:      20,
			GasCapacity:     15,
		},
	})

	env := receiveEnvelope(t, client)
	assert.Equal(t, TypeRunSummary, env.Type)

	var p RunSummaryPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "run-1", p.RunID)
	assert.Equal(t, "optimal", p.Status)
	assert.Equal(t, "highs", p.Solver)
	assert.InDelta(t, 2.5, p.ElapsedSec, 0.001)
	assert.InDelta(t, 1000.0, p.TotalCost, 0.001)
	assert.InDelta(t, 400.0, p.InvestmentCost, 0.001)
	assert.InDelta(t, 600.0, p.OperationalCost, 0.001)
	assert.InDelta(t, 50.0, p.GasImportMWh, 0.001)
	assert.InDelta(t, 20.0, p.ElecImportMWh, 0.001)
	assert.InDelta(t, 15.0, p.GasCapacityMW, 0.001)
	assert.Len(t, p.Files, 5)
}
