package ws

import (
	"encoding/json"
	"time"

	"mes_planner/internal/planner"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants
const (
	// Client -> Server
	TypeRunStart = "run:start"

	// Server -> Client
	TypeRunAccepted = "run:accepted"
	TypeRunStage    = "run:stage"
	TypeRunModel    = "run:model"
	TypeRunSummary  = "run:summary"
	TypeRunError    = "run:error"
	TypeRunDone     = "run:done"
	TypeServerState = "server:state"
)

// Client -> Server messages

// RunStartPayload asks for one scenario run. ConfigYAML wins over
// ConfigPath when both are set.
type RunStartPayload struct {
	Scenario   string `json:"scenario"`
	ConfigYAML string `json:"config_yaml,omitempty"`
	ConfigPath string `json:"config_path,omitempty"`
}

// Server -> Client messages

type RunAcceptedPayload struct {
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`
}

type RunStagePayload struct {
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`
	Stage    string `json:"stage"`
	Time     string `json:"time"`
}

type RunModelPayload struct {
	RunID       string `json:"run_id"`
	Scenario    string `json:"scenario"`
	Variables   int    `json:"variables"`
	Constraints int    `json:"constraints"`
	Branches    int    `json:"branches"`
	Rows        int    `json:"rows"`
}

type RunSummaryPayload struct {
	RunID           string   `json:"run_id"`
	Scenario        string   `json:"scenario"`
	Status          string   `json:"status"`
	Solver          string   `json:"solver"`
	ElapsedSec      float64  `json:"elapsed_sec"`
	TotalCost       float64  `json:"total_cost"`
	InvestmentCost  float64  `json:"investment_cost"`
	OperationalCost float64  `json:"operational_cost"`
	GasImportMWh    float64  `json:"gas_import_mwh"`
	ElecImportMWh   float64  `json:"elec_import_mwh"`
	GasCapacityMW   float64  `json:"gas_capacity_mw"`
	Files           []string `json:"files"`
}

type RunErrorPayload struct {
	RunID    string `json:"run_id,omitempty"`
	Scenario string `json:"scenario,omitempty"`
	Error    string `json:"error"`
}

type RunDonePayload struct {
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`
	Status   string `json:"status"`
}

type ServerStatePayload struct {
	Busy    bool   `json:"busy"`
	RunID   string `json:"run_id,omitempty"`
	Clients int    `json:"clients"`
}

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func StageFromRunner(runID string, u planner.StageUpdate) RunStagePayload {
	return RunStagePayload{
		RunID:    runID,
		Scenario: u.Scenario,
		Stage:    string(u.Stage),
		Time:     u.Time.UTC().Format(time.RFC3339),
	}
}

func ModelFromRunner(runID string, s planner.ModelStats) RunModelPayload {
	return RunModelPayload{
		RunID:       runID,
		Scenario:    s.Scenario,
		Variables:   s.Variables,
		Constraints: s.Constraints,
		Branches:    s.Branches,
		Rows:        s.Rows,
	}
}

func SummaryFromOutcome(runID string, o planner.Outcome) RunSummaryPayload {
	return RunSummaryPayload{
		RunID:           runID,
		Scenario:        o.Scenario,
		Status:          string(o.Status),
		Solver:          o.Solver,
		ElapsedSec:      o.Elapsed.Seconds(),
		TotalCost:       o.Metrics.TotalCost,
		InvestmentCost:  o.Metrics.InvestmentCost,
		OperationalCost: o.Metrics.OperationalCost,
		GasImportMWh:    o.Metrics.GasImport,
		ElecImportMWh:   o.Metrics.ElecImport,
		GasCapacityMW:   o.Metrics.GasCapacity,
		Files:           o.Files.All(),
	}
}
