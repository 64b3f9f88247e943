package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mes_planner/internal/config"
	"mes_planner/internal/planner"
)

// ErrBusy is reported to a client that asks for a run while one is active.
var ErrBusy = errors.New("a run is already in progress")

// Planner runs one scenario. *planner.Runner satisfies it.
type Planner interface {
	Run(ctx context.Context, scenario string, cfg *config.Config, cfgPath string) (*planner.Outcome, error)
}

// Handler manages WebSocket connections and starts scenario runs on request.
// Only one run is active at a time.
type Handler struct {
	hub     *Hub
	bridge  *Bridge
	planner  Planner
	log      zerolog.Logger
	opts     Options
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	runID string
}

func NewHandler(hub *Hub, bridge *Bridge, p Planner, log zerolog.Logger, opts Options) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		hub:      hub,
		bridge:   bridge,
		planner:  p,
		log:      log,
		opts:     opts,
		upgrader: websocket.Upgrader{CheckOrigin: opts.checkOrigin},
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade")
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	go client.writePump()

	h.sendState(client)

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Msg("websocket read")
			}
			return
		}

		h.handleMessage(c, msg)
	}
}

func (h *Handler) handleMessage(c *Client, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		h.log.Warn().Err(err).Msg("invalid message")
		h.reply(c, TypeRunError, RunErrorPayload{Error: "invalid message: " + err.Error()})
		return
	}

	switch env.Type {
	case TypeRunStart:
		var p RunStartPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.reply(c, TypeRunError, RunErrorPayload{Error: "invalid run:start payload: " + err.Error()})
			return
		}
		if err := h.start(p); err != nil {
			h.log.Warn().Err(err).Str("scenario", p.Scenario).Msg("run rejected")
			h.reply(c, TypeRunError, RunErrorPayload{Scenario: p.Scenario, Error: err.Error()})
		}

	default:
		h.log.Warn().Str("type", env.Type).Msg("unknown message type")
	}
}

// start validates the request and launches the run in the background.
func (h *Handler) start(p RunStartPayload) error {
	cfg, cfgPath, err := h.loadRequestConfig(p)
	if err != nil {
		return err
	}
	scenario := p.Scenario
	if scenario == "" {
		scenario = scenarioName(cfgPath)
	}

	h.mu.Lock()
	if h.runID != "" {
		h.mu.Unlock()
		return ErrBusy
	}
	runID := uuid.NewString()
	h.runID = runID
	h.mu.Unlock()

	h.bridge.SetRun(runID)
	h.broadcast(TypeRunAccepted, RunAcceptedPayload{RunID: runID, Scenario: scenario})
	h.broadcastState()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.execute(runID, scenario, cfg, cfgPath)
	}()
	return nil
}

func (h *Handler) execute(runID, scenario string, cfg *config.Config, cfgPath string) {
	log := h.log.With().Str("run_id", runID).Str("scenario", scenario).Logger()
	log.Info().Msg("run started")

	status := "error"
	outcome, err := h.planner.Run(h.ctx, scenario, cfg, cfgPath)
	if outcome != nil {
		status = string(outcome.Status)
	}
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		h.broadcast(TypeRunError, RunErrorPayload{RunID: runID, Scenario: scenario, Error: err.Error()})
	} else {
		log.Info().Str("status", status).Msg("run finished")
	}

	h.mu.Lock()
	h.runID = ""
	h.mu.Unlock()

	h.broadcast(TypeRunDone, RunDonePayload{RunID: runID, Scenario: scenario, Status: status})
	h.broadcastState()
}

// loadRequestConfig reads the requested config and confines every path it
// names to the configured roots.
func (h *Handler) loadRequestConfig(p RunStartPayload) (*config.Config, string, error) {
	var cfg *config.Config
	switch {
	case p.ConfigYAML != "":
		var err error
		if cfg, err = config.ParseConfigYAML([]byte(p.ConfigYAML)); err != nil {
			return nil, "", err
		}
	case p.ConfigPath != "":
		path, err := confine(h.opts.ConfigDir, p.ConfigPath)
		if err != nil {
			return nil, "", fmt.Errorf("config_path: %w", err)
		}
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, "", err
		}
	default:
		return nil, "", fmt.Errorf("run:start needs config_yaml or config_path")
	}
	if err := h.opts.confineConfig(cfg); err != nil {
		return nil, "", err
	}
	return cfg, p.ConfigPath, nil
}

// scenarioName derives a scenario name from the config file name.
func scenarioName(cfgPath string) string {
	if cfgPath == "" {
		return "scenario_" + uuid.NewString()[:8]
	}
	base := filepath.Base(cfgPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (h *Handler) state() ServerStatePayload {
	h.mu.Lock()
	defer h.mu.Unlock()
	return ServerStatePayload{Busy: h.runID != "", RunID: h.runID, Clients: h.hub.ClientCount()}
}

func (h *Handler) sendState(c *Client) {
	h.reply(c, TypeServerState, h.state())
}

func (h *Handler) broadcastState() {
	h.broadcast(TypeServerState, h.state())
}

func (h *Handler) reply(c *Client, msgType string, payload any) {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		h.log.Error().Err(err).Str("type", msgType).Msg("marshaling message")
		return
	}
	h.hub.Send(c, msg)
}

func (h *Handler) broadcast(msgType string, payload any) {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		h.log.Error().Err(err).Str("type", msgType).Msg("marshaling message")
		return
	}
	h.hub.Broadcast(msg)
}

// Wait blocks until the active run, if any, has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// Shutdown cancels the active run and waits for it.
func (h *Handler) Shutdown() {
	h.cancel()
	h.wg.Wait()
}
