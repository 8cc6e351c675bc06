package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	gwebsocket "github.com/gorilla/websocket"

	"basin-gateway/internal/actuators"
	"basin-gateway/internal/alerting"
	"basin-gateway/internal/auth"
	"basin-gateway/internal/data"
	"basin-gateway/internal/ingest"
	"basin-gateway/internal/mqttfeed"
	"basin-gateway/internal/state"
	"basin-gateway/internal/websocket"
)

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// BusStatus reports the message-bus feed for the diagnostics endpoint.
type BusStatus interface {
	Snapshot() mqttfeed.Status
}

type Handler struct {
	pipeline   *ingest.Pipeline
	thresholds *state.File[data.Thresholds]
	alerts     *alerting.Log
	controller *actuators.Controller
	sessions   *auth.Manager
	hub        *websocket.Hub
	bus        BusStatus // nil when the feed is disabled
}

func NewHandler(pipeline *ingest.Pipeline, thresholds *state.File[data.Thresholds], alerts *alerting.Log,
	controller *actuators.Controller, sessions *auth.Manager, hub *websocket.Hub, bus BusStatus) *Handler {
	return &Handler{
		pipeline:   pipeline,
		thresholds: thresholds,
		alerts:     alerts,
		controller: controller,
		sessions:   sessions,
		hub:        hub,
		bus:        bus,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return limit
}

// HandleLatestMetric returns the most recent sample, or an empty
// status when no history exists yet.
func (h *Handler) HandleLatestMetric(w http.ResponseWriter, r *http.Request) {
	latest, err := h.pipeline.Store().GetLatest(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Storage failure")
		return
	}
	if latest == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "empty"})
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (h *Handler) HandleMetricHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 60)
	items, err := h.pipeline.Store().GetHistory(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Storage failure")
		return
	}
	if items == nil {
		items = []data.Sample{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// HandleIngestMetric is the synchronous ingest port.
func (h *Handler) HandleIngestMetric(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Cannot read body")
		return
	}
	defer r.Body.Close()

	sample, err := h.pipeline.Parse(body)
	if err != nil {
		var fieldErr *data.FieldError
		switch {
		case errors.As(err, &fieldErr):
			writeError(w, http.StatusBadRequest, fieldErr.Error())
		case errors.Is(err, data.ErrInvalidTimestamp):
			writeError(w, http.StatusBadRequest, "Invalid timestamp")
		default:
			writeError(w, http.StatusBadRequest, "Invalid payload")
		}
		return
	}

	if _, err := h.pipeline.Ingest(r.Context(), sample); err != nil {
		log.Printf("Ingest failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Storage failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "metric": sample})
}

func (h *Handler) HandleGetThresholds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.thresholds.Load(data.DefaultThresholds()))
}

func (h *Handler) HandleUpdateThresholds(w http.ResponseWriter, r *http.Request) {
	var payload map[string]data.Threshold
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	normalized := data.NormalizeThresholds(payload)
	if err := h.thresholds.Save(normalized); err != nil {
		writeError(w, http.StatusInternalServerError, "Storage failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "thresholds": normalized})
}

func (h *Handler) HandleGetActuator(w http.ResponseWriter, r *http.Request) {
	device := chi.URLParam(r, "device")
	current, err := h.controller.Get(device)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown actuator")
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (h *Handler) HandleCommandActuator(w http.ResponseWriter, r *http.Request) {
	device := chi.URLParam(r, "device")

	// An empty body is a valid command: it refreshes lastChanged only.
	var cmd actuators.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	actor := actuators.SystemActor
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		actor = identity.Username
	}

	updated, err := h.controller.Apply(device, cmd, actor)
	if err != nil {
		if errors.Is(err, actuators.ErrUnknownDevice) {
			writeError(w, http.StatusNotFound, "Unknown actuator")
			return
		}
		writeError(w, http.StatusInternalServerError, "Storage failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "actuator": updated})
}

func (h *Handler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50)
	items := h.alerts.Recent(limit)
	if items == nil {
		items = []data.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) HandleActuatorLogs(w http.ResponseWriter, r *http.Request) {
	items, err := h.controller.AuditTail(80)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Storage failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) HandleAuthMe(w http.ResponseWriter, r *http.Request) {
	if identity, ok := h.sessions.IdentityFromRequest(r); ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"user": identity})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": nil})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	token, identity, err := h.sessions.Login(payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, auth.ErrBadRequest) {
			writeError(w, http.StatusBadRequest, "Missing credentials")
			return
		}
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.sessions.SetCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "user": identity})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(h.sessions.TokenFromRequest(r))
	h.sessions.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSystem reports backend and bus diagnostics. Reachability
// failures surface as ok: false, never as an error response.
func (h *Handler) HandleSystem(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"storage": h.pipeline.Store().Info(r.Context()),
	}
	if h.bus != nil {
		response["mqtt"] = h.bus.Snapshot()
	} else {
		response["mqtt"] = mqttfeed.Status{}
	}
	writeJSON(w, http.StatusOK, response)
}

// HandleWebSocket upgrades the connection and registers the client
// with the live-feed hub.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &websocket.Client{Hub: h.hub, Conn: conn, Send: make(chan []byte, 256)}
	client.Hub.RegisterClient(client)

	go client.WritePump()
	go client.ReadPump()

	go h.sendInitialHistory(client)
}

// sendInitialHistory pushes recent samples to a newly connected client
// so the dashboard renders without waiting for the next tick. It runs
// after the upgrade handler has returned, when the request context is
// already canceled, so it reads with a fresh one.
func (h *Handler) sendInitialHistory(client *websocket.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	items, err := h.pipeline.Store().GetHistory(ctx, 0)
	if err != nil || len(items) == 0 {
		return
	}
	messageBytes, err := json.Marshal(map[string]interface{}{
		"type":    "history",
		"payload": items,
	})
	if err != nil {
		return
	}
	select {
	case client.Send <- messageBytes:
	default:
	}
}
