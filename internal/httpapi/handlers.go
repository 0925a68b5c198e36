// Package httpapi exposes the room administration, import, and health
// endpoints plus the websocket upgrade route.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/blocclock/blocclock/internal/gateway"
	"github.com/blocclock/blocclock/internal/importer"
	"github.com/blocclock/blocclock/internal/registry"
)

// Handler serves the JSON admin API.
type Handler struct {
	registry *registry.Registry
	manager  *gateway.Manager
}

// NewHandler creates the API handler.
func NewHandler(reg *registry.Registry, manager *gateway.Manager) *Handler {
	return &Handler{registry: reg, manager: manager}
}

// RegisterRoutes registers all routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /ws", h.handleWebSocket)
	mux.HandleFunc("GET /api/rooms", h.handleListRooms)
	mux.HandleFunc("POST /api/rooms", h.handleCreateRoom)
	mux.HandleFunc("DELETE /api/rooms/{id}", h.handleDeleteRoom)
	mux.HandleFunc("POST /api/rooms/{id}/import", h.handleImport)
	mux.HandleFunc("GET /api/stats", h.handleStats)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWebSocket binds a viewer to the room given by the room query
// parameter. A missing or invalid room resolves to the default room.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if err := h.manager.UpgradeConnection(w, r, roomID); err != nil {
		// A failed upgrade has already written its handshake error response.
		log.Error().Err(err).Str("room", roomID).Msg("failed to upgrade websocket connection")
	}
}

func (h *Handler) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

type createRoomRequest struct {
	ID string `json:"id"`
}

func (h *Handler) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	room := h.registry.GetOrCreate(req.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"id": room.ID()})
}

func (h *Handler) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	err := h.registry.Delete(r.PathValue("id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, registry.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusConflict, err.Error())
	}
}

// importRequest carries named CSV sheets, one per round. Data is base64 in
// JSON per encoding/json []byte convention.
type importRequest struct {
	Sheets []importer.NamedCSV `json:"sheets"`
}

// handleImport replaces the room's rounds from an uploaded workbook. The
// import either succeeds wholesale or rejects with a descriptive reason and
// leaves the room untouched.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	workbook, err := importer.ParseCSVWorkbook(req.Sheets)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	rounds, err := workbook.Rounds()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.registry.ReplaceRounds(roomID, rounds)
	writeJSON(w, http.StatusOK, map[string]int{"rounds": len(rounds)})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	total, rooms := h.manager.ConnectionStats()
	writeJSON(w, http.StatusOK, map[string]int{
		"total_connections": total,
		"active_rooms":      rooms,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": strings.TrimSpace(message)})
}
