package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/trogers1052/earnings-gateway/internal/gateway"
	"github.com/trogers1052/earnings-gateway/internal/table"
)

// NoActiveSheet is the body returned when the backing sheet is missing
const NoActiveSheet = "No active sheet"

const maxBodyBytes = 1 << 20

// RecordGateway is the set of gateway operations the handlers call
type RecordGateway interface {
	List(ctx context.Context, status string) ([]gateway.Record, error)
	Save(ctx context.Context, p gateway.Payload) (string, error)
	UpdateByKey(ctx context.Context, p gateway.Payload) (string, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	gateway RecordGateway
	logger  *slog.Logger
}

// NewHandler creates a new Handler
func NewHandler(gw RecordGateway, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		gateway: gw,
		logger:  logger,
	}
}

// ListRecords handles GET, optionally filtered with ?status=OPEN
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	records, err := h.gateway.List(r.Context(), status)
	if err != nil {
		h.respondError(w, "list records", err)
		return
	}

	respondJSON(w, http.StatusOK, records)
}

// SaveRecord handles POST. The body is a JSON object; "action":"update"
// selects the update path.
func (h *Handler) SaveRecord(w http.ResponseWriter, r *http.Request) {
	payload, err := gateway.DecodePayload(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondText(w, http.StatusBadRequest, "Error: "+err.Error())
		return
	}

	status, err := h.gateway.Save(r.Context(), payload)
	if err != nil {
		h.respondError(w, "save record", err)
		return
	}

	respondText(w, http.StatusOK, status)
}

// UpdateRecord handles PUT, updating the row matching Ticker and Open Date
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	payload, err := gateway.DecodePayload(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondText(w, http.StatusBadRequest, "Error: "+err.Error())
		return
	}

	status, err := h.gateway.UpdateByKey(r.Context(), payload)
	if err != nil {
		h.respondError(w, "update record", err)
		return
	}

	respondText(w, http.StatusOK, status)
}

// Preflight handles OPTIONS. The CORS middleware has already set the
// response headers.
func (h *Handler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, table.ErrNoTable):
		respondText(w, http.StatusServiceUnavailable, NoActiveSheet)
	case errors.Is(err, gateway.ErrMissingKey):
		respondText(w, http.StatusBadRequest, "Error: "+err.Error())
	case errors.Is(err, context.Canceled):
		h.logger.Debug("request cancelled", "op", op)
	default:
		h.logger.Error("request failed", "op", op, "error", err)
		respondText(w, http.StatusInternalServerError, "Error: "+err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, body)
}
