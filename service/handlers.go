package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cmlane/overlay/compare"
	"github.com/cmlane/overlay/series"
	"github.com/cmlane/overlay/shared"
	"github.com/rs/zerolog"
)

const (
	// compareTimeout is the maximum time to wait for a comparison to resolve.
	compareTimeout = time.Second * 30
)

// apiHandler serves the comparison http API.
type apiHandler struct {
	engine *compare.Engine
	logger *zerolog.Logger
}

// newAPIHandler initializes a new api handler.
func newAPIHandler(engine *compare.Engine, logger *zerolog.Logger) *apiHandler {
	return &apiHandler{
		engine: engine,
		logger: logger,
	}
}

// registerRoutes registers the api routes on the provided mux.
func (h *apiHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/compare", h.handleCompare)
	mux.HandleFunc("/health", h.handleHealth)
}

// compareBody is the request body accepted by the compare endpoint. The
// tolerance is a pointer so an explicit zero (exact timestamp matching) is
// distinguishable from an omitted field (timeframe default).
type compareBody struct {
	Symbols       []string `json:"symbols"`
	Timeframe     string   `json:"timeframe"`
	Field         string   `json:"field"`
	LookbackDays  int      `json:"lookbackDays"`
	ToleranceMs   *int64   `json:"toleranceMs"`
	Base100       bool     `json:"base100"`
	Candles       bool     `json:"candles"`
	VolumeOverlay bool     `json:"volumeOverlay"`
	SMAWindow     int      `json:"smaWindow"`
}

// handleCompare runs a comparison for the posted symbol set and responds
// with the chart-ready comparison.
func (h *apiHandler) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendErrorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body compareBody
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		sendErrorResponse(w, "malformed request body", http.StatusBadRequest)
		return
	}

	timeframe, err := shared.ParseTimeframe(body.Timeframe)
	if err != nil {
		sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	field, err := shared.ParseValueField(body.Field)
	if err != nil {
		sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := compare.NewRequest(body.Symbols, timeframe)
	req.Field = field
	if body.ToleranceMs != nil {
		tolerance := time.Duration(*body.ToleranceMs) * time.Millisecond
		req.Tolerance = &tolerance
	}
	req.Base100 = body.Base100
	req.Candles = body.Candles
	req.VolumeOverlay = body.VolumeOverlay
	req.SMAWindow = body.SMAWindow
	if body.LookbackDays > 0 {
		req.LookbackDays = body.LookbackDays
	}

	h.engine.SendRequest(req)

	select {
	case resp := <-req.Response:
		if resp.Err != nil {
			h.respondError(w, resp.Err)
			return
		}

		sendJSONResponse(w, resp.Comparison, http.StatusOK)
	case <-r.Context().Done():
		// The caller went away, nothing to respond to.
	case <-time.After(compareTimeout):
		sendErrorResponse(w, "comparison timed out", http.StatusGatewayTimeout)
	}
}

// respondError maps comparison errors to http statuses.
func (h *apiHandler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, series.ErrInvalidInput):
		sendErrorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, compare.ErrSuperseded):
		sendErrorResponse(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error().Msgf("comparison failed: %v", err)
		sendErrorResponse(w, "comparison failed", http.StatusInternalServerError)
	}
}

// handleHealth reports service liveness.
func (h *apiHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSONResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// sendJSONResponse writes the provided payload as json.
func sendJSONResponse(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// sendErrorResponse writes the provided error message as json.
func sendErrorResponse(w http.ResponseWriter, message string, status int) {
	sendJSONResponse(w, map[string]string{"error": message}, status)
}
