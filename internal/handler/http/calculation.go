package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/calculation"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

const keepaliveInterval = 30 * time.Second

type CalculationHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	ListLogs(w http.ResponseWriter, r *http.Request)
	Dispatch(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)

	// SSE
	GetStreamToken(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type calculationHandlerImpl struct {
	calculationService calculation.CalculationService
	jwtService         jwt.Service
	hub                *sse.Hub
}

func NewCalculationHandler(calculationService calculation.CalculationService, jwtService jwt.Service, hub *sse.Hub) CalculationHandler {
	return &calculationHandlerImpl{
		calculationService: calculationService,
		jwtService:         jwtService,
		hub:                hub,
	}
}

// getUserIDFromContext extracts user_id from JWT context
func getUserIDFromContext(r *http.Request) string {
	_, claims, _ := jwtauth.FromContext(r.Context())
	if userID, ok := claims["user_id"].(string); ok {
		return userID
	}
	return ""
}

func (h *calculationHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req calculation.CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	run, err := h.calculationService.CreateRun(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Attendance calculation created", run)
}

func (h *calculationHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	run, err := h.calculationService.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, run)
}

func (h *calculationHandlerImpl) ListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.calculationService.ListLogs(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, logs)
}

// Dispatch queues the run. A run that is already queued or running is
// reported without error.
func (h *calculationHandlerImpl) Dispatch(w http.ResponseWriter, r *http.Request) {
	enqueued, err := h.calculationService.DispatchRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if !enqueued {
		response.Success(w, calculation.DispatchResponse{
			Enqueued: false,
			Message:  "Attendance calculation is already queued or running",
		})
		return
	}

	response.Accepted(w, "Attendance calculation queued", calculation.DispatchResponse{
		Enqueued: true,
		Message:  "Attendance calculation queued",
	})
}

func (h *calculationHandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.calculationService.CancelRun(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Cancellation requested", nil)
}

func (h *calculationHandlerImpl) GetStreamToken(w http.ResponseWriter, r *http.Request) {
	userID := getUserIDFromContext(r)
	if userID == "" {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	runID := chi.URLParam(r, "id")
	if _, err := h.calculationService.GetRun(r.Context(), runID); err != nil {
		response.HandleError(w, err)
		return
	}

	token, expiresIn, err := h.jwtService.GenerateStreamToken(userID, runID)
	if err != nil {
		response.InternalServerError(w, "Failed to generate stream token")
		return
	}

	response.Success(w, calculation.StreamTokenResponse{
		Token:     token,
		ExpiresIn: expiresIn,
	})
}

// Stream pushes progress events of one run until it finishes or the client
// goes away. EventSource cannot send headers, so the token comes in the query.
func (h *calculationHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	if _, err := h.jwtService.ValidateStreamToken(tokenStr, runID); err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Subscribe before reading the snapshot so no update falls in between.
	events, cleanup := h.hub.Subscribe(runID)
	defer cleanup()
	slog.Debug("Progress stream opened", "run_id", runID, "subscribers", h.hub.SubscriberCount(runID))

	run, err := h.calculationService.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, calculation.ErrRunNotFound) {
			http.Error(w, "Attendance calculation not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load attendance calculation", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	snapshot := calculation.ProgressEvent{
		RunID:          run.ID,
		Status:         run.Status,
		ProcessedCount: run.ProcessedCount,
		TotalCount:     run.TotalCount,
		Message:        run.Message,
	}
	if !writeEvent(w, "progress", snapshot) {
		return
	}
	flusher.Flush()
	if run.Status.IsTerminal() {
		return
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if !writeEvent(w, event.Event, event.Data) {
				continue
			}
			flusher.Flush()
			if progress, ok := event.Data.(calculation.ProgressEvent); ok && progress.Status.IsTerminal() {
				return
			}

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, data interface{}) bool {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Failed to encode stream event", "event", name, "error", err)
		return false
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	return true
}
