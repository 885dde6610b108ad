package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

const maxEventBodyBytes = 1 << 20

// EventHandler accepts domain event envelopes from the incident service.
type EventHandler struct {
	ingester     ports.EventIngester
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(ingester ports.EventIngester, errorHandler *ErrorHandler, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		ingester:     ingester,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "events"),
	}
}

// RegisterRoutes registers the /events routes.
func (h *EventHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandlePublish)
}

// HandlePublish handles POST /events with a {type, occurredAt, payload} body.
func (h *EventHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}
	if !claims.Role.CanPublishEvents() {
		h.errorHandler.Handle(w, r, apperrors.NewForbiddenError("Only admins and managers can publish events"))
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(apperrors.ErrInvalidPayload, "Event body too large"))
			return
		}
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(apperrors.ErrInvalidPayload, "Could not read event body"))
		return
	}

	if err := h.ingester.Ingest(r.Context(), data); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "domain event accepted", "user_id", claims.UserID)
	w.WriteHeader(http.StatusAccepted)
}
