package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/chiillbro/aether-incident-response-sub000/internal/adapters/primary/http/middleware"
	"github.com/chiillbro/aether-incident-response-sub000/internal/adapters/primary/validation"
	"github.com/chiillbro/aether-incident-response-sub000/internal/auth"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

const maxIncidentIDLength = 128

// MessageHandler serves incident chat history over REST.
type MessageHandler struct {
	channels     ports.IncidentChannelService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(
	channels ports.IncidentChannelService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *MessageHandler {
	return &MessageHandler{
		channels:     channels,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "messages"),
	}
}

// RegisterRoutes registers the /incidents routes.
func (h *MessageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{incidentID}/messages", h.HandleListMessages)
}

// HandleListMessages handles GET /incidents/{incidentID}/messages?limit=N.
// Messages are returned newest first.
func (h *MessageHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	if _, ok := getClaims(w, r); !ok {
		return
	}

	// Zero lets the service apply its history limit.
	limit, err := validation.PositiveIntQueryParam(r, "limit", 0)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	incidentID := chi.URLParam(r, "incidentID")
	v := validation.NewValidator().MaxLength("incidentId", incidentID, maxIncidentIDLength)
	if HandleError(w, r, v.Err(), h.errorHandler) {
		return
	}

	messages, err := h.channels.RecentMessages(r.Context(), incidentID, limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList[*domain.Message](w, messages)
}

// getClaims extracts and validates user claims from the request context.
func getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}
