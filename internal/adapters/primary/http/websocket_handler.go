package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	mw "github.com/chiillbro/aether-incident-response-sub000/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/chiillbro/aether-incident-response-sub000/internal/adapters/primary/websocket"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
	"github.com/chiillbro/aether-incident-response-sub000/internal/infrastructure/logging"
)

// WebSocketHandler upgrades connections and runs the credential handshake.
type WebSocketHandler struct {
	hub        *wsAdapter.Hub
	gatekeeper ports.Gatekeeper
	channels   ports.IncidentChannelService
	router     *wsAdapter.Router
	clientCfg  wsAdapter.ClientConfig
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// WebSocketConfig holds configuration for the WebSocket handler
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	IsDevelopment   bool
	Client          wsAdapter.ClientConfig
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *wsAdapter.Hub,
	gatekeeper ports.Gatekeeper,
	channels ports.IncidentChannelService,
	router *wsAdapter.Router,
	cfg WebSocketConfig,
	logger *slog.Logger,
) *WebSocketHandler {
	handler := &WebSocketHandler{
		hub:        hub,
		gatekeeper: gatekeeper,
		channels:   channels,
		router:     router,
		clientCfg:  cfg.Client,
		logger:     logger.With("component", "websocket_handler"),
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     handler.makeOriginChecker(cfg),
	}

	return handler
}

// makeOriginChecker creates an origin checking function based on configuration
func (h *WebSocketHandler) makeOriginChecker(cfg WebSocketConfig) func(r *http.Request) bool {
	allowedOrigins := cfg.AllowedOrigins

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// In development mode, allow all origins (but log a warning)
		if cfg.IsDevelopment {
			if origin != "" {
				h.logger.Warn("allowing websocket connection in development mode",
					"origin", origin,
					"remote_addr", r.RemoteAddr,
				)
			}
			return true
		}

		// No origin header (same-origin request or non-browser client)
		if origin == "" {
			return true
		}

		parsedOrigin, err := url.Parse(origin)
		if err != nil {
			h.logger.Warn("failed to parse websocket origin",
				"origin", origin,
				"error", err,
			)
			return false
		}

		if originAllowed(parsedOrigin.Host, allowedOrigins) {
			return true
		}

		h.logger.Warn("websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
			"allowed_origins", allowedOrigins,
		)
		return false
	}
}

// originAllowed matches host against exact entries and "*.example.com" wildcards.
func originAllowed(host string, allowed []string) bool {
	for _, entry := range allowed {
		if entry == "*" {
			return true
		}
		if strings.HasPrefix(entry, "*.") {
			suffix := entry[1:]
			if strings.HasSuffix(host, suffix) || host == entry[2:] {
				return true
			}
		} else if host == entry {
			return true
		}
	}
	return false
}

// handshakeCredential reads the bearer credential from the "token" query
// parameter, falling back to the Authorization header.
func handshakeCredential(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	token, _ := mw.BearerToken(r)
	return token
}

// ServeHTTP handles WebSocket connection requests
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	credential := handshakeCredential(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to upgrade websocket connection",
			"remote_addr", r.RemoteAddr,
			"error", err,
		)
		return
	}

	client := wsAdapter.NewClient(conn, h.clientCfg, h.logger)
	go client.WritePump()

	// The request context ends with ServeHTTP; the session outlives it.
	ctx := logging.WithConnectionID(context.WithoutCancel(r.Context()), client.ID())

	identity, err := h.gatekeeper.Authenticate(ctx, client, credential)
	if err != nil {
		h.rejectHandshake(ctx, client, r, err)
		return
	}

	h.hub.Register(client)
	h.channels.Connected(client)

	h.logger.InfoContext(ctx, "websocket connection established",
		"user_id", identity.ID,
		"remote_addr", r.RemoteAddr,
	)

	go client.ReadPump(ctx, h.router, h.channels.Disconnect)
}

func (h *WebSocketHandler) rejectHandshake(ctx context.Context, client *wsAdapter.Client, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	if apperrors.IsClientError(err) {
		h.logger.WarnContext(ctx, "websocket connection rejected",
			"remote_addr", r.RemoteAddr,
			"code", code,
			"error", err,
		)
	} else {
		h.logger.ErrorContext(ctx, "websocket handshake failed",
			"remote_addr", r.RemoteAddr,
			"error", err,
		)
	}

	client.Emit(domain.EventError, domain.AuthErrorPayload{
		Error: handshakeMessage(err),
		Code:  code,
	})
	client.CloseWithCode(wsAdapter.CloseUnauthorized, "authentication failed")
}

// handshakeMessage hides verifier and store details from the peer.
func handshakeMessage(err error) string {
	for _, sentinel := range []error{
		apperrors.ErrMissingCredential,
		apperrors.ErrInvalidCredential,
		apperrors.ErrUnknownUser,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "authentication failed"
}
