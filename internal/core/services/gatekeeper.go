package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

// Gatekeeper authenticates real-time connections.
type Gatekeeper struct {
	verifier ports.TokenVerifier
	users    ports.UserRepository
	logger   *slog.Logger
}

var _ ports.Gatekeeper = (*Gatekeeper)(nil)

func NewGatekeeper(verifier ports.TokenVerifier, users ports.UserRepository, logger *slog.Logger) *Gatekeeper {
	return &Gatekeeper{
		verifier: verifier,
		users:    users,
		logger:   logger.With("component", "gatekeeper"),
	}
}

// Authenticate verifies the credential, resolves the user and attaches the
// safe identity to conn. Any error is terminal for the connection.
func (g *Gatekeeper) Authenticate(ctx context.Context, conn ports.Connection, credential string) (*domain.Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, apperrors.ErrMissingCredential
	}

	// 1. Verify signature and expiry
	subject, err := g.verifier.VerifySubject(credential)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidCredential, err)
	}

	// 2. Resolve the subject to a live user
	user, err := g.users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) || errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnknownUser
		}
		return nil, fmt.Errorf("resolve user %s: %w", subject, err)
	}
	if user == nil || !user.IsActive {
		return nil, apperrors.ErrUnknownUser
	}

	// 3. Attach the identity and acknowledge
	identity := user.Identity()
	conn.SetIdentity(identity)
	conn.Emit(domain.EventAuthenticated, domain.AuthenticatedPayload{User: *identity})

	g.logger.InfoContext(ctx, "connection authenticated",
		"connection_id", conn.ID(),
		"user_id", identity.ID,
		"role", identity.Role,
	)
	return identity, nil
}
