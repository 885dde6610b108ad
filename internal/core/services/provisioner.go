package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

// NewMember describes one user to create on a provisioned team.
type NewMember struct {
	FullName string
	Email    string
	Role     domain.Role
}

// ProvisionedMember is a created user with a ready-to-use credential.
type ProvisionedMember struct {
	Identity domain.Identity
	Token    string
}

// ProvisionedTeam is the result of Provision.
type ProvisionedTeam struct {
	TeamID  uuid.UUID
	Members []ProvisionedMember
}

// Provisioner creates a team and its members in one transaction, then
// issues a credential for each member. It backs local and staging setup.
type Provisioner struct {
	tx     ports.TransactionManager
	teams  ports.TeamRepository
	users  ports.UserRepository
	tokens ports.TokenIssuer
	logger *slog.Logger
}

func NewProvisioner(
	tx ports.TransactionManager,
	teams ports.TeamRepository,
	users ports.UserRepository,
	tokens ports.TokenIssuer,
	logger *slog.Logger,
) *Provisioner {
	return &Provisioner{
		tx:     tx,
		teams:  teams,
		users:  users,
		tokens: tokens,
		logger: logger.With("component", "provisioner"),
	}
}

// Provision validates the request before touching the store. Nothing is
// written when any insert fails.
func (p *Provisioner) Provision(ctx context.Context, teamName string, members []NewMember) (*ProvisionedTeam, error) {
	if err := validateProvision(teamName, members); err != nil {
		return nil, err
	}

	result := &ProvisionedTeam{}
	created := make([]*domain.User, 0, len(members))
	err := p.tx.WithTransaction(ctx, func(ctx context.Context) error {
		teamID, err := p.teams.Create(ctx, strings.TrimSpace(teamName))
		if err != nil {
			return err
		}
		result.TeamID = teamID

		for _, m := range members {
			user, err := p.users.Create(ctx, &domain.User{
				FullName: strings.TrimSpace(m.FullName),
				Email:    strings.ToLower(strings.TrimSpace(m.Email)),
				Role:     m.Role,
				TeamID:   &teamID,
				IsActive: true,
			})
			if err != nil {
				return fmt.Errorf("member %s: %w", m.Email, err)
			}
			created = append(created, user)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("provision team %q: %w", teamName, err)
	}

	for _, user := range created {
		identity := user.Identity()
		token, err := p.tokens.GenerateToken(*identity)
		if err != nil {
			return nil, fmt.Errorf("issue token for %s: %w", user.Email, err)
		}
		result.Members = append(result.Members, ProvisionedMember{Identity: *identity, Token: token})
	}

	p.logger.InfoContext(ctx, "team provisioned",
		"team_id", result.TeamID,
		"members", len(result.Members),
	)
	return result, nil
}

func validateProvision(teamName string, members []NewMember) error {
	errs := apperrors.NewValidationErrors()
	if strings.TrimSpace(teamName) == "" {
		errs.Add("team", "This field is required")
	}
	if len(members) == 0 {
		errs.Add("members", "At least one member is required")
	}

	seen := make(map[string]bool, len(members))
	for i, m := range members {
		field := fmt.Sprintf("members[%d]", i)
		email := strings.ToLower(strings.TrimSpace(m.Email))
		if !strings.Contains(email, "@") {
			errs.Add(field+".email", "Must be an email address")
		} else if seen[email] {
			errs.Add(field+".email", "Duplicate email")
		}
		seen[email] = true
		if strings.TrimSpace(m.FullName) == "" {
			errs.Add(field+".fullName", "This field is required")
		}
		if !m.Role.IsValid() {
			errs.Add(field+".role", "Must be ADMIN, MANAGER or MEMBER")
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
