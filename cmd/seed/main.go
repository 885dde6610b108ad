// Command seed provisions a team with members and prints a bearer token for
// each, so local clients can open authenticated sockets.
//
//	SEED_TEAM_NAME="Payments on-call" \
//	SEED_MEMBERS="ada@example.com:MANAGER:Ada Lovelace,grace@example.com:MEMBER:Grace Hopper" \
//	go run ./cmd/seed
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chiillbro/aether-incident-response-sub000/internal/adapters/secondary/postgres"
	"github.com/chiillbro/aether-incident-response-sub000/internal/auth"
	"github.com/chiillbro/aether-incident-response-sub000/internal/config"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/services"
	"github.com/chiillbro/aether-incident-response-sub000/internal/infrastructure/logging"
)

const seedTimeout = 30 * time.Second

type seededMember struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	Token string      `json:"token"`
}

type seedOutput struct {
	TeamID  string         `json:"teamId"`
	Members []seededMember `json:"members"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Logs go to stderr so stdout carries only the JSON result.
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stderr,
		ServiceName: cfg.App.Name + "-seed",
		Environment: cfg.App.Environment,
	})

	members, err := parseMembers(os.Getenv("SEED_MEMBERS"))
	if err != nil {
		logger.Error("invalid SEED_MEMBERS", "error", err)
		os.Exit(1)
	}
	teamName := os.Getenv("SEED_TEAM_NAME")
	if teamName == "" {
		teamName = "On-call"
	}

	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()

	if _, err := postgres.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
		logger.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		URL:             cfg.Database.URL,
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	provisioner := services.NewProvisioner(
		postgres.NewTransactionManager(pool),
		postgres.NewTeamRepository(pool),
		postgres.NewUserRepository(pool),
		auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL),
		logger,
	)

	team, err := provisioner.Provision(ctx, teamName, members)
	if err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}

	out := seedOutput{TeamID: team.TeamID.String()}
	for _, m := range team.Members {
		out.Members = append(out.Members, seededMember{
			ID:    m.Identity.ID.String(),
			Email: m.Identity.Email,
			Role:  m.Identity.Role,
			Token: m.Token,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("failed to write output", "error", err)
		os.Exit(1)
	}
}

// parseMembers reads comma-separated "email:ROLE:Full Name" entries. The name
// may itself contain colons.
func parseMembers(raw string) ([]services.NewMember, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("no members given")
	}

	var members []services.NewMember
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("entry %q: want email:ROLE:Full Name", entry)
		}
		members = append(members, services.NewMember{
			Email:    strings.TrimSpace(parts[0]),
			Role:     domain.Role(strings.ToUpper(strings.TrimSpace(parts[1]))),
			FullName: strings.TrimSpace(parts[2]),
		})
	}
	return members, nil
}
