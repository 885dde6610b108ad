package postgres

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiillbro/aether-incident-response-sub000/internal/auth"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/services"
)

func newStoreProvisioner(t *testing.T) *services.Provisioner {
	t.Helper()
	pool := requirePool(t)
	return services.NewProvisioner(
		NewTransactionManager(pool),
		NewTeamRepository(pool),
		NewUserRepository(pool),
		auth.NewTokenManager("provision-store-secret", time.Hour),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestProvisioner_PersistsTeamAndMembers(t *testing.T) {
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	team, err := newStoreProvisioner(t).Provision(ctx, "team "+suffix, []services.NewMember{
		{FullName: "Ada", Email: "ada-" + suffix + "@example.com", Role: domain.RoleManager},
		{FullName: "Grace", Email: "grace-" + suffix + "@example.com", Role: domain.RoleMember},
	})
	require.NoError(t, err)

	ids, err := NewTeamRepository(requirePool(t)).FetchTeamMemberIDs(ctx, team.TeamID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{team.Members[0].Identity.ID, team.Members[1].Identity.ID}, ids)

	user, err := NewUserRepository(requirePool(t)).GetByID(ctx, team.Members[0].Identity.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, user.Role)
	assert.True(t, user.IsActive)
}

func TestProvisioner_DuplicateEmailLeavesNoTeam(t *testing.T) {
	ctx := context.Background()
	pool := requirePool(t)
	email := seedUser(t, nil, domain.RoleMember).Email
	teamName := "rolled back " + uuid.NewString()[:8]

	_, err := newStoreProvisioner(t).Provision(ctx, teamName, []services.NewMember{
		{FullName: "Dup", Email: email, Role: domain.RoleMember},
	})
	require.Error(t, err)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM teams WHERE name = $1`, teamName).Scan(&count))
	assert.Zero(t, count)
}
