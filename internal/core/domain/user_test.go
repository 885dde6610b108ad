package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
)

func TestRole_IsValid(t *testing.T) {
	tests := []struct {
		name string
		role domain.Role
		want bool
	}{
		{"ADMIN is valid", domain.RoleAdmin, true},
		{"MANAGER is valid", domain.RoleManager, true},
		{"MEMBER is valid", domain.RoleMember, true},
		{"empty is invalid", domain.Role(""), false},
		{"lowercase is invalid", domain.Role("admin"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.IsValid())
		})
	}
}

func TestUser_IdentityStripsSecrets(t *testing.T) {
	teamID := uuid.New()
	user := &domain.User{
		ID:           uuid.New(),
		FullName:     "Ada Lovelace",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$secret",
		Role:         domain.RoleMember,
		TeamID:       &teamID,
	}

	identity := user.Identity()

	assert.Equal(t, user.ID, identity.ID)
	assert.Equal(t, "Ada Lovelace", identity.Name)
	assert.Equal(t, "ada@example.com", identity.Email)
	assert.Equal(t, domain.RoleMember, identity.Role)
	assert.Equal(t, teamID, *identity.TeamID)

	// Mutating the user must not leak into the attached identity.
	want := teamID
	*user.TeamID = uuid.New()
	assert.Equal(t, want, *identity.TeamID)
}

func TestIdentity_CanJoinTeam(t *testing.T) {
	ownTeam := uuid.New()
	otherTeam := uuid.New()

	member := &domain.Identity{ID: uuid.New(), Role: domain.RoleMember, TeamID: &ownTeam}
	admin := &domain.Identity{ID: uuid.New(), Role: domain.RoleAdmin}
	teamless := &domain.Identity{ID: uuid.New(), Role: domain.RoleManager}

	assert.True(t, member.CanJoinTeam(ownTeam))
	assert.False(t, member.CanJoinTeam(otherTeam))
	assert.True(t, admin.CanJoinTeam(otherTeam))
	assert.False(t, teamless.CanJoinTeam(ownTeam))
}
