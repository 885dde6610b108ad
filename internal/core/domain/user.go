package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the coarse-grained role carried by an authenticated identity.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleMember  Role = "MEMBER"
)

// IsValid returns true if the role is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	default:
		return false
	}
}

// CanPublishEvents reports whether the role may inject domain events.
func (r Role) CanPublishEvents() bool {
	return r == RoleAdmin || r == RoleManager
}

// User is the identity-store record resolved from a credential subject.
type User struct {
	ID           uuid.UUID
	FullName     string
	Email        string
	PasswordHash string
	Role         Role
	TeamID       *uuid.UUID
	IsActive     bool
	CreatedAt    time.Time
}

// Identity is the safe projection of a User attached to a live connection.
// It never carries password or secret material.
type Identity struct {
	ID     uuid.UUID  `json:"id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Role   Role       `json:"role"`
	TeamID *uuid.UUID `json:"teamId"`
}

// Identity strips secret fields from the user.
func (u *User) Identity() *Identity {
	var teamID *uuid.UUID
	if u.TeamID != nil {
		id := *u.TeamID
		teamID = &id
	}
	return &Identity{
		ID:     u.ID,
		Name:   u.FullName,
		Email:  u.Email,
		Role:   u.Role,
		TeamID: teamID,
	}
}

// IsAdmin reports whether the identity has the ADMIN role.
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// BelongsToTeam reports whether the identity's own team is teamID.
func (i *Identity) BelongsToTeam(teamID uuid.UUID) bool {
	return i.TeamID != nil && *i.TeamID == teamID
}

// CanJoinTeam implements the team-room rule: ADMIN, or a member of that team.
func (i *Identity) CanJoinTeam(teamID uuid.UUID) bool {
	return i.IsAdmin() || i.BelongsToTeam(teamID)
}

// Ref returns the lightweight sender reference for the identity.
func (i *Identity) Ref() UserRef {
	return UserRef{ID: i.ID, Name: i.Name, Email: i.Email}
}

// UserRef is a lightweight projection for displaying user details.
type UserRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}
