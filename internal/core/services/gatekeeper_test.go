package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	apperrors "github.com/chiillbro/aether-incident-response-sub000/internal/core/errors"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/mocks"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/services"
)

func TestGatekeeper_Authenticate(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	teamID := uuid.New()

	activeUser := &domain.User{
		ID:           userID,
		FullName:     "Ada Lovelace",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$secret",
		Role:         domain.RoleMember,
		TeamID:       &teamID,
		IsActive:     true,
	}

	t.Run("success attaches identity and acknowledges", func(t *testing.T) {
		verifier := mocks.NewMockTokenVerifier()
		users := mocks.NewMockUserRepository()
		gk := services.NewGatekeeper(verifier, users, discardLogger())
		conn := newFakeConn("c1", nil)

		verifier.On("VerifySubject", "good-token").Return(userID, nil)
		users.On("GetByID", ctx, userID).Return(activeUser, nil)

		identity, err := gk.Authenticate(ctx, conn, " good-token ")

		require.NoError(t, err)
		assert.Equal(t, userID, identity.ID)
		assert.Equal(t, "Ada Lovelace", identity.Name)

		attached, ok := conn.Identity()
		require.True(t, ok)
		assert.Equal(t, identity, attached)

		payload, ok := conn.last(domain.EventAuthenticated)
		require.True(t, ok)
		ack := payload.(domain.AuthenticatedPayload)
		assert.Equal(t, userID, ack.User.ID)
		assert.Equal(t, &teamID, ack.User.TeamID)

		verifier.AssertExpectations(t)
		users.AssertExpectations(t)
	})

	t.Run("missing credential", func(t *testing.T) {
		verifier := mocks.NewMockTokenVerifier()
		users := mocks.NewMockUserRepository()
		gk := services.NewGatekeeper(verifier, users, discardLogger())
		conn := newFakeConn("c2", nil)

		identity, err := gk.Authenticate(ctx, conn, "   ")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, apperrors.ErrMissingCredential)
		verifier.AssertNotCalled(t, "VerifySubject", mock.Anything)
		assert.Empty(t, conn.eventNames())
	})

	t.Run("invalid credential", func(t *testing.T) {
		verifier := mocks.NewMockTokenVerifier()
		users := mocks.NewMockUserRepository()
		gk := services.NewGatekeeper(verifier, users, discardLogger())
		conn := newFakeConn("c3", nil)

		verifier.On("VerifySubject", "expired").Return(uuid.Nil, errors.New("token is expired"))

		identity, err := gk.Authenticate(ctx, conn, "expired")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredential)
		users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		_, ok := conn.Identity()
		assert.False(t, ok)
	})

	t.Run("unknown user", func(t *testing.T) {
		verifier := mocks.NewMockTokenVerifier()
		users := mocks.NewMockUserRepository()
		gk := services.NewGatekeeper(verifier, users, discardLogger())
		conn := newFakeConn("c4", nil)

		verifier.On("VerifySubject", "orphan").Return(userID, nil)
		users.On("GetByID", ctx, userID).Return(nil, apperrors.ErrUserNotFound)

		identity, err := gk.Authenticate(ctx, conn, "orphan")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, apperrors.ErrUnknownUser)
	})

	t.Run("inactive user is unknown", func(t *testing.T) {
		verifier := mocks.NewMockTokenVerifier()
		users := mocks.NewMockUserRepository()
		gk := services.NewGatekeeper(verifier, users, discardLogger())
		conn := newFakeConn("c5", nil)

		inactive := *activeUser
		inactive.IsActive = false
		verifier.On("VerifySubject", "tok").Return(userID, nil)
		users.On("GetByID", ctx, userID).Return(&inactive, nil)

		_, err := gk.Authenticate(ctx, conn, "tok")

		assert.ErrorIs(t, err, apperrors.ErrUnknownUser)
	})

	t.Run("store failure is not reported as unknown user", func(t *testing.T) {
		verifier := mocks.NewMockTokenVerifier()
		users := mocks.NewMockUserRepository()
		gk := services.NewGatekeeper(verifier, users, discardLogger())
		conn := newFakeConn("c6", nil)

		verifier.On("VerifySubject", "tok").Return(userID, nil)
		users.On("GetByID", ctx, userID).Return(nil, errors.New("connection refused"))

		_, err := gk.Authenticate(ctx, conn, "tok")

		require.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrUnknownUser)
	})
}
