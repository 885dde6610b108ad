package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
)

func newMessage(t *testing.T, incidentID string, sender *domain.User, content string, at time.Time) *domain.Message {
	t.Helper()
	msg, err := domain.NewMessage(domain.MessageParams{
		IncidentID: incidentID,
		Content:    content,
		Sender:     sender.Identity().Ref(),
	})
	require.NoError(t, err)
	msg.CreatedAt = at
	return msg
}

func TestMessageRepository_SaveMessage(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(requirePool(t))
	sender := seedUser(t, nil, domain.RoleMember)
	incidentID := "INC-" + uuid.NewString()[:8]

	msg := newMessage(t, incidentID, sender, "database is on fire", time.Now().UTC())
	saved, err := repo.SaveMessage(ctx, msg)
	require.NoError(t, err)

	assert.Equal(t, msg.ID, saved.ID)
	assert.Equal(t, incidentID, saved.IncidentID)
	assert.Equal(t, "database is on fire", saved.Content)
	assert.Equal(t, sender.ID, saved.SenderID)
	assert.Equal(t, sender.ID, saved.Sender.ID)
	assert.Equal(t, sender.FullName, saved.Sender.Name)
	assert.Equal(t, sender.Email, saved.Sender.Email)
	assert.WithinDuration(t, msg.CreatedAt, saved.CreatedAt, time.Millisecond)
}

func TestMessageRepository_SaveMessage_UnknownSender(t *testing.T) {
	repo := NewMessageRepository(requirePool(t))
	ghost := &domain.User{ID: uuid.New(), FullName: "ghost"}

	_, err := repo.SaveMessage(context.Background(), newMessage(t, "INC-X", ghost, "hello", time.Now()))
	assert.Error(t, err)
}

func TestMessageRepository_HistoryAndRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(requirePool(t))
	sender := seedUser(t, nil, domain.RoleMember)
	incidentID := "INC-" + uuid.NewString()[:8]

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	for i := 0; i < 55; i++ {
		msg := newMessage(t, incidentID, sender, fmt.Sprintf("message %02d", i), base.Add(time.Duration(i)*time.Second))
		_, err := repo.SaveMessage(ctx, msg)
		require.NoError(t, err)
	}
	// Noise in another room.
	_, err := repo.SaveMessage(ctx, newMessage(t, incidentID+"-other", sender, "elsewhere", base))
	require.NoError(t, err)

	t.Run("history is the newest 50 ascending", func(t *testing.T) {
		history, err := repo.FetchMessageHistory(ctx, incidentID, 50)
		require.NoError(t, err)
		require.Len(t, history, 50)
		assert.Equal(t, "message 05", history[0].Content)
		assert.Equal(t, "message 54", history[49].Content)
		for i := 1; i < len(history); i++ {
			assert.True(t, history[i-1].CreatedAt.Before(history[i].CreatedAt))
		}
	})

	t.Run("recent is newest first", func(t *testing.T) {
		recent, err := repo.ListRecentMessages(ctx, incidentID, 3)
		require.NoError(t, err)
		require.Len(t, recent, 3)
		assert.Equal(t, "message 54", recent[0].Content)
		assert.Equal(t, "message 52", recent[2].Content)
	})

	t.Run("empty incident", func(t *testing.T) {
		history, err := repo.FetchMessageHistory(ctx, "INC-none-"+uuid.NewString(), 50)
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}

func TestMessageRepository_RespectsTransaction(t *testing.T) {
	ctx := context.Background()
	pool := requirePool(t)
	repo := NewMessageRepository(pool)
	tm := NewTransactionManager(pool)
	sender := seedUser(t, nil, domain.RoleMember)
	incidentID := "INC-" + uuid.NewString()[:8]

	errAbort := errors.New("abort")
	err := tm.WithTransaction(ctx, func(txCtx context.Context) error {
		_, err := repo.SaveMessage(txCtx, newMessage(t, incidentID, sender, "rolled back", time.Now()))
		require.NoError(t, err)

		inside, err := repo.ListRecentMessages(txCtx, incidentID, 10)
		require.NoError(t, err)
		assert.Len(t, inside, 1)
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	after, err := repo.ListRecentMessages(ctx, incidentID, 10)
	require.NoError(t, err)
	assert.Empty(t, after)
}
