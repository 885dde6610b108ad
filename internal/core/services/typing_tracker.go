package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

// DefaultTypingTimeout is how long a typing indicator stays up without a new signal.
const DefaultTypingTimeout = 3 * time.Second

// Timer is the part of *time.Timer the tracker needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. It matches time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type typingState struct {
	incidentID string
	generation uint64
	timer      Timer
}

// TypingTracker keeps at most one debounced typing scope per user.
type TypingTracker struct {
	mu         sync.Mutex
	states     map[uuid.UUID]*typingState
	generation uint64

	registry  ports.ChannelRegistry
	timeout   time.Duration
	afterFunc AfterFunc
	logger    *slog.Logger
}

// TypingOption configures a TypingTracker.
type TypingOption func(*TypingTracker)

// WithAfterFunc replaces the timer factory.
func WithAfterFunc(fn AfterFunc) TypingOption {
	return func(t *TypingTracker) { t.afterFunc = fn }
}

func NewTypingTracker(registry ports.ChannelRegistry, timeout time.Duration, logger *slog.Logger, opts ...TypingOption) *TypingTracker {
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	t := &TypingTracker{
		states:    make(map[uuid.UUID]*typingState),
		registry:  registry,
		timeout:   timeout,
		afterFunc: realAfterFunc,
		logger:    logger.With("component", "typing_tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start records a typing signal. userTyping is emitted only when the user
// enters a new scope; a repeat signal for the same incident just resets the timer.
// Switching to another incident does not notify the previous room.
func (t *TypingTracker) Start(user *domain.Identity, incidentID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.states[user.ID]; ok {
		st.timer.Stop()
		if st.incidentID == incidentID {
			t.arm(user.ID, st)
			return false
		}
	}

	st := &typingState{incidentID: incidentID}
	t.states[user.ID] = st
	t.arm(user.ID, st)

	t.registry.PublishExcept(domain.IncidentChannel(incidentID), user.ID, domain.EventUserTyping, domain.UserTypingPayload{
		UserID:   user.ID.String(),
		UserName: user.Name,
	})
	return true
}

// Stop clears the user's typing state if it is scoped to incidentID.
func (t *TypingTracker) Stop(userID uuid.UUID, incidentID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[userID]
	if !ok || st.incidentID != incidentID {
		return false
	}
	st.timer.Stop()
	t.clear(userID, st)
	return true
}

// StopAll clears whatever scope the user is typing in.
func (t *TypingTracker) StopAll(userID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[userID]
	if !ok {
		return false
	}
	st.timer.Stop()
	t.clear(userID, st)
	return true
}

// TypingIn returns the incident the user is currently typing in.
func (t *TypingTracker) TypingIn(userID uuid.UUID) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[userID]
	if !ok {
		return "", false
	}
	return st.incidentID, true
}

// arm must be called with mu held.
func (t *TypingTracker) arm(userID uuid.UUID, st *typingState) {
	t.generation++
	gen := t.generation
	incidentID := st.incidentID
	st.generation = gen
	st.timer = t.afterFunc(t.timeout, func() {
		t.expire(userID, incidentID, gen)
	})
}

func (t *TypingTracker) expire(userID uuid.UUID, incidentID string, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[userID]
	if !ok || st.generation != gen || st.incidentID != incidentID {
		// superseded
		return
	}
	t.logger.Debug("typing expired", "user_id", userID, "incident_id", incidentID)
	t.clear(userID, st)
}

// clear must be called with mu held.
func (t *TypingTracker) clear(userID uuid.UUID, st *typingState) {
	delete(t.states, userID)
	t.registry.Publish(domain.IncidentChannel(st.incidentID), domain.EventUserStoppedTyping, domain.UserStoppedTypingPayload{
		UserID: userID.String(),
	})
}
