package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/chiillbro/aether-incident-response-sub000/internal/core/domain"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

// MockMessageRepository is a mock implementation of ports.MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{}
}

func (m *MockMessageRepository) SaveMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(context.Context, *domain.Message) *domain.Message); ok {
		return fn(ctx, msg), args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) FetchMessageHistory(ctx context.Context, incidentID string, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, incidentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) ListRecentMessages(ctx context.Context, incidentID string, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, incidentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

// MockUserRepository is a mock implementation of ports.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockTeamRepository is a mock implementation of ports.TeamRepository
type MockTeamRepository struct {
	mock.Mock
}

func NewMockTeamRepository() *MockTeamRepository {
	return &MockTeamRepository{}
}

func (m *MockTeamRepository) FetchTeamMemberIDs(ctx context.Context, teamID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockTeamRepository) Create(ctx context.Context, name string) (uuid.UUID, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// MockTransactionManager runs fn inline. Set Err to fail before fn runs.
type MockTransactionManager struct {
	Err        error
	Calls      int
	RolledBack bool
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	if m.Err != nil {
		return m.Err
	}
	if err := fn(ctx); err != nil {
		m.RolledBack = true
		return err
	}
	return nil
}

// MockTokenVerifier is a mock implementation of ports.TokenVerifier
type MockTokenVerifier struct {
	mock.Mock
}

func NewMockTokenVerifier() *MockTokenVerifier {
	return &MockTokenVerifier{}
}

func (m *MockTokenVerifier) VerifySubject(token string) (uuid.UUID, error) {
	args := m.Called(token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// MockGatekeeper is a mock implementation of ports.Gatekeeper
type MockGatekeeper struct {
	mock.Mock
}

func NewMockGatekeeper() *MockGatekeeper {
	return &MockGatekeeper{}
}

func (m *MockGatekeeper) Authenticate(ctx context.Context, conn ports.Connection, credential string) (*domain.Identity, error) {
	args := m.Called(ctx, conn, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

// MockJobQueue is a mock implementation of ports.JobQueue
type MockJobQueue struct {
	mock.Mock
}

func NewMockJobQueue() *MockJobQueue {
	return &MockJobQueue{}
}

func (m *MockJobQueue) Submit(ctx context.Context, job *domain.NotificationJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// MockNotificationPublisher is a mock implementation of ports.NotificationPublisher
type MockNotificationPublisher struct {
	mock.Mock
}

func NewMockNotificationPublisher() *MockNotificationPublisher {
	return &MockNotificationPublisher{}
}

func (m *MockNotificationPublisher) Publish(ctx context.Context, channel string, payload domain.NotificationPayload) error {
	args := m.Called(ctx, channel, payload)
	return args.Error(0)
}

// MockEventIngester is a mock implementation of ports.EventIngester
type MockEventIngester struct {
	mock.Mock
}

func NewMockEventIngester() *MockEventIngester {
	return &MockEventIngester{}
}

func (m *MockEventIngester) Ingest(ctx context.Context, data []byte) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

// MockNotificationService is a mock implementation of ports.NotificationService
type MockNotificationService struct {
	mock.Mock
}

func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

func (m *MockNotificationService) SendNotification(ctx context.Context, userID uuid.UUID, title, message string) error {
	args := m.Called(ctx, userID, title, message)
	return args.Error(0)
}

func (m *MockNotificationService) SendNotificationToTeam(ctx context.Context, teamID uuid.UUID, title, message string, actorID *uuid.UUID) error {
	args := m.Called(ctx, teamID, title, message, actorID)
	return args.Error(0)
}

func (m *MockNotificationService) Broadcast(ctx context.Context, title, message string) error {
	args := m.Called(ctx, title, message)
	return args.Error(0)
}

// MockIncidentChannelService is a mock implementation of ports.IncidentChannelService
type MockIncidentChannelService struct {
	mock.Mock
}

func NewMockIncidentChannelService() *MockIncidentChannelService {
	return &MockIncidentChannelService{}
}

func (m *MockIncidentChannelService) JoinRoom(ctx context.Context, conn ports.Connection, incidentID string) error {
	args := m.Called(ctx, conn, incidentID)
	return args.Error(0)
}

func (m *MockIncidentChannelService) LeaveRoom(ctx context.Context, conn ports.Connection, incidentID string) error {
	args := m.Called(ctx, conn, incidentID)
	return args.Error(0)
}

func (m *MockIncidentChannelService) SendMessage(ctx context.Context, conn ports.Connection, payload domain.SendMessagePayload) error {
	args := m.Called(ctx, conn, payload)
	return args.Error(0)
}

func (m *MockIncidentChannelService) Typing(ctx context.Context, conn ports.Connection, incidentID string) error {
	args := m.Called(ctx, conn, incidentID)
	return args.Error(0)
}

func (m *MockIncidentChannelService) StopTyping(ctx context.Context, conn ports.Connection, incidentID string) error {
	args := m.Called(ctx, conn, incidentID)
	return args.Error(0)
}

func (m *MockIncidentChannelService) JoinTeamRoom(ctx context.Context, conn ports.Connection, teamID string) error {
	args := m.Called(ctx, conn, teamID)
	return args.Error(0)
}

func (m *MockIncidentChannelService) LeaveTeamRoom(ctx context.Context, conn ports.Connection, teamID string) error {
	args := m.Called(ctx, conn, teamID)
	return args.Error(0)
}

func (m *MockIncidentChannelService) Connected(conn ports.Connection) {
	m.Called(conn)
}

func (m *MockIncidentChannelService) Disconnect(conn ports.Connection) {
	m.Called(conn)
}

func (m *MockIncidentChannelService) RecentMessages(ctx context.Context, incidentID string, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, incidentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

// MockHealthChecker is a mock implementation of ports.HealthChecker
type MockHealthChecker struct {
	mock.Mock
}

func NewMockHealthChecker() *MockHealthChecker {
	return &MockHealthChecker{}
}

func (m *MockHealthChecker) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
