package transcription

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/transcription"
	"github.com/stretchr/testify/mock"
)

// MockAudioJobRepository is a mock implementation of AudioJobRepository
type MockAudioJobRepository struct {
	mock.Mock
}

func (m *MockAudioJobRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*transcription.AudioJob, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transcription.AudioJob), args.Error(1)
}

func (m *MockAudioJobRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]transcription.AudioJob, error) {
	args := m.Called(ctx, tenantID, query)
	return args.Get(0).([]transcription.AudioJob), args.Error(1)
}

func (m *MockAudioJobRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error) {
	args := m.Called(ctx, tenantID, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAudioJobRepository) ClaimPending(ctx context.Context, limit int, now time.Time) ([]transcription.AudioJob, error) {
	args := m.Called(ctx, limit, now)
	return args.Get(0).([]transcription.AudioJob), args.Error(1)
}

func (m *MockAudioJobRepository) FindStale(ctx context.Context, startedBefore time.Time, limit int) ([]transcription.AudioJob, error) {
	args := m.Called(ctx, startedBefore, limit)
	return args.Get(0).([]transcription.AudioJob), args.Error(1)
}

func (m *MockAudioJobRepository) Save(ctx context.Context, job *transcription.AudioJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockAudioJobRepository) UpdateDetails(ctx context.Context, job *transcription.AudioJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockAudioJobRepository) SaveProgress(ctx context.Context, job *transcription.AudioJob, from transcription.JobStatus) error {
	return m.Called(ctx, job, from).Error(0)
}

func (m *MockAudioJobRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

var _ transcription.AudioJobRepository = (*MockAudioJobRepository)(nil)

// MockContactRepository implements only FindByIDForTenant
type MockContactRepository struct {
	mock.Mock
	partner.ContactRepository
}

func (m *MockContactRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Contact, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Contact), args.Error(1)
}

// MockTranscriber is a mock implementation of Transcriber
type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, contentType string) (transcription.Analysis, error) {
	args := m.Called(ctx, audio, contentType)
	return args.Get(0).(transcription.Analysis), args.Error(1)
}

// capturePublisher records published events
type capturePublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}
