package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/store"
	"github.com/aussiebroadwan/visageid/pkg/idx"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

// Audit event names.
const (
	EventVerifySuccess       = "authorize.verify.success"
	EventVerifyFailure       = "authorize.verify.failure"
	EventTokenIssued         = "token.issued"
	EventTokenRevoked        = "token.revoked"
	EventFaceEnroll          = "face.enroll"
	EventFaceReenroll        = "face.reenroll"
	EventFaceSignup          = "face.signup"
	EventClientCreated       = "client.created"
	EventClientSecretRotated = "client.secret_rotated"
	EventKeyringRotated      = "keyring.rotated"
)

type requestMetaKey struct{}

// RequestMeta is the caller information attached to audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}

func WithRequestMeta(ctx context.Context, m RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, m)
}

func requestMetaFrom(ctx context.Context) RequestMeta {
	m, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return m
}

// AuditService writes audit entries from a background worker. Record never
// blocks: when the queue is full the entry is dropped and logged. A nil
// *AuditService discards everything.
type AuditService struct {
	Store  store.Store
	Logger *slog.Logger

	mu      sync.RWMutex
	started bool
	closed  bool
	queue   chan domain.AuditLog
	doneCh  chan struct{}
}

func NewAuditService(st store.Store, logger *slog.Logger, buffer int) *AuditService {
	if buffer <= 0 {
		buffer = 256
	}
	return &AuditService{
		Store:  st,
		Logger: logger,
		queue:  make(chan domain.AuditLog, buffer),
		doneCh: make(chan struct{}),
	}
}

// Record queues an event. Caller details come from the request context.
func (s *AuditService) Record(ctx context.Context, entry domain.AuditLog) {
	if s == nil {
		return
	}
	meta := requestMetaFrom(ctx)
	if entry.ID == "" {
		entry.ID = idx.New().String()
	}
	if entry.IP == "" {
		entry.IP = meta.IP
	}
	if entry.UserAgent == "" {
		entry.UserAgent = meta.UserAgent
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- entry:
	default:
		slogx.FromContext(ctx).Warn("audit queue full, dropping entry", "event", entry.Event)
	}
}

// Start launches the writer. Call Stop to drain the queue.
func (s *AuditService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	go s.run()
}

// Stop flushes queued entries and waits for the writer to exit.
func (s *AuditService) Stop() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.doneCh
	}
}

func (s *AuditService) run() {
	defer close(s.doneCh)
	for entry := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.Store.AuditLogs().CreateAuditLog(ctx, entry); err != nil {
			s.Logger.Error("failed to write audit entry", "event", entry.Event, "error", err)
		}
		cancel()
	}
}
