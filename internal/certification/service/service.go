// Package service orchestrates certification mutations: acquire the row
// lock, load the tree, apply the decision logic, refresh statistics, save,
// then emit audit events and metrics. Handlers stay thin and the domain
// packages stay free of infrastructure.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"attest/internal/certification/locks"
	"attest/internal/certification/metrics"
	"attest/internal/certification/models"
	"attest/internal/certification/store"
	"attest/internal/governance"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/sentinel"
	"attest/pkg/requestcontext"
)

// DefaultLockTTL bounds how long a request may hold a certification row lock
// before it expires on its own.
const DefaultLockTTL = 30 * time.Second

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service coordinates the certification feature.
type Service struct {
	store      store.Store
	locker     locks.Locker
	governance governance.Provider
	logger     *slog.Logger
	audit      AuditPublisher
	metrics    *metrics.Metrics
	lockTTL    time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.lockTTL = ttl
	}
}

// New constructs a Service.
func New(st store.Store, locker locks.Locker, settings governance.Provider, opts ...Option) *Service {
	s := &Service{
		store:      st,
		locker:     locker,
		governance: settings,
		lockTTL:    DefaultLockTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams describe a new certification campaign. Entities and items are
// registered in declaration order so items can reference earlier entities.
type CreateParams struct {
	Name                      string
	ShortName                 string
	Type                      models.CertType
	Owners                    []string
	PhaseConfig               []models.PhaseConfig
	Continuous                bool
	ProcessRevokesImmediately bool
	EntitlementGranularity    models.EntitlementGranularity
	Entities                  []*models.Entity
	Items                     []*models.Item
}

// Create builds and persists a new certification tree.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Certification, error) {
	if params.Name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "certification name is required")
	}
	if len(params.Owners) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "certification needs at least one owner")
	}

	now := requestcontext.Now(ctx)
	cert := models.NewCertification(params.Name, params.Type, now)
	cert.ShortName = params.ShortName
	cert.Owners = params.Owners
	cert.Creator = requestcontext.Actor(ctx)
	cert.PhaseConfig = params.PhaseConfig
	cert.Continuous = params.Continuous
	cert.ProcessRevokesImmediately = params.ProcessRevokesImmediately
	cert.EntitlementGranularity = params.EntitlementGranularity

	for _, e := range params.Entities {
		cert.AddEntity(e)
	}
	for _, it := range params.Items {
		if err := cert.AddItem(it); err != nil {
			return nil, err
		}
	}
	cert.RefreshStatistics(now)

	if err := s.store.Save(ctx, cert); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save certification")
	}
	s.emitAudit(ctx, audit.Event{
		Certification: cert.ID,
		Actor:         cert.Creator,
		Action:        string(audit.EventCertificationCreated),
	})
	return cert, nil
}

// Get loads a certification tree.
func (s *Service) Get(ctx context.Context, certID id.CertificationID) (*models.Certification, error) {
	cert, err := s.store.FindByID(ctx, certID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certification not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certification")
	}
	return cert, nil
}

// LockedAndActionable reports whether the certification is currently locked
// by a session and still open for decisions.
func (s *Service) LockedAndActionable(ctx context.Context, certID id.CertificationID) (bool, error) {
	held, err := s.locker.Held(ctx, certID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check certification lock")
	}
	if !held {
		return false, nil
	}
	cert, err := s.Get(ctx, certID)
	if err != nil {
		return false, err
	}
	return !cert.IsSigned(), nil
}

// Refresh recomputes item summaries and the statistics rollup.
func (s *Service) Refresh(ctx context.Context, certID id.CertificationID) (*models.Certification, error) {
	var refreshed *models.Certification
	err := s.withLockedCert(ctx, certID, func(ctx context.Context, cert *models.Certification) error {
		for _, it := range cert.Items {
			it.MarkForRefresh()
		}
		refreshed = cert
		return nil
	})
	return refreshed, err
}

// withLockedCert acquires the row lock for the duration of the mutation,
// loads the tree, applies fn, refreshes statistics, and saves. Signed
// certifications are immutable and rejected up front.
func (s *Service) withLockedCert(ctx context.Context, certID id.CertificationID,
	fn func(ctx context.Context, cert *models.Certification) error) error {

	owner := requestcontext.Actor(ctx)
	acquired, err := s.locker.Acquire(ctx, certID, owner, s.lockTTL)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock certification")
	}
	if !acquired {
		return dErrors.New(dErrors.CodeConflict, "certification is locked by another session")
	}
	defer func() {
		if releaseErr := s.locker.Release(ctx, certID, owner); releaseErr != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to release certification lock",
				"certification_id", certID, "error", releaseErr)
		}
	}()

	cert, err := s.Get(ctx, certID)
	if err != nil {
		return err
	}
	if cert.IsSigned() {
		return dErrors.New(dErrors.CodeConflict, "certification has been signed and is immutable")
	}

	if err := fn(ctx, cert); err != nil {
		return err
	}

	cert.RefreshStatistics(requestcontext.Now(ctx))
	if err := s.store.Save(ctx, cert); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save certification")
	}
	return nil
}

// emitAudit fills the common envelope fields and hands the event to the
// publisher. Audit delivery is best effort from the caller's perspective;
// failures are logged, not returned.
func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if event.Category == "" {
		event.Category = audit.CategoryCompliance
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, event.Action,
			"log_type", "audit",
			"certification_id", event.Certification,
			"actor", event.Actor)
	}
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action, "error", err)
	}
}
