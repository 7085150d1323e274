package service

import (
	"context"

	"attest/internal/certification/models"
	"attest/internal/certification/phase"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/requestcontext"
)

// Activate moves a generated certification into its starting phase and
// starts the phase clock.
func (s *Service) Activate(ctx context.Context, certID id.CertificationID) error {
	now := requestcontext.Now(ctx)

	return s.withLockedCert(ctx, certID, func(ctx context.Context, cert *models.Certification) error {
		if !cert.Activated.IsZero() {
			return dErrors.New(dErrors.CodeConflict, "certification is already activated")
		}
		cert.Activated = now
		cert.Phase = phase.Start(cert.PhaseConfig)
		cert.NextPhaseTransition = phase.TransitionAt(cert.PhaseConfig, now, cert.Phase)
		cert.Expiration = phase.Expiration(cert)

		// Rolling phases put every item on its own clock from the start.
		if cert.UseRollingPhases() {
			for _, it := range cert.Items {
				it.Phase = cert.Phase
				it.NextPhaseTransition = cert.NextPhaseTransition
			}
		}

		s.recordPhaseTransition(ctx, cert, cert.Phase)
		return nil
	})
}

// AdvancePhase rolls the certification to its next enabled phase. Under
// rolling phases, items whose own transition time has passed advance with it.
func (s *Service) AdvancePhase(ctx context.Context, certID id.CertificationID) error {
	now := requestcontext.Now(ctx)

	return s.withLockedCert(ctx, certID, func(ctx context.Context, cert *models.Certification) error {
		if cert.Activated.IsZero() {
			return dErrors.New(dErrors.CodeConflict, "certification has not been activated")
		}
		if cert.Phase == models.PhaseEnd {
			return dErrors.New(dErrors.CodeConflict, "certification has already ended")
		}

		next := phase.Next(cert.PhaseConfig, cert.Phase)
		cert.Phase = next
		cert.NextPhaseTransition = phase.TransitionAt(cert.PhaseConfig, cert.Activated, next)
		if next == models.PhaseEnd {
			cert.Finished = now
		}

		if cert.UseRollingPhases() {
			for _, it := range cert.Items {
				itemPhase := cert.EffectiveItemPhase(it)
				if itemPhase == models.PhaseEnd {
					continue
				}
				if it.NextPhaseTransition.IsZero() || it.NextPhaseTransition.After(now) {
					continue
				}
				it.Phase = phase.Next(cert.PhaseConfig, itemPhase)
				it.NextPhaseTransition = phase.TransitionAt(cert.PhaseConfig,
					cert.Activated, it.Phase)
				it.MarkForRefresh()
			}
		}

		s.recordPhaseTransition(ctx, cert, next)
		return nil
	})
}

func (s *Service) recordPhaseTransition(ctx context.Context, cert *models.Certification,
	target models.Phase) {

	if s.metrics != nil {
		s.metrics.PhaseTransitions.WithLabelValues(target.String()).Inc()
	}
	s.emitAudit(ctx, audit.Event{
		Category:      audit.CategoryOperations,
		Certification: cert.ID,
		Actor:         requestcontext.Actor(ctx),
		Action:        string(audit.EventPhaseAdvanced),
		Reason:        target.String(),
	})
}

// Sign completes electronic sign off. Only an owner may sign, every item must
// be complete, and when governance requires it the whole reassignment
// hierarchy below this certification must already be signed.
func (s *Service) Sign(ctx context.Context, certID id.CertificationID) error {
	settings, err := s.governance.Settings(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load governance settings")
	}
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	return s.withLockedCert(ctx, certID, func(ctx context.Context, cert *models.Certification) error {
		if !cert.IsOwner(actor) {
			return dErrors.New(dErrors.CodeForbidden, "only a certification owner may sign")
		}
		if !cert.Complete() {
			return dErrors.New(dErrors.CodeConflict,
				"certification has open items and cannot be signed")
		}
		if settings.RequireReassignmentCompletion {
			if err := s.assertHierarchySigned(ctx, cert.ID); err != nil {
				return err
			}
		}

		cert.Signed = now
		cert.SignOffs = append(cert.SignOffs, models.SignOff{Signer: actor, Date: now})

		if s.metrics != nil {
			s.metrics.CertificationsSigned.Inc()
		}
		s.emitAudit(ctx, audit.Event{
			Certification: cert.ID,
			Actor:         actor,
			Action:        string(audit.EventCertificationSigned),
		})
		return nil
	})
}

// assertHierarchySigned walks the child certification tree breadth first and
// fails on the first unsigned child. A visited set guards against cycles in
// corrupted parent links.
func (s *Service) assertHierarchySigned(ctx context.Context, root id.CertificationID) error {
	visited := map[id.CertificationID]bool{root: true}
	queue := []id.CertificationID{root}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := s.store.Children(ctx, current)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal,
				"failed to load child certifications")
		}
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			if child.Signed.IsZero() {
				return dErrors.Newf(dErrors.CodeConflict,
					"child certification %s has not been signed", child.ID)
			}
			queue = append(queue, child.ID)
		}
	}
	return nil
}

// ReassignRequest queues items and entities for bulk reassignment to a new
// reviewer.
type ReassignRequest struct {
	Recipient         string
	CertificationName string
	Description       string
	Comments          string
	ItemIDs           []id.ItemID
	EntityIDs         []id.EntityID
}

// BulkReassign queues a reassignment command on the certification. Targets
// that were not yet persisted are parked until the save completes, then
// folded into the command queue; the background reassignment processor picks
// commands up from there.
func (s *Service) BulkReassign(ctx context.Context, certID id.CertificationID,
	req ReassignRequest) error {

	settings, err := s.governance.Settings(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load governance settings")
	}
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	owner := actor
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

	if settings.LimitReassignments {
		depth, err := s.reassignmentDepth(ctx, cert)
		if err != nil {
			return err
		}
		if depth >= settings.ReassignmentLimit {
			return dErrors.New(dErrors.CodeForbidden, "reassignment limit reached")
		}
	}

	items := make([]*models.Item, 0, len(req.ItemIDs))
	for _, itemID := range req.ItemIDs {
		it := cert.Item(itemID)
		if it == nil {
			return dErrors.Newf(dErrors.CodeNotFound,
				"certification item %s not found", itemID)
		}
		items = append(items, it)
	}
	entities := make([]*models.Entity, 0, len(req.EntityIDs))
	for _, entityID := range req.EntityIDs {
		e := cert.Entity(entityID)
		if e == nil {
			return dErrors.Newf(dErrors.CodeNotFound,
				"certification entity %s not found", entityID)
		}
		entities = append(entities, e)
	}

	if err := cert.BulkReassign(actor, req.Recipient, items, entities,
		req.CertificationName, req.Description, req.Comments, now); err != nil {
		return err
	}

	// Save first so every target is persisted, then fold the parked commands
	// into the main queue and save the merged queue.
	cert.RefreshStatistics(now)
	if err := s.store.Save(ctx, cert); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save certification")
	}
	if len(cert.UnpersistedCommands) > 0 {
		if err := cert.FlushUnpersistedCommands(); err != nil {
			return err
		}
		if err := s.store.Save(ctx, cert); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save certification")
		}
	}

	if s.metrics != nil {
		s.metrics.ReassignmentsQueued.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		Certification: cert.ID,
		Actor:         actor,
		Action:        string(audit.EventReassignmentQueued),
		Reason:        req.Recipient,
	})
	return nil
}

// reassignmentDepth counts how many bulk reassignment certifications sit on
// the parent chain, this one included.
func (s *Service) reassignmentDepth(ctx context.Context, cert *models.Certification) (int, error) {
	depth := 0
	visited := map[id.CertificationID]bool{}
	current := cert

	for current != nil && !visited[current.ID] {
		visited[current.ID] = true
		if current.BulkReassignment {
			depth++
		}
		if current.Parent.IsZero() {
			break
		}
		parent, err := s.Get(ctx, current.Parent)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeNotFound) {
				break
			}
			return 0, err
		}
		current = parent
	}
	return depth, nil
}
