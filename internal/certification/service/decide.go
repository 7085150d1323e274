package service

import (
	"context"
	"time"

	"attest/internal/certification/decision"
	"attest/internal/certification/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/requestcontext"
)

// DecisionRequest carries one decision on one item. Status selects the
// operation; the remaining fields feed the operations that need them.
type DecisionRequest struct {
	Status models.ActionStatus

	// AccountScope applies the decision to every item on the same account.
	// Approvals fan out as approve-account, remediations as revoke-account.
	AccountScope bool

	Comments    string
	Description string

	// Recipient is the remediator for revokes, the provisioning owner for
	// approvals with additional provisioning.
	Recipient string

	MitigationExpiration time.Time

	Remediation            models.RemediationAction
	RemediationDetails     *models.RemediationPlan
	AdditionalProvisioning *models.RemediationPlan
}

// Decide applies a decision to an item, cascading account-scoped decisions to
// sibling items on the same account.
func (s *Service) Decide(ctx context.Context, certID id.CertificationID,
	itemID id.ItemID, req DecisionRequest) error {

	actor := requestcontext.Actor(ctx)
	workItem := requestcontext.WorkItem(ctx)
	now := requestcontext.Now(ctx)

	if s.metrics != nil {
		started := time.Now()
		defer func() {
			s.metrics.DecisionDuration.Observe(time.Since(started).Seconds())
		}()
	}

	return s.withLockedCert(ctx, certID, func(ctx context.Context, cert *models.Certification) error {
		it := cert.Item(itemID)
		if it == nil {
			return dErrors.New(dErrors.CodeNotFound, "certification item not found")
		}
		d := decision.NewDecider(cert)

		var err error
		var cascaded []*models.Item
		switch {
		case req.Status == models.StatusApproved && req.AccountScope:
			cascaded, err = d.ApproveAccount(it, actor, workItem, req.Comments, now)
		case req.Status == models.StatusApproved && req.AdditionalProvisioning != nil:
			err = d.ApproveWithProvisioning(it, actor, workItem,
				req.AdditionalProvisioning, req.Recipient, req.Description,
				req.Comments, now)
		case req.Status == models.StatusApproved:
			err = d.Approve(it, actor, workItem, req.Comments, now)
		case req.Status == models.StatusAcknowledged:
			err = d.Acknowledge(it, actor, workItem, req.Comments, now)
		case req.Status == models.StatusMitigated:
			err = d.Mitigate(it, actor, workItem, req.MitigationExpiration,
				req.Comments, now)
		case req.Status == models.StatusRevokeAccount,
			req.Status == models.StatusRemediated && req.AccountScope:
			cascaded, err = d.RevokeAccount(it, actor, workItem, req.Remediation,
				req.Recipient, req.Description, req.Comments, now)
		case req.Status == models.StatusRemediated:
			err = d.Remediate(it, actor, workItem, req.Remediation,
				req.Recipient, req.Description, req.Comments,
				req.RemediationDetails, req.AdditionalProvisioning, now)
		case req.Status == models.StatusNone, req.Status == models.StatusCleared:
			err = d.Clear(it, actor, workItem, now)
		default:
			return dErrors.Newf(dErrors.CodeInvalidInput,
				"unknown decision status %q", req.Status)
		}
		if err != nil {
			s.recordRejection(err)
			return err
		}

		if req.Status == models.StatusNone || req.Status == models.StatusCleared {
			s.emitAudit(ctx, audit.Event{
				Certification: cert.ID,
				Item:          it.ID,
				Entity:        it.EntityID,
				Actor:         actor,
				WorkItem:      workItem,
				Action:        string(audit.EventDecisionCleared),
			})
			return nil
		}

		if s.metrics != nil {
			s.metrics.DecisionsRecorded.WithLabelValues(string(req.Status)).Inc()
		}
		s.emitAudit(ctx, audit.Event{
			Certification: cert.ID,
			Item:          it.ID,
			Entity:        it.EntityID,
			Actor:         actor,
			WorkItem:      workItem,
			Action:        string(audit.EventDecisionMade),
			Decision:      string(req.Status),
		})
		s.emitCascades(ctx, cert, cascaded, actor, req.Status)
		return nil
	})
}

// emitCascades records one event per sibling the decider fanned a decision
// out to through an account-scoped operation.
func (s *Service) emitCascades(ctx context.Context, cert *models.Certification,
	cascaded []*models.Item, actor string, status models.ActionStatus) {

	for _, sibling := range cascaded {
		if s.metrics != nil {
			s.metrics.CascadedDecisions.Inc()
		}
		s.emitAudit(ctx, audit.Event{
			Certification: cert.ID,
			Item:          sibling.ID,
			Entity:        sibling.EntityID,
			Actor:         actor,
			Action:        string(audit.EventDecisionCascade),
			Decision:      string(status),
			Cascaded:      true,
		})
	}
}

func (s *Service) recordRejection(err error) {
	if s.metrics == nil || !dErrors.Is(err) {
		return
	}
	s.metrics.DecisionsRejected.WithLabelValues(dErrors.MessageOf(err)).Inc()
}

// BulkCertify applies a template decision to each of the given items.
// The first rejected item aborts the batch; nothing is saved.
func (s *Service) BulkCertify(ctx context.Context, certID id.CertificationID,
	itemIDs []id.ItemID, template *models.Action) error {

	actor := requestcontext.Actor(ctx)
	workItem := requestcontext.WorkItem(ctx)
	now := requestcontext.Now(ctx)

	return s.withLockedCert(ctx, certID, func(ctx context.Context, cert *models.Certification) error {
		d := decision.NewDecider(cert)
		for _, itemID := range itemIDs {
			it := cert.Item(itemID)
			if it == nil {
				return dErrors.Newf(dErrors.CodeNotFound,
					"certification item %s not found", itemID)
			}
			if err := d.BulkCertify(it, actor, workItem, template, now); err != nil {
				s.recordRejection(err)
				return err
			}
			if s.metrics != nil {
				s.metrics.DecisionsRecorded.WithLabelValues(string(template.Status)).Inc()
			}
			s.emitAudit(ctx, audit.Event{
				Certification: cert.ID,
				Item:          it.ID,
				Entity:        it.EntityID,
				Actor:         actor,
				WorkItem:      workItem,
				Action:        string(audit.EventDecisionMade),
				Decision:      string(template.Status),
			})
		}
		return nil
	})
}

// DelegationRequest hands an item or entity to another reviewer.
type DelegationRequest struct {
	Recipient   string
	Description string
	Comments    string
}

// Delegate hands an item to another reviewer. Whether the owner must review
// the delegate's decision afterwards comes from governance settings.
func (s *Service) Delegate(ctx context.Context, certID id.CertificationID,
	itemID id.ItemID, req DelegationRequest) error {

	settings, err := s.governance.Settings(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load governance settings")
	}
	actor := requestcontext.Actor(ctx)
	workItem := requestcontext.WorkItem(ctx)
	now := requestcontext.Now(ctx)

	return s.withLockedCert(ctx, certID, func(ctx context.Context, cert *models.Certification) error {
		it := cert.Item(itemID)
		if it == nil {
			return dErrors.New(dErrors.CodeNotFound, "certification item not found")
		}
		d := decision.NewDecider(cert)
		if err := d.Delegate(it, actor, workItem, req.Recipient, req.Description,
			req.Comments, settings.RequireDelegationReview, now); err != nil {
			return err
		}
		s.emitAudit(ctx, audit.Event{
			Certification: cert.ID,
			Item:          it.ID,
			Entity:        it.EntityID,
			Actor:         actor,
			WorkItem:      workItem,
			Action:        string(audit.EventItemDelegated),
			Reason:        req.Recipient,
		})
		return nil
	})
}

// DelegateEntity hands a whole entity, and every item under it, to another
// reviewer.
func (s *Service) DelegateEntity(ctx context.Context, certID id.CertificationID,
	entityID id.EntityID, req DelegationRequest) error {

	settings, err := s.governance.Settings(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load governance settings")
	}
	actor := requestcontext.Actor(ctx)
	workItem := requestcontext.WorkItem(ctx)
	now := requestcontext.Now(ctx)

	return s.withLockedCert(ctx, certID, func(ctx context.Context, cert *models.Certification) error {
		e := cert.Entity(entityID)
		if e == nil {
			return dErrors.New(dErrors.CodeNotFound, "certification entity not found")
		}
		d := decision.NewDecider(cert)
		if err := d.DelegateEntity(e, actor, workItem, req.Recipient,
			req.Description, req.Comments, settings.RequireDelegationReview, now); err != nil {
			return err
		}
		s.emitAudit(ctx, audit.Event{
			Certification: cert.ID,
			Entity:        e.ID,
			Actor:         actor,
			WorkItem:      workItem,
			Action:        string(audit.EventItemDelegated),
			Reason:        req.Recipient,
		})
		return nil
	})
}

// RevokeDelegation pulls a delegated item back to the certification owner.
func (s *Service) RevokeDelegation(ctx context.Context, certID id.CertificationID,
	itemID id.ItemID) error {

	actor := requestcontext.Actor(ctx)

	return s.withLockedCert(ctx, certID, func(ctx context.Context, cert *models.Certification) error {
		it := cert.Item(itemID)
		if it == nil {
			return dErrors.New(dErrors.CodeNotFound, "certification item not found")
		}
		if !it.Delegated() {
			return dErrors.New(dErrors.CodeConflict, "item is not delegated")
		}
		it.RevokeDelegation()
		s.emitAudit(ctx, audit.Event{
			Certification: cert.ID,
			Item:          it.ID,
			Entity:        it.EntityID,
			Actor:         actor,
			Action:        string(audit.EventDelegationRevoked),
		})
		return nil
	})
}

// Review marks a delegate's decision as reviewed by the certification owner.
func (s *Service) Review(ctx context.Context, certID id.CertificationID,
	itemID id.ItemID) error {

	return s.withLockedCert(ctx, certID, func(ctx context.Context, cert *models.Certification) error {
		it := cert.Item(itemID)
		if it == nil {
			return dErrors.New(dErrors.CodeNotFound, "certification item not found")
		}
		decision.NewDecider(cert).Review(it)
		return nil
	})
}

// FileChallenge opens a challenge on a revocation decision on behalf of the
// affected user.
func (s *Service) FileChallenge(ctx context.Context, certID id.CertificationID,
	itemID id.ItemID, comments string) error {

	actor := requestcontext.Actor(ctx)

	return s.withLockedCert(ctx, certID, func(ctx context.Context, cert *models.Certification) error {
		it := cert.Item(itemID)
		if it == nil {
			return dErrors.New(dErrors.CodeNotFound, "certification item not found")
		}
		return decision.NewDecider(cert).FileChallenge(it, actor, comments)
	})
}

// AcceptChallenge concedes a challenge, withdrawing the decision so the item
// can be re-decided.
func (s *Service) AcceptChallenge(ctx context.Context, certID id.CertificationID,
	itemID id.ItemID, comments string) error {

	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	return s.withLockedCert(ctx, certID, func(ctx context.Context, cert *models.Certification) error {
		it := cert.Item(itemID)
		if it == nil {
			return dErrors.New(dErrors.CodeNotFound, "certification item not found")
		}
		if err := decision.NewDecider(cert).AcceptChallenge(it, actor, comments, now); err != nil {
			return err
		}
		s.emitAudit(ctx, audit.Event{
			Certification: cert.ID,
			Item:          it.ID,
			Entity:        it.EntityID,
			Actor:         actor,
			Action:        string(audit.EventChallengeAccepted),
		})
		return nil
	})
}

// RejectChallenge upholds the original decision against a challenge.
func (s *Service) RejectChallenge(ctx context.Context, certID id.CertificationID,
	itemID id.ItemID, comments string) error {

	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	return s.withLockedCert(ctx, certID, func(ctx context.Context, cert *models.Certification) error {
		it := cert.Item(itemID)
		if it == nil {
			return dErrors.New(dErrors.CodeNotFound, "certification item not found")
		}
		if err := decision.NewDecider(cert).RejectChallenge(it, actor, comments, now); err != nil {
			return err
		}
		s.emitAudit(ctx, audit.Event{
			Certification: cert.ID,
			Item:          it.ID,
			Entity:        it.EntityID,
			Actor:         actor,
			Action:        string(audit.EventChallengeRejected),
		})
		return nil
	})
}
