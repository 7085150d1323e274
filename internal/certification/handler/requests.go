package handler

import (
	"context"
	"time"

	"attest/internal/certification/models"
	"attest/internal/certification/service"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/requestcontext"
)

type phaseConfigRequest struct {
	Phase        models.Phase `json:"phase"`
	Enabled      bool         `json:"enabled"`
	DurationDays int          `json:"duration_days"`
}

type itemRequest struct {
	Type               models.ItemType `json:"type"`
	SubType            string          `json:"sub_type,omitempty"`
	Application        string          `json:"application,omitempty"`
	Instance           string          `json:"instance,omitempty"`
	NativeIdentity     string          `json:"native_identity,omitempty"`
	Bundle             string          `json:"bundle,omitempty"`
	ExceptionAttribute string          `json:"exception_attribute,omitempty"`
	ExceptionValue     string          `json:"exception_value,omitempty"`
	PolicyViolation    string          `json:"policy_violation,omitempty"`
}

type entityRequest struct {
	Identity    string        `json:"identity,omitempty"`
	TargetName  string        `json:"target_name,omitempty"`
	Application string        `json:"application,omitempty"`
	Items       []itemRequest `json:"items,omitempty"`
}

type createRequest struct {
	Name                      string                        `json:"name"`
	ShortName                 string                        `json:"short_name,omitempty"`
	Type                      models.CertType               `json:"type"`
	Owners                    []string                      `json:"owners"`
	Continuous                bool                          `json:"continuous,omitempty"`
	ProcessRevokesImmediately bool                          `json:"process_revokes_immediately,omitempty"`
	EntitlementGranularity    models.EntitlementGranularity `json:"entitlement_granularity,omitempty"`
	Phases                    []phaseConfigRequest          `json:"phases,omitempty"`
	Entities                  []entityRequest               `json:"entities,omitempty"`
}

func (r createRequest) toParams() service.CreateParams {
	params := service.CreateParams{
		Name:                      r.Name,
		ShortName:                 r.ShortName,
		Type:                      r.Type,
		Owners:                    r.Owners,
		Continuous:                r.Continuous,
		ProcessRevokesImmediately: r.ProcessRevokesImmediately,
		EntitlementGranularity:    r.EntitlementGranularity,
	}
	for _, pc := range r.Phases {
		params.PhaseConfig = append(params.PhaseConfig, models.PhaseConfig{
			Phase:    pc.Phase,
			Enabled:  pc.Enabled,
			Duration: time.Duration(pc.DurationDays) * 24 * time.Hour,
		})
	}
	for _, er := range r.Entities {
		entity := models.NewEntity()
		entity.Identity = er.Identity
		entity.TargetName = er.TargetName
		entity.Application = er.Application
		params.Entities = append(params.Entities, entity)

		for _, ir := range er.Items {
			it := models.NewItem(entity.ID, ir.Type)
			it.SubType = ir.SubType
			it.Application = ir.Application
			it.Instance = ir.Instance
			it.NativeIdentity = ir.NativeIdentity
			it.Bundle = ir.Bundle
			it.ExceptionAttribute = ir.ExceptionAttribute
			it.ExceptionValue = ir.ExceptionValue
			it.PolicyViolation = ir.PolicyViolation
			params.Items = append(params.Items, it)
		}
	}
	return params
}

type decisionRequest struct {
	Status       models.ActionStatus `json:"status"`
	AccountScope bool                `json:"account_scope,omitempty"`

	Comments    string `json:"comments,omitempty"`
	Description string `json:"description,omitempty"`
	Recipient   string `json:"recipient,omitempty"`

	MitigationExpiration time.Time `json:"mitigation_expiration,omitzero"`

	Remediation            models.RemediationAction `json:"remediation,omitempty"`
	RemediationDetails     *models.RemediationPlan  `json:"remediation_details,omitempty"`
	AdditionalProvisioning *models.RemediationPlan  `json:"additional_provisioning,omitempty"`

	// WorkItemID is set when the decision is made from inside a delegation
	// work item rather than by the certification owner directly.
	WorkItemID string `json:"work_item_id,omitempty"`
}

func (r decisionRequest) toDecision() service.DecisionRequest {
	return service.DecisionRequest{
		Status:                 r.Status,
		AccountScope:           r.AccountScope,
		Comments:               r.Comments,
		Description:            r.Description,
		Recipient:              r.Recipient,
		MitigationExpiration:   r.MitigationExpiration,
		Remediation:            r.Remediation,
		RemediationDetails:     r.RemediationDetails,
		AdditionalProvisioning: r.AdditionalProvisioning,
	}
}

// workItemContext binds the acting work item, when given, into the request
// context the service reads from.
func (r decisionRequest) workItemContext(ctx context.Context) (context.Context, error) {
	if r.WorkItemID == "" {
		return ctx, nil
	}
	workItem, err := id.ParseWorkItemID(r.WorkItemID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid work item id")
	}
	return requestcontext.WithWorkItem(ctx, workItem), nil
}

type delegateRequest struct {
	Recipient   string `json:"recipient"`
	Description string `json:"description,omitempty"`
	Comments    string `json:"comments,omitempty"`
}

func (r delegateRequest) toDelegation() service.DelegationRequest {
	return service.DelegationRequest{
		Recipient:   r.Recipient,
		Description: r.Description,
		Comments:    r.Comments,
	}
}

type challengeRequest struct {
	Comments string `json:"comments,omitempty"`
}

type reassignRequest struct {
	Recipient         string        `json:"recipient"`
	CertificationName string        `json:"certification_name,omitempty"`
	Description       string        `json:"description,omitempty"`
	Comments          string        `json:"comments,omitempty"`
	ItemIDs           []id.ItemID   `json:"item_ids,omitempty"`
	EntityIDs         []id.EntityID `json:"entity_ids,omitempty"`
}

func (r reassignRequest) toReassign() service.ReassignRequest {
	return service.ReassignRequest{
		Recipient:         r.Recipient,
		CertificationName: r.CertificationName,
		Description:       r.Description,
		Comments:          r.Comments,
		ItemIDs:           r.ItemIDs,
		EntityIDs:         r.EntityIDs,
	}
}

type bulkCertifyRequest struct {
	ItemIDs       []id.ItemID         `json:"item_ids"`
	Status        models.ActionStatus `json:"status"`
	RevokeAccount bool                `json:"revoke_account,omitempty"`
	Comments      string              `json:"comments,omitempty"`

	MitigationExpiration time.Time                `json:"mitigation_expiration,omitzero"`
	Remediation          models.RemediationAction `json:"remediation,omitempty"`
	Recipient            string                   `json:"recipient,omitempty"`
	Description          string                   `json:"description,omitempty"`
}

func (r bulkCertifyRequest) template() *models.Action {
	return &models.Action{
		Status:               r.Status,
		RevokeAccount:        r.RevokeAccount,
		Comments:             r.Comments,
		MitigationExpiration: r.MitigationExpiration,
		Remediation:          r.Remediation,
		Recipient:            r.Recipient,
		Description:          r.Description,
	}
}
