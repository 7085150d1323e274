package decision

import (
	dErrors "attest/pkg/domain-errors"
)

// Localizable message keys for illegal decision transitions. The UI layer
// maps these to translated text; tests and API clients match on the key.
const (
	MsgCantChangeAfterChallenge    = "cert_item_err_cant_chg_after_chlg"
	MsgCantRemoveRevoke            = "cert_item_err_cant_remove_revoke"
	MsgCantDecideOnDelegatedEntity = "cert_item_err_cant_decide_on_delegated_entity"
	MsgDelegateCantChange          = "cert_item_err_delegate_cant_chg"
	MsgCantDecideOnDelegatedItem   = "cert_item_err_cant_decide_on_delegated_item"
	MsgWorkItemOwnerCantChange     = "cert_item_err_work_item_owner_cant_chg"
	MsgNotInChallengePeriod        = "cert_item_err_not_in_challenge_period"
)

func illegalDecision(key string) error {
	return dErrors.New(dErrors.CodeConflict, key)
}
