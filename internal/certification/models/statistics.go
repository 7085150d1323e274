package models

import "time"

// Statistics is the rolled-up completion state of a certification, refreshed
// whenever items change.
type Statistics struct {
	TotalItems      int `json:"total_items"`
	CompletedItems  int `json:"completed_items"`
	DelegatedItems  int `json:"delegated_items"`
	ChallengedItems int `json:"challenged_items"`
	OpenItems       int `json:"open_items"`

	TotalEntities     int `json:"total_entities"`
	CompletedEntities int `json:"completed_entities"`

	PercentComplete int `json:"percent_complete"`
}

// RequiresReview reports whether a decision made by a delegate still awaits
// the owner's review. Decisions copied from another action never need their
// own review; their source does.
func RequiresReview(action *Action, itemDelegation, entityDelegation *Delegation) bool {
	if action == nil || action.Status == StatusNone {
		return false
	}
	if action.Reviewed || action.SourceAction != nil {
		return false
	}
	return itemDelegation.RequiresReview() || entityDelegation.RequiresReview()
}

// SummaryFor derives the rolled-up status of an item. Precedence matters: an
// open challenge trumps everything, then active delegations, then returns,
// then pending reviews.
func (c *Certification) SummaryFor(it *Item) ItemStatus {
	entityDelegation := (*Delegation)(nil)
	if e := c.EntityOf(it); e != nil {
		entityDelegation = e.Delegation
	}

	switch {
	case it.ChallengeActive():
		return ItemStatusChallenged
	case it.Delegated() || entityDelegation.Active():
		return ItemStatusDelegated
	case it.Returned():
		return ItemStatusReturned
	case RequiresReview(it.Action, it.Delegation, entityDelegation):
		return ItemStatusWaitingReview
	case it.ActedUpon():
		return ItemStatusComplete
	default:
		return ItemStatusOpen
	}
}

// RefreshStatistics recomputes item summaries for flagged items and rolls the
// counts up. Finished dates are stamped when an item first completes.
func (c *Certification) RefreshStatistics(now time.Time) {
	var stats Statistics

	for _, it := range c.Items {
		if it.NeedsRefresh {
			it.Summary = c.SummaryFor(it)
			it.NeedsRefresh = false
		} else if it.Summary == "" {
			it.Summary = c.SummaryFor(it)
		}

		if it.Summary.IsComplete() {
			if it.FinishedDate.IsZero() {
				it.FinishedDate = now
			}
		} else {
			it.FinishedDate = time.Time{}
		}

		stats.TotalItems++
		switch {
		case it.Summary.IsComplete():
			stats.CompletedItems++
		case it.Summary == ItemStatusDelegated:
			stats.DelegatedItems++
		default:
			stats.OpenItems++
		}
		if it.Summary == ItemStatusChallenged {
			stats.ChallengedItems++
		}
	}

	for _, e := range c.Entities {
		stats.TotalEntities++
		complete := true
		for _, itemID := range e.Items {
			it := c.Items[itemID]
			if it == nil || !it.Summary.IsComplete() {
				complete = false
				break
			}
		}
		if e.Delegated() {
			e.Summary = ItemStatusDelegated
			complete = false
		} else if complete {
			e.Summary = ItemStatusComplete
		} else {
			e.Summary = ItemStatusOpen
		}
		if complete {
			stats.CompletedEntities++
		}
	}

	if stats.TotalItems > 0 {
		stats.PercentComplete = stats.CompletedItems * 100 / stats.TotalItems
	} else {
		stats.PercentComplete = 100
	}
	c.Stats = stats
}

// Complete reports whether every item has reached a completed status.
func (c *Certification) Complete() bool {
	return c.Stats.TotalItems == c.Stats.CompletedItems
}
