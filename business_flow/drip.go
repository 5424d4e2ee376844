package businessflow

import (
	"time"

	"github.com/clearlens/campaign-engine/models"
	"github.com/clearlens/campaign-engine/utils"
)

// StepDecision is the outcome of evaluating a recipient against a
// campaign's step sequence at a point in time.
type StepDecision struct {
	// Step is the single step due now, nil when nothing is due.
	Step *models.DripStep

	// Complete is set when the recipient has no further steps and
	// should move to the completed status.
	Complete bool
}

// NextStep decides what a campaign pass should do for one active
// recipient. Step delays are measured from the enrollment time, so a
// delayed or skipped pass never shifts the whole sequence later.
// At most one step is returned per pass; a recipient that missed
// several passes catches up one step at a time.
func NextStep(config models.CampaignConfig, recipient *models.CampaignRecipient, now time.Time) StepDecision {
	maxIndex := config.MaxStepIndex()

	// A campaign with no steps completes recipients immediately.
	if maxIndex < 0 {
		return StepDecision{Complete: true}
	}

	if recipient.LastStepIndex >= maxIndex {
		return StepDecision{Complete: true}
	}

	elapsedDays := utils.DaysBetween(recipient.EnrolledAt, now)

	for i := recipient.LastStepIndex + 1; i <= maxIndex; i++ {
		step := config.Steps[i]
		if step.DelayDays <= elapsedDays {
			return StepDecision{Step: &config.Steps[i]}
		}
		// Steps are ordered by delay; nothing later can be due yet.
		break
	}

	return StepDecision{}
}
