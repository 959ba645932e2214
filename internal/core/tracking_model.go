package core

import (
	"context"
	"math"
	"time"
)

// TrackingType is the replacement policy a tracking record follows.
type TrackingType string

const (
	// TrackingUsefulLife: replaceBy = completedAt + usefulLifeMonths months.
	TrackingUsefulLife TrackingType = "useful_life"
	// TrackingReplacementFrequency: replaceBy = completedAt + round(365 / perYear) days.
	TrackingReplacementFrequency TrackingType = "replacement_frequency"
)

// TrackingStatus is derived for display and never stored.
type TrackingStatus string

const (
	TrackingOK          TrackingStatus = "ok"
	TrackingWarning     TrackingStatus = "warning"
	TrackingOverdue     TrackingStatus = "overdue"
	TrackingReplenished TrackingStatus = "replenished"
)

// DefaultWarningDays is the days-until-due threshold at or below which a record shows warning.
const DefaultWarningDays = 30

// TrackingRecord is one tracking cycle for a (project, item) pair.
// A record is never restarted in place: replenishment closes it and opens a new one.
type TrackingRecord struct {
	ID                          string       `json:"id"`
	ProjectID                   string       `json:"project_id"`
	ProjectName                 string       `json:"project_name"`
	ItemID                      string       `json:"item_id"`
	ItemName                    string       `json:"item_name"`
	ItemType                    Category     `json:"item_type"`
	Quantity                    int          `json:"quantity"`
	UsefulLifeMonths            int          `json:"useful_life_months,omitempty"`
	ReplacementFrequencyPerYear float64      `json:"replacement_frequency_per_year,omitempty"`
	TrackingType                TrackingType `json:"tracking_type"`
	CompletedAt                 time.Time    `json:"completed_at"`
	ReplaceBy                   time.Time    `json:"replace_by"`
	Replenished                 bool         `json:"replenished"`
	ReplenishedAt               *time.Time   `json:"replenished_at,omitempty"`
}

// ReplacementIntervalDays converts an annual replacement frequency to a day interval,
// rounded to the nearest day and never shorter than one day.
func ReplacementIntervalDays(perYear float64) int {
	days := int(math.Round(365 / perYear))
	if days < 1 {
		days = 1
	}
	return days
}

// ComputeReplaceBy returns the replacement due date for a cycle starting at start.
// Month arithmetic follows time.AddDate, so Jan 31 + 1 month lands on Mar 2 or 3.
func ComputeReplaceBy(policy TrackingType, start time.Time, usefulLifeMonths int, perYear float64) time.Time {
	if policy == TrackingReplacementFrequency {
		return start.AddDate(0, 0, ReplacementIntervalDays(perYear))
	}
	return start.AddDate(0, usefulLifeMonths, 0)
}

// DaysUntilDue counts calendar days from now until ReplaceBy; negative once overdue.
func (r *TrackingRecord) DaysUntilDue(now time.Time) int {
	due := dateOnly(r.ReplaceBy.In(now.Location()))
	today := dateOnly(now)
	return int(math.Round(due.Sub(today).Hours() / 24))
}

// Status derives the display status at now. warningDays <= 0 selects DefaultWarningDays.
func (r *TrackingRecord) Status(now time.Time, warningDays int) TrackingStatus {
	if r.Replenished {
		return TrackingReplenished
	}
	if warningDays <= 0 {
		warningDays = DefaultWarningDays
	}
	days := r.DaysUntilDue(now)
	switch {
	case days <= 0:
		return TrackingOverdue
	case days <= warningDays:
		return TrackingWarning
	}
	return TrackingOK
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// TrackingView is a record with its derived display fields.
type TrackingView struct {
	TrackingRecord
	Status       TrackingStatus `json:"status"`
	DaysUntilDue int            `json:"days_until_due"`
}

// TrackingFilter narrows ListTracking. Zero values match everything.
type TrackingFilter struct {
	ProjectID   string
	ItemID      string
	OpenOnly    bool
	Status      TrackingStatus
	WarningDays int
}

// TrackInput identifies one installed line of a completed project.
type TrackInput struct {
	ProjectID   string
	ProjectName string
	ItemID      string
	Quantity    int
	CompletedAt time.Time
}

// ReplenishResult holds the closed cycle and the cycle opened in its place.
type ReplenishResult struct {
	Closed TrackingRecord `json:"closed"`
	Opened TrackingRecord `json:"opened"`
}

// TrackingService computes replacement schedules for installed items.
type TrackingService interface {
	// Track opens or refreshes the open cycle for (project, item). It returns nil and no error
	// when the item has no life parameter configured: such items are not tracked.
	Track(ctx context.Context, input TrackInput) (*TrackingRecord, error)

	// Replenish closes the record, credits its quantity back to inventory and opens a new cycle
	// due at nextReplaceDate, all in one commit. A zero nextReplaceDate is computed from the
	// item's current policy starting now.
	Replenish(ctx context.Context, recordID string, nextReplaceDate time.Time) (*ReplenishResult, error)

	List(ctx context.Context, filter TrackingFilter) ([]TrackingView, error)
}
