package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

type trackingService struct {
	store       Store
	ledger      *Ledger
	warningDays int
	now         func() time.Time
}

// NewTrackingService constructs a TrackingService. warningDays <= 0 selects DefaultWarningDays.
func NewTrackingService(store Store, ledger *Ledger, warningDays int) TrackingService {
	if warningDays <= 0 {
		warningDays = DefaultWarningDays
	}
	return &trackingService{
		store:       store,
		ledger:      ledger,
		warningDays: warningDays,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *trackingService) Track(ctx context.Context, input TrackInput) (*TrackingRecord, error) {
	if input.ProjectID == "" || input.ItemID == "" {
		return nil, &ValidationError{Field: "project_id", Message: "project and item are required"}
	}
	if input.CompletedAt.IsZero() {
		input.CompletedAt = s.now()
	}

	var out *TrackingRecord
	err := s.ledger.Run(ctx, func(ctx context.Context, r Reader) (Batch, error) {
		out = nil
		item, err := r.GetItem(ctx, input.ItemID)
		if err != nil {
			return Batch{}, err
		}
		policy, ok := item.TrackingPolicy()
		if !ok {
			return Batch{}, nil
		}

		rec, err := r.FindOpenTracking(ctx, input.ProjectID, input.ItemID)
		if err != nil {
			return Batch{}, err
		}
		if rec == nil {
			rec = &TrackingRecord{
				ID:        uuid.NewString(),
				ProjectID: input.ProjectID,
				ItemID:    input.ItemID,
			}
		}
		rec.ProjectName = input.ProjectName
		rec.ItemName = item.Name
		rec.ItemType = item.Category
		rec.Quantity = input.Quantity
		rec.TrackingType = policy
		rec.UsefulLifeMonths = 0
		rec.ReplacementFrequencyPerYear = 0
		if policy == TrackingReplacementFrequency {
			rec.ReplacementFrequencyPerYear = item.AnnualReplacementFrequency
		} else {
			rec.UsefulLifeMonths = item.UsefulLifeMonths
		}
		rec.CompletedAt = input.CompletedAt
		rec.ReplaceBy = ComputeReplaceBy(policy, input.CompletedAt, item.UsefulLifeMonths, item.AnnualReplacementFrequency)

		out = rec
		return Batch{Writes: []Write{PutTracking{*rec}}}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("track item %s for project %s: %w", input.ItemID, input.ProjectID, err)
	}
	return out, nil
}

func (s *trackingService) Replenish(ctx context.Context, recordID string, nextReplaceDate time.Time) (*ReplenishResult, error) {
	var result ReplenishResult
	err := s.ledger.Run(ctx, func(ctx context.Context, r Reader) (Batch, error) {
		old, err := r.GetTrackingRecord(ctx, recordID)
		if err != nil {
			return Batch{}, err
		}
		if old.Replenished {
			return Batch{}, &ValidationError{Field: "id", Message: fmt.Sprintf("tracking record %s is already replenished", recordID)}
		}
		item, err := r.GetItem(ctx, old.ItemID)
		if err != nil {
			return Batch{}, err
		}

		switch old.TrackingType {
		case TrackingReplacementFrequency:
			if item.AnnualReplacementFrequency <= 0 {
				return Batch{}, &ConfigurationError{ItemID: item.ID, Message: "annual replacement frequency must be positive to replenish"}
			}
		default:
			if item.UsefulLifeMonths <= 0 {
				return Batch{}, &ConfigurationError{ItemID: item.ID, Message: "useful life months must be positive to replenish"}
			}
		}

		now := s.now()
		replaceBy := nextReplaceDate
		if replaceBy.IsZero() {
			replaceBy = ComputeReplaceBy(old.TrackingType, now, item.UsefulLifeMonths, item.AnnualReplacementFrequency)
		}

		closed := *old
		closed.Replenished = true
		closed.ReplenishedAt = &now

		opened := *old
		opened.ID = uuid.NewString()
		opened.ItemName = item.Name
		opened.CompletedAt = now
		opened.ReplaceBy = replaceBy
		opened.Replenished = false
		opened.ReplenishedAt = nil

		result = ReplenishResult{Closed: closed, Opened: opened}

		var b Batch
		b.Add(PutTracking{closed}, PutTracking{opened})
		if old.Quantity > 0 {
			b.Credit(old.ItemID, BucketInventory, old.Quantity)
		}
		return b, nil
	})
	if err != nil {
		return nil, fmt.Errorf("replenish tracking record %s: %w", recordID, err)
	}
	return &result, nil
}

func (s *trackingService) List(ctx context.Context, filter TrackingFilter) ([]TrackingView, error) {
	records, err := s.store.ListTracking(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tracking records: %w", err)
	}
	warningDays := filter.WarningDays
	if warningDays <= 0 {
		warningDays = s.warningDays
	}

	now := s.now()
	var views []TrackingView
	for _, rec := range records {
		if filter.ProjectID != "" && rec.ProjectID != filter.ProjectID {
			continue
		}
		if filter.ItemID != "" && rec.ItemID != filter.ItemID {
			continue
		}
		if filter.OpenOnly && rec.Replenished {
			continue
		}
		view := TrackingView{
			TrackingRecord: rec,
			Status:         rec.Status(now, warningDays),
			DaysUntilDue:   rec.DaysUntilDue(now),
		}
		if filter.Status != "" && view.Status != filter.Status {
			continue
		}
		views = append(views, view)
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].ReplaceBy.Before(views[j].ReplaceBy)
	})
	return views, nil
}
