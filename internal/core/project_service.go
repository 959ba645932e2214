package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

type projectService struct {
	store   Store
	ledger  *Ledger
	tracker TrackingService
}

// NewProjectService constructs a ProjectService. tracker may be nil, in which case completed
// projects are not fed into lifecycle tracking.
func NewProjectService(store Store, ledger *Ledger, tracker TrackingService) ProjectService {
	return &projectService{store: store, ledger: ledger, tracker: tracker}
}

// CreateProject records a new wip project and allocates its stock: every main and must-have
// quantity moves from inventory to wip in the same batch that stores the project. Creation is
// rejected when an item's inventory cannot cover its combined demand across all lines.
func (s *projectService) CreateProject(ctx context.Context, input ProjectInput) (*Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "project name is required"}
	}

	now := time.Now().UTC()
	p := Project{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    ProjectWIP,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.ledger.Run(ctx, func(ctx context.Context, r Reader) (Batch, error) {
		p.Items = nil
		for i, in := range input.Items {
			field := fmt.Sprintf("items[%d]", i)
			if in.ItemID == "" {
				return Batch{}, &ValidationError{Field: field + ".item_id", Message: "item is required"}
			}
			if in.Qty < 0 || in.MustHaveQty < 0 {
				return Batch{}, &ValidationError{Field: field + ".qty", Message: "quantity cannot be negative"}
			}
			item, err := r.GetItem(ctx, in.ItemID)
			if err != nil {
				return Batch{}, err
			}
			line := in
			line.ItemName = item.Name
			if line.MustHaveItemID != "" {
				companion, err := r.GetItem(ctx, line.MustHaveItemID)
				if err != nil {
					return Batch{}, err
				}
				line.MustHaveItemName = companion.Name
			}
			p.Items = append(p.Items, line)
		}

		b, err := moveLines(ctx, r, p.Items, BucketInventory, BucketWIP)
		if err != nil {
			return Batch{}, err
		}
		b.Add(PutProject{p})
		return b, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &p, nil
}

// moveLines builds the batch shifting every line's quantities from one bucket to another.
// It fails with a ValidationError when an item's from bucket holds less than the combined
// quantity the lines need, so no bucket goes negative.
func moveLines(ctx context.Context, r Reader, lines []ProjectLine, from, to Bucket) (Batch, error) {
	need := map[string]int{}
	var order []string
	for _, line := range lines {
		for _, m := range line.moves() {
			if _, seen := need[m.ItemID]; !seen {
				order = append(order, m.ItemID)
			}
			need[m.ItemID] += m.Qty
		}
	}

	var b Batch
	for _, id := range order {
		item, err := r.GetItem(ctx, id)
		if err != nil {
			return Batch{}, err
		}
		if have := item.Quantity(from); have < need[id] {
			return Batch{}, &ValidationError{
				Field:   "items",
				Message: fmt.Sprintf("item %s has %d in %s, %d needed", item.SKU, have, from, need[id]),
			}
		}
		b.Move(id, from, to, need[id])
	}
	return b, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID string) (*Project, error) {
	return s.store.GetProject(ctx, projectID)
}

func (s *projectService) ListProjects(ctx context.Context) ([]Project, error) {
	return s.store.ListProjects(ctx)
}

func (s *projectService) SetStatus(ctx context.Context, projectID string, target ProjectStatus) (*TransitionResult, error) {
	if !target.Valid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown project status %q", target)}
	}

	result := &TransitionResult{}
	err := s.ledger.Run(ctx, func(ctx context.Context, r Reader) (Batch, error) {
		p, err := r.GetProject(ctx, projectID)
		if err != nil {
			return Batch{}, err
		}
		result.Project = *p
		result.Changed = false
		if p.Status == target {
			return Batch{}, nil
		}

		from, to := BucketWIP, BucketCompleted
		if target == ProjectWIP {
			from, to = BucketCompleted, BucketWIP
		}

		b, err := moveLines(ctx, r, p.Items, from, to)
		if err != nil {
			return Batch{}, err
		}

		now := time.Now().UTC()
		p.Status = target
		p.UpdatedAt = now
		if target == ProjectComplete {
			p.CompletedAt = &now
		} else {
			p.CompletedAt = nil
		}
		b.Add(PutProject{*p})

		result.Project = *p
		result.Changed = true
		return b, nil
	})
	if err != nil {
		return nil, fmt.Errorf("set project %s status to %s: %w", projectID, target, err)
	}

	if result.Changed && target == ProjectComplete {
		s.track(ctx, result)
	}
	return result, nil
}

// track feeds every main line of a freshly completed project into lifecycle tracking.
// The transition has already committed; failures are reported, not rolled back.
func (s *projectService) track(ctx context.Context, result *TransitionResult) {
	if s.tracker == nil {
		return
	}
	p := result.Project
	completedAt := p.UpdatedAt
	if p.CompletedAt != nil {
		completedAt = *p.CompletedAt
	}
	for _, line := range p.Items {
		if line.ItemID == "" || line.Qty <= 0 {
			continue
		}
		rec, err := s.tracker.Track(ctx, TrackInput{
			ProjectID:   p.ID,
			ProjectName: p.Name,
			ItemID:      line.ItemID,
			Quantity:    line.Qty,
			CompletedAt: completedAt,
		})
		if err != nil {
			log.Printf("tracking: project %s item %s: %v", p.ID, line.ItemID, err)
			result.TrackingErrors = append(result.TrackingErrors, fmt.Sprintf("item %s: %v", line.ItemID, err))
			continue
		}
		if rec != nil {
			result.Tracked = append(result.Tracked, *rec)
		}
	}
}
