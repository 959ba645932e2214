package core

import (
	"context"
	"time"
)

// ProjectStatus is the two-state project lifecycle: wip <-> complete.
type ProjectStatus string

const (
	ProjectWIP      ProjectStatus = "wip"
	ProjectComplete ProjectStatus = "complete"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	return s == ProjectWIP || s == ProjectComplete
}

// Project groups the item lines installed by one job.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Status      ProjectStatus `json:"status"`
	Items       []ProjectLine `json:"items"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ProjectLine is a main item plus an optional must-have companion that moves in lockstep.
type ProjectLine struct {
	ItemID           string `json:"item_id"`
	ItemName         string `json:"item_name"`
	Qty              int    `json:"qty"`
	MustHaveItemID   string `json:"must_have_item_id,omitempty"`
	MustHaveItemName string `json:"must_have_item_name,omitempty"`
	MustHaveQty      int    `json:"must_have_qty,omitempty"`
}

// moves reports the (item, qty) pairs this line shifts between wip and completed.
func (l ProjectLine) moves() []Delta {
	var out []Delta
	if l.ItemID != "" && l.Qty > 0 {
		out = append(out, Delta{ItemID: l.ItemID, Qty: l.Qty})
		if l.MustHaveItemID != "" && l.MustHaveQty > 0 {
			out = append(out, Delta{ItemID: l.MustHaveItemID, Qty: l.MustHaveQty})
		}
	}
	return out
}

// ProjectInput holds the fields required to create a project.
type ProjectInput struct {
	Name  string
	Items []ProjectLine
}

// TransitionResult reports the outcome of a project status change.
// TrackingErrors lists downstream lifecycle-tracking failures; they never undo the transition.
type TransitionResult struct {
	Project        Project          `json:"project"`
	Changed        bool             `json:"changed"`
	Tracked        []TrackingRecord `json:"tracked,omitempty"`
	TrackingErrors []string         `json:"tracking_errors,omitempty"`
}

// ProjectService orchestrates project status transitions and their stock movements.
type ProjectService interface {
	CreateProject(ctx context.Context, input ProjectInput) (*Project, error)
	GetProject(ctx context.Context, projectID string) (*Project, error)
	ListProjects(ctx context.Context) ([]Project, error)

	// SetStatus moves the project to target. Moving to complete shifts every line's quantity
	// from wip to completed; moving back to wip is the exact inverse. The stock movement and
	// the project update commit together. Setting the current status is a no-op. A transition
	// whose source bucket is short fails with a ValidationError and moves nothing.
	SetStatus(ctx context.Context, projectID string, target ProjectStatus) (*TransitionResult, error)
}
