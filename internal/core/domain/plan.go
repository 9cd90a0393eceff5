package domain

import "time"

type ActionKind string

const (
	ActionRelabel             ActionKind = "relabel"
	ActionDuplicateAndRelabel ActionKind = "duplicate_and_relabel"
	ActionCreateMinimal       ActionKind = "create_minimal"
	ActionInsert              ActionKind = "insert"
	ActionUpdate              ActionKind = "update"
	ActionDelete              ActionKind = "delete"
)

// Action is one advisory step of a reconciliation plan. GuideID is the record
// to relabel, or the source of a duplicate; it is empty for create_minimal.
type Action struct {
	Kind           ActionKind  `json:"kind"`
	GuideID        string      `json:"guide_id,omitempty"`
	GuideSlug      string      `json:"guide_slug,omitempty"`
	Dimension      string      `json:"dimension,omitempty"`
	Value          string      `json:"value,omitempty"`
	SlugSuffix     string      `json:"slug_suffix,omitempty"`
	TargetCategory Category    `json:"target_category,omitempty"`
	Template       *Guide      `json:"template,omitempty"`
	Patch          *GuidePatch `json:"-"`
	Reason         string      `json:"reason,omitempty"`
}

type Plan struct {
	Actions  []Action    `json:"actions"`
	Unfilled []BucketRef `json:"unfilled,omitempty"`
}

func (p Plan) Empty() bool {
	return len(p.Actions) == 0
}

type ActionStatus string

const (
	ActionApplied ActionStatus = "applied"
	ActionSkipped ActionStatus = "skipped"
	ActionFailed  ActionStatus = "failed"
)

// ActionResult is the outcome of executing a single action. Failures are
// reported here rather than aborting the batch.
type ActionResult struct {
	Action     Action        `json:"action"`
	Status     ActionStatus  `json:"status"`
	NewGuideID string        `json:"new_guide_id,omitempty"`
	Message    string        `json:"message,omitempty"`
	Err        error         `json:"-"`
	Duration   time.Duration `json:"duration"`
}

// RunSummary is returned by a reconciliation run and archived as JSON.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	DryRun     bool           `json:"dry_run"`
	Before     CoverageReport `json:"before"`
	After      CoverageReport `json:"after"`
	Plan       Plan           `json:"plan"`
	Results    []ActionResult `json:"results,omitempty"`
}

func (s RunSummary) Tally() map[ActionStatus]int {
	out := map[ActionStatus]int{ActionApplied: 0, ActionSkipped: 0, ActionFailed: 0}
	for _, r := range s.Results {
		out[r.Status]++
	}
	return out
}

// RemainingGaps are the buckets still empty after the run.
func (s RunSummary) RemainingGaps() []BucketCoverage {
	if s.DryRun {
		return s.Before.Gaps()
	}
	return s.After.Gaps()
}

type ReconcileOptions struct {
	DryRun bool
}
