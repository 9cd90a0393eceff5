package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
	"github.com/kirillkom/knowledge-hub-tools/internal/core/ports"
)

// ReconcileService runs audit, plan, apply and a verifying audit.
type ReconcileService struct {
	coverage *CoverageService
	planner  *Planner
	executor *PlanExecutor
	archive  ports.ObjectStorage
	logger   *slog.Logger
	now      func() time.Time
}

func NewReconcileService(
	coverage *CoverageService,
	planner *Planner,
	executor *PlanExecutor,
	archive ports.ObjectStorage,
) *ReconcileService {
	return &ReconcileService{
		coverage: coverage,
		planner:  planner,
		executor: executor,
		archive:  archive,
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ReconcileService) Run(ctx context.Context, opts domain.ReconcileOptions) (domain.RunSummary, error) {
	summary := domain.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: s.now(),
		DryRun:    opts.DryRun,
	}

	guides, before, err := s.coverage.Snapshot(ctx)
	if err != nil {
		return summary, fmt.Errorf("initial audit: %w", err)
	}
	summary.Before = before
	summary.Plan = s.planner.Plan(before, guides)
	s.logger.Info("reconcile_planned",
		"run_id", summary.RunID,
		"guides", before.GuidesScanned,
		"gaps", len(before.Gaps()),
		"actions", len(summary.Plan.Actions),
		"unfilled", len(summary.Plan.Unfilled),
		"dry_run", opts.DryRun,
	)

	if opts.DryRun {
		summary.After = before
		summary.FinishedAt = s.now()
		s.store(ctx, summary)
		return summary, nil
	}

	summary.Results = s.executor.Apply(ctx, summary.Plan, guides)

	after, err := s.coverage.Audit(ctx)
	summary.FinishedAt = s.now()
	if err != nil {
		s.store(ctx, summary)
		return summary, fmt.Errorf("verification audit: %w", err)
	}
	summary.After = after
	s.store(ctx, summary)

	tally := summary.Tally()
	s.logger.Info("reconcile_finished",
		"run_id", summary.RunID,
		"applied", tally[domain.ActionApplied],
		"skipped", tally[domain.ActionSkipped],
		"failed", tally[domain.ActionFailed],
		"remaining_gaps", len(summary.RemainingGaps()),
	)
	return summary, nil
}

func (s *ReconcileService) store(ctx context.Context, summary domain.RunSummary) {
	if s.archive == nil {
		return
	}
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		s.logger.Warn("run_summary_encode_failed", "run_id", summary.RunID, "error", err)
		return
	}
	key := fmt.Sprintf("runs/%s-%s.json", summary.StartedAt.Format("20060102T150405Z"), summary.RunID)
	if err := s.archive.Save(ctx, key, bytes.NewReader(payload)); err != nil {
		s.logger.Warn("run_summary_archive_failed", "run_id", summary.RunID, "key", key, "error", err)
	}
}
