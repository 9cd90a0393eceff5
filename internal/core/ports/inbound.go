package ports

import (
	"context"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

// CoverageAuditor is the inbound contract for filter coverage audits.
type CoverageAuditor interface {
	Audit(ctx context.Context) (domain.CoverageReport, error)
}

// Reconciler runs the audit, plan, execute, audit cycle.
type Reconciler interface {
	Run(ctx context.Context, opts domain.ReconcileOptions) (domain.RunSummary, error)
}
