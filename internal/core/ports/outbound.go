package ports

import (
	"context"
	"io"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

// GuideStore is the record store holding the guides table.
type GuideStore interface {
	Select(ctx context.Context, query domain.GuideQuery) ([]domain.Guide, error)
	// Insert creates the guide and returns the stored row. A slug collision
	// is reported as domain.ErrSlugConflict.
	Insert(ctx context.Context, guide *domain.Guide) (*domain.Guide, error)
	Update(ctx context.Context, id string, patch domain.GuidePatch) error
	Delete(ctx context.Context, id string) error
}

// ObjectStorage stores run reports and seed bodies.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// EventPublisher announces guide mutations.
type EventPublisher interface {
	PublishGuideChanged(ctx context.Context, event domain.GuideEvent) error
}

// EventSubscriber consumes guide mutations until ctx is done.
type EventSubscriber interface {
	SubscribeGuideChanged(ctx context.Context, handler func(context.Context, domain.GuideEvent) error) error
}

// BodyExtractor loads long-form guide bodies referenced by seed manifests.
type BodyExtractor interface {
	Extract(ctx context.Context, key string) (string, error)
}

// Excerpter cuts a short summary out of a body.
type Excerpter interface {
	Split(text string) []string
}

// ReportExporter writes a coverage report for operators.
type ReportExporter interface {
	Export(report domain.CoverageReport, path string) error
}

// RunRecorder observes executed actions and coverage states.
type RunRecorder interface {
	ObserveAction(result domain.ActionResult)
	ObserveCoverage(report domain.CoverageReport)
}
