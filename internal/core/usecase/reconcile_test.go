package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

type archiveFake struct {
	saved map[string][]byte
}

func (f *archiveFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[key] = raw
	return nil
}

func (f *archiveFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.saved[key])), nil
}

func newReconcileFixture(cfg domain.FilterConfig, allowCreate bool, guides ...domain.Guide) (*ReconcileService, *guideStoreFake, *archiveFake) {
	store := newGuideStoreFake(guides...)
	classifier := NewClassifier(cfg)
	coverage := NewCoverageService(store, NewAuditor(cfg, classifier), nil)
	executor := NewPlanExecutor(store, cfg, classifier, WithImageAssigner(NewImageAssigner(cfg.ImagePool)))
	archive := &archiveFake{}
	svc := NewReconcileService(coverage, NewPlanner(cfg, classifier, allowCreate), executor, archive)
	return svc, store, archive
}

func TestReconcileIsIdempotent(t *testing.T) {
	cfg := testFilterConfig()
	cfg.Dimensions = []domain.FilterDimension{cfg.Dimensions[0], cfg.Dimensions[2]}
	journey := approved("j1", "dq-journey", func(g *domain.Guide) {
		g.Domain = "Strategy"
		g.Unit = "Stories"
		g.FunctionArea = "Stories"
		g.SubDomain = "ghc, 6xd"
	})
	svc, store, archive := newReconcileFixture(cfg, true, journey)

	first, err := svc.Run(context.Background(), domain.ReconcileOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(first.Plan.Actions) == 0 {
		t.Fatalf("expected the first run to plan actions")
	}
	if tally := first.Tally(); tally[domain.ActionFailed] != 0 {
		t.Fatalf("unexpected failures: %+v", first.Results)
	}
	if gaps := first.RemainingGaps(); len(gaps) != 0 {
		t.Fatalf("expected every gap filled, got %+v", gaps)
	}
	stories, _ := first.After.Bucket("unit", "Stories")
	if stories.Count == 0 {
		t.Fatalf("Stories must stay covered")
	}
	if _, ok := store.bySlug("dq-journey-products"); !ok {
		t.Fatalf("expected Products copy of the journey guide")
	}

	second, err := svc.Run(context.Background(), domain.ReconcileOptions{})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if len(second.Plan.Actions) != 0 {
		t.Fatalf("expected no actions on second run, got %+v", second.Plan.Actions)
	}
	if len(archive.saved) != 2 {
		t.Fatalf("expected both runs archived, got %d", len(archive.saved))
	}
	for key, raw := range archive.saved {
		if !strings.HasPrefix(key, "runs/") {
			t.Fatalf("unexpected archive key %s", key)
		}
		var decoded domain.RunSummary
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("archived summary is not json: %v", err)
		}
	}
}

func TestReconcileDryRunDoesNotWrite(t *testing.T) {
	svc, store, _ := newReconcileFixture(unitOnlyConfig(), true,
		approved("a", "a", func(g *domain.Guide) { g.Unit = "Stories" }),
		approved("b", "b", func(g *domain.Guide) { g.Unit = "Stories" }),
	)

	summary, err := svc.Run(context.Background(), domain.ReconcileOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(summary.Plan.Actions) != 1 || summary.Plan.Actions[0].Kind != domain.ActionRelabel {
		t.Fatalf("expected one relabel, got %+v", summary.Plan.Actions)
	}
	if store.updates+store.inserts+store.deletes != 0 {
		t.Fatalf("dry run must not write")
	}
	if len(summary.Results) != 0 {
		t.Fatalf("dry run must not produce results")
	}
	if len(summary.RemainingGaps()) != 1 {
		t.Fatalf("expected Products to remain a gap in dry run")
	}
}

func TestReconcileStoreFailureAbortsBeforePlanning(t *testing.T) {
	svc, store, archive := newReconcileFixture(unitOnlyConfig(), true)
	store.selectErr = domain.WrapError(domain.ErrTemporary, "select guides", io.ErrUnexpectedEOF)

	_, err := svc.Run(context.Background(), domain.ReconcileOptions{})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if len(archive.saved) != 0 {
		t.Fatalf("nothing should be archived when the initial read fails")
	}
}

func TestReconcileSettlesWhenDonorsCarryExcludedKeyword(t *testing.T) {
	cfg := testFilterConfig()
	cfg.Dimensions = []domain.FilterDimension{cfg.Dimensions[0], cfg.Dimensions[2]}
	svc, _, _ := newReconcileFixture(cfg, true, staleLeaderGuides()...)

	first, err := svc.Run(context.Background(), domain.ReconcileOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if tally := first.Tally(); tally[domain.ActionApplied] != 1 || tally[domain.ActionFailed] != 0 {
		t.Fatalf("expected one applied action, got %+v", first.Results)
	}
	ghc, _ := first.After.Bucket("framework", "ghc")
	if ghc.Count != 1 {
		t.Fatalf("expected ghc to be covered after the run, got %d", ghc.Count)
	}

	second, err := svc.Run(context.Background(), domain.ReconcileOptions{})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if len(second.Plan.Actions) != 0 {
		t.Fatalf("expected nothing left to do, got %+v", second.Plan.Actions)
	}
}
