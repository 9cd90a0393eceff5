package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

func TestAuditorCountsApprovedGuidesPerBucket(t *testing.T) {
	auditor := NewAuditor(unitOnlyConfig(), nil)
	guides := []domain.Guide{
		approved("b", "beta", func(g *domain.Guide) { g.Unit = "Stories" }),
		approved("a", "alpha", func(g *domain.Guide) { g.Unit = "stories" }),
		approved("c", "gamma", func(g *domain.Guide) { g.Unit = "Marketing" }),
		{ID: "d", Slug: "draft", Unit: "Products", Status: domain.StatusDraft},
	}

	report := auditor.Audit(guides)
	if report.GuidesScanned != 3 {
		t.Fatalf("expected 3 scanned guides, got %d", report.GuidesScanned)
	}

	stories, ok := report.Bucket("unit", "Stories")
	if !ok {
		t.Fatalf("expected Stories bucket")
	}
	if stories.State != domain.BucketRedundant || stories.Count != 2 {
		t.Fatalf("unexpected Stories bucket: %+v", stories)
	}
	if !reflect.DeepEqual(stories.GuideIDs, []string{"a", "b"}) {
		t.Fatalf("expected sorted ids, got %v", stories.GuideIDs)
	}

	products, _ := report.Bucket("unit", "Products")
	if products.State != domain.BucketEmpty {
		t.Fatalf("draft guides must not count, got %+v", products)
	}
	if gaps := report.Gaps(); len(gaps) != 1 || gaps[0].Value != "Products" {
		t.Fatalf("unexpected gaps: %+v", gaps)
	}
	if !reflect.DeepEqual(report.Uncategorized["unit"], []string{"c"}) {
		t.Fatalf("expected c uncategorized, got %v", report.Uncategorized)
	}
}

func TestAuditorRespectsCategoryScope(t *testing.T) {
	auditor := NewAuditor(testFilterConfig(), nil)
	guides := []domain.Guide{
		approved("s1", "strategy-ghc", func(g *domain.Guide) {
			g.Domain = "Strategy"
			g.SubDomain = "ghc"
			g.GuideType = "Policy"
		}),
		approved("g1", "guideline-ghc", func(g *domain.Guide) {
			g.SubDomain = "ghc"
			g.GuideType = "Policy"
		}),
	}

	report := auditor.Audit(guides)
	ghc, _ := report.Bucket("framework", "ghc")
	if !reflect.DeepEqual(ghc.GuideIDs, []string{"s1"}) {
		t.Fatalf("expected only the strategy guide in ghc, got %v", ghc.GuideIDs)
	}
	policy, _ := report.Bucket("guide_type", "Policy")
	if !reflect.DeepEqual(policy.GuideIDs, []string{"g1"}) {
		t.Fatalf("expected only the guideline in Policy, got %v", policy.GuideIDs)
	}
}

func TestAuditorCountsMultiValueGuideOncePerBucket(t *testing.T) {
	auditor := NewAuditor(testFilterConfig(), nil)
	g := approved("s1", "multi", func(g *domain.Guide) {
		g.Domain = "Strategy"
		g.SubDomain = "ghc, 6xd, ghc"
	})

	report := auditor.Audit([]domain.Guide{g, g})
	for _, value := range []string{"ghc", "6xd"} {
		b, _ := report.Bucket("framework", value)
		if b.Count != 1 {
			t.Fatalf("expected %s count 1, got %d", value, b.Count)
		}
	}
}

func TestCoverageServiceSelectsApprovedGuides(t *testing.T) {
	store := newGuideStoreFake(
		approved("2", "b-guide", func(g *domain.Guide) { g.Unit = "Products" }),
		approved("1", "a-guide", func(g *domain.Guide) { g.Unit = "Stories" }),
	)
	recorder := &recorderFake{}
	svc := NewCoverageService(store, NewAuditor(unitOnlyConfig(), nil), recorder)

	guides, report, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if guides[0].Slug != "a-guide" {
		t.Fatalf("expected guides ordered by slug, got %s first", guides[0].Slug)
	}
	if len(report.Gaps()) != 0 {
		t.Fatalf("expected no gaps, got %+v", report.Gaps())
	}
	if len(recorder.coverage) != 1 {
		t.Fatalf("expected coverage to be recorded once, got %d", len(recorder.coverage))
	}
}

func TestCoverageServiceSelectError(t *testing.T) {
	store := newGuideStoreFake()
	store.selectErr = domain.WrapError(domain.ErrPermissionDenied, "select guides", errors.New("rls"))
	svc := NewCoverageService(store, NewAuditor(unitOnlyConfig(), nil), nil)

	_, err := svc.Audit(context.Background())
	if !domain.IsKind(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}
