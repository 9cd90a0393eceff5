package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

func TestImageAssignerIsDeterministic(t *testing.T) {
	assigner := NewImageAssigner(testFilterConfig().ImagePool)

	first := assigner.Assign("guide-1", "Title", domain.NewImageSet())
	second := assigner.Assign("guide-1", "Title", domain.NewImageSet())
	if first != second {
		t.Fatalf("expected same url, got %s and %s", first, second)
	}
	if !strings.Contains(first, "?sig=") {
		t.Fatalf("expected signature query, got %s", first)
	}
	if !domain.IsValidImageURL(first) {
		t.Fatalf("assigned url must be valid: %s", first)
	}
}

func TestImageAssignerPrefersUnusedImages(t *testing.T) {
	pool := testFilterConfig().ImagePool
	assigner := NewImageAssigner(pool)
	used := domain.NewImageSet()

	bases := make(map[string]struct{})
	for i := 0; i < len(pool); i++ {
		url := assigner.Assign(string(rune('a'+i)), "same title", used)
		base := domain.ImageBase(url)
		if _, dup := bases[base]; dup {
			t.Fatalf("image %s assigned twice while unused images remained", base)
		}
		bases[base] = struct{}{}
	}

	extra := assigner.Assign("overflow", "same title", used)
	if extra == "" {
		t.Fatalf("exhausted pool must still yield an image")
	}
	if _, ok := bases[domain.ImageBase(extra)]; !ok {
		t.Fatalf("fallback must come from the pool, got %s", extra)
	}
}

func TestImageAssignerSkipsInvalidPoolEntries(t *testing.T) {
	assigner := NewImageAssigner([]string{"/image.png", "https://cdn.example.com/placeholder.jpg", " https://cdn.example.com/ok.jpg "})
	if assigner.PoolSize() != 1 {
		t.Fatalf("expected one usable pool entry, got %d", assigner.PoolSize())
	}
	if NewImageAssigner(nil).Assign("x", "y", nil) != "" {
		t.Fatalf("empty pool must yield empty url")
	}
}

func TestImageServicePlansOnlyBrokenOrDuplicateImages(t *testing.T) {
	cfg := testFilterConfig()
	classifier := NewClassifier(cfg)
	svc := NewImageService(nil, classifier, NewImageAssigner(cfg.ImagePool), nil)

	guides := []domain.Guide{
		approved("1", "a", func(g *domain.Guide) { g.HeroImageURL = "https://images.example.com/a.jpg?sig=1" }),
		approved("2", "b", func(g *domain.Guide) { g.HeroImageURL = "https://images.example.com/a.jpg?sig=2" }),
		approved("3", "c", func(g *domain.Guide) { g.HeroImageURL = "/image.png" }),
		approved("4", "d", func(g *domain.Guide) {
			g.Domain = "Strategy"
			g.HeroImageURL = "https://images.example.com/a.jpg"
		}),
	}

	plan := svc.PlanImages(guides, false)
	touched := make(map[string]string)
	for _, a := range plan.Actions {
		touched[a.GuideID] = *a.Patch.HeroImageURL
	}
	if len(touched) != 2 {
		t.Fatalf("expected the duplicate and the invalid image to be replaced, got %v", touched)
	}
	if _, ok := touched["2"]; !ok {
		t.Fatalf("expected duplicate image of guide 2 to be replaced")
	}
	if _, ok := touched["3"]; !ok {
		t.Fatalf("expected invalid image of guide 3 to be replaced")
	}
	for id, url := range touched {
		if domain.ImageBase(url) == "https://images.example.com/a.jpg" {
			t.Fatalf("guide %s got an image already used in its category", id)
		}
	}

	forced := svc.PlanImages(guides, true)
	if len(forced.Actions) == 0 {
		t.Fatalf("expected force to reconsider every guide")
	}
}

func TestImageServiceAssignAllIsStable(t *testing.T) {
	cfg := unitOnlyConfig()
	store := newGuideStoreFake(
		approved("1", "a", nil),
		approved("2", "b", func(g *domain.Guide) { g.HeroImageURL = "/image.png" }),
	)
	classifier := NewClassifier(cfg)
	coverage := NewCoverageService(store, NewAuditor(cfg, classifier), nil)
	executor := NewPlanExecutor(store, cfg, classifier)
	svc := NewImageService(coverage, classifier, NewImageAssigner(cfg.ImagePool), executor)

	results, err := svc.AssignAll(context.Background(), false)
	if err != nil {
		t.Fatalf("AssignAll() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected two updates, got %d", len(results))
	}

	results, err = svc.AssignAll(context.Background(), false)
	if err != nil {
		t.Fatalf("AssignAll() second run error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no updates on second run, got %+v", results)
	}

	results, err = svc.AssignAll(context.Background(), true)
	if err != nil {
		t.Fatalf("AssignAll(force) error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("forced reassignment of a stable set must reproduce the same urls, got %+v", results)
	}
}
