package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

type guideStoreFake struct {
	mu        sync.Mutex
	guides    []domain.Guide
	nextID    int
	insertErr map[string]error
	updateErr map[string]error
	deleteErr error
	selectErr error
	inserts   int
	updates   int
	deletes   int
}

func newGuideStoreFake(guides ...domain.Guide) *guideStoreFake {
	return &guideStoreFake{guides: append([]domain.Guide(nil), guides...)}
}

func (f *guideStoreFake) Select(_ context.Context, q domain.GuideQuery) ([]domain.Guide, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	ids := make(map[string]struct{}, len(q.IDs))
	for _, id := range q.IDs {
		ids[id] = struct{}{}
	}
	out := make([]domain.Guide, 0, len(f.guides))
	for _, g := range f.guides {
		if q.Status != "" && g.Status != q.Status {
			continue
		}
		if q.Slug != "" && g.Slug != q.Slug {
			continue
		}
		if len(ids) > 0 {
			if _, ok := ids[g.ID]; !ok {
				continue
			}
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (f *guideStoreFake) Insert(_ context.Context, g *domain.Guide) (*domain.Guide, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.insertErr[g.Slug]; err != nil {
		return nil, err
	}
	for _, existing := range f.guides {
		if existing.Slug == g.Slug {
			return nil, domain.WrapError(domain.ErrSlugConflict, "insert guide", fmt.Errorf("slug %s", g.Slug))
		}
	}
	f.nextID++
	stored := *g
	stored.ID = fmt.Sprintf("new-%02d", f.nextID)
	f.guides = append(f.guides, stored)
	f.inserts++
	return &stored, nil
}

func (f *guideStoreFake) Update(_ context.Context, id string, patch domain.GuidePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[id]; err != nil {
		return err
	}
	for i, g := range f.guides {
		if g.ID == id {
			f.guides[i] = patch.Apply(g)
			f.updates++
			return nil
		}
	}
	return domain.WrapError(domain.ErrGuideNotFound, "update guide", fmt.Errorf("id %s", id))
}

func (f *guideStoreFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, g := range f.guides {
		if g.ID == id {
			f.guides = append(f.guides[:i], f.guides[i+1:]...)
			f.deletes++
			return nil
		}
	}
	return domain.WrapError(domain.ErrGuideNotFound, "delete guide", fmt.Errorf("id %s", id))
}

func (f *guideStoreFake) bySlug(slug string) (domain.Guide, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.guides {
		if g.Slug == slug {
			return g, true
		}
	}
	return domain.Guide{}, false
}

type publisherFake struct {
	events []domain.GuideEvent
	err    error
}

func (f *publisherFake) PublishGuideChanged(_ context.Context, event domain.GuideEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type recorderFake struct {
	actions  []domain.ActionResult
	coverage []domain.CoverageReport
}

func (f *recorderFake) ObserveAction(result domain.ActionResult) {
	f.actions = append(f.actions, result)
}

func (f *recorderFake) ObserveCoverage(report domain.CoverageReport) {
	f.coverage = append(f.coverage, report)
}

func testFilterConfig() domain.FilterConfig {
	return domain.FilterConfig{
		Dimensions: []domain.FilterDimension{
			{
				Name:  "unit",
				Mode:  domain.MatchExact,
				Field: domain.FieldUnit,
				Options: []domain.FilterOption{
					{ID: "Stories", Label: "Stories"},
					{ID: "Products", Label: "Products"},
				},
			},
			{
				Name:  "guide_type",
				Mode:  domain.MatchExact,
				Field: domain.FieldGuideType,
				Scope: domain.CategoryGuidelines,
				Options: []domain.FilterOption{
					{ID: "Policy", Label: "Policy"},
					{ID: "Process", Label: "Process"},
				},
			},
			{
				Name:  "framework",
				Mode:  domain.MatchKeyword,
				Field: domain.FieldSubDomain,
				Scope: domain.CategoryStrategy,
				Options: []domain.FilterOption{
					{ID: "ghc", Label: "GHC", Exclude: []string{"ghc-leader"}},
					{ID: "ghc-leader", Label: "GHC Leader"},
					{ID: "6xd", Label: "6xD", Keywords: []string{"digital-framework"}},
				},
			},
		},
		ImagePool: []string{
			"https://images.example.com/a.jpg",
			"https://images.example.com/b.jpg",
			"https://images.example.com/c.jpg",
			"https://images.example.com/d.jpg",
			"https://images.example.com/e.jpg",
		},
		DonorCategories: map[domain.Category][]domain.Category{
			domain.CategoryGuidelines: {domain.CategoryBlueprint},
		},
	}
}

// unitOnlyConfig keeps only the unit dimension so scenarios stay small.
func unitOnlyConfig() domain.FilterConfig {
	cfg := testFilterConfig()
	cfg.Dimensions = cfg.Dimensions[:1]
	return cfg
}

func approved(id, slug string, mutate func(*domain.Guide)) domain.Guide {
	g := domain.Guide{
		ID:     id,
		Slug:   slug,
		Title:  slug,
		Status: domain.StatusApproved,
	}
	if mutate != nil {
		mutate(&g)
	}
	return g
}
