package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

const fallbackSalt = "fallback|"

// ImageAssigner picks hero images from a curated pool deterministically.
type ImageAssigner struct {
	pool []string
}

func NewImageAssigner(pool []string) *ImageAssigner {
	cleaned := make([]string, 0, len(pool))
	seen := domain.NewImageSet()
	for _, p := range pool {
		p = strings.TrimSpace(p)
		if !domain.IsValidImageURL(p) || seen.Has(p) {
			continue
		}
		seen.Add(p)
		cleaned = append(cleaned, p)
	}
	return &ImageAssigner{pool: cleaned}
}

func (a *ImageAssigner) PoolSize() int {
	return len(a.pool)
}

// Assign returns an image URL for the guide and records its base in used.
// The hash-selected entry wins unless already used; then the first unused
// entry is taken; with the pool exhausted a salted hash picks a duplicate.
func (a *ImageAssigner) Assign(identity, title string, used *domain.ImageSet) string {
	if len(a.pool) == 0 {
		return ""
	}
	if used == nil {
		used = domain.NewImageSet()
	}
	sum := sha256.Sum256([]byte(identity + title))

	choice := a.pool[indexFor(sum, len(a.pool))]
	if used.Has(choice) {
		choice = ""
		for _, candidate := range a.pool {
			if !used.Has(candidate) {
				choice = candidate
				break
			}
		}
	}
	if choice == "" {
		fallback := sha256.Sum256([]byte(fallbackSalt + identity + title))
		choice = a.pool[indexFor(fallback, len(a.pool))]
	}

	used.Add(choice)
	return withSignature(choice, sum)
}

func indexFor(sum [sha256.Size]byte, n int) int {
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(n))
}

func withSignature(base string, sum [sha256.Size]byte) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "sig=" + hex.EncodeToString(sum[:6])
}

// ImageService assigns hero images to approved guides whose image is missing,
// invalid, or already shown by another guide of the same category.
type ImageService struct {
	coverage   *CoverageService
	classifier *Classifier
	assigner   *ImageAssigner
	executor   *PlanExecutor
	now        func() time.Time
}

func NewImageService(coverage *CoverageService, classifier *Classifier, assigner *ImageAssigner, executor *PlanExecutor) *ImageService {
	return &ImageService{
		coverage:   coverage,
		classifier: classifier,
		assigner:   assigner,
		executor:   executor,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// PlanImages decides image updates without touching the store.
func (s *ImageService) PlanImages(guides []domain.Guide, force bool) domain.Plan {
	used := make(map[domain.Category]*domain.ImageSet)
	needs := make([]domain.Guide, 0)
	for _, g := range guides {
		if !g.IsApproved() {
			continue
		}
		cat := s.classifier.Category(g)
		if used[cat] == nil {
			used[cat] = domain.NewImageSet()
		}
		if force || !domain.IsValidImageURL(g.HeroImageURL) || used[cat].Has(g.HeroImageURL) {
			needs = append(needs, g)
			continue
		}
		used[cat].Add(g.HeroImageURL)
	}

	plan := domain.Plan{Actions: make([]domain.Action, 0, len(needs))}
	for _, g := range needs {
		cat := s.classifier.Category(g)
		url := s.assigner.Assign(g.Identity(), g.Title, used[cat])
		if url == "" || url == g.HeroImageURL {
			continue
		}
		plan.Actions = append(plan.Actions, domain.Action{
			Kind:      domain.ActionUpdate,
			GuideID:   g.ID,
			GuideSlug: g.Slug,
			Patch: &domain.GuidePatch{
				HeroImageURL:  domain.StringPtr(url),
				LastUpdatedAt: s.now(),
			},
			Reason: fmt.Sprintf("hero image for %s", cat),
		})
	}
	return plan
}

func (s *ImageService) AssignAll(ctx context.Context, force bool) ([]domain.ActionResult, error) {
	guides, err := s.coverage.LoadApproved(ctx)
	if err != nil {
		return nil, err
	}
	plan := s.PlanImages(guides, force)
	return s.executor.Apply(ctx, plan, guides), nil
}
