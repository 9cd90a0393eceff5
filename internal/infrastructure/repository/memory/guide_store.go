package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

// GuideStore keeps guides in process. It enforces slug uniqueness like the
// real table and is used for rehearsals against a fixture.
type GuideStore struct {
	mu     sync.RWMutex
	guides map[string]domain.Guide
	slugs  map[string]string
	newID  func() string
}

func NewGuideStore(seed ...domain.Guide) *GuideStore {
	s := &GuideStore{
		guides: make(map[string]domain.Guide),
		slugs:  make(map[string]string),
		newID:  uuid.NewString,
	}
	for _, g := range seed {
		_, _ = s.Insert(context.Background(), &g)
	}
	return s
}

type fixture struct {
	Guides []domain.Guide `yaml:"guides"`
}

// LoadFixture builds a store from a YAML file with a top-level guides list.
func LoadFixture(path string) (*GuideStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, domain.WrapError(domain.ErrConfig, "parse fixture", err)
	}
	store := NewGuideStore()
	for i := range f.Guides {
		if _, err := store.Insert(context.Background(), &f.Guides[i]); err != nil {
			return nil, fmt.Errorf("fixture guide %d: %w", i, err)
		}
	}
	return store, nil
}

func (s *GuideStore) Select(ctx context.Context, query domain.GuideQuery) ([]domain.Guide, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]struct{}, len(query.IDs))
	for _, id := range query.IDs {
		ids[id] = struct{}{}
	}
	out := make([]domain.Guide, 0, len(s.guides))
	for _, g := range s.guides {
		if query.Status != "" && g.Status != query.Status {
			continue
		}
		if query.Slug != "" && g.Slug != query.Slug {
			continue
		}
		if len(ids) > 0 {
			if _, ok := ids[g.ID]; !ok {
				continue
			}
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slug != out[j].Slug {
			return out[i].Slug < out[j].Slug
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *GuideStore) Insert(ctx context.Context, guide *domain.Guide) (*domain.Guide, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if guide == nil || guide.Slug == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "insert guide", errors.New("slug is required"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.slugs[guide.Slug]; taken {
		return nil, domain.WrapError(domain.ErrSlugConflict, "insert guide", fmt.Errorf("slug %s", guide.Slug))
	}
	g := *guide
	if g.ID == "" {
		g.ID = s.newID()
	}
	if _, taken := s.guides[g.ID]; taken {
		return nil, domain.WrapError(domain.ErrInvalidInput, "insert guide", fmt.Errorf("duplicate id %s", g.ID))
	}
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if g.LastUpdatedAt.IsZero() {
		g.LastUpdatedAt = now
	}
	if g.Status == "" {
		g.Status = domain.StatusDraft
	}
	s.guides[g.ID] = g
	s.slugs[g.Slug] = g.ID
	return &g, nil
}

func (s *GuideStore) Update(ctx context.Context, id string, patch domain.GuidePatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guides[id]
	if !ok {
		return domain.WrapError(domain.ErrGuideNotFound, "update guide", fmt.Errorf("id=%s", id))
	}
	if patch.LastUpdatedAt.IsZero() {
		patch.LastUpdatedAt = time.Now().UTC()
	}
	s.guides[id] = patch.Apply(g)
	return nil
}

func (s *GuideStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.guides[id]
	if !ok {
		return domain.WrapError(domain.ErrGuideNotFound, "delete guide", fmt.Errorf("id=%s", id))
	}
	delete(s.guides, id)
	delete(s.slugs, g.Slug)
	return nil
}

// Snapshot writes the current contents as a fixture, so a rehearsal can be
// inspected or replayed.
func (s *GuideStore) Snapshot(path string) error {
	guides, err := s.Select(context.Background(), domain.GuideQuery{})
	if err != nil {
		return err
	}
	raw, err := yaml.Marshal(fixture{Guides: guides})
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}
