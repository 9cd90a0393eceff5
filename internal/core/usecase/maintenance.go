package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
	"github.com/kirillkom/knowledge-hub-tools/internal/core/ports"
)

const seedExcerptLimit = 280

// UnitMirrorService makes unit and function_area equal on every guide,
// preferring unit.
type UnitMirrorService struct {
	store    ports.GuideStore
	executor *PlanExecutor
}

func NewUnitMirrorService(store ports.GuideStore, executor *PlanExecutor) *UnitMirrorService {
	return &UnitMirrorService{store: store, executor: executor}
}

func (s *UnitMirrorService) PlanSync(guides []domain.Guide) domain.Plan {
	plan := domain.Plan{Actions: make([]domain.Action, 0)}
	for _, g := range guides {
		if g.Unit == g.FunctionArea {
			continue
		}
		unit := g.EffectiveUnit()
		plan.Actions = append(plan.Actions, domain.Action{
			Kind:      domain.ActionUpdate,
			GuideID:   g.ID,
			GuideSlug: g.Slug,
			Patch: &domain.GuidePatch{
				Unit:         domain.StringPtr(unit),
				FunctionArea: domain.StringPtr(unit),
			},
			Reason: "mirror unit into function_area",
		})
	}
	return plan
}

func (s *UnitMirrorService) Sync(ctx context.Context) ([]domain.ActionResult, error) {
	guides, err := s.store.Select(ctx, domain.GuideQuery{})
	if err != nil {
		return nil, fmt.Errorf("select guides: %w", err)
	}
	return s.executor.Apply(ctx, s.PlanSync(guides), guides), nil
}

// ConversionService moves a guide into another category, in place or as a
// suffixed copy.
type ConversionService struct {
	store    ports.GuideStore
	executor *PlanExecutor
	now      func() time.Time
}

func NewConversionService(store ports.GuideStore, executor *PlanExecutor) *ConversionService {
	return &ConversionService{
		store:    store,
		executor: executor,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ConversionService) Convert(ctx context.Context, ref string, target domain.Category, asCopy bool) (domain.ActionResult, error) {
	g, err := FindGuide(ctx, s.store, ref)
	if err != nil {
		return domain.ActionResult{}, err
	}

	var action domain.Action
	if asCopy {
		cp := DuplicateGuide(g, target, target.Slug(), s.now())
		action = domain.Action{
			Kind:           domain.ActionInsert,
			GuideID:        g.ID,
			GuideSlug:      g.Slug,
			TargetCategory: target,
			Template:       &cp,
			Reason:         fmt.Sprintf("copy into %s", target),
		}
	} else {
		unit := g.EffectiveUnit()
		action = domain.Action{
			Kind:           domain.ActionUpdate,
			GuideID:        g.ID,
			GuideSlug:      g.Slug,
			TargetCategory: target,
			Patch: &domain.GuidePatch{
				Domain:       domain.StringPtr(target.CanonicalDomain()),
				GuideType:    domain.StringPtr(domain.StripCategoryTokens(g.GuideType)),
				Unit:         domain.StringPtr(unit),
				FunctionArea: domain.StringPtr(unit),
			},
			Reason: fmt.Sprintf("convert to %s", target),
		}
	}

	results := s.executor.Apply(ctx, domain.Plan{Actions: []domain.Action{action}}, []domain.Guide{g})
	return results[0], nil
}

// FindGuide resolves a guide by slug, then by id.
func FindGuide(ctx context.Context, store ports.GuideStore, ref string) (domain.Guide, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Guide{}, domain.WrapError(domain.ErrInvalidInput, "find guide", errors.New("empty reference"))
	}
	guides, err := store.Select(ctx, domain.GuideQuery{Slug: ref})
	if err != nil {
		return domain.Guide{}, fmt.Errorf("select guide by slug: %w", err)
	}
	if len(guides) == 0 {
		guides, err = store.Select(ctx, domain.GuideQuery{IDs: []string{ref}})
		if err != nil && !domain.IsKind(err, domain.ErrInvalidInput) {
			return domain.Guide{}, fmt.Errorf("select guide by id: %w", err)
		}
	}
	if len(guides) == 0 {
		return domain.Guide{}, domain.WrapError(domain.ErrGuideNotFound, "find guide", fmt.Errorf("no guide %q", ref))
	}
	return guides[0], nil
}

// DuplicationService copies every approved guide of a category across the
// options of a dimension it does not carry yet.
type DuplicationService struct {
	coverage *CoverageService
	cfg      domain.FilterConfig
	executor *PlanExecutor
}

func NewDuplicationService(coverage *CoverageService, cfg domain.FilterConfig, executor *PlanExecutor) *DuplicationService {
	return &DuplicationService{coverage: coverage, cfg: cfg, executor: executor}
}

// Duplicate runs the pass. With force, copies made by an earlier pass are
// deleted first and regenerated.
func (s *DuplicationService) Duplicate(ctx context.Context, category domain.Category, dimension string, force bool) ([]domain.ActionResult, error) {
	dim, ok := s.cfg.Dimension(dimension)
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "duplicate", fmt.Errorf("unknown dimension %q", dimension))
	}
	if !dim.InScope(category) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "duplicate", fmt.Errorf("dimension %q does not apply to %s", dimension, category))
	}

	guides, err := s.coverage.LoadApproved(ctx)
	if err != nil {
		return nil, err
	}

	var results []domain.ActionResult
	if force {
		cleanup := s.PlanCleanup(guides, category, dim)
		results = append(results, s.executor.Apply(ctx, cleanup, guides)...)
		if !cleanup.Empty() {
			if guides, err = s.coverage.LoadApproved(ctx); err != nil {
				return results, err
			}
		}
	}

	plan := s.PlanCopies(guides, category, dim)
	return append(results, s.executor.Apply(ctx, plan, guides)...), nil
}

// PlanCleanup deletes copies recognised by their source.slug-<option> slug.
func (s *DuplicationService) PlanCleanup(guides []domain.Guide, category domain.Category, dim domain.FilterDimension) domain.Plan {
	_, copies := s.split(guides, category, dim)
	plan := domain.Plan{Actions: make([]domain.Action, 0, len(copies))}
	for _, g := range guides {
		if _, ok := copies[g.Slug]; !ok {
			continue
		}
		plan.Actions = append(plan.Actions, domain.Action{
			Kind:      domain.ActionDelete,
			GuideID:   g.ID,
			GuideSlug: g.Slug,
			Dimension: dim.Name,
			Reason:    fmt.Sprintf("replace copy of %s", copies[g.Slug]),
		})
	}
	return plan
}

func (s *DuplicationService) PlanCopies(guides []domain.Guide, category domain.Category, dim domain.FilterDimension) domain.Plan {
	classifier := s.coverage.Classifier()
	sources, _ := s.split(guides, category, dim)
	plan := domain.Plan{Actions: make([]domain.Action, 0)}
	for _, g := range sources {
		have := make(map[string]struct{})
		for _, v := range classifier.Values(g, dim.Name) {
			have[v] = struct{}{}
		}
		for _, opt := range dim.Options {
			if _, ok := have[opt.ID]; ok {
				continue
			}
			plan.Actions = append(plan.Actions, domain.Action{
				Kind:           domain.ActionDuplicateAndRelabel,
				GuideID:        g.ID,
				GuideSlug:      g.Slug,
				Dimension:      dim.Name,
				Value:          opt.ID,
				SlugSuffix:     domain.Normalize(opt.ID),
				TargetCategory: category,
				Reason:         fmt.Sprintf("spread %s across %s", g.Slug, dim.Name),
			})
		}
	}
	return plan
}

// split separates original guides of the category from copies an earlier
// pass produced. copies maps a copy's slug to its source slug.
func (s *DuplicationService) split(guides []domain.Guide, category domain.Category, dim domain.FilterDimension) ([]domain.Guide, map[string]string) {
	classifier := s.coverage.Classifier()
	inCategory := make([]domain.Guide, 0)
	for _, g := range guides {
		if classifier.Category(g) == category {
			inCategory = append(inCategory, g)
		}
	}

	candidates := make(map[string]string)
	for _, g := range inCategory {
		for _, opt := range dim.Options {
			candidates[g.Slug+"-"+domain.Normalize(opt.ID)] = g.Slug
		}
	}
	copies := make(map[string]string)
	sources := make([]domain.Guide, 0, len(inCategory))
	for _, g := range inCategory {
		if src, ok := candidates[g.Slug]; ok {
			copies[g.Slug] = src
			continue
		}
		sources = append(sources, g)
	}
	return sources, copies
}

// SeedService inserts guides listed in a manifest.
type SeedService struct {
	extractor ports.BodyExtractor
	excerpter ports.Excerpter
	executor  *PlanExecutor
	now       func() time.Time
}

func NewSeedService(extractor ports.BodyExtractor, excerpter ports.Excerpter, executor *PlanExecutor) *SeedService {
	return &SeedService{
		extractor: extractor,
		excerpter: excerpter,
		executor:  executor,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *SeedService) Seed(ctx context.Context, manifest domain.SeedManifest) ([]domain.ActionResult, error) {
	table := strings.TrimSpace(manifest.Table)
	if table == "" {
		table = domain.SeedTableGuides
	}
	if table != domain.SeedTableGuides {
		return nil, domain.WrapError(domain.ErrInvalidInput, "seed", fmt.Errorf("unsupported table %q", manifest.Table))
	}

	results := make([]domain.ActionResult, 0, len(manifest.Guides))
	plan := domain.Plan{Actions: make([]domain.Action, 0, len(manifest.Guides))}
	for i, entry := range manifest.Guides {
		g, err := s.prepare(ctx, entry)
		if err != nil {
			results = append(results, domain.ActionResult{
				Action:  domain.Action{Kind: domain.ActionInsert, GuideSlug: firstNonEmpty(entry.Slug, entry.Title, fmt.Sprintf("#%d", i))},
				Status:  domain.ActionFailed,
				Err:     err,
				Message: err.Error(),
			})
			continue
		}
		plan.Actions = append(plan.Actions, domain.Action{
			Kind:      domain.ActionInsert,
			GuideSlug: g.Slug,
			Template:  &g,
			Reason:    "seed manifest",
		})
	}
	return append(results, s.executor.Apply(ctx, plan, nil)...), nil
}

func (s *SeedService) prepare(ctx context.Context, entry domain.SeedGuide) (domain.Guide, error) {
	g := entry.Guide
	g.ID = ""
	if strings.TrimSpace(g.Title) == "" {
		return domain.Guide{}, domain.WrapError(domain.ErrInvalidInput, "seed guide", errors.New("title is required"))
	}
	if entry.BodyFile != "" {
		if s.extractor == nil {
			return domain.Guide{}, domain.WrapError(domain.ErrConfig, "seed guide", errors.New("no body extractor configured"))
		}
		body, err := s.extractor.Extract(ctx, entry.BodyFile)
		if err != nil {
			return domain.Guide{}, fmt.Errorf("read body %s: %w", entry.BodyFile, err)
		}
		g.Body = body
	}
	if g.Slug == "" {
		g.Slug = domain.SlugFor(g.Title)
	}
	if strings.TrimSpace(g.Summary) == "" && s.excerpter != nil {
		g.Summary = excerpt(s.excerpter.Split(g.Body))
	}
	unit := g.EffectiveUnit()
	g.Unit = unit
	g.FunctionArea = unit
	if g.Status == "" {
		g.Status = domain.StatusApproved
	}
	return g, nil
}

func excerpt(chunks []string) string {
	if len(chunks) == 0 {
		return ""
	}
	text := strings.Join(strings.Fields(chunks[0]), " ")
	runes := []rune(text)
	if len(runes) <= seedExcerptLimit {
		return text
	}
	cut := string(runes[:seedExcerptLimit])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

// DiagnoseService checks store permissions with a throwaway draft and looks
// for data problems that break the filter UI.
type DiagnoseService struct {
	store      ports.GuideStore
	cfg        domain.FilterConfig
	classifier *Classifier
	auditor    *Auditor
	probeSlug  func() string
	now        func() time.Time
}

func NewDiagnoseService(store ports.GuideStore, cfg domain.FilterConfig, classifier *Classifier, probeSlug func() string) *DiagnoseService {
	if classifier == nil {
		classifier = NewClassifier(cfg)
	}
	return &DiagnoseService{
		store:      store,
		cfg:        cfg,
		classifier: classifier,
		auditor:    NewAuditor(cfg, classifier),
		probeSlug:  probeSlug,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *DiagnoseService) Diagnose(ctx context.Context) (domain.Diagnosis, error) {
	var out domain.Diagnosis

	guides, err := s.store.Select(ctx, domain.GuideQuery{Status: domain.StatusApproved})
	out.Probes = append(out.Probes, probe("select", err, fmt.Sprintf("%d approved guides", len(guides))))
	if err != nil && !domain.IsKind(err, domain.ErrPermissionDenied) {
		return out, fmt.Errorf("select approved guides: %w", err)
	}
	out.Probes = append(out.Probes, s.writeProbes(ctx)...)

	if err != nil {
		return out, nil
	}
	s.inspect(&out, guides)
	return out, nil
}

func (s *DiagnoseService) writeProbes(ctx context.Context) []domain.PermissionProbe {
	now := s.now()
	draft := &domain.Guide{
		Slug:          s.probeSlug(),
		Title:         "Diagnose probe",
		Status:        domain.StatusDraft,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	inserted, err := s.store.Insert(ctx, draft)
	probes := []domain.PermissionProbe{probe("insert", err, draft.Slug)}
	if err != nil || inserted == nil {
		return append(probes,
			domain.PermissionProbe{Operation: "update", Detail: "skipped: insert failed"},
			domain.PermissionProbe{Operation: "delete", Detail: "skipped: insert failed"},
		)
	}

	err = s.store.Update(ctx, inserted.ID, domain.GuidePatch{
		Title:         domain.StringPtr("Diagnose probe (updated)"),
		LastUpdatedAt: s.now(),
	})
	probes = append(probes, probe("update", err, inserted.ID))

	err = s.store.Delete(ctx, inserted.ID)
	return append(probes, probe("delete", err, inserted.ID))
}

func probe(op string, err error, detail string) domain.PermissionProbe {
	if err != nil {
		return domain.PermissionProbe{Operation: op, Allowed: false, Detail: err.Error()}
	}
	return domain.PermissionProbe{Operation: op, Allowed: true, Detail: detail}
}

func (s *DiagnoseService) inspect(out *domain.Diagnosis, guides []domain.Guide) {
	out.ApprovedGuides = len(guides)
	used := make(map[domain.Category]*domain.ImageSet)
	for _, g := range guides {
		if !domain.IsValidImageURL(g.HeroImageURL) {
			out.InvalidImages = append(out.InvalidImages, g.Slug)
		} else {
			cat := s.classifier.Category(g)
			if used[cat] == nil {
				used[cat] = domain.NewImageSet()
			}
			if used[cat].Has(g.HeroImageURL) {
				out.DuplicateImages = append(out.DuplicateImages, g.Slug)
			}
			used[cat].Add(g.HeroImageURL)
		}
		if g.Unit != g.FunctionArea {
			out.UnitMismatches = append(out.UnitMismatches, g.Slug)
		}
	}

	report := s.auditor.Audit(guides)
	for _, dim := range s.cfg.Dimensions {
		if dim.Field == domain.FieldUnit {
			out.UncategorizedUnits = append(out.UncategorizedUnits, report.Uncategorized[dim.Name]...)
		}
	}
	sort.Strings(out.UncategorizedUnits)
}
