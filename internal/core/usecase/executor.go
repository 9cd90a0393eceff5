package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
	"github.com/kirillkom/knowledge-hub-tools/internal/core/ports"
)

// PlanExecutor applies plan actions through the guide store one at a time.
// A failing action is reported and the rest of the plan still runs.
type PlanExecutor struct {
	store      ports.GuideStore
	cfg        domain.FilterConfig
	classifier *Classifier
	assigner   *ImageAssigner
	publisher  ports.EventPublisher
	recorder   ports.RunRecorder
	logger     *slog.Logger
	now        func() time.Time
}

type ExecutorOption func(*PlanExecutor)

func WithPublisher(p ports.EventPublisher) ExecutorOption {
	return func(e *PlanExecutor) { e.publisher = p }
}

func WithRecorder(r ports.RunRecorder) ExecutorOption {
	return func(e *PlanExecutor) { e.recorder = r }
}

func WithImageAssigner(a *ImageAssigner) ExecutorOption {
	return func(e *PlanExecutor) { e.assigner = a }
}

func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *PlanExecutor) { e.logger = l }
}

func WithClock(now func() time.Time) ExecutorOption {
	return func(e *PlanExecutor) { e.now = now }
}

func NewPlanExecutor(store ports.GuideStore, cfg domain.FilterConfig, classifier *Classifier, opts ...ExecutorOption) *PlanExecutor {
	if classifier == nil {
		classifier = NewClassifier(cfg)
	}
	e := &PlanExecutor{
		store:      store,
		cfg:        cfg,
		classifier: classifier,
		logger:     slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type applyBatch struct {
	guides map[string]domain.Guide
	images map[domain.Category]*domain.ImageSet
	all    []domain.Guide
}

// Apply executes every action of the plan. guides is the snapshot the plan
// was computed from; it resolves action sources.
func (e *PlanExecutor) Apply(ctx context.Context, plan domain.Plan, guides []domain.Guide) []domain.ActionResult {
	batch := &applyBatch{
		guides: make(map[string]domain.Guide, len(guides)*2),
		images: make(map[domain.Category]*domain.ImageSet),
		all:    guides,
	}
	for _, g := range guides {
		if g.ID != "" {
			batch.guides[g.ID] = g
		}
		if g.Slug != "" {
			batch.guides[g.Slug] = g
		}
	}

	results := make([]domain.ActionResult, 0, len(plan.Actions))
	for _, action := range plan.Actions {
		if err := ctx.Err(); err != nil {
			results = append(results, domain.ActionResult{
				Action:  action,
				Status:  domain.ActionSkipped,
				Message: "run interrupted",
				Err:     err,
			})
			continue
		}

		start := time.Now()
		result := e.applyOne(ctx, action, batch)
		result.Action = action
		result.Duration = time.Since(start)
		e.report(result)
		results = append(results, result)
	}
	return results
}

func (e *PlanExecutor) applyOne(ctx context.Context, action domain.Action, batch *applyBatch) domain.ActionResult {
	switch action.Kind {
	case domain.ActionRelabel:
		return e.relabel(ctx, action, batch)
	case domain.ActionDuplicateAndRelabel:
		return e.duplicate(ctx, action, batch)
	case domain.ActionCreateMinimal, domain.ActionInsert:
		return e.insertTemplate(ctx, action, batch)
	case domain.ActionUpdate:
		return e.update(ctx, action)
	case domain.ActionDelete:
		return e.delete(ctx, action)
	default:
		return failed(domain.WrapError(domain.ErrInvalidInput, "apply action", fmt.Errorf("unknown action kind %q", action.Kind)))
	}
}

func (e *PlanExecutor) relabel(ctx context.Context, action domain.Action, batch *applyBatch) domain.ActionResult {
	g, dim, opt, err := e.resolve(action, batch)
	if err != nil {
		return failed(err)
	}
	patch := relabelPatch(g, dim, opt, e.now())
	if err := e.landsIn(patch.Apply(g), dim, opt); err != nil {
		return failed(fmt.Errorf("relabel guide %s: %w", g.Slug, err))
	}
	if err := e.store.Update(ctx, g.ID, patch); err != nil {
		return failed(fmt.Errorf("relabel guide %s: %w", g.Slug, err))
	}
	e.publish(ctx, domain.GuideEvent{Type: domain.GuideUpdated, GuideID: g.ID, Slug: g.Slug, Reason: action.Reason})
	return domain.ActionResult{Status: domain.ActionApplied}
}

func (e *PlanExecutor) duplicate(ctx context.Context, action domain.Action, batch *applyBatch) domain.ActionResult {
	src, dim, opt, err := e.resolve(action, batch)
	if err != nil {
		return failed(err)
	}
	target := action.TargetCategory
	if target == "" {
		target = e.classifier.Category(src)
	}
	suffix := action.SlugSuffix
	if suffix == "" {
		suffix = domain.Normalize(opt.ID)
	}

	copyGuide := DuplicateGuide(src, target, suffix, e.now())
	copyGuide.Status = domain.StatusApproved
	setDimensionField(&copyGuide, dim, opt)
	if err := e.landsIn(copyGuide, dim, opt); err != nil {
		return failed(fmt.Errorf("duplicate guide %s: %w", src.Slug, err))
	}
	return e.insert(ctx, copyGuide, action, batch)
}

func (e *PlanExecutor) insertTemplate(ctx context.Context, action domain.Action, batch *applyBatch) domain.ActionResult {
	if action.Template == nil {
		return failed(domain.WrapError(domain.ErrInvalidInput, "insert guide", errors.New("missing template")))
	}
	g := *action.Template
	now := e.now()
	g.ID = ""
	g.CreatedAt = now
	g.LastUpdatedAt = now
	if g.Status == "" {
		g.Status = domain.StatusApproved
	}
	return e.insert(ctx, g, action, batch)
}

func (e *PlanExecutor) insert(ctx context.Context, g domain.Guide, action domain.Action, batch *applyBatch) domain.ActionResult {
	if e.assigner != nil && !domain.IsValidImageURL(g.HeroImageURL) {
		category := e.classifier.Category(g)
		g.HeroImageURL = e.assigner.Assign(g.Slug, g.Title, batch.usedImages(e.classifier, category))
	}
	inserted, err := e.store.Insert(ctx, &g)
	if err != nil {
		if domain.IsKind(err, domain.ErrSlugConflict) {
			return domain.ActionResult{Status: domain.ActionSkipped, Message: fmt.Sprintf("slug %s already exists", g.Slug)}
		}
		return failed(fmt.Errorf("insert guide %s: %w", g.Slug, err))
	}
	newID := g.ID
	if inserted != nil {
		newID = inserted.ID
	}
	e.publish(ctx, domain.GuideEvent{Type: domain.GuideCreated, GuideID: newID, Slug: g.Slug, Reason: action.Reason})
	return domain.ActionResult{Status: domain.ActionApplied, NewGuideID: newID}
}

func (e *PlanExecutor) update(ctx context.Context, action domain.Action) domain.ActionResult {
	if action.Patch == nil || action.GuideID == "" {
		return failed(domain.WrapError(domain.ErrInvalidInput, "update guide", errors.New("missing patch or guide id")))
	}
	patch := *action.Patch
	if patch.LastUpdatedAt.IsZero() {
		patch.LastUpdatedAt = e.now()
	}
	if err := e.store.Update(ctx, action.GuideID, patch); err != nil {
		return failed(fmt.Errorf("update guide %s: %w", action.GuideSlug, err))
	}
	e.publish(ctx, domain.GuideEvent{Type: domain.GuideUpdated, GuideID: action.GuideID, Slug: action.GuideSlug, Reason: action.Reason})
	return domain.ActionResult{Status: domain.ActionApplied}
}

func (e *PlanExecutor) delete(ctx context.Context, action domain.Action) domain.ActionResult {
	if action.GuideID == "" {
		return failed(domain.WrapError(domain.ErrInvalidInput, "delete guide", errors.New("missing guide id")))
	}
	if err := e.store.Delete(ctx, action.GuideID); err != nil {
		if domain.IsKind(err, domain.ErrGuideNotFound) {
			return domain.ActionResult{Status: domain.ActionSkipped, Message: "already deleted"}
		}
		return failed(fmt.Errorf("delete guide %s: %w", action.GuideSlug, err))
	}
	e.publish(ctx, domain.GuideEvent{Type: domain.GuideDeleted, GuideID: action.GuideID, Slug: action.GuideSlug, Reason: action.Reason})
	return domain.ActionResult{Status: domain.ActionApplied}
}

func (e *PlanExecutor) resolve(action domain.Action, batch *applyBatch) (domain.Guide, domain.FilterDimension, domain.FilterOption, error) {
	g, ok := batch.guides[action.GuideID]
	if !ok {
		g, ok = batch.guides[action.GuideSlug]
	}
	if !ok {
		return domain.Guide{}, domain.FilterDimension{}, domain.FilterOption{},
			domain.WrapError(domain.ErrGuideNotFound, "resolve action", fmt.Errorf("guide %q not in snapshot", action.GuideID))
	}
	dim, ok := e.cfg.Dimension(action.Dimension)
	if !ok {
		return domain.Guide{}, domain.FilterDimension{}, domain.FilterOption{},
			domain.WrapError(domain.ErrInvalidInput, "resolve action", fmt.Errorf("unknown dimension %q", action.Dimension))
	}
	opt, ok := dim.Option(action.Value)
	if !ok {
		return domain.Guide{}, domain.FilterDimension{}, domain.FilterOption{},
			domain.WrapError(domain.ErrInvalidInput, "resolve action", fmt.Errorf("unknown %s option %q", dim.Name, action.Value))
	}
	return g, dim, opt, nil
}

// landsIn rejects a change whose result would still miss the bucket, for
// example when another field carries an excluded keyword.
func (e *PlanExecutor) landsIn(g domain.Guide, dim domain.FilterDimension, opt domain.FilterOption) error {
	if e.classifier.Classify(g).Has(dim.Name, opt.ID) {
		return nil
	}
	return domain.WrapError(domain.ErrInvalidInput, "check bucket",
		fmt.Errorf("result would not match %s=%s", dim.Name, opt.ID))
}

func (e *PlanExecutor) publish(ctx context.Context, event domain.GuideEvent) {
	if e.publisher == nil {
		return
	}
	event.OccurredAt = e.now()
	if err := e.publisher.PublishGuideChanged(ctx, event); err != nil {
		e.logger.Warn("guide_event_publish_failed", "guide_id", event.GuideID, "type", string(event.Type), "error", err)
	}
}

func (e *PlanExecutor) report(result domain.ActionResult) {
	attrs := []any{
		"kind", string(result.Action.Kind),
		"guide", firstNonEmpty(result.Action.GuideSlug, result.Action.GuideID),
		"dimension", result.Action.Dimension,
		"value", result.Action.Value,
		"status", string(result.Status),
		"duration_ms", float64(result.Duration.Microseconds()) / 1000.0,
	}
	switch result.Status {
	case domain.ActionFailed:
		e.logger.Error("action_failed", append(attrs, "error", result.Err)...)
	case domain.ActionSkipped:
		e.logger.Info("action_skipped", append(attrs, "message", result.Message)...)
	default:
		e.logger.Info("action_applied", attrs...)
	}
	if e.recorder != nil {
		e.recorder.ObserveAction(result)
	}
}

func (b *applyBatch) usedImages(classifier *Classifier, category domain.Category) *domain.ImageSet {
	if set, ok := b.images[category]; ok {
		return set
	}
	set := domain.NewImageSet()
	for _, g := range b.all {
		if g.IsApproved() && domain.IsValidImageURL(g.HeroImageURL) && classifier.Category(g) == category {
			set.Add(g.HeroImageURL)
		}
	}
	b.images[category] = set
	return set
}

func failed(err error) domain.ActionResult {
	return domain.ActionResult{Status: domain.ActionFailed, Err: err, Message: err.Error()}
}

// relabelPatch moves a guide into a filter value. It always rewrites the
// unit/function_area pair together and, for category scoped dimensions,
// pins the domain to the category's canonical value.
func relabelPatch(g domain.Guide, dim domain.FilterDimension, opt domain.FilterOption, now time.Time) domain.GuidePatch {
	value := dim.StoredValue(opt)
	patch := domain.GuidePatch{LastUpdatedAt: now}
	unit := g.EffectiveUnit()
	switch dim.Field {
	case domain.FieldUnit:
		unit = value
	case domain.FieldLocation:
		patch.Location = domain.StringPtr(value)
	case domain.FieldGuideType:
		patch.GuideType = domain.StringPtr(value)
	case domain.FieldSubDomain:
		patch.SubDomain = domain.StringPtr(value)
	}
	patch.Unit = domain.StringPtr(unit)
	patch.FunctionArea = domain.StringPtr(unit)
	if dim.Scope != "" {
		patch.Domain = domain.StringPtr(dim.Scope.CanonicalDomain())
	}
	return patch
}

// DuplicateGuide copies the core content of src into a new record of the
// target category with a suffixed slug. The copy keeps the source's status.
// The hero image is left for the assigner so the copy does not repeat its
// source's image.
func DuplicateGuide(src domain.Guide, target domain.Category, suffix string, now time.Time) domain.Guide {
	cp := src
	cp.ID = ""
	cp.Slug = src.Slug + "-" + domain.Normalize(suffix)
	cp.Domain = target.CanonicalDomain()
	cp.GuideType = domain.StripCategoryTokens(src.GuideType)
	cp.Unit = src.EffectiveUnit()
	cp.FunctionArea = cp.Unit
	cp.HeroImageURL = ""
	cp.DownloadCount = 0
	cp.IsEditorsPick = false
	cp.CreatedAt = now
	cp.LastUpdatedAt = now
	return cp
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
