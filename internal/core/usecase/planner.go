package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

const (
	defaultTitleFormat   = "%s %s Overview"
	defaultSummaryFormat = "Overview of %s for the %s filter."
	defaultTemplateBody  = "## Overview\n\nThis page is a placeholder. Replace it with the approved content."
)

// Planner turns coverage gaps into advisory actions. It never touches the
// store; see PlanExecutor for that.
type Planner struct {
	cfg         domain.FilterConfig
	classifier  *Classifier
	allowCreate bool
}

func NewPlanner(cfg domain.FilterConfig, classifier *Classifier, allowCreate bool) *Planner {
	if classifier == nil {
		classifier = NewClassifier(cfg)
	}
	return &Planner{
		cfg:         cfg,
		classifier:  classifier,
		allowCreate: allowCreate,
	}
}

type planState struct {
	guides    map[string]domain.Guide
	classes   map[string]domain.Classification
	order     []string
	remaining map[domain.BucketRef]int
	consumed  map[string]struct{}
}

// Plan fills every empty bucket of the report, in configuration order:
// relabel a donor whose buckets all stay covered, else duplicate a record of
// the same or a donor category, else synthesise a minimal record. A guide is
// used as donor or duplicate source at most once per plan, and a gap an
// earlier action already covers gets no action of its own.
func (p *Planner) Plan(report domain.CoverageReport, guides []domain.Guide) domain.Plan {
	state := p.newState(report, guides)
	plan := domain.Plan{Actions: make([]domain.Action, 0)}

	for _, gap := range report.Gaps() {
		dim, ok := p.cfg.Dimension(gap.Dimension)
		if !ok {
			continue
		}
		opt, ok := dim.Option(gap.Value)
		if !ok {
			continue
		}
		ref := gap.Ref()
		if state.remaining[ref] > 0 {
			continue
		}

		if donor, after, ok := p.findDonor(dim, opt, state); ok {
			state.consumed[donor] = struct{}{}
			state.move(state.classes[donor], after)
			state.classes[donor] = after
			g := state.guides[donor]
			plan.Actions = append(plan.Actions, domain.Action{
				Kind:      domain.ActionRelabel,
				GuideID:   g.ID,
				GuideSlug: g.Slug,
				Dimension: dim.Name,
				Value:     opt.ID,
				Reason:    fmt.Sprintf("move redundant guide into empty %s=%s", dim.Name, opt.ID),
			})
			continue
		}

		if source, target, copied, ok := p.findSource(dim, opt, state); ok {
			state.consumed[source] = struct{}{}
			state.move(domain.Classification{}, copied)
			g := state.guides[source]
			plan.Actions = append(plan.Actions, domain.Action{
				Kind:           domain.ActionDuplicateAndRelabel,
				GuideID:        g.ID,
				GuideSlug:      g.Slug,
				Dimension:      dim.Name,
				Value:          opt.ID,
				SlugSuffix:     domain.Normalize(opt.ID),
				TargetCategory: target,
				Reason:         fmt.Sprintf("copy %s guide into empty %s=%s", state.classes[source].Category, dim.Name, opt.ID),
			})
			continue
		}

		if !p.allowCreate {
			plan.Unfilled = append(plan.Unfilled, ref)
			continue
		}
		tpl := p.template(dim, opt)
		state.move(domain.Classification{}, p.classifier.Classify(*tpl))
		plan.Actions = append(plan.Actions, domain.Action{
			Kind:           domain.ActionCreateMinimal,
			Dimension:      dim.Name,
			Value:          opt.ID,
			TargetCategory: scopeOrDefault(dim.Scope),
			Template:       tpl,
			Reason:         fmt.Sprintf("no donor for empty %s=%s", dim.Name, opt.ID),
		})
	}
	return plan
}

func (p *Planner) newState(report domain.CoverageReport, guides []domain.Guide) *planState {
	state := &planState{
		guides:    make(map[string]domain.Guide, len(guides)),
		classes:   make(map[string]domain.Classification, len(guides)),
		remaining: make(map[domain.BucketRef]int, len(report.Buckets)),
		consumed:  make(map[string]struct{}),
	}
	for _, g := range guides {
		if !g.IsApproved() {
			continue
		}
		id := g.Identity()
		if _, dup := state.guides[id]; dup {
			continue
		}
		state.guides[id] = g
		state.classes[id] = p.classifier.Classify(g)
		state.order = append(state.order, id)
	}
	sort.Strings(state.order)
	for _, b := range report.Buckets {
		state.remaining[b.Ref()] = b.Count
	}
	return state
}

// move shifts bucket counts from one classification of a record to another.
// Buckets present in both are left alone.
func (s *planState) move(before, after domain.Classification) {
	for _, ref := range droppedBuckets(before, after) {
		s.remaining[ref]--
	}
	for _, ref := range droppedBuckets(after, before) {
		s.remaining[ref]++
	}
}

// droppedBuckets lists the buckets of before that after no longer holds.
func droppedBuckets(before, after domain.Classification) []domain.BucketRef {
	var out []domain.BucketRef
	for dim, values := range before.Dimensions {
		for _, v := range values {
			if !after.Has(dim, v) {
				out = append(out, domain.BucketRef{Dimension: dim, Value: v})
			}
		}
	}
	return out
}

// findDonor picks an unconsumed guide of the dimension that lands in the
// option once relabelled and whose every bucket it leaves keeps at least one
// other member. Fuller buckets are drained first; ties go to the lowest
// identity.
func (p *Planner) findDonor(dim domain.FilterDimension, opt domain.FilterOption, state *planState) (string, domain.Classification, bool) {
	type candidate struct {
		id    string
		after domain.Classification
		spare int
	}
	var best *candidate
	for _, id := range state.order {
		if _, used := state.consumed[id]; used {
			continue
		}
		cls := state.classes[id]
		if !dim.InScope(cls.Category) || len(cls.Dimensions[dim.Name]) == 0 {
			continue
		}
		g := state.guides[id]
		after := p.classifier.Classify(relabelPatch(g, dim, opt, g.LastUpdatedAt).Apply(g))
		if !after.Has(dim.Name, opt.ID) {
			continue
		}
		spare := math.MaxInt
		for _, ref := range droppedBuckets(cls, after) {
			n := state.remaining[ref]
			if n <= 1 {
				spare = 0
				break
			}
			spare = min(spare, n)
		}
		if spare == 0 {
			continue
		}
		if best == nil || spare > best.spare {
			best = &candidate{id: id, after: after, spare: spare}
		}
	}
	if best == nil {
		return "", domain.Classification{}, false
	}
	return best.id, best.after, true
}

// findSource picks a guide to duplicate: one from the dimension's own
// category first, then from its configured donor categories. The copy has to
// land in the option, otherwise the next candidate is tried.
func (p *Planner) findSource(dim domain.FilterDimension, opt domain.FilterOption, state *planState) (string, domain.Category, domain.Classification, bool) {
	var categories []domain.Category
	if dim.Scope != "" {
		categories = append([]domain.Category{dim.Scope}, p.cfg.DonorCategories[dim.Scope]...)
	} else {
		categories = domain.AllCategories
	}
	for _, cat := range categories {
		for _, id := range state.order {
			if _, used := state.consumed[id]; used {
				continue
			}
			if state.classes[id].Category != cat {
				continue
			}
			target := dim.Scope
			if target == "" {
				target = cat
			}
			src := state.guides[id]
			cp := DuplicateGuide(src, target, opt.ID, src.LastUpdatedAt)
			setDimensionField(&cp, dim, opt)
			copied := p.classifier.Classify(cp)
			if copied.Has(dim.Name, opt.ID) {
				return id, target, copied, true
			}
		}
	}
	return "", "", domain.Classification{}, false
}

func (p *Planner) template(dim domain.FilterDimension, opt domain.FilterOption) *domain.Guide {
	category := scopeOrDefault(dim.Scope)
	tpl := p.cfg.Template
	titleFormat := tpl.TitleFormat
	if strings.Count(titleFormat, "%s") != 2 {
		titleFormat = defaultTitleFormat
	}
	summaryFormat := tpl.SummaryFormat
	if strings.Count(summaryFormat, "%s") != 2 {
		summaryFormat = defaultSummaryFormat
	}
	body := tpl.Body
	if strings.TrimSpace(body) == "" {
		body = defaultTemplateBody
	}

	g := &domain.Guide{
		Title:   fmt.Sprintf(titleFormat, opt.DisplayLabel(), category),
		Summary: fmt.Sprintf(summaryFormat, opt.DisplayLabel(), dim.Name),
		Body:    body,
		Domain:  category.CanonicalDomain(),
		Status:  domain.StatusApproved,
	}
	g.Slug = domain.SlugFor(strings.Join([]string{category.Slug(), dim.Name, opt.ID}, " "))
	setDimensionField(g, dim, opt)
	return g
}

func scopeOrDefault(scope domain.Category) domain.Category {
	if scope == "" {
		return domain.CategoryGuidelines
	}
	return scope
}

// setDimensionField writes the option into the dimension's field, keeping
// unit and function_area mirrored.
func setDimensionField(g *domain.Guide, dim domain.FilterDimension, opt domain.FilterOption) {
	value := dim.StoredValue(opt)
	switch dim.Field {
	case domain.FieldUnit:
		g.Unit = value
		g.FunctionArea = value
	case domain.FieldLocation:
		g.Location = value
	case domain.FieldGuideType:
		g.GuideType = value
	case domain.FieldSubDomain:
		g.SubDomain = value
	}
	if dim.Field != domain.FieldUnit {
		unit := g.EffectiveUnit()
		g.Unit = unit
		g.FunctionArea = unit
	}
}
