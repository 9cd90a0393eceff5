package usecase

import (
	"sort"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

const haystackSeparator = "|"

// Classifier derives a guide's category and filter values from its free-text
// fields. It is pure: no I/O, input guides are never mutated.
type Classifier struct {
	cfg      domain.FilterConfig
	keywords map[string]*keywordIndex
}

// keywordIndex is the Aho-Corasick automaton for one keyword dimension.
type keywordIndex struct {
	matcher  *ahocorasick.Matcher
	keywords []string
	// option index -> normalized keywords
	include [][]string
	exclude [][]string
	// keyword -> options listing it as a match keyword
	owners map[string][]int
}

func NewClassifier(cfg domain.FilterConfig) *Classifier {
	c := &Classifier{
		cfg:      cfg,
		keywords: make(map[string]*keywordIndex),
	}
	for _, dim := range cfg.Dimensions {
		if dim.Mode == domain.MatchKeyword {
			c.keywords[dim.Name] = buildKeywordIndex(dim)
		}
	}
	return c
}

func buildKeywordIndex(dim domain.FilterDimension) *keywordIndex {
	idx := &keywordIndex{
		include: make([][]string, len(dim.Options)),
		exclude: make([][]string, len(dim.Options)),
		owners:  make(map[string][]int),
	}
	seen := make(map[string]struct{})
	add := func(kw string) {
		if _, ok := seen[kw]; ok {
			return
		}
		seen[kw] = struct{}{}
		idx.keywords = append(idx.keywords, kw)
	}

	for i, opt := range dim.Options {
		for _, kw := range opt.MatchKeywords() {
			idx.include[i] = append(idx.include[i], kw)
			idx.owners[kw] = append(idx.owners[kw], i)
			add(kw)
		}
		for _, raw := range opt.Exclude {
			kw := domain.Normalize(raw)
			if kw == "" {
				continue
			}
			idx.exclude[i] = append(idx.exclude[i], kw)
			add(kw)
		}
	}
	if len(idx.keywords) > 0 {
		idx.matcher = ahocorasick.NewStringMatcher(idx.keywords)
	}
	return idx
}

// Category applies the ordered token rules to domain and guide_type. A guide
// matching none of them is Guidelines, so the result is never empty.
func (c *Classifier) Category(g domain.Guide) domain.Category {
	dom := domain.Normalize(g.Domain)
	guideType := domain.Normalize(g.GuideType)
	for _, rule := range domain.CategoryRules {
		if strings.Contains(dom, rule.Token) || strings.Contains(guideType, rule.Token) {
			return rule.Category
		}
	}
	return domain.CategoryGuidelines
}

func (c *Classifier) Classify(g domain.Guide) domain.Classification {
	out := domain.Classification{
		Category:   c.Category(g),
		Dimensions: make(map[string][]string),
	}
	for _, dim := range c.cfg.Dimensions {
		if !dim.InScope(out.Category) {
			continue
		}
		var values []string
		switch dim.Mode {
		case domain.MatchExact:
			values = matchExact(dim, g)
		case domain.MatchKeyword:
			values = c.matchKeyword(dim, g, out.Category)
		}
		if len(values) > 0 {
			out.Dimensions[dim.Name] = values
		}
	}
	return out
}

// Values returns the option ids of one dimension the guide satisfies.
func (c *Classifier) Values(g domain.Guide, dimension string) []string {
	return c.Classify(g).Dimensions[dimension]
}

func fieldValue(g domain.Guide, field string) string {
	switch field {
	case domain.FieldUnit:
		return g.EffectiveUnit()
	case domain.FieldLocation:
		return g.Location
	case domain.FieldGuideType:
		return g.GuideType
	case domain.FieldSubDomain:
		return g.SubDomain
	default:
		return ""
	}
}

// matchExact compares each comma separated value of the field with option ids
// and labels after normalization. No fuzzy matching beyond that.
func matchExact(dim domain.FilterDimension, g domain.Guide) []string {
	raw := fieldValue(g, dim.Field)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	values := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		if v := domain.Normalize(part); v != "" {
			values[v] = struct{}{}
		}
	}

	var out []string
	for _, opt := range dim.Options {
		_, byID := values[domain.Normalize(opt.ID)]
		_, byLabel := values[domain.Normalize(opt.Label)]
		if byID || byLabel {
			out = append(out, opt.ID)
		}
	}
	return out
}

func keywordHaystack(g domain.Guide, category domain.Category) string {
	parts := []string{
		domain.Normalize(g.SubDomain),
		domain.Normalize(g.Domain),
		domain.Normalize(g.GuideType),
	}
	if category == domain.CategoryBlueprint {
		parts = append(parts, domain.Normalize(g.Title))
	}
	return strings.Join(parts, haystackSeparator)
}

type span struct {
	start, end int
}

func (c *Classifier) matchKeyword(dim domain.FilterDimension, g domain.Guide, category domain.Category) []string {
	idx := c.keywords[dim.Name]
	if idx == nil || idx.matcher == nil {
		return nil
	}
	haystack := keywordHaystack(g, category)
	hits := idx.matcher.Match([]byte(haystack))
	if len(hits) == 0 {
		return nil
	}

	found := make(map[string][]span, len(hits))
	for _, hit := range hits {
		if hit < 0 || hit >= len(idx.keywords) {
			continue
		}
		kw := idx.keywords[hit]
		found[kw] = occurrences(haystack, kw)
	}

	var out []string
	for i, opt := range dim.Options {
		if containsAny(found, idx.exclude[i]) {
			continue
		}
		for _, kw := range idx.include[i] {
			if standsAlone(kw, i, found, idx.owners) {
				out = append(out, opt.ID)
				break
			}
		}
	}
	return out
}

// standsAlone reports whether some occurrence of kw is not swallowed by a
// longer matched keyword of another option ("ghc" inside "ghc-leader").
func standsAlone(kw string, option int, found map[string][]span, owners map[string][]int) bool {
	spans, ok := found[kw]
	if !ok {
		return false
	}
	longer := make([]span, 0)
	for other, otherSpans := range found {
		if len(other) <= len(kw) || !ownedByOther(owners[other], option) {
			continue
		}
		longer = append(longer, otherSpans...)
	}
	for _, s := range spans {
		if !coveredBy(s, longer) {
			return true
		}
	}
	return false
}

func ownedByOther(options []int, option int) bool {
	for _, o := range options {
		if o != option {
			return true
		}
	}
	return false
}

func coveredBy(s span, others []span) bool {
	for _, o := range others {
		if o.start <= s.start && s.end <= o.end {
			return true
		}
	}
	return false
}

func occurrences(haystack, kw string) []span {
	var out []span
	for offset := 0; offset < len(haystack); {
		i := strings.Index(haystack[offset:], kw)
		if i < 0 {
			break
		}
		start := offset + i
		out = append(out, span{start: start, end: start + len(kw)})
		offset = start + 1
	}
	return out
}

func containsAny(found map[string][]span, keywords []string) bool {
	for _, kw := range keywords {
		if _, ok := found[kw]; ok {
			return true
		}
	}
	return false
}

// sortedKeys is shared by the auditor and planner for deterministic output.
func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
