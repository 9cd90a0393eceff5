package domain

import (
	"errors"
	"fmt"
)

type MatchMode string

const (
	MatchExact   MatchMode = "exact"
	MatchKeyword MatchMode = "keyword"
)

// Guide columns a dimension can read and relabel.
const (
	FieldUnit      = "unit"
	FieldLocation  = "location"
	FieldGuideType = "guide_type"
	FieldSubDomain = "sub_domain"
)

// FilterOption is one value of a filter dimension as the UI offers it.
type FilterOption struct {
	ID       string   `yaml:"id" json:"id"`
	Label    string   `yaml:"label" json:"label"`
	Keywords []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Exclude  []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// DisplayLabel falls back to the id when no label is configured.
func (o FilterOption) DisplayLabel() string {
	if o.Label != "" {
		return o.Label
	}
	return o.ID
}

// MatchKeywords returns the keywords an option is recognised by; the option id
// is always one of them.
func (o FilterOption) MatchKeywords() []string {
	out := make([]string, 0, len(o.Keywords)+1)
	seen := make(map[string]struct{}, len(o.Keywords)+1)
	for _, kw := range append([]string{o.ID}, o.Keywords...) {
		n := Normalize(kw)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// FilterDimension is a categorical axis the UI filters by. Scope restricts the
// dimension to guides of one category; an empty scope covers every category.
type FilterDimension struct {
	Name    string         `yaml:"name" json:"name"`
	Mode    MatchMode      `yaml:"mode" json:"mode"`
	Field   string         `yaml:"field" json:"field"`
	Scope   Category       `yaml:"scope,omitempty" json:"scope,omitempty"`
	Options []FilterOption `yaml:"options" json:"options"`
}

func (d FilterDimension) InScope(c Category) bool {
	return d.Scope == "" || d.Scope == c
}

// StoredValue is what a relabel writes into the dimension's field: tag ids
// for sub_domain, human labels elsewhere.
func (d FilterDimension) StoredValue(opt FilterOption) string {
	if d.Field == FieldSubDomain {
		return opt.ID
	}
	return opt.DisplayLabel()
}

func (d FilterDimension) Option(id string) (FilterOption, bool) {
	for _, opt := range d.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return FilterOption{}, false
}

// GuideTemplate seeds records synthesised to fill an otherwise unfillable gap.
type GuideTemplate struct {
	TitleFormat   string `yaml:"title_format" json:"title_format"`
	SummaryFormat string `yaml:"summary_format" json:"summary_format"`
	Body          string `yaml:"body" json:"body"`
}

type FilterConfig struct {
	Dimensions      []FilterDimension       `yaml:"dimensions" json:"dimensions"`
	ImagePool       []string                `yaml:"image_pool" json:"image_pool"`
	DonorCategories map[Category][]Category `yaml:"donor_categories" json:"donor_categories"`
	Template        GuideTemplate           `yaml:"template" json:"template"`
}

func (c FilterConfig) Dimension(name string) (FilterDimension, bool) {
	for _, d := range c.Dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return FilterDimension{}, false
}

// Validate rejects configurations the classifier cannot evaluate.
func (c FilterConfig) Validate() error {
	if len(c.Dimensions) == 0 {
		return WrapError(ErrConfig, "validate filters", errors.New("no dimensions configured"))
	}
	seen := make(map[string]struct{}, len(c.Dimensions))
	for _, d := range c.Dimensions {
		if d.Name == "" {
			return WrapError(ErrConfig, "validate filters", errors.New("dimension without name"))
		}
		if _, dup := seen[d.Name]; dup {
			return WrapError(ErrConfig, "validate filters", fmt.Errorf("duplicate dimension %q", d.Name))
		}
		seen[d.Name] = struct{}{}
		if d.Mode != MatchExact && d.Mode != MatchKeyword {
			return WrapError(ErrConfig, "validate filters", fmt.Errorf("dimension %q: unknown mode %q", d.Name, d.Mode))
		}
		switch d.Field {
		case FieldUnit, FieldLocation, FieldGuideType, FieldSubDomain:
		default:
			return WrapError(ErrConfig, "validate filters", fmt.Errorf("dimension %q: unsupported field %q", d.Name, d.Field))
		}
		if d.Scope != "" {
			if _, err := ParseCategory(string(d.Scope)); err != nil {
				return WrapError(ErrConfig, "validate filters", fmt.Errorf("dimension %q: %w", d.Name, err))
			}
		}
		if len(d.Options) == 0 {
			return WrapError(ErrConfig, "validate filters", fmt.Errorf("dimension %q has no options", d.Name))
		}
		ids := make(map[string]struct{}, len(d.Options))
		for _, opt := range d.Options {
			if Normalize(opt.ID) == "" {
				return WrapError(ErrConfig, "validate filters", fmt.Errorf("dimension %q: option without id", d.Name))
			}
			if _, dup := ids[opt.ID]; dup {
				return WrapError(ErrConfig, "validate filters", fmt.Errorf("dimension %q: duplicate option %q", d.Name, opt.ID))
			}
			ids[opt.ID] = struct{}{}
		}
	}
	return nil
}
