package domain

import "time"

type GuideStatus string

const (
	StatusDraft    GuideStatus = "Draft"
	StatusApproved GuideStatus = "Approved"
)

// Guide is a single content record of the knowledge hub. Empty strings in the
// free-text classification fields stand for NULL in the store.
type Guide struct {
	ID            string      `json:"id" yaml:"id"`
	Slug          string      `json:"slug" yaml:"slug"`
	Title         string      `json:"title" yaml:"title"`
	Summary       string      `json:"summary,omitempty" yaml:"summary"`
	Body          string      `json:"body,omitempty" yaml:"body"`
	Domain        string      `json:"domain,omitempty" yaml:"domain"`
	GuideType     string      `json:"guide_type,omitempty" yaml:"guide_type"`
	SubDomain     string      `json:"sub_domain,omitempty" yaml:"sub_domain"`
	Unit          string      `json:"unit,omitempty" yaml:"unit"`
	FunctionArea  string      `json:"function_area,omitempty" yaml:"function_area"`
	Location      string      `json:"location,omitempty" yaml:"location"`
	HeroImageURL  string      `json:"hero_image_url,omitempty" yaml:"hero_image_url"`
	Status        GuideStatus `json:"status" yaml:"status"`
	DownloadCount int         `json:"download_count" yaml:"download_count"`
	IsEditorsPick bool        `json:"is_editors_pick" yaml:"is_editors_pick"`
	LastUpdatedAt time.Time   `json:"last_updated_at" yaml:"last_updated_at"`
	CreatedAt     time.Time   `json:"created_at" yaml:"created_at"`
}

// EffectiveUnit returns the organisational unit, falling back to its
// function_area mirror when unit is unset.
func (g Guide) EffectiveUnit() string {
	if g.Unit != "" {
		return g.Unit
	}
	return g.FunctionArea
}

// Identity is the stable identity used for hashing and log lines.
func (g Guide) Identity() string {
	if g.ID != "" {
		return g.ID
	}
	return g.Slug
}

func (g Guide) IsApproved() bool {
	return g.Status == StatusApproved
}

// GuidePatch is a partial update. A nil field is left untouched, a pointer to
// the empty string clears the column.
type GuidePatch struct {
	Title         *string
	Summary       *string
	Body          *string
	Domain        *string
	GuideType     *string
	SubDomain     *string
	Unit          *string
	FunctionArea  *string
	Location      *string
	HeroImageURL  *string
	Status        *GuideStatus
	LastUpdatedAt time.Time
}

// Apply returns a copy of g with the patch applied.
func (p GuidePatch) Apply(g Guide) Guide {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&g.Title, p.Title)
	set(&g.Summary, p.Summary)
	set(&g.Body, p.Body)
	set(&g.Domain, p.Domain)
	set(&g.GuideType, p.GuideType)
	set(&g.SubDomain, p.SubDomain)
	set(&g.Unit, p.Unit)
	set(&g.FunctionArea, p.FunctionArea)
	set(&g.Location, p.Location)
	set(&g.HeroImageURL, p.HeroImageURL)
	if p.Status != nil {
		g.Status = *p.Status
	}
	if !p.LastUpdatedAt.IsZero() {
		g.LastUpdatedAt = p.LastUpdatedAt
	}
	return g
}

// GuideQuery filters a Select against the guides table.
type GuideQuery struct {
	Status GuideStatus
	IDs    []string
	Slug   string
}

func StringPtr(v string) *string {
	return &v
}

func StatusPtr(v GuideStatus) *GuideStatus {
	return &v
}
