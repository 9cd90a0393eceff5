package postgrest

import (
	"time"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

// guideRow is the JSON shape of a guides row. Nullable text columns are
// pointers so that NULL and "" round trip as the empty string.
type guideRow struct {
	ID            string     `json:"id,omitempty"`
	Slug          string     `json:"slug"`
	Title         string     `json:"title"`
	Summary       *string    `json:"summary"`
	Body          *string    `json:"body"`
	Domain        *string    `json:"domain"`
	GuideType     *string    `json:"guide_type"`
	SubDomain     *string    `json:"sub_domain"`
	Unit          *string    `json:"unit"`
	FunctionArea  *string    `json:"function_area"`
	Location      *string    `json:"location"`
	HeroImageURL  *string    `json:"hero_image_url"`
	Status        string     `json:"status"`
	DownloadCount int        `json:"download_count"`
	IsEditorsPick bool       `json:"is_editors_pick"`
	LastUpdatedAt *time.Time `json:"last_updated_at,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

func rowFromDomain(g domain.Guide) guideRow {
	return guideRow{
		ID:            g.ID,
		Slug:          g.Slug,
		Title:         g.Title,
		Summary:       nullable(g.Summary),
		Body:          nullable(g.Body),
		Domain:        nullable(g.Domain),
		GuideType:     nullable(g.GuideType),
		SubDomain:     nullable(g.SubDomain),
		Unit:          nullable(g.Unit),
		FunctionArea:  nullable(g.FunctionArea),
		Location:      nullable(g.Location),
		HeroImageURL:  nullable(g.HeroImageURL),
		Status:        string(g.Status),
		DownloadCount: g.DownloadCount,
		IsEditorsPick: g.IsEditorsPick,
		LastUpdatedAt: timestamp(g.LastUpdatedAt),
		CreatedAt:     timestamp(g.CreatedAt),
	}
}

func (r guideRow) toDomain() domain.Guide {
	g := domain.Guide{
		ID:            r.ID,
		Slug:          r.Slug,
		Title:         r.Title,
		Summary:       deref(r.Summary),
		Body:          deref(r.Body),
		Domain:        deref(r.Domain),
		GuideType:     deref(r.GuideType),
		SubDomain:     deref(r.SubDomain),
		Unit:          deref(r.Unit),
		FunctionArea:  deref(r.FunctionArea),
		Location:      deref(r.Location),
		HeroImageURL:  deref(r.HeroImageURL),
		Status:        domain.GuideStatus(r.Status),
		DownloadCount: r.DownloadCount,
		IsEditorsPick: r.IsEditorsPick,
	}
	if r.LastUpdatedAt != nil {
		g.LastUpdatedAt = r.LastUpdatedAt.UTC()
	}
	if r.CreatedAt != nil {
		g.CreatedAt = r.CreatedAt.UTC()
	}
	return g
}

// patchBody only carries the columns the patch sets; cleared columns are
// sent as JSON null.
func patchBody(p domain.GuidePatch) map[string]any {
	body := make(map[string]any)
	put := func(column string, v *string) {
		if v == nil {
			return
		}
		if *v == "" {
			body[column] = nil
			return
		}
		body[column] = *v
	}
	put("title", p.Title)
	put("summary", p.Summary)
	put("body", p.Body)
	put("domain", p.Domain)
	put("guide_type", p.GuideType)
	put("sub_domain", p.SubDomain)
	put("unit", p.Unit)
	put("function_area", p.FunctionArea)
	put("location", p.Location)
	put("hero_image_url", p.HeroImageURL)
	if p.Status != nil {
		body["status"] = string(*p.Status)
	}
	if !p.LastUpdatedAt.IsZero() {
		body["last_updated_at"] = p.LastUpdatedAt.UTC()
	}
	return body
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func timestamp(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
