package domain

import (
	"fmt"
	"strings"
)

type Category string

const (
	CategoryGuidelines  Category = "Guidelines"
	CategoryStrategy    Category = "Strategy"
	CategoryBlueprint   Category = "Blueprint"
	CategoryTestimonial Category = "Testimonial"
)

// CategoryRule maps a normalized token found in domain or guide_type to a
// category. Rules are evaluated in order; the first hit wins.
type CategoryRule struct {
	Token    string
	Category Category
}

// CategoryRules is ordered so that testimonial and blueprint take precedence
// over the broader strategy bucket.
var CategoryRules = []CategoryRule{
	{Token: "testimonial", Category: CategoryTestimonial},
	{Token: "blueprint", Category: CategoryBlueprint},
	{Token: "strategy", Category: CategoryStrategy},
}

var AllCategories = []Category{
	CategoryGuidelines,
	CategoryStrategy,
	CategoryBlueprint,
	CategoryTestimonial,
}

// ParseCategory accepts any casing or punctuation of a category name.
func ParseCategory(raw string) (Category, error) {
	key := Normalize(raw)
	for _, c := range AllCategories {
		if Normalize(string(c)) == key {
			return c, nil
		}
	}
	if key == "guideline" {
		return CategoryGuidelines, nil
	}
	return "", WrapError(ErrInvalidInput, "parse category", fmt.Errorf("unknown category %q", raw))
}

// CanonicalDomain is the domain column value stored for a category.
// Guidelines are represented by a NULL domain.
func (c Category) CanonicalDomain() string {
	if c == CategoryGuidelines {
		return ""
	}
	return string(c)
}

// Slug is the lowercase form used in generated slugs.
func (c Category) Slug() string {
	return strings.ToLower(string(c))
}

// StripCategoryTokens removes category words from a guide_type value so a
// relabelled record is not pulled back into its previous category.
func StripCategoryTokens(guideType string) string {
	parts := strings.Split(Normalize(guideType), "-")
	kept := parts[:0]
	for _, p := range parts {
		drop := false
		for _, rule := range CategoryRules {
			if strings.Contains(p, rule.Token) {
				drop = true
				break
			}
		}
		if !drop && p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(parts) {
		return guideType
	}
	return strings.Join(kept, " ")
}
