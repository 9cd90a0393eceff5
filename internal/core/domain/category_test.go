package domain

import "testing"

func TestParseCategoryAcceptsLooseSpelling(t *testing.T) {
	cases := map[string]Category{
		"strategy":    CategoryStrategy,
		"BLUEPRINT":   CategoryBlueprint,
		"Testimonial": CategoryTestimonial,
		"guideline":   CategoryGuidelines,
		"guidelines":  CategoryGuidelines,
	}
	for in, want := range cases {
		got, err := ParseCategory(in)
		if err != nil {
			t.Fatalf("ParseCategory(%q) error = %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseCategory(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseCategory("course"); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGuidelinesAreStoredWithNullDomain(t *testing.T) {
	if CategoryGuidelines.CanonicalDomain() != "" {
		t.Fatalf("expected empty canonical domain for guidelines")
	}
	if CategoryBlueprint.CanonicalDomain() != "Blueprint" {
		t.Fatalf("unexpected canonical domain %q", CategoryBlueprint.CanonicalDomain())
	}
}

func TestStripCategoryTokens(t *testing.T) {
	if got := StripCategoryTokens("Strategy Policy"); got != "policy" {
		t.Fatalf("expected policy, got %q", got)
	}
	if got := StripCategoryTokens("Best Practice"); got != "Best Practice" {
		t.Fatalf("expected untouched value, got %q", got)
	}
	if got := StripCategoryTokens("Testimonial"); got != "" {
		t.Fatalf("expected empty value, got %q", got)
	}
}
