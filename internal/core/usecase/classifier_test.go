package usecase

import (
	"reflect"
	"testing"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

func TestClassifierCategory(t *testing.T) {
	c := NewClassifier(testFilterConfig())

	cases := []struct {
		name      string
		domain    string
		guideType string
		want      domain.Category
	}{
		{name: "null domain", want: domain.CategoryGuidelines},
		{name: "strategy domain", domain: "Strategy", want: domain.CategoryStrategy},
		{name: "blueprint guide type", guideType: "Blueprint", want: domain.CategoryBlueprint},
		{name: "testimonial beats strategy", domain: "Strategy", guideType: "Testimonial Journey", want: domain.CategoryTestimonial},
		{name: "blueprint beats strategy", domain: "strategy", guideType: "blueprint", want: domain.CategoryBlueprint},
		{name: "unknown domain", domain: "Operations", guideType: "Policy", want: domain.CategoryGuidelines},
	}
	for _, tc := range cases {
		got := c.Category(domain.Guide{Domain: tc.domain, GuideType: tc.guideType})
		if got != tc.want {
			t.Fatalf("%s: Category() = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestClassifierCategoryIsExhaustive(t *testing.T) {
	c := NewClassifier(testFilterConfig())
	values := []string{"", "Strategy", "BLUEPRINT", "testimonials", "Sträteg", "Policy", "  ", "blue-print", "Strategy / Blueprint"}

	valid := make(map[domain.Category]struct{})
	for _, cat := range domain.AllCategories {
		valid[cat] = struct{}{}
	}
	for _, d := range values {
		for _, gt := range values {
			got := c.Category(domain.Guide{Domain: d, GuideType: gt})
			if _, ok := valid[got]; !ok {
				t.Fatalf("Category(%q, %q) = %q, not a known category", d, gt, got)
			}
		}
	}
}

func TestClassifierExactUnitFallsBackToFunctionArea(t *testing.T) {
	c := NewClassifier(testFilterConfig())

	g := domain.Guide{FunctionArea: "products", Status: domain.StatusApproved}
	if got := c.Values(g, "unit"); !reflect.DeepEqual(got, []string{"Products"}) {
		t.Fatalf("expected Products from function_area, got %v", got)
	}

	g = domain.Guide{Unit: "Stories", FunctionArea: "Products"}
	if got := c.Values(g, "unit"); !reflect.DeepEqual(got, []string{"Stories"}) {
		t.Fatalf("expected unit to win over function_area, got %v", got)
	}

	g = domain.Guide{Unit: "Storie"}
	if got := c.Values(g, "unit"); len(got) != 0 {
		t.Fatalf("expected no fuzzy match, got %v", got)
	}
}

func TestClassifierFrameworkLongestTokenWins(t *testing.T) {
	c := NewClassifier(testFilterConfig())

	cases := []struct {
		subDomain string
		want      []string
	}{
		{subDomain: "ghc", want: []string{"ghc"}},
		{subDomain: "ghc-leader", want: []string{"ghc-leader"}},
		{subDomain: "GHC Leader", want: []string{"ghc-leader"}},
		{subDomain: "digital-framework", want: []string{"6xd"}},
		{subDomain: "6xD, ghc", want: []string{"ghc", "6xd"}},
		{subDomain: "dws", want: nil},
	}
	for _, tc := range cases {
		g := domain.Guide{Domain: "Strategy", SubDomain: tc.subDomain}
		got := c.Values(g, "framework")
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("framework(%q) = %v, want %v", tc.subDomain, got, tc.want)
		}
	}
}

func TestClassifierScopedDimensionIgnoresOtherCategories(t *testing.T) {
	c := NewClassifier(testFilterConfig())

	g := domain.Guide{Domain: "", GuideType: "Policy", SubDomain: "ghc"}
	cls := c.Classify(g)
	if cls.Category != domain.CategoryGuidelines {
		t.Fatalf("expected Guidelines, got %s", cls.Category)
	}
	if cls.Has("framework", "ghc") {
		t.Fatalf("framework must not apply to Guidelines")
	}
	if !cls.Has("guide_type", "Policy") {
		t.Fatalf("expected guide_type Policy, got %v", cls.Dimensions)
	}
}

func TestClassifierDoesNotMutateInput(t *testing.T) {
	c := NewClassifier(testFilterConfig())
	g := domain.Guide{Domain: "Strategy", SubDomain: "GHC", Unit: "Stories"}
	before := g
	_ = c.Classify(g)
	if g != before {
		t.Fatalf("guide mutated by Classify")
	}
}
