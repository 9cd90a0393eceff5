package domain

import "testing"

func TestNormalizeTreatsPunctuationAndCaseAsEqual(t *testing.T) {
	if got, want := Normalize("DQ Delivery (Accounts)"), Normalize("dq-delivery-accounts"); got != want {
		t.Fatalf("expected %q == %q", got, want)
	}
	if got := Normalize("DQ Delivery (Accounts)"); got != "dq-delivery-accounts" {
		t.Fatalf("unexpected slug %q", got)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"", "  ", "Best Practice", "--ghc--leader--", "Café Déjà Vu", "6xD / Digital Framework", "SOP_v2.1", "İstanbul",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeFoldsAccentsAndTrimsSeparators(t *testing.T) {
	cases := map[string]string{
		"":                   "",
		"   ":                "",
		"Café Déjà Vu":       "cafe-deja-vu",
		"  --Hello, World!-": "hello-world",
		"ghc,ghc-leader":     "ghc-ghc-leader",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugForFallsBackForEmptyTitle(t *testing.T) {
	if got := SlugFor("!!!"); got != "untitled" {
		t.Fatalf("expected untitled, got %q", got)
	}
	if got := SlugFor("DQ Journey"); got != "dq-journey" {
		t.Fatalf("expected dq-journey, got %q", got)
	}
}
