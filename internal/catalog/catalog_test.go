package catalog

import "testing"

func TestParseTierCoercesUnknownToDefault(t *testing.T) {
	cases := map[string]Tier{
		"iterate":  TierIterate,
		"default":  TierDefault,
		"premium":  TierPremium,
		"max":      TierMax,
		"":         TierDefault,
		"ultra":    TierDefault,
		"ITERATE":  TierDefault,
		"default ": TierDefault,
	}
	for in, want := range cases {
		if got := ParseTier(in); got != want {
			t.Fatalf("ParseTier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEveryTierResolvesToModelAndPrice(t *testing.T) {
	tiers := []Tier{TierIterate, TierDefault, TierPremium, TierMax}
	for _, tier := range tiers {
		for _, text := range []bool{false, true} {
			sel := ResolveGen(tier, text)
			if sel.Model == "" || sel.Price == "" {
				t.Fatalf("ResolveGen(%q, text=%v) incomplete: %#v", tier, text, sel)
			}
		}
		if _, sel := ResolveEdit(tier, 0); sel.Model == "" || sel.Price == "" {
			t.Fatalf("ResolveEdit(%q) incomplete", tier)
		}
		if sel := ResolveUpscale(tier); sel.Model == "" || sel.Price == "" {
			t.Fatalf("ResolveUpscale(%q) incomplete", tier)
		}
	}
}

func TestResolveEditForcesMaxForMultiReference(t *testing.T) {
	tier, sel := ResolveEdit(TierIterate, 2)
	if tier != TierMax {
		t.Fatalf("tier = %q, want max", tier)
	}
	if sel.Model != "fal-ai/flux-2-flex/edit" {
		t.Fatalf("model = %q, want flex edit", sel.Model)
	}

	tier, _ = ResolveEdit(TierPremium, 1)
	if tier != TierPremium {
		t.Fatalf("single reference must not escalate, got %q", tier)
	}
}

func TestOffersFreeSync(t *testing.T) {
	if !OffersFreeSync(ModeGen, TierIterate, false) {
		t.Fatalf("gen/iterate without text must offer the free provider")
	}
	if OffersFreeSync(ModeGen, TierIterate, true) {
		t.Fatalf("text specialist must not offer the free provider")
	}
	if OffersFreeSync(ModeGen, TierDefault, false) {
		t.Fatalf("paid tiers must not offer the free provider")
	}
	if OffersFreeSync(ModeEdit, TierIterate, false) {
		t.Fatalf("edit must not offer the free provider")
	}
}

func TestResolveGenTierModels(t *testing.T) {
	if got := ResolveGen(TierIterate, false).Model; got != "fal-ai/flux-2/flash" {
		t.Fatalf("iterate model = %q", got)
	}
	if got := ResolveGen(TierMax, false).Model; got != "fal-ai/flux-2-max" {
		t.Fatalf("max model = %q", got)
	}
	if got := ResolveGen(TierPremium, true).Model; got != "fal-ai/ideogram/v2" {
		t.Fatalf("premium text model = %q", got)
	}
}
