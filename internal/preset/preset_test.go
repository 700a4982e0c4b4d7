package preset

import (
	"testing"
	"time"
)

func TestLookup_AllNamesResolve(t *testing.T) {
	for _, name := range Names() {
		if _, err := Lookup(name); err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
	}
}

func TestLookup_Unknown(t *testing.T) {
	if _, err := Lookup("does_not_exist"); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestResolve_LongTrackTightens(t *testing.T) {
	p, err := Lookup(Balanced)
	if err != nil {
		t.Fatal(err)
	}

	eff := Resolve(p, 10*time.Minute)
	if eff.CompressionRatioThreshold != 3.5 {
		t.Fatalf("CompressionRatioThreshold = %v, want 3.5", eff.CompressionRatioThreshold)
	}
	if eff.SemanticSimilarityThreshold != 0.75 {
		t.Fatalf("SemanticSimilarityThreshold = %v, want 0.75", eff.SemanticSimilarityThreshold)
	}
	if eff.MaxConsecutiveRepetitions != 1 {
		t.Fatalf("MaxConsecutiveRepetitions = %d, want 1", eff.MaxConsecutiveRepetitions)
	}

	// The input must not be mutated.
	if p.CompressionRatioThreshold != 4.0 {
		t.Fatalf("Resolve mutated input: CompressionRatioThreshold = %v", p.CompressionRatioThreshold)
	}
}

func TestResolve_DisabledAdaptiveIsIdentity(t *testing.T) {
	p, err := Lookup(FastProcessing)
	if err != nil {
		t.Fatal(err)
	}
	eff := Resolve(p, 30*time.Minute)
	if eff != p {
		t.Fatal("Resolve should be identity when adaptive thresholds are off")
	}
}

func TestDecodeThresholds_Buckets(t *testing.T) {
	p, err := Lookup(Balanced)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		total      time.Duration
		cr, lp, ns float64
	}{
		{90 * time.Second, 2.4, -1.0, 0.6},
		{3 * time.Minute, 2.2, -0.9, 0.65},
		{6 * time.Minute, 2.1, -0.8, 0.7},
	}
	for _, tc := range tests {
		cr, lp, ns := p.DecodeThresholds(tc.total)
		if !approx(cr, tc.cr) || !approx(lp, tc.lp) || !approx(ns, tc.ns) {
			t.Fatalf("DecodeThresholds(%v) = (%v, %v, %v), want (%v, %v, %v)",
				tc.total, cr, lp, ns, tc.cr, tc.lp, tc.ns)
		}
	}
}

func TestEffectiveModel_LongTrackPrefersLargeV2(t *testing.T) {
	p, err := Lookup(Balanced)
	if err != nil {
		t.Fatal(err)
	}

	if got := p.EffectiveModel(time.Minute); got != "large-v3" {
		t.Fatalf("EffectiveModel(1m) = %q, want large-v3", got)
	}
	if got := p.EffectiveModel(10 * time.Minute); got != "large-v2" {
		t.Fatalf("EffectiveModel(10m) = %q, want large-v2", got)
	}

	p.AutoModelSelection = false
	if got := p.EffectiveModel(10 * time.Minute); got != "large-v3" {
		t.Fatalf("EffectiveModel with auto selection off = %q, want large-v3", got)
	}
}

func TestFallbackChain_StartsWithEffectiveModel(t *testing.T) {
	p, err := Lookup(Balanced)
	if err != nil {
		t.Fatal(err)
	}

	chain := p.FallbackChain(time.Minute)
	want := []string{"large-v3", "large-v2", "large", "medium"}
	if len(chain) != len(want) {
		t.Fatalf("chain = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Fatalf("chain[%d] = %q, want %q", i, chain[i], want[i])
		}
	}
}

func TestFallbackChain_UnknownModel(t *testing.T) {
	p := base()
	p.Model = "custom-finetune"
	p.AutoModelSelection = false

	chain := p.FallbackChain(time.Minute)
	if len(chain) != 3 || chain[0] != "custom-finetune" || chain[1] != "base" || chain[2] != "tiny" {
		t.Fatalf("chain = %v, want [custom-finetune base tiny]", chain)
	}
}

func TestUseChunking(t *testing.T) {
	p, err := Lookup(ShortVideos)
	if err != nil {
		t.Fatal(err)
	}
	if p.UseChunking(45 * time.Second) {
		t.Fatal("45s short video should not be chunked")
	}
	if !p.UseChunking(3 * time.Minute) {
		t.Fatal("3m track should be chunked under short_videos")
	}
}

func TestOverrides_Apply(t *testing.T) {
	p := base()
	cl := 10 * time.Second
	model := "medium"
	o := &Overrides{ChunkLength: &cl, Model: &model}

	got := o.Apply(p)
	if got.ChunkLength != cl {
		t.Fatalf("ChunkLength = %v, want %v", got.ChunkLength, cl)
	}
	if got.Model != "medium" {
		t.Fatalf("Model = %q, want medium", got.Model)
	}
	// Untouched fields keep preset values.
	if got.Overlap != p.Overlap {
		t.Fatalf("Overlap changed: %v != %v", got.Overlap, p.Overlap)
	}
}

func TestOverrides_ExplicitChainPinsModel(t *testing.T) {
	p := base()
	o := &Overrides{ModelFallbackOrder: []string{"medium", "base"}}

	got := o.Apply(p)
	if got.Model != "medium" || got.AutoModelSelection {
		t.Fatalf("explicit chain should pin model and disable auto selection, got model=%q auto=%v",
			got.Model, got.AutoModelSelection)
	}
	chain := o.Chain()
	if len(chain) != 2 || chain[0] != "medium" || chain[1] != "base" {
		t.Fatalf("Chain() = %v, want [medium base]", chain)
	}
}

func TestOverrides_NilReceiver(t *testing.T) {
	var o *Overrides
	p := base()
	if got := o.Apply(p); got != p {
		t.Fatal("nil overrides should be identity")
	}
	if o.Chain() != nil {
		t.Fatal("nil overrides should have nil chain")
	}
}

func approx(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
