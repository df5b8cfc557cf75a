package domain

import "testing"

func TestCacheSignatureMaskKindsIgnoreCosmetics(t *testing.T) {
	remove := Operation{Kind: OpRemoveBackground}
	solid := Operation{Kind: OpReplaceBackgroundSolid, Color: "#FFFFFF"}
	gradient := Operation{Kind: OpReplaceBackgroundGradient, Gradient: &GradientSpec{From: "#000", To: "#FFF"}}

	if got, want := solid.CacheSignature(), remove.CacheSignature(); got != want {
		t.Fatalf("solid signature %q, want shared mask signature %q", got, want)
	}
	if got, want := gradient.CacheSignature(), remove.CacheSignature(); got != want {
		t.Fatalf("gradient signature %q, want shared mask signature %q", got, want)
	}

	otherColor := Operation{Kind: OpReplaceBackgroundSolid, Color: "#FF0000"}
	if solid.CacheSignature() != otherColor.CacheSignature() {
		t.Fatal("changing a background color must not change the cache signature")
	}
}

func TestCacheSignaturePromptKindsIncludePrompt(t *testing.T) {
	a := Operation{Kind: OpReplaceBackgroundPrompt, Prompt: "a beach at sunset"}
	b := Operation{Kind: OpReplaceBackgroundPrompt, Prompt: "a snowy mountain"}
	if a.CacheSignature() == b.CacheSignature() {
		t.Fatal("distinct prompts must produce distinct signatures")
	}
	same := Operation{Kind: OpReplaceBackgroundPrompt, Prompt: "a beach at sunset"}
	if a.CacheSignature() != same.CacheSignature() {
		t.Fatal("identical prompts must share a signature")
	}
}

func TestCacheSignatureEnhanceDistinctFromMask(t *testing.T) {
	enhance := Operation{Kind: OpEnhance}
	remove := Operation{Kind: OpRemoveBackground}
	if enhance.CacheSignature() == remove.CacheSignature() {
		t.Fatal("enhance and remove-background must not share cache entries")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		op      Operation
		wantErr bool
	}{
		{"enhance", Operation{Kind: OpEnhance}, false},
		{"remove background", Operation{Kind: OpRemoveBackground}, false},
		{"solid with color", Operation{Kind: OpReplaceBackgroundSolid, Color: "#FFFFFF"}, false},
		{"solid without color", Operation{Kind: OpReplaceBackgroundSolid}, true},
		{"gradient without stops", Operation{Kind: OpReplaceBackgroundGradient}, true},
		{"prompt without text", Operation{Kind: OpReplaceBackgroundPrompt}, true},
		{"unknown kind", Operation{Kind: "sharpen"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.op.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDisplayMetadataCarriesCosmetics(t *testing.T) {
	op := Operation{Kind: OpReplaceBackgroundSolid, Color: "#FFFFFF"}
	meta := op.Display()
	if meta.Type != "solid" || meta.Color != "#FFFFFF" {
		t.Fatalf("unexpected display metadata: %+v", meta)
	}
	if meta.Label == "" {
		t.Fatal("expected a human readable label")
	}
}

func TestNormalizeOperationKind(t *testing.T) {
	if got := NormalizeOperationKind("  Remove_Background "); got != OpRemoveBackground {
		t.Fatalf("unexpected kind: %q", got)
	}
	if got := NormalizeOperationKind("sharpen"); got != "" {
		t.Fatalf("expected empty kind for unknown input, got %q", got)
	}
}
