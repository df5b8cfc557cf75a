package domain

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// OperationKind enumerates the supported remote edit operations.
type OperationKind string

const (
	OpEnhance                   OperationKind = "enhance"
	OpRemoveBackground          OperationKind = "remove_background"
	OpReplaceBackgroundSolid    OperationKind = "replace_background_solid"
	OpReplaceBackgroundGradient OperationKind = "replace_background_gradient"
	OpReplaceBackgroundPrompt   OperationKind = "replace_background_prompt"
)

// NormalizeOperationKind sanitizes free-form input into a supported kind.
// Unknown values come back empty so callers can reject them.
func NormalizeOperationKind(kind string) OperationKind {
	switch OperationKind(strings.ToLower(strings.TrimSpace(kind))) {
	case OpEnhance:
		return OpEnhance
	case OpRemoveBackground:
		return OpRemoveBackground
	case OpReplaceBackgroundSolid:
		return OpReplaceBackgroundSolid
	case OpReplaceBackgroundGradient:
		return OpReplaceBackgroundGradient
	case OpReplaceBackgroundPrompt:
		return OpReplaceBackgroundPrompt
	default:
		return ""
	}
}

// GradientSpec describes a two-stop linear gradient background.
type GradientSpec struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Angle int    `json:"angle"`
}

// Operation is one user-chosen edit. Color, Gradient and Prompt are only
// meaningful for the matching replace-background kinds.
type Operation struct {
	Kind     OperationKind `json:"kind"`
	Color    string        `json:"color,omitempty"`
	Gradient *GradientSpec `json:"gradient,omitempty"`
	Prompt   string        `json:"prompt,omitempty"`
}

// Validate rejects operations whose required parameters are missing.
func (o Operation) Validate() error {
	switch o.Kind {
	case OpEnhance, OpRemoveBackground:
		return nil
	case OpReplaceBackgroundSolid:
		if strings.TrimSpace(o.Color) == "" {
			return errors.New("solid background replacement requires a color")
		}
		return nil
	case OpReplaceBackgroundGradient:
		if o.Gradient == nil || o.Gradient.From == "" || o.Gradient.To == "" {
			return errors.New("gradient background replacement requires gradient stops")
		}
		return nil
	case OpReplaceBackgroundPrompt:
		if strings.TrimSpace(o.Prompt) == "" {
			return errors.New("prompt background replacement requires a prompt")
		}
		return nil
	default:
		return errors.New("unsupported operation kind")
	}
}

// MaskStyle reports whether the expensive remote step is subject extraction,
// whose output does not depend on the chosen color or gradient. The solid and
// gradient replacement kinds embed the same background-removal step, so they
// share its cache entries.
func (o Operation) MaskStyle() bool {
	switch o.Kind {
	case OpRemoveBackground, OpReplaceBackgroundSolid, OpReplaceBackgroundGradient:
		return true
	default:
		return false
	}
}

// CacheEligible reports whether a completed result may be written back into
// the result cache.
func (o Operation) CacheEligible() bool {
	return o.Kind != ""
}

// signature separator; never appears in operation kinds.
const sigSep = "\x1f"

// CacheSignature derives the cache-relevant identity of the operation.
// Mask-style kinds collapse onto the shared background-removal signature so a
// cosmetic parameter change never re-invokes inference. Prompt kinds embed
// the prompt text verbatim so distinct prompts never collide.
func (o Operation) CacheSignature() string {
	if o.MaskStyle() {
		return string(OpRemoveBackground)
	}
	if o.Kind == OpReplaceBackgroundPrompt {
		return string(OpReplaceBackgroundPrompt) + sigSep + o.Prompt
	}
	return string(o.Kind)
}

// DisplayMetadata is session-only presentation state carried to the UI on
// success. It must never leak into cache keys or values.
type DisplayMetadata struct {
	Label    string        `json:"label"`
	Type     string        `json:"type,omitempty"`
	Color    string        `json:"color,omitempty"`
	Gradient *GradientSpec `json:"gradient,omitempty"`
	Prompt   string        `json:"prompt,omitempty"`
}

var titleCaser = cases.Title(language.English)

// Display builds the presentation metadata for the operation.
func (o Operation) Display() DisplayMetadata {
	meta := DisplayMetadata{
		Label: titleCaser.String(strings.ReplaceAll(string(o.Kind), "_", " ")),
	}
	switch o.Kind {
	case OpReplaceBackgroundSolid:
		meta.Type = "solid"
		meta.Color = o.Color
	case OpReplaceBackgroundGradient:
		meta.Type = "gradient"
		meta.Gradient = o.Gradient
	case OpReplaceBackgroundPrompt:
		meta.Type = "prompt"
		meta.Prompt = o.Prompt
	}
	return meta
}
