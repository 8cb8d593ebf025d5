package domain

import (
	"fmt"
	"strings"
)

// AspectRatio is the requested output geometry. It is advisory only and is
// never checked against the returned image.
type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectPortrait  AspectRatio = "9:16"
	AspectLandscape AspectRatio = "16:9"
)

// Quality is the requested quality tier, embedded in the prompt as text.
type Quality string

const (
	Quality4K  Quality = "4K"
	Quality8K  Quality = "8K"
	Quality16K Quality = "16K"
)

// Persona selects the synthesized model when no model image is supplied.
type Persona string

const (
	PersonaFemaleAsian    Persona = "female-asian"
	PersonaMaleAsian      Persona = "male-asian"
	PersonaFemaleEuropean Persona = "female-european"
	PersonaMaleEuropean   Persona = "male-european"
)

const (
	DefaultAspectRatio = AspectSquare
	DefaultQuality     = Quality4K
	DefaultPersona     = PersonaFemaleAsian

	// MaxStyles caps both the suggestion list and the batch fan-out.
	MaxStyles = 4
)

var personaDescriptions = map[Persona]string{
	PersonaFemaleAsian:    "Female Asian model",
	PersonaMaleAsian:      "Male Asian model",
	PersonaFemaleEuropean: "Female European model",
	PersonaMaleEuropean:   "Male European model",
}

func (a AspectRatio) Valid() bool {
	switch a {
	case AspectSquare, AspectPortrait, AspectLandscape:
		return true
	}
	return false
}

func (q Quality) Valid() bool {
	switch q {
	case Quality4K, Quality8K, Quality16K:
		return true
	}
	return false
}

func (p Persona) Valid() bool {
	_, ok := personaDescriptions[p]
	return ok
}

// Description returns the persona phrase used in prompts.
func (p Persona) Description() string {
	if d, ok := personaDescriptions[p]; ok {
		return d
	}
	return personaDescriptions[DefaultPersona]
}

// ViralStrategy is the structured recommendation derived from marketing copy.
type ViralStrategy struct {
	NeedsHuman        bool     `json:"needs_human"`
	Reason            string   `json:"reason"`
	SuggestedElements []string `json:"suggested_elements"`
}

// GeneratedImage is one style variant. Entries are replaced, never mutated.
type GeneratedImage struct {
	Style    string `json:"style"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// Params holds the generation session parameters.
type Params struct {
	AspectRatio       AspectRatio `json:"aspect_ratio"`
	Quality           Quality     `json:"quality"`
	Persona           Persona     `json:"persona"`
	OverlayText       string      `json:"overlay_text"`
	ProductDimensions string      `json:"product_dimensions"`
	ReferenceText     string      `json:"reference_text"`
}

// DefaultParams returns the parameters a fresh or reset session starts with.
func DefaultParams() Params {
	return Params{
		AspectRatio: DefaultAspectRatio,
		Quality:     DefaultQuality,
		Persona:     DefaultPersona,
	}
}

// ParamsPatch is a partial update; nil fields are left untouched.
type ParamsPatch struct {
	AspectRatio       *string `json:"aspect_ratio"`
	Quality           *string `json:"quality"`
	Persona           *string `json:"persona"`
	OverlayText       *string `json:"overlay_text"`
	ProductDimensions *string `json:"product_dimensions"`
	ReferenceText     *string `json:"reference_text"`
}

// Apply returns p with the patch applied, or ErrInvalidParams when an enum
// value is outside its domain. p itself is not modified.
func (patch ParamsPatch) Apply(p Params) (Params, error) {
	if patch.AspectRatio != nil {
		v := AspectRatio(strings.TrimSpace(*patch.AspectRatio))
		if !v.Valid() {
			return p, fmt.Errorf("%w: aspect_ratio must be one of 1:1, 9:16, 16:9", ErrInvalidParams)
		}
		p.AspectRatio = v
	}
	if patch.Quality != nil {
		v := Quality(strings.ToUpper(strings.TrimSpace(*patch.Quality)))
		if !v.Valid() {
			return p, fmt.Errorf("%w: quality must be one of 4K, 8K, 16K", ErrInvalidParams)
		}
		p.Quality = v
	}
	if patch.Persona != nil {
		v := Persona(strings.ToLower(strings.TrimSpace(*patch.Persona)))
		if !v.Valid() {
			return p, fmt.Errorf("%w: unknown persona %q", ErrInvalidParams, *patch.Persona)
		}
		p.Persona = v
	}
	if patch.OverlayText != nil {
		p.OverlayText = *patch.OverlayText
	}
	if patch.ProductDimensions != nil {
		p.ProductDimensions = *patch.ProductDimensions
	}
	if patch.ReferenceText != nil {
		p.ReferenceText = *patch.ReferenceText
	}
	return p, nil
}

// TopStyles returns at most MaxStyles entries of styles, in order.
func TopStyles(styles []string) []string {
	if len(styles) > MaxStyles {
		styles = styles[:MaxStyles]
	}
	out := make([]string, len(styles))
	copy(out, styles)
	return out
}
