package image

import (
	"fmt"
	"strings"
	"unicode"

	"brandstudio/internal/domain"
)

var referenceGeometry = map[domain.AspectRatio]string{
	domain.AspectSquare:    "a perfect square (e.g., 4096x4096)",
	domain.AspectLandscape: "a wide landscape (e.g., 4096x2304)",
	domain.AspectPortrait:  "a tall portrait (e.g., 2304x4096)",
}

var qualityDescriptors = map[domain.Quality]string{
	domain.Quality4K:  "4K, sharp commercial photography with crisp detail",
	domain.Quality8K:  "8K, ultra-detailed photorealism with lifelike textures",
	domain.Quality16K: "16K, hyper-realistic flagship campaign fidelity with flawless micro-detail",
}

// BuildBrandPrompt assembles the instruction document sent with the images.
// Optional sections are left out entirely when their input is missing, so
// the function is total over its input.
func BuildBrandPrompt(in PromptInput) string {
	p := in.Params
	ratio := p.AspectRatio
	if !ratio.Valid() {
		ratio = domain.DefaultAspectRatio
	}
	quality := p.Quality
	if !quality.Valid() {
		quality = domain.DefaultQuality
	}
	style := strings.TrimSpace(in.Style)

	var sections []string
	sections = append(sections, renderDirective(ratio))
	sections = append(sections, "You are a world-class art director creating a single, stunning promotional image for social media. Follow every instruction below precisely.")
	sections = append(sections, sceneSection(style, p.ReferenceText))
	sections = append(sections, modelSection(in.HasModel, p.Persona, style))
	sections = append(sections, productSection())
	if in.HasLogo {
		sections = append(sections, logoSection())
	}
	sections = append(sections, qualitySection(quality))
	if text := strings.TrimSpace(p.OverlayText); text != "" {
		sections = append(sections, overlaySection(text))
	}
	if dims := strings.TrimSpace(p.ProductDimensions); dims != "" {
		sections = append(sections, dimensionSection(dims))
	}
	sections = append(sections, inputsSection(in.HasModel, in.HasLogo))
	sections = append(sections, fmt.Sprintf("**Final Confirmation:** Apply the **ASPECT RATIO: %s** directive to the final output.", ratio))
	return strings.Join(sections, "\n\n")
}

func renderDirective(ratio domain.AspectRatio) string {
	lines := []string{
		"**[-- PRIMARY RENDER DIRECTIVE --]**",
		fmt.Sprintf("**ASPECT RATIO: %s**", ratio),
		"This directive has the highest priority. The geometry of the final image **MUST** match this aspect ratio exactly.",
		fmt.Sprintf("- The output must be %s.", referenceGeometry[ratio]),
		"This is a non-negotiable technical requirement. An image with any other aspect ratio is a failed task.",
		"**[-- END DIRECTIVE --]**",
	}
	return strings.Join(lines, "\n")
}

func sceneSection(style, reference string) string {
	lines := []string{
		"### 1. Scene & Style",
		fmt.Sprintf("- Create a visually stunning background scene that fully embodies the theme: %q.", style),
	}
	if ref := strings.TrimSpace(reference); ref != "" {
		lines = append(lines,
			"- **Narrative Context:** Ground the scene in the story, setting and mood of the following reference article. Its narrative outranks any generic interpretation of the theme.",
			fmt.Sprintf("  - **ARTICLE:** %q", ref),
		)
	}
	return strings.Join(lines, "\n")
}

func modelSection(hasModel bool, persona domain.Persona, style string) string {
	var lines []string
	lines = append(lines, "### 2. Model (KOL)")
	if hasModel {
		lines = append(lines,
			"- **Source:** Use the person from the \"Model Image\".",
			"- **Identity Fidelity:** You **MUST** preserve the model's exact facial identity. This is the most critical instruction.",
			"- **Flexibility:** You **MAY** adjust pose, expression, hairstyle and clothing so they fit the theme naturally.",
		)
	} else {
		lines = append(lines,
			fmt.Sprintf("- **Action:** Generate a new, professional, photorealistic **%s**.", persona.Description()),
			fmt.Sprintf("- **Context:** The model's appearance and styling must suit the product and the theme %q.", style),
			"- **Style:** The model should look natural, engaging and appealing to the target audience.",
		)
	}
	lines = append(lines,
		"- **Hand & Product Interaction:** If the model holds or touches the product, the grip must be elegant and natural.",
		"- Hands, fingers, hair and clothing **MUST NOT** cover or occlude any part of the product or the logo.",
	)
	return strings.Join(lines, "\n")
}

func productSection() string {
	return strings.Join([]string{
		"### 3. Product",
		"- If the \"Product Image\" shows packaging, digitally unbox it and use **ONLY the product itself**.",
		"- The product **MUST BE a LOCKED, UNEDITABLE, PIXEL-PERFECT ELEMENT**: an exact, unaltered copy of the original. Do not redraw, reinterpret, embellish or recolour it. Composite it into the scene as a pre-rendered asset.",
	}, "\n")
}

func logoSection() string {
	return strings.Join([]string{
		"### 4. Logo",
		"- The \"Logo Image\" **MUST** be placed in the **top-left corner**.",
		"- Remove the logo's original background and place it cleanly, without distortion, stretching or recolouring.",
	}, "\n")
}

func qualitySection(q domain.Quality) string {
	return strings.Join([]string{
		"### 5. Image Quality",
		fmt.Sprintf("- **Resolution:** Render at the highest possible fidelity, corresponding to **%s** quality.", qualityDescriptors[q]),
		"- Focus on realistic lighting, true-to-life textures and professional-grade clarity.",
	}, "\n")
}

func overlaySection(text string) string {
	lines := []string{
		"### 6. Overlay Text (CRITICAL FIDELITY REQUIREMENT)",
		"- **Source Text:** Render the following string exactly as written, with no character substitution, omission or addition.",
		fmt.Sprintf("  - **TEXT:** %q", text),
	}
	if needsDiacriticFont(text) {
		lines = append(lines,
			"- **Language & Font Mandate:** This is **Vietnamese** text. Use a clean, professional sans-serif font (such as Arial or Helvetica) with **full support for Vietnamese diacritics (dấu)**. Accented characters (ă, â, đ, ê, ô, ơ, ư, à, á, ạ, ả, ã) must render perfectly; any font that cannot render them is forbidden.",
		)
	}
	lines = append(lines,
		"- **Integrity:** The text is part of the design. Do not misspell, alter or truncate it.",
		"- **Placement Rule:** Place the text in an open, uncluttered area (clear sky, plain wall, empty floor). It **MUST NOT** cover the model's face or the product.",
		"- **Sizing Rule:** The text block should occupy roughly 20% of the image area.",
		"- **Long Text Fallback:** If the text is long and no suitable open area exists, set it cleanly in a band at the bottom of the image, below the model.",
	)
	return strings.Join(lines, "\n")
}

func dimensionSection(dims string) string {
	return strings.Join([]string{
		"### 7. Real-World Product Dimensions (MANDATORY SCALE)",
		fmt.Sprintf("- **Stated Size:** The product's physical size is %q.", dims),
		"- **Scaling Requirement:** Scale the product so its size is physically correct relative to the model and the environment.",
		"- Small items (e.g., \"5cm\", \"handheld\") must sit naturally in a hand or look small on a table; large items (e.g., \"1 meter\") must look large.",
		"- **Override:** This dimension replaces any earlier sizing assumption. Keep perspective and depth of field consistent with it.",
	}, "\n")
}

func inputsSection(hasModel, hasLogo bool) string {
	lines := []string{"**Input Assets Provided:**"}
	if hasModel {
		lines = append(lines, "- Model Image")
	}
	lines = append(lines, "- Product Image")
	if hasLogo {
		lines = append(lines, "- Logo Image")
	}
	lines = append(lines, "", "Combine all elements into one cohesive, professional image.")
	return strings.Join(lines, "\n")
}

// needsDiacriticFont reports whether the text carries accented Latin letters
// such as Vietnamese ones. Other scripts do not trigger it.
func needsDiacriticFont(text string) bool {
	for _, r := range text {
		if r > unicode.MaxASCII && unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}
