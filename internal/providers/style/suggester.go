package style

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"brandstudio/internal/domain"
	"brandstudio/internal/providers/gemini"
)

// Request is the input of one suggestion call. Product is required; the
// reference text and model image are optional.
type Request struct {
	Product       *domain.UploadedImage
	Model         *domain.UploadedImage
	ReferenceText string
	Locale        string
}

// Result holds up to domain.MaxStyles labels in display order.
type Result struct {
	Styles         []string
	Fallback       bool
	FallbackReason string
}

// Suggester proposes style labels. Failures never surface as errors; they
// produce the fixed fallback list with Fallback set.
type Suggester interface {
	Suggest(ctx context.Context, req Request) Result
}

const (
	ReasonNoProduct = "no_product"
	ReasonRequest   = "request"
	ReasonEmpty     = "empty_response"
	ReasonParse     = "parse"
	ReasonNoStyles  = "no_styles"
)

type GeminiOptions struct {
	Models     gemini.Models
	Model      string
	Logger     zerolog.Logger
	OnFallback func(reason string, err error)
}

type GeminiSuggester struct {
	models     gemini.Models
	model      string
	logger     zerolog.Logger
	onFallback func(reason string, err error)
}

type stylesPayload struct {
	Styles []string `json:"styles"`
}

func NewGeminiSuggester(opts GeminiOptions) *GeminiSuggester {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = gemini.DefaultTextModel
	}
	return &GeminiSuggester{
		models:     opts.Models,
		model:      model,
		logger:     opts.Logger,
		onFallback: opts.OnFallback,
	}
}

func (g *GeminiSuggester) Suggest(ctx context.Context, req Request) Result {
	if req.Product == nil || len(req.Product.Data) == 0 {
		return g.useFallback(ReasonNoProduct, nil)
	}
	if g.models == nil {
		return g.useFallback(ReasonRequest, fmt.Errorf("gemini client not configured"))
	}
	attachments := []gemini.Attachment{{Label: "Product Image:", MIMEType: req.Product.MIMEType, Data: req.Product.Data}}
	if req.Model != nil {
		attachments = append(attachments, gemini.Attachment{Label: "Model Image:", MIMEType: req.Model.MIMEType, Data: req.Model.Data})
	}
	contents := gemini.UserContent(nil, attachments...)
	contents[0].Parts = append(contents[0].Parts, genai.NewPartFromText(buildSuggestPrompt(req)))

	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"styles": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			},
		},
	})
	if err != nil {
		return g.useFallback(ReasonRequest, gemini.DescribeError(err))
	}
	text := gemini.ResponseText(resp)
	if text == "" {
		return g.useFallback(ReasonEmpty, nil)
	}
	parsed, err := gemini.DecodePayload[stylesPayload](text)
	if err != nil {
		return g.useFallback(ReasonParse, err)
	}
	styles := gemini.NormalizeList(parsed.Styles, domain.MaxStyles)
	if len(styles) == 0 {
		return g.useFallback(ReasonNoStyles, nil)
	}
	return Result{Styles: styles}
}

func (g *GeminiSuggester) useFallback(reason string, err error) Result {
	g.logger.Warn().Err(err).Str("reason", reason).Str("model", g.model).Msg("style: using fallback")
	if g.onFallback != nil {
		g.onFallback(reason, err)
	}
	return Fallback(reason)
}

// Fallback returns the fixed fallback suggestion.
func Fallback(reason string) Result {
	return Result{Styles: domain.FallbackStyles(), Fallback: true, FallbackReason: reason}
}

func buildSuggestPrompt(req Request) string {
	lang := "Vietnamese"
	if req.Locale == domain.LocaleEN {
		lang = "English"
	}
	reference := strings.TrimSpace(req.ReferenceText)
	hasModel := req.Model != nil && len(req.Model.Data) > 0

	var lines []string
	lines = append(lines,
		"You are a professional marketing and branding expert. Suggest 4 distinct, creative and commercially appealing visual styles for a promotional social media image.",
		"",
		"Use the inputs in this strict priority order:",
	)
	rank := 1
	if reference != "" {
		lines = append(lines, fmt.Sprintf("%d. REFERENCE ARTICLE (highest priority): the styles must express the narrative, mood and setting of the article below.", rank))
		rank++
	}
	if hasModel {
		lines = append(lines, fmt.Sprintf("%d. MODEL IMAGE: match the vibe, fashion and attitude of the person in the \"Model Image\".", rank))
		rank++
	}
	lines = append(lines,
		fmt.Sprintf("%d. PRODUCT IMAGE: use it ONLY to identify what the product is and its category. Ignore its lighting, background and any packaging.", rank),
		"",
		"Each style must be a short, evocative phrase of 2 to 4 words.",
		fmt.Sprintf("Write every style name in %s.", lang),
		`Respond only with JSON: {"styles": string[]}.`,
	)
	if reference != "" {
		lines = append(lines, "", "REFERENCE ARTICLE:", reference)
	}
	return strings.Join(lines, "\n")
}

// Static always returns the fallback list.
type Static struct{}

func (Static) Suggest(context.Context, Request) Result {
	return Fallback(ReasonRequest)
}

var (
	_ Suggester = (*GeminiSuggester)(nil)
	_ Suggester = Static{}
)
