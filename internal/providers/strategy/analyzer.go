package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"brandstudio/internal/domain"
	"brandstudio/internal/providers/gemini"
)

// Analyzer turns marketing copy into a viral strategy. It never fails: any
// problem yields the fallback strategy with Fallback set.
type Analyzer interface {
	Analyze(ctx context.Context, article, locale string) Result
}

// Result carries the strategy and whether it came from the fallback path.
type Result struct {
	Strategy       domain.ViralStrategy
	Fallback       bool
	FallbackReason string
}

const (
	ReasonRequest  = "request"
	ReasonEmpty    = "empty_response"
	ReasonParse    = "parse"
	ReasonNoReason = "no_reason"
)

type GeminiOptions struct {
	Models     gemini.Models
	Model      string
	Logger     zerolog.Logger
	OnFallback func(reason string, err error)
}

type GeminiAnalyzer struct {
	models     gemini.Models
	model      string
	logger     zerolog.Logger
	onFallback func(reason string, err error)
}

type strategyPayload struct {
	NeedsHuman        *bool    `json:"needsHuman"`
	Reason            string   `json:"reason"`
	SuggestedElements []string `json:"suggestedElements"`
}

func NewGeminiAnalyzer(opts GeminiOptions) *GeminiAnalyzer {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = gemini.DefaultTextModel
	}
	return &GeminiAnalyzer{
		models:     opts.Models,
		model:      model,
		logger:     opts.Logger,
		onFallback: opts.OnFallback,
	}
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, article, locale string) Result {
	if g.models == nil {
		return g.useFallback(locale, ReasonRequest, fmt.Errorf("gemini client not configured"))
	}
	contents := gemini.UserContent([]*genai.Part{genai.NewPartFromText(buildAnalyzePrompt(article, locale))})
	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.4),
		ResponseMIMEType: "application/json",
		ResponseSchema:   strategySchema(),
	})
	if err != nil {
		return g.useFallback(locale, ReasonRequest, gemini.DescribeError(err))
	}
	text := gemini.ResponseText(resp)
	if text == "" {
		return g.useFallback(locale, ReasonEmpty, nil)
	}
	parsed, err := gemini.DecodePayload[strategyPayload](text)
	if err != nil {
		return g.useFallback(locale, ReasonParse, err)
	}
	if parsed.NeedsHuman == nil {
		return g.useFallback(locale, ReasonParse, fmt.Errorf("needsHuman missing"))
	}
	reason := strings.TrimSpace(parsed.Reason)
	if reason == "" {
		return g.useFallback(locale, ReasonNoReason, nil)
	}
	return Result{
		Strategy: domain.ViralStrategy{
			NeedsHuman:        *parsed.NeedsHuman,
			Reason:            reason,
			SuggestedElements: gemini.NormalizeList(parsed.SuggestedElements, 0),
		},
	}
}

func (g *GeminiAnalyzer) useFallback(locale, reason string, err error) Result {
	g.logger.Warn().Err(err).Str("reason", reason).Str("model", g.model).Msg("strategy: using fallback")
	if g.onFallback != nil {
		g.onFallback(reason, err)
	}
	return Result{
		Strategy:       domain.FallbackStrategy(locale),
		Fallback:       true,
		FallbackReason: reason,
	}
}

func strategySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"needsHuman":        {Type: genai.TypeBoolean},
			"reason":            {Type: genai.TypeString},
			"suggestedElements": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"needsHuman", "reason", "suggestedElements"},
	}
}

func buildAnalyzePrompt(article, locale string) string {
	lang := "Vietnamese"
	if locale == domain.LocaleEN {
		lang = "English"
	}
	sb := &strings.Builder{}
	sb.WriteString("You are a social media marketing strategist. Read the marketing article below and decide how the promotional image should be built to go viral.\n\n")
	sb.WriteString("Decide:\n")
	sb.WriteString("1. needsHuman: whether a human model (KOL) in the image would make the post more engaging for this product and message.\n")
	sb.WriteString("2. reason: one or two sentences explaining the decision.\n")
	sb.WriteString("3. suggestedElements: a short ordered list of visual elements (props, setting, mood, colours) that reinforce the article's message.\n\n")
	fmt.Fprintf(sb, "Write reason and suggestedElements in %s. Respond only with JSON: {\"needsHuman\": boolean, \"reason\": string, \"suggestedElements\": string[]}.\n\n", lang)
	fmt.Fprintf(sb, "ARTICLE:\n%s", strings.TrimSpace(article))
	return sb.String()
}

// Static always returns the fallback strategy. It is used when no Gemini key
// is configured.
type Static struct{}

func (Static) Analyze(_ context.Context, _ string, locale string) Result {
	return Result{Strategy: domain.FallbackStrategy(locale), Fallback: true, FallbackReason: ReasonRequest}
}

var (
	_ Analyzer = (*GeminiAnalyzer)(nil)
	_ Analyzer = Static{}
)
