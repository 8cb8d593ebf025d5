package image

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"brandstudio/internal/domain"
	"brandstudio/internal/providers/gemini"
)

type GeminiOptions struct {
	Models gemini.Models
	Model  string
	Logger zerolog.Logger
}

// GeminiGenerator issues exactly one model call per Generate. It applies no
// timeout of its own; the caller's context is the only bound.
type GeminiGenerator struct {
	models gemini.Models
	model  string
	logger zerolog.Logger
}

func NewGeminiGenerator(opts GeminiOptions) (*GeminiGenerator, error) {
	if opts.Models == nil {
		return nil, errors.New("image: gemini models client is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = gemini.DefaultImageModel
	}
	return &GeminiGenerator{models: opts.Models, model: model, logger: opts.Logger}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.Product == nil || len(req.Product.Data) == 0 {
		return nil, domain.ErrProductRequired
	}
	prompt := BuildBrandPrompt(req.PromptInput())
	contents := gemini.UserContent([]*genai.Part{genai.NewPartFromText(prompt)}, attachments(req)...)

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	}
	if req.Params.AspectRatio.Valid() {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: string(req.Params.AspectRatio)}
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		err = gemini.DescribeError(err)
		g.logger.Error().Err(err).Str("style", req.Style).Str("model", g.model).Msg("image: generate content failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
	}
	blob, ok := gemini.FirstImage(resp)
	if !ok {
		g.logger.Error().Str("style", req.Style).Str("model", g.model).Msg("image: response carried no image")
		return nil, domain.ErrNoImageReturned
	}
	mime := blob.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	g.logger.Debug().Str("style", req.Style).Int("bytes", len(blob.Data)).Msg("image: generated")
	return &Result{MIMEType: mime, Data: blob.Data}, nil
}

// attachments orders the images as model, product, logo; absent ones are
// skipped.
func attachments(req Request) []gemini.Attachment {
	var out []gemini.Attachment
	if req.Model != nil {
		out = append(out, gemini.Attachment{Label: "Model Image:", MIMEType: req.Model.MIMEType, Data: req.Model.Data})
	}
	out = append(out, gemini.Attachment{Label: "Product Image:", MIMEType: req.Product.MIMEType, Data: req.Product.Data})
	if req.Logo != nil {
		out = append(out, gemini.Attachment{Label: "Logo Image:", MIMEType: req.Logo.MIMEType, Data: req.Logo.Data})
	}
	return out
}

var _ Generator = (*GeminiGenerator)(nil)
