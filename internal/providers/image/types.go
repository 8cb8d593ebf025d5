package image

import (
	"context"

	"brandstudio/internal/domain"
)

// PromptInput is everything the prompt builder reads.
type PromptInput struct {
	Style    string
	Params   domain.Params
	HasModel bool
	HasLogo  bool
}

// Request describes one generation call for a single style.
type Request struct {
	Style   string
	Params  domain.Params
	Model   *domain.UploadedImage
	Product *domain.UploadedImage
	Logo    *domain.UploadedImage
}

// PromptInput derives the builder input from the request.
func (r Request) PromptInput() PromptInput {
	return PromptInput{
		Style:    r.Style,
		Params:   r.Params,
		HasModel: r.Model != nil && len(r.Model.Data) > 0,
		HasLogo:  r.Logo != nil && len(r.Logo.Data) > 0,
	}
}

// Result is the single image returned by the model.
type Result struct {
	MIMEType string
	Data     []byte
}

// Generator is the contract implemented by image providers. Errors are
// terminal; implementations do not retry.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}
