package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const (
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "gemini-2.5-flash-image"
)

// Models is the part of the Gemini SDK the providers depend on. Both
// *genai.Models and test fakes satisfy it.
type Models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds a Gemini API client. The returned client's Models field is
// what providers receive.
func NewClient(ctx context.Context, opts Options) (*genai.Client, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("gemini api key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	return genai.NewClient(ctx, cfg)
}

// Attachment is a labelled inline image sent alongside a prompt.
type Attachment struct {
	Label    string
	MIMEType string
	Data     []byte
}

// UserContent assembles a single user turn from leading parts followed by the
// attachments. Each attachment is preceded by its label as a text part when
// the label is non-empty.
func UserContent(lead []*genai.Part, attachments ...Attachment) []*genai.Content {
	parts := make([]*genai.Part, 0, len(lead)+2*len(attachments))
	parts = append(parts, lead...)
	for _, att := range attachments {
		if len(att.Data) == 0 {
			continue
		}
		if att.Label != "" {
			parts = append(parts, genai.NewPartFromText(att.Label))
		}
		parts = append(parts, genai.NewPartFromBytes(att.Data, att.MIMEType))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

// ResponseText concatenates the text parts of the first candidate that has
// any content.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range cand.Content.Parts {
			if part != nil && part.Text != "" && !part.Thought {
				sb.WriteString(part.Text)
			}
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			return text
		}
	}
	return ""
}

// FirstImage returns the first inline image payload in the response.
func FirstImage(resp *genai.GenerateContentResponse) (*genai.Blob, bool) {
	if resp == nil {
		return nil, false
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData, true
			}
		}
	}
	return nil, false
}

// APIStatus reports the HTTP status of a Gemini API error anywhere in the
// chain.
func APIStatus(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}

// DescribeError prefixes Gemini API errors with their HTTP status and
// whether the call may succeed later. Other errors are returned unchanged.
func DescribeError(err error) error {
	code, ok := APIStatus(err)
	if !ok {
		return err
	}
	kind := "rejected"
	switch {
	case code == http.StatusTooManyRequests:
		kind = "rate limited"
	case code >= http.StatusInternalServerError:
		kind = "unavailable"
	}
	return fmt.Errorf("gemini %s (http %d): %w", kind, code, err)
}
