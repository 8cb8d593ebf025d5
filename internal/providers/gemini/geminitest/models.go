// Package geminitest provides fakes for code that depends on gemini.Models.
package geminitest

import (
	"context"
	"sync"

	"google.golang.org/genai"
)

// Call records one GenerateContent invocation.
type Call struct {
	Model    string
	Contents []*genai.Content
	Config   *genai.GenerateContentConfig
}

// Models is a scripted gemini.Models. Respond is invoked for every call.
type Models struct {
	Respond func(ctx context.Context, call Call) (*genai.GenerateContentResponse, error)

	mu    sync.Mutex
	calls []Call
}

func (m *Models) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	call := Call{Model: model, Contents: contents, Config: config}
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
	if m.Respond == nil {
		return &genai.GenerateContentResponse{}, nil
	}
	return m.Respond(ctx, call)
}

// Calls returns a copy of the recorded calls.
func (m *Models) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// TextResponse builds a single-candidate response carrying text.
func TextResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      genai.NewContentFromText(text, genai.RoleModel),
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

// ImageResponse builds a single-candidate response carrying one inline image.
func ImageResponse(data []byte, mime string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      genai.NewContentFromParts([]*genai.Part{genai.NewPartFromBytes(data, mime)}, genai.RoleModel),
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

// Texts flattens the text parts of the recorded contents.
func (c Call) Texts() []string {
	var out []string
	for _, content := range c.Contents {
		if content == nil {
			continue
		}
		for _, part := range content.Parts {
			if part != nil && part.Text != "" {
				out = append(out, part.Text)
			}
		}
	}
	return out
}

// Blobs returns the inline payloads of the recorded contents, in order.
func (c Call) Blobs() []*genai.Blob {
	var out []*genai.Blob
	for _, content := range c.Contents {
		if content == nil {
			continue
		}
		for _, part := range content.Parts {
			if part != nil && part.InlineData != nil {
				out = append(out, part.InlineData)
			}
		}
	}
	return out
}
