package session

import (
	"strconv"
	"strings"
	"time"

	"brandstudio/internal/domain"
)

// Phase is the coarse state shown to the user.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseAnalyzing    Phase = "analyzing"
	PhaseSuggesting   Phase = "suggesting"
	PhaseReady        Phase = "ready"
	PhaseGenerating   Phase = "generating"
	PhaseResults      Phase = "results"
	PhaseRegenerating Phase = "regenerating"
)

// LoadingMessageInterval is how long each loading message is shown.
const LoadingMessageInterval = 4 * time.Second

type AssetInfo struct {
	Filename string `json:"filename,omitempty"`
	MIMEType string `json:"mime_type"`
	Bytes    int    `json:"bytes"`
}

type ImageInfo struct {
	Index    int    `json:"index"`
	Style    string `json:"style"`
	MIMEType string `json:"mime_type"`
	Bytes    int    `json:"bytes"`
}

// Snapshot is an immutable view of a session. Version increases with every
// change, so consumers can drop out-of-order deliveries.
type Snapshot struct {
	ID                  string                    `json:"id"`
	Version             uint64                    `json:"version"`
	Phase               Phase                     `json:"phase"`
	Locale              string                    `json:"locale"`
	Assets              map[domain.Slot]AssetInfo `json:"assets"`
	Params              domain.Params             `json:"params"`
	Strategy            *domain.ViralStrategy     `json:"strategy,omitempty"`
	ShowModelUpload     bool                      `json:"show_model_upload"`
	ModelUploadOverride bool                      `json:"model_upload_override"`
	Styles              []string                  `json:"styles"`
	StyleLoading        bool                      `json:"style_loading"`
	Analyzing           bool                      `json:"analyzing"`
	Generating          bool                      `json:"generating"`
	LoadingMessage      string                    `json:"loading_message,omitempty"`
	Regenerating        string                    `json:"regenerating,omitempty"`
	Images              []ImageInfo               `json:"images"`
	Selected            *ImageInfo                `json:"selected,omitempty"`
	Advisory            string                    `json:"advisory,omitempty"`
	Error               string                    `json:"error,omitempty"`
	UpdatedAt           time.Time                 `json:"updated_at"`
}

// Snapshot returns the current view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:                  s.id,
		Version:             s.version,
		Locale:              s.locale,
		Assets:              make(map[domain.Slot]AssetInfo, len(s.assets)),
		Params:              s.params,
		ModelUploadOverride: s.modelOverride,
		Styles:              append([]string{}, s.styles...),
		StyleLoading:        s.styleLoading,
		Analyzing:           s.analyzing,
		Generating:          s.generating,
		Regenerating:        s.regenerating,
		Images:              make([]ImageInfo, 0, len(s.generated)),
		Advisory:            s.advisory,
		Error:               s.errMsg,
		UpdatedAt:           s.updatedAt,
	}
	for slot, img := range s.assets {
		snap.Assets[slot] = AssetInfo{Filename: img.Filename, MIMEType: img.MIMEType, Bytes: len(img.Data)}
	}
	if s.strategy != nil {
		strat := *s.strategy
		strat.SuggestedElements = append([]string{}, s.strategy.SuggestedElements...)
		snap.Strategy = &strat
	}
	snap.ShowModelUpload = s.strategy == nil || s.strategy.NeedsHuman || s.modelOverride || s.assets[domain.SlotModel] != nil
	for i, img := range s.generated {
		info := ImageInfo{Index: i, Style: img.Style, MIMEType: img.MIMEType, Bytes: len(img.Data)}
		snap.Images = append(snap.Images, info)
		if img == s.selected {
			sel := info
			snap.Selected = &sel
		}
	}
	if s.generating {
		snap.LoadingMessage = loadingMessage(s.locale, s.deps.now().Sub(s.generatingSince))
	}
	snap.Phase = s.phaseLocked()
	return snap
}

func (s *Session) phaseLocked() Phase {
	switch {
	case s.regenerating != "":
		return PhaseRegenerating
	case s.generating:
		return PhaseGenerating
	case s.analyzing:
		return PhaseAnalyzing
	case s.styleLoading:
		return PhaseSuggesting
	case len(s.generated) > 0:
		return PhaseResults
	case s.assets[domain.SlotProduct] != nil && len(s.styles) > 0:
		return PhaseReady
	}
	return PhaseIdle
}

func loadingMessage(locale string, elapsed time.Duration) string {
	msgs, ok := domain.LoadingMessages[locale]
	if !ok {
		msgs = domain.LoadingMessages[domain.DefaultLocale]
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return msgs[int(elapsed/LoadingMessageInterval)%len(msgs)]
}

// DownloadName builds the attachment filename for a generated image.
func DownloadName(styleLabel string, at time.Time, mime string) string {
	ext := "jpeg"
	switch mime {
	case "image/png":
		ext = "png"
	case "image/webp":
		ext = "webp"
	}
	slug := strings.Join(strings.Fields(styleLabel), "-")
	slug = strings.NewReplacer("/", "-", "\\", "-").Replace(slug)
	return "brand-image-" + slug + "-" + formatMillis(at) + "." + ext
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
