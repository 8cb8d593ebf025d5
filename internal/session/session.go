package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"brandstudio/internal/domain"
	"brandstudio/internal/providers/image"
	"brandstudio/internal/providers/strategy"
	"brandstudio/internal/providers/style"
)

// Dependencies are the collaborators a session sequences.
type Dependencies struct {
	Analyzer  strategy.Analyzer
	Suggester style.Suggester
	Generator image.Generator
	Logger    zerolog.Logger
	Now       func() time.Time
}

func (d Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Session is the in-memory state of one studio. All methods are safe for
// concurrent use. Outbound calls run without holding the lock; their
// results are applied only if no newer trigger or reset happened meanwhile.
type Session struct {
	id     string
	locale string
	deps   Dependencies
	logger zerolog.Logger
	emit   func(Snapshot)

	mu         sync.Mutex
	version    uint64
	epoch      uint64
	suggestSeq uint64
	analyzeSeq uint64

	assets        map[domain.Slot]*domain.UploadedImage
	params        domain.Params
	strategy      *domain.ViralStrategy
	modelOverride bool

	styles       []string
	styleLoading bool
	analyzing    bool

	generating      bool
	generatingSince time.Time
	regenerating    string
	generated       []*domain.GeneratedImage
	selected        *domain.GeneratedImage

	advisory  string
	errMsg    string
	updatedAt time.Time

	background sync.WaitGroup
}

// New creates an idle session. emit, when non-nil, receives a snapshot after
// every state change.
func New(id, locale string, deps Dependencies, emit func(Snapshot)) *Session {
	if locale == "" {
		locale = domain.DefaultLocale
	}
	s := &Session{
		id:     id,
		locale: locale,
		deps:   deps,
		logger: deps.Logger.With().Str("session", id).Logger(),
		emit:   emit,
		assets: map[domain.Slot]*domain.UploadedImage{},
		params: domain.DefaultParams(),
	}
	s.updatedAt = deps.now()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Locale() string { return s.locale }

// SetAsset replaces a slot. A new product or model image re-runs style
// suggestion; a logo does not.
func (s *Session) SetAsset(slot domain.Slot, img *domain.UploadedImage) Snapshot {
	s.mu.Lock()
	img.Slot = slot
	s.assets[slot] = img
	if slot == domain.SlotProduct || slot == domain.SlotModel {
		s.triggerSuggestionLocked()
	}
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
	return snap
}

// ClearAsset empties a slot. Clearing the product drops the suggestions and
// invalidates any pending suggestion call.
func (s *Session) ClearAsset(slot domain.Slot) Snapshot {
	s.mu.Lock()
	_, had := s.assets[slot]
	delete(s.assets, slot)
	if had {
		switch slot {
		case domain.SlotProduct:
			s.suggestSeq++
			s.styles = nil
			s.styleLoading = false
		case domain.SlotModel:
			s.triggerSuggestionLocked()
		}
	}
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
	return snap
}

// UpdateParams applies a partial parameter update. Reference text edits do
// not trigger suggestion; only Analyze does.
func (s *Session) UpdateParams(patch domain.ParamsPatch) (Snapshot, error) {
	s.mu.Lock()
	next, err := patch.Apply(s.params)
	if err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	s.params = next
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
	return snap, nil
}

// SetModelUploadOverride lets the user show the model upload even when the
// strategy says no human is needed.
func (s *Session) SetModelUploadOverride(enabled bool) Snapshot {
	s.mu.Lock()
	s.modelOverride = enabled
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
	return snap
}

// RefreshStyles re-runs suggestion with the current inputs.
func (s *Session) RefreshStyles() (Snapshot, error) {
	s.mu.Lock()
	if s.assets[domain.SlotProduct] == nil {
		s.mu.Unlock()
		return Snapshot{}, domain.ErrProductRequired
	}
	s.triggerSuggestionLocked()
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
	return snap, nil
}

// Analyze runs the strategy analyzer on the reference text. A non-nil,
// non-blank article replaces the reference text first; a blank one is
// rejected and leaves the stored text untouched. A non-fallback result
// re-triggers style suggestion once.
func (s *Session) Analyze(ctx context.Context, article *string) (Snapshot, error) {
	s.mu.Lock()
	text := s.params.ReferenceText
	if article != nil {
		text = *article
	}
	if strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		return Snapshot{}, domain.ErrEmptyArticle
	}
	s.params.ReferenceText = text
	text = strings.TrimSpace(text)
	s.analyzeSeq++
	seq, epoch := s.analyzeSeq, s.epoch
	s.analyzing = true
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)

	res := s.deps.Analyzer.Analyze(context.WithoutCancel(ctx), text, s.locale)

	s.mu.Lock()
	if epoch != s.epoch || seq != s.analyzeSeq {
		s.mu.Unlock()
		s.logger.Debug().Msg("session: discarding superseded analysis")
		return s.Snapshot(), domain.ErrStaleResult
	}
	s.analyzing = false
	strat := res.Strategy
	s.strategy = &strat
	if res.Fallback {
		s.advisory = domain.Message(s.locale, domain.MsgStrategyFallback)
	} else {
		s.clearAdvisoryLocked(domain.MsgStrategyFallback)
		if s.assets[domain.SlotProduct] != nil {
			s.triggerSuggestionLocked()
		}
	}
	snap = s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
	return snap, nil
}

// Generate renders the top styles in parallel. Either every call succeeds
// and the set is replaced (first style selected), or the prior state is
// kept and ErrBatchFailed is returned.
func (s *Session) Generate(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if err := s.checkGenerateLocked(); err != nil {
		snap := s.changedLocked()
		s.mu.Unlock()
		s.publish(snap)
		return snap, err
	}
	styles := domain.TopStyles(s.styles)
	base := s.requestBaseLocked()
	epoch := s.epoch
	s.generating = true
	s.generatingSince = s.deps.now()
	s.errMsg = ""
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)

	callCtx := context.WithoutCancel(ctx)
	results := make([]*domain.GeneratedImage, len(styles))
	var g errgroup.Group
	for i, st := range styles {
		req := base
		req.Style = st
		g.Go(func() error {
			res, err := s.deps.Generator.Generate(callCtx, req)
			if err != nil {
				return fmt.Errorf("style %q: %w", req.Style, err)
			}
			results[i] = &domain.GeneratedImage{Style: req.Style, MIMEType: res.MIMEType, Data: res.Data}
			return nil
		})
	}
	err := g.Wait()

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		s.logger.Debug().Msg("session: discarding batch finished after reset")
		return s.Snapshot(), domain.ErrStaleResult
	}
	s.generating = false
	if err != nil {
		s.errMsg = domain.Message(s.locale, domain.MsgBatchFailed)
		snap = s.changedLocked()
		s.mu.Unlock()
		s.publish(snap)
		s.logger.Error().Err(err).Int("styles", len(styles)).Msg("session: batch generation failed")
		return snap, fmt.Errorf("%w: %w", domain.ErrBatchFailed, err)
	}
	s.generated = results
	s.selected = results[0]
	snap = s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
	s.logger.Info().Int("styles", len(styles)).Msg("session: batch generated")
	return snap, nil
}

func (s *Session) checkGenerateLocked() error {
	switch {
	case s.assets[domain.SlotProduct] == nil:
		s.errMsg = domain.Message(s.locale, domain.MsgProductRequired)
		return domain.ErrProductRequired
	case len(s.styles) < 1:
		s.errMsg = domain.Message(s.locale, domain.MsgNoStyles)
		return domain.ErrNoStyles
	case s.generating:
		return domain.ErrBatchInFlight
	case s.regenerating != "":
		return domain.ErrRegenerationInFlight
	}
	return nil
}

// Regenerate re-renders one generated style in place. Only one regeneration
// may be in flight per session, whatever its style.
func (s *Session) Regenerate(ctx context.Context, styleLabel string) (Snapshot, error) {
	s.mu.Lock()
	switch {
	case s.assets[domain.SlotProduct] == nil:
		s.errMsg = domain.Message(s.locale, domain.MsgProductRequired)
		snap := s.changedLocked()
		s.mu.Unlock()
		s.publish(snap)
		return snap, domain.ErrProductRequired
	case s.regenerating != "":
		s.mu.Unlock()
		return s.Snapshot(), domain.ErrRegenerationInFlight
	case s.generating:
		s.mu.Unlock()
		return s.Snapshot(), domain.ErrBatchInFlight
	}
	if s.indexLocked(styleLabel) < 0 {
		s.mu.Unlock()
		return s.Snapshot(), domain.ErrStyleNotGenerated
	}
	req := s.requestBaseLocked()
	req.Style = styleLabel
	epoch := s.epoch
	s.regenerating = styleLabel
	s.errMsg = ""
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)

	res, err := s.deps.Generator.Generate(context.WithoutCancel(ctx), req)

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		s.logger.Debug().Str("style", styleLabel).Msg("session: discarding regeneration finished after reset")
		return s.Snapshot(), domain.ErrStaleResult
	}
	s.regenerating = ""
	if err != nil {
		s.errMsg = domain.Message(s.locale, domain.MsgRegenerateFailed, styleLabel)
		snap = s.changedLocked()
		s.mu.Unlock()
		s.publish(snap)
		s.logger.Error().Err(err).Str("style", styleLabel).Msg("session: regeneration failed")
		return snap, err
	}
	idx := s.indexLocked(styleLabel)
	if idx < 0 {
		snap = s.changedLocked()
		s.mu.Unlock()
		s.publish(snap)
		return snap, domain.ErrStyleNotGenerated
	}
	old := s.generated[idx]
	fresh := &domain.GeneratedImage{Style: styleLabel, MIMEType: res.MIMEType, Data: res.Data}
	next := make([]*domain.GeneratedImage, len(s.generated))
	copy(next, s.generated)
	next[idx] = fresh
	s.generated = next
	if s.selected == old {
		s.selected = fresh
	}
	snap = s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
	return snap, nil
}

// Select points the selection at an existing generated entry.
func (s *Session) Select(styleLabel string) (Snapshot, error) {
	s.mu.Lock()
	idx := s.indexLocked(styleLabel)
	if idx < 0 {
		s.mu.Unlock()
		return Snapshot{}, domain.ErrStyleNotGenerated
	}
	s.selected = s.generated[idx]
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
	return snap, nil
}

// Reset returns the session to idle with default parameters. Calls still in
// flight complete but their results are ignored.
func (s *Session) Reset() Snapshot {
	s.mu.Lock()
	s.epoch++
	s.suggestSeq++
	s.analyzeSeq++
	s.assets = map[domain.Slot]*domain.UploadedImage{}
	s.params = domain.DefaultParams()
	s.strategy = nil
	s.modelOverride = false
	s.styles = nil
	s.styleLoading = false
	s.analyzing = false
	s.generating = false
	s.generatingSince = time.Time{}
	s.regenerating = ""
	s.generated = nil
	s.selected = nil
	s.advisory = ""
	s.errMsg = ""
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
	return snap
}

// Image returns the generated entry at index.
func (s *Session) Image(index int) (*domain.GeneratedImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.generated) {
		return nil, domain.ErrStyleNotGenerated
	}
	return s.generated[index], nil
}

// Images returns the current generated set. The slice must not be modified.
func (s *Session) Images() []*domain.GeneratedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generated
}

// Selected returns the selected entry or nil.
func (s *Session) Selected() *domain.GeneratedImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// WaitSuggestions blocks until every suggestion call started so far has
// completed.
func (s *Session) WaitSuggestions() {
	s.background.Wait()
}

func (s *Session) triggerSuggestionLocked() {
	s.suggestSeq++
	product := s.assets[domain.SlotProduct]
	if product == nil {
		s.styleLoading = false
		return
	}
	seq, epoch := s.suggestSeq, s.epoch
	req := style.Request{
		Product:       product,
		Model:         s.assets[domain.SlotModel],
		ReferenceText: s.params.ReferenceText,
		Locale:        s.locale,
	}
	s.styleLoading = true
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		res := s.deps.Suggester.Suggest(context.Background(), req)
		s.applySuggestion(seq, epoch, res)
	}()
}

func (s *Session) applySuggestion(seq, epoch uint64, res style.Result) {
	s.mu.Lock()
	if seq != s.suggestSeq || epoch != s.epoch {
		s.mu.Unlock()
		s.logger.Debug().Uint64("seq", seq).Msg("session: discarding stale suggestion")
		return
	}
	s.styleLoading = false
	s.styles = domain.TopStyles(res.Styles)
	if res.Fallback {
		s.advisory = domain.Message(s.locale, domain.MsgStyleFallback)
	} else {
		s.clearAdvisoryLocked(domain.MsgStyleFallback)
	}
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
}

func (s *Session) clearAdvisoryLocked(key domain.MessageKey) {
	if s.advisory == domain.Message(s.locale, key) {
		s.advisory = ""
	}
}

func (s *Session) requestBaseLocked() image.Request {
	return image.Request{
		Params:  s.params,
		Model:   s.assets[domain.SlotModel],
		Product: s.assets[domain.SlotProduct],
		Logo:    s.assets[domain.SlotLogo],
	}
}

func (s *Session) indexLocked(styleLabel string) int {
	for i, img := range s.generated {
		if img.Style == styleLabel {
			return i
		}
	}
	return -1
}

func (s *Session) changedLocked() Snapshot {
	s.version++
	s.updatedAt = s.deps.now()
	return s.snapshotLocked()
}

func (s *Session) publish(snap Snapshot) {
	if s.emit != nil {
		s.emit(snap)
	}
}
