package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"brandstudio/internal/domain"
	"brandstudio/internal/middleware"
	"brandstudio/internal/session"
)

// Sessions is the part of the session manager the handlers use.
type Sessions interface {
	Create(locale string) *session.Session
	Get(id string) (*session.Session, error)
	Delete(id string) error
	Hub() *session.Hub
}

type App struct {
	Sessions       Sessions
	Logger         zerolog.Logger
	MaxUploadBytes int64
	AllowedOrigins []string
	Now            func() time.Time
	// LoadingRefresh is how often a running batch's snapshot is re-sent on
	// the event stream.
	LoadingRefresh time.Duration
}

func NewApp(sessions Sessions, logger zerolog.Logger, maxUploadBytes int64, allowedOrigins []string) *App {
	if maxUploadBytes <= 0 {
		maxUploadBytes = domain.DefaultMaxUploadBytes
	}
	return &App{
		Sessions:       sessions,
		Logger:         logger,
		MaxUploadBytes: maxUploadBytes,
		AllowedOrigins: allowedOrigins,
		Now:            time.Now,
		LoadingRefresh: session.LoadingMessageInterval,
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Error   apiError          `json:"error"`
	Session *session.Snapshot `json:"session,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, msg string) {
	a.json(w, status, errorBody{Error: apiError{Code: code, Message: msg}})
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

type errorClass struct {
	err    error
	status int
	code   string
	key    domain.MessageKey
}

// errorClasses is checked in order; ErrBatchFailed wraps the provider error
// of the failed call, so it must come before the provider sentinels.
var errorClasses = []errorClass{
	{domain.ErrSessionNotFound, http.StatusNotFound, "session_not_found", domain.MsgSessionNotFound},
	{domain.ErrInvalidAsset, http.StatusBadRequest, "invalid_asset", domain.MsgInvalidAsset},
	{domain.ErrInvalidParams, http.StatusBadRequest, "invalid_params", domain.MsgInvalidParams},
	{domain.ErrEmptyArticle, http.StatusUnprocessableEntity, "empty_article", domain.MsgEmptyArticle},
	{domain.ErrProductRequired, http.StatusUnprocessableEntity, "product_required", domain.MsgProductRequired},
	{domain.ErrNoStyles, http.StatusUnprocessableEntity, "no_styles", domain.MsgNoStyles},
	{domain.ErrStyleNotGenerated, http.StatusUnprocessableEntity, "style_not_generated", domain.MsgStyleNotGenerated},
	{domain.ErrNoImages, http.StatusNotFound, "no_images", domain.MsgNoImages},
	{domain.ErrBatchInFlight, http.StatusConflict, "batch_in_flight", domain.MsgBatchInFlight},
	{domain.ErrRegenerationInFlight, http.StatusConflict, "regeneration_in_flight", domain.MsgRegenInFlight},
	{domain.ErrStaleResult, http.StatusConflict, "stale_result", domain.MsgStaleResult},
	{domain.ErrBatchFailed, http.StatusBadGateway, "batch_failed", domain.MsgBatchFailed},
	{domain.ErrNoImageReturned, http.StatusBadGateway, "no_image_returned", domain.MsgRegenerateFailed},
	{domain.ErrProviderFailure, http.StatusBadGateway, "provider_failure", domain.MsgRegenerateFailed},
}

// fail maps a domain error onto the JSON error envelope. style is used by
// messages that name a style; snap, when non-nil, is attached so the client
// can render the state the failure left behind.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error, style string, snap *session.Snapshot) {
	locale := middleware.LocaleFromContext(r.Context())
	for _, c := range errorClasses {
		if !errors.Is(err, c.err) {
			continue
		}
		var msg string
		switch c.key {
		case domain.MsgStyleNotGenerated, domain.MsgRegenerateFailed:
			msg = domain.Message(locale, c.key, style)
		default:
			msg = domain.Message(locale, c.key)
		}
		if c.status >= http.StatusInternalServerError {
			a.Logger.Error().Err(err).Str("request_id", middleware.RequestIDFromContext(r.Context())).Msg("handlers: upstream failure")
		}
		a.json(w, c.status, errorBody{Error: apiError{Code: c.code, Message: msg}, Session: snap})
		return
	}
	a.Logger.Error().Err(err).Str("request_id", middleware.RequestIDFromContext(r.Context())).Msg("handlers: unexpected error")
	a.error(w, http.StatusInternalServerError, "internal", domain.Message(locale, domain.MsgInternal))
}

// session resolves the {id} path parameter.
func (a *App) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := a.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, "", nil)
		return nil, false
	}
	return s, true
}

// decodeJSON decodes an optional JSON body. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
