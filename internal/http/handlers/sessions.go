package handlers

import (
	"net/http"

	"brandstudio/internal/domain"
	"brandstudio/internal/middleware"
)

func (a *App) badRequest(w http.ResponseWriter, r *http.Request) {
	a.error(w, http.StatusBadRequest, "bad_request", domain.Message(middleware.LocaleFromContext(r.Context()), domain.MsgInvalidParams))
}

func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := a.Sessions.Create(middleware.LocaleFromContext(r.Context()))
	w.Header().Set("Location", "/v1/sessions/"+s.ID())
	a.json(w, http.StatusCreated, s.Snapshot())
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, s.Snapshot())
}

func (a *App) DeleteSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	if err := a.Sessions.Delete(s.ID()); err != nil {
		a.fail(w, r, err, "", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) UpdateParams(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var patch domain.ParamsPatch
	if err := decodeJSON(r, &patch); err != nil {
		a.badRequest(w, r)
		return
	}
	snap, err := s.UpdateParams(patch)
	if err != nil {
		a.fail(w, r, err, "", nil)
		return
	}
	a.json(w, http.StatusOK, snap)
}

type modelOverrideRequest struct {
	Enabled bool `json:"enabled"`
}

func (a *App) SetModelOverride(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req modelOverrideRequest
	if err := decodeJSON(r, &req); err != nil {
		a.badRequest(w, r)
		return
	}
	a.json(w, http.StatusOK, s.SetModelUploadOverride(req.Enabled))
}

type analyzeRequest struct {
	Article *string `json:"article"`
}

// Analyze runs the strategy analyzer. The body is optional; without an
// article the session's current reference text is analyzed.
func (a *App) Analyze(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		a.badRequest(w, r)
		return
	}
	snap, err := s.Analyze(r.Context(), req.Article)
	if err != nil {
		a.fail(w, r, err, "", nil)
		return
	}
	a.json(w, http.StatusOK, snap)
}

// RefreshStyles answers immediately with style_loading set; the suggestion
// lands later and is pushed over the event stream.
func (a *App) RefreshStyles(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	snap, err := s.RefreshStyles()
	if err != nil {
		a.fail(w, r, err, "", nil)
		return
	}
	a.json(w, http.StatusAccepted, snap)
}

func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	snap, err := s.Generate(r.Context())
	if err != nil {
		a.fail(w, r, err, "", &snap)
		return
	}
	a.json(w, http.StatusOK, snap)
}

type styleRequest struct {
	Style string `json:"style"`
}

func (a *App) Regenerate(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req styleRequest
	if err := decodeJSON(r, &req); err != nil || req.Style == "" {
		a.badRequest(w, r)
		return
	}
	snap, err := s.Regenerate(r.Context(), req.Style)
	if err != nil {
		a.fail(w, r, err, req.Style, &snap)
		return
	}
	a.json(w, http.StatusOK, snap)
}

func (a *App) Select(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req styleRequest
	if err := decodeJSON(r, &req); err != nil || req.Style == "" {
		a.badRequest(w, r)
		return
	}
	snap, err := s.Select(req.Style)
	if err != nil {
		a.fail(w, r, err, req.Style, nil)
		return
	}
	a.json(w, http.StatusOK, snap)
}

func (a *App) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, s.Reset())
}
