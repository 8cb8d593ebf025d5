package handlers

import (
	"net/http"

	"brandstudio/internal/domain"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"locales": domain.SupportedLocales(),
	})
}
