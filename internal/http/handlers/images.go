package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"brandstudio/internal/domain"
	"brandstudio/internal/session"
	"brandstudio/pkg/zip"
)

// DownloadImage streams one generated image as an attachment.
func (a *App) DownloadImage(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.badRequest(w, r)
		return
	}
	img, err := s.Image(index)
	if err != nil {
		a.fail(w, r, domain.ErrNoImages, "", nil)
		return
	}
	name := session.DownloadName(img.Style, a.now(), img.MIMEType)
	w.Header().Set("Content-Type", contentType(img.MIMEType))
	w.Header().Set("Content-Disposition", attachment(name))
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

// ImagesZip bundles every generated image of the session.
func (a *App) ImagesZip(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	images := s.Images()
	if len(images) == 0 {
		a.fail(w, r, domain.ErrNoImages, "", nil)
		return
	}
	at := a.now()
	assets := make([]zip.Asset, 0, len(images))
	for _, img := range images {
		assets = append(assets, zip.Asset{
			Filename: session.DownloadName(img.Style, at, img.MIMEType),
			MIME:     img.MIMEType,
			Data:     img.Data,
		})
	}
	archive, err := zip.ArchiveAssets(assets, at)
	if err != nil {
		a.fail(w, r, err, "", nil)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", attachment("brand-images-"+strconv.FormatInt(at.UnixMilli(), 10)+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func contentType(m string) string {
	if m == "" {
		return "image/jpeg"
	}
	return m
}

// attachment encodes non-ASCII style names per RFC 2231.
func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
