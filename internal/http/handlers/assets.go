package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"brandstudio/internal/domain"
)

type uploadRequest struct {
	Data     string `json:"data"`
	MIMEType string `json:"mime_type"`
	Filename string `json:"filename"`
}

// PutAsset stores an image in a slot. It accepts multipart/form-data with a
// "file" field or a JSON body carrying base64 data.
func (a *App) PutAsset(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	slot, err := domain.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		a.fail(w, r, err, "", nil)
		return
	}
	img, err := a.readUpload(w, r, slot)
	if err != nil {
		a.fail(w, r, err, "", nil)
		return
	}
	a.Logger.Debug().Str("session", s.ID()).Str("slot", string(slot)).Str("mime", img.MIMEType).Int("bytes", len(img.Data)).Msg("handlers: asset uploaded")
	a.json(w, http.StatusOK, s.SetAsset(slot, img))
}

func (a *App) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	slot, err := domain.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		a.fail(w, r, err, "", nil)
		return
	}
	a.json(w, http.StatusOK, s.ClearAsset(slot))
}

func (a *App) readUpload(w http.ResponseWriter, r *http.Request, slot domain.Slot) (*domain.UploadedImage, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "multipart/form-data":
		// room for the multipart envelope around the file
		r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+1<<20)
		if err := r.ParseMultipartForm(a.MaxUploadBytes); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAsset, err)
		}
		defer r.MultipartForm.RemoveAll()
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: missing file field", domain.ErrInvalidAsset)
		}
		defer file.Close()
		data, err := a.readLimited(file)
		if err != nil {
			return nil, err
		}
		return domain.DecodeUpload(slot, header.Filename, header.Header.Get("Content-Type"), data)

	case mediaType == "application/json" || mediaType == "":
		// base64 grows the payload by a third
		r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes*4/3+4<<10)
		var req uploadRequest
		if err := decodeJSON(r, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAsset, err)
		}
		img, err := domain.DecodeBase64Upload(slot, req.Filename, req.MIMEType, req.Data)
		if err != nil {
			return nil, err
		}
		if int64(len(img.Data)) > a.MaxUploadBytes {
			return nil, fmt.Errorf("%w: payload exceeds %d bytes", domain.ErrInvalidAsset, a.MaxUploadBytes)
		}
		return img, nil

	case strings.HasPrefix(mediaType, "image/"):
		r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+1)
		data, err := a.readLimited(r.Body)
		if err != nil {
			return nil, err
		}
		return domain.DecodeUpload(slot, r.URL.Query().Get("filename"), mediaType, data)
	}
	return nil, fmt.Errorf("%w: unsupported content type %q", domain.ErrInvalidAsset, mediaType)
}

func (a *App) readLimited(src io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(src, a.MaxUploadBytes+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: payload exceeds %d bytes", domain.ErrInvalidAsset, a.MaxUploadBytes)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAsset, err)
	}
	if int64(len(data)) > a.MaxUploadBytes {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", domain.ErrInvalidAsset, a.MaxUploadBytes)
	}
	return data, nil
}
