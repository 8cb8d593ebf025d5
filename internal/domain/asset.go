package domain

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// Slot names one of the three image inputs of a session.
type Slot string

const (
	SlotModel   Slot = "model"
	SlotProduct Slot = "product"
	SlotLogo    Slot = "logo"
)

// DefaultMaxUploadBytes bounds a single uploaded image.
const DefaultMaxUploadBytes = 10 << 20

var acceptedImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/webp": {},
}

// ParseSlot validates a slot name.
func ParseSlot(raw string) (Slot, error) {
	switch s := Slot(strings.ToLower(strings.TrimSpace(raw))); s {
	case SlotModel, SlotProduct, SlotLogo:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown slot %q", ErrInvalidAsset, raw)
}

// UploadedImage is an image held in a session slot. It has no identity
// beyond the slot it occupies.
type UploadedImage struct {
	Slot     Slot
	Filename string
	MIMEType string
	Data     []byte
}

// Base64 returns the standard base64 encoding of the payload.
func (u *UploadedImage) Base64() string {
	if u == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(u.Data)
}

// DecodeUpload validates raw bytes for a slot. The MIME type is sniffed from
// the payload; the declared type is used only when sniffing is inconclusive.
func DecodeUpload(slot Slot, filename, declaredMIME string, data []byte) (*UploadedImage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidAsset)
	}
	mime := sniffImageType(data, declaredMIME)
	if _, ok := acceptedImageTypes[mime]; !ok {
		return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidAsset, mime)
	}
	return &UploadedImage{
		Slot:     slot,
		Filename: strings.TrimSpace(filename),
		MIMEType: mime,
		Data:     data,
	}, nil
}

// DecodeBase64Upload accepts either bare base64 or a data URL.
func DecodeBase64Upload(slot Slot, filename, declaredMIME, encoded string) (*UploadedImage, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		header, payload, ok := strings.Cut(encoded, ",")
		if !ok {
			return nil, fmt.Errorf("%w: malformed data url", ErrInvalidAsset)
		}
		if declaredMIME == "" {
			declaredMIME = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		}
		encoded = payload
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}
	return DecodeUpload(slot, filename, declaredMIME, data)
}

func sniffImageType(data []byte, declared string) string {
	sniffed := http.DetectContentType(data)
	if _, ok := acceptedImageTypes[sniffed]; ok {
		return sniffed
	}
	if sniffed == "application/octet-stream" {
		return strings.ToLower(strings.TrimSpace(declared))
	}
	return sniffed
}
