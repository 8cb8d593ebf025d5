package domain

import "errors"

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrInvalidAsset         = errors.New("invalid asset")
	ErrInvalidParams        = errors.New("invalid params")
	ErrEmptyArticle         = errors.New("empty article")
	ErrProductRequired      = errors.New("product image required")
	ErrNoStyles             = errors.New("no suggested styles")
	ErrStyleNotGenerated    = errors.New("style not generated")
	ErrBatchInFlight        = errors.New("batch generation in flight")
	ErrRegenerationInFlight = errors.New("regeneration in flight")
	ErrBatchFailed          = errors.New("batch generation failed")
	ErrNoImageReturned      = errors.New("branded image generation failed to return an image")
	ErrProviderFailure      = errors.New("provider failure")
	ErrStaleResult          = errors.New("result discarded after reset")
	ErrNoImages             = errors.New("no generated images")
)
