package storage

import "errors"

var (
	ErrInvalidConfig          = errors.New("invalid storage configuration")
	ErrUnsupportedContentType = errors.New("unsupported avatar content type")
)
