package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidID           = errors.New("invalid id")
	ErrInvalidInput        = errors.New("invalid input")
	ErrNoCookie            = errors.New("patreon cookie is not configured")
	ErrSyncRunning         = errors.New("sync already running")
	ErrUnsupportedPlatform = errors.New("platform is not supported")
)
