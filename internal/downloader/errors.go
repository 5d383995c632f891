package downloader

import (
	"errors"
	"fmt"
)

var ErrTooManyRedirects = errors.New("too many redirects")

// AuthError is returned when a trusted host answers with an HTML page instead
// of the requested file, which is how an expired session shows up.
type AuthError struct {
	URL     string
	Snippet string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("download returned an HTML page instead of a file for %s (session cookie missing or expired?): %s", e.URL, e.Snippet)
}

type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download failed (%d) for %s", e.StatusCode, e.URL)
}

type MuxerError struct {
	Err error
}

func (e *MuxerError) Error() string {
	return fmt.Sprintf("HLS download failed via ffmpeg. Ensure ffmpeg is installed and URL is accessible. %v", e.Err)
}

func (e *MuxerError) Unwrap() error {
	return e.Err
}
