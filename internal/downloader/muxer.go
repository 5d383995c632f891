package downloader

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// MediaMuxer copies a streaming manifest into a single local container file.
type MediaMuxer interface {
	Mux(ctx context.Context, sourceURL, outputPath string) error
}

// FFmpegMuxer shells out to ffmpeg with stream copy, no re-encode.
type FFmpegMuxer struct {
	Path string
}

func NewFFmpegMuxer(path string) *FFmpegMuxer {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegMuxer{Path: path}
}

func (m *FFmpegMuxer) Mux(ctx context.Context, sourceURL, outputPath string) error {
	cmd := exec.CommandContext(ctx, m.Path,
		"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
		"-i", sourceURL,
		"-c", "copy",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
