package downloader

import (
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/alexmgee/patron-hub/internal/archive"
)

var mimeExtensions = map[string]string{
	"video/mp4":        "mp4",
	"video/webm":       "webm",
	"audio/mpeg":       "mp3",
	"audio/mp4":        "m4a",
	"audio/wav":        "wav",
	"audio/flac":       "flac",
	"image/jpeg":       "jpg",
	"image/png":        "png",
	"image/webp":       "webp",
	"image/gif":        "gif",
	"application/pdf":  "pdf",
	"text/plain":       "txt",
	"application/json": "json",
}

var hlsPattern = regexp.MustCompile(`(?i)\.m3u8(\?|$)`)

// IsHLS reports whether rawURL looks like an HLS manifest.
func IsHLS(rawURL string) bool {
	return hlsPattern.MatchString(rawURL)
}

// baseMime strips parameters and lowercases a Content-Type value.
func baseMime(contentType string) string {
	if contentType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
}

func ExtensionForMime(contentType string) string {
	return mimeExtensions[baseMime(contentType)]
}

func fileNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		return ""
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		return unescaped
	}
	return base
}

// ChooseFileName applies hint > URL path segment > "download".
func ChooseFileName(hint *string, rawURL string) string {
	if hint != nil && strings.TrimSpace(*hint) != "" {
		return archive.SanitizeFileName(*hint)
	}
	if fromURL := fileNameFromURL(rawURL); fromURL != "" {
		return archive.SanitizeFileName(fromURL)
	}
	return "download"
}

func ensureExtension(name, ext string) string {
	if ext == "" || path.Ext(name) != "" {
		return name
	}
	return name + "." + ext
}

func ensureVideoExtension(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".mp4", ".mkv", ".mov":
		return name
	case ".m3u8":
		return strings.TrimSuffix(name, path.Ext(name)) + ".mp4"
	}
	return name + ".mp4"
}
