// Package archive defines the on-disk layout of archived content:
// {root}/{platform}/{creatorSlug}/{yyyy-MM}/{title}/.
package archive

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/alexmgee/patron-hub/internal/domain"
)

const (
	SnapshotFileName = "post.html"
	SnapshotFileType = "snapshot"
	SnapshotMimeType = "text/html; charset=utf-8"

	maxNameLength = 100
)

var (
	invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots     = regexp.MustCompile(`\.+$`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
	underscoreRun    = regexp.MustCompile(`_+`)
)

// SanitizeFileName makes name safe as a single path element on common filesystems.
func SanitizeFileName(name string) string {
	s := invalidNameChars.ReplaceAllString(name, "_")
	s = trailingDots.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = whitespaceRun.ReplaceAllString(s, "_")
	s = underscoreRun.ReplaceAllString(s, "_")
	if r := []rune(s); len(r) > maxNameLength {
		s = string(r[:maxNameLength])
	}
	if s == "" || s == "_" {
		return "untitled"
	}
	return s
}

// ContentTypeFromExtension classifies a file name or URL path by extension.
func ContentTypeFromExtension(name string) domain.ContentType {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".") {
	case "mp4", "webm", "mkv", "avi", "mov", "m4v":
		return domain.ContentVideo
	case "jpg", "jpeg", "png", "gif", "webp", "bmp", "svg":
		return domain.ContentImage
	case "mp3", "wav", "flac", "aac", "m4a", "ogg":
		return domain.ContentAudio
	case "pdf":
		return domain.ContentPDF
	case "html", "htm", "md", "txt":
		return domain.ContentArticle
	}
	return domain.ContentAttachment
}

// FallbackExtension is used when nothing better is known about a download.
func FallbackExtension(ct domain.ContentType) string {
	switch ct {
	case domain.ContentPDF:
		return "pdf"
	case domain.ContentVideo:
		return "mp4"
	case domain.ContentAudio:
		return "mp3"
	case domain.ContentImage:
		return "jpg"
	case domain.ContentArticle:
		return "html"
	default:
		return "bin"
	}
}

// ContentDir returns the per-item directory. A missing publish date falls back to now.
func ContentDir(root string, target domain.ArchiveTarget, now time.Time) string {
	published := now
	if target.Item.PublishedAt != nil {
		published = *target.Item.PublishedAt
	}
	return filepath.Join(
		root,
		string(target.Platform),
		target.CreatorSlug,
		published.UTC().Format("2006-01"),
		SanitizeFileName(target.Item.Title),
	)
}

// RelativePath returns p relative to root using forward slashes, or p unchanged
// when it lies outside root.
func RelativePath(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.ToSlash(rel)
}
