// Package media stores location media in Cloudinary and signs direct
// browser uploads.
package media

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// ErrNotConfigured is returned when object storage credentials are absent.
var ErrNotConfigured = errors.New("media storage is not configured")

// Field names a location media slot.
type Field string

const (
	FieldImages  Field = "images"
	FieldAudio   Field = "audio"
	FieldVideo   Field = "video"
	FieldView360 Field = "view360"
)

// Fields lists every media slot in upload order.
var Fields = []Field{FieldImages, FieldAudio, FieldVideo, FieldView360}

// UploadOptions controls where an asset lands.
type UploadOptions struct {
	Folder       string
	ResourceType string
	Filename     string
}

// Uploader stores one asset and returns its public https URL.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, opts UploadOptions) (string, error)
}

// OptionsFor returns the storage folder and resource type for a media slot.
// Audio is stored under Cloudinary's "video" resource type.
func OptionsFor(field Field, filename string) UploadOptions {
	opts := UploadOptions{Folder: "locations/" + string(field), Filename: filename}
	switch field {
	case FieldAudio, FieldVideo:
		opts.ResourceType = "video"
	case FieldView360:
		if isVideoExt(filepath.Ext(filename)) {
			opts.ResourceType = "video"
		} else {
			opts.ResourceType = "image"
		}
	default:
		opts.ResourceType = "image"
	}
	return opts
}

var allowedExt = map[Field][]string{
	FieldImages:  {".jpg", ".jpeg", ".png", ".gif"},
	FieldAudio:   {".mp3", ".wav", ".ogg"},
	FieldVideo:   {".mp4", ".webm", ".mov"},
	FieldView360: {".jpg", ".jpeg", ".png", ".gif", ".mp4", ".webm"},
}

// AllowedExtension reports whether filename has an extension accepted for field.
func AllowedExtension(field Field, filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range allowedExt[field] {
		if e == ext {
			return true
		}
	}
	return false
}

// Extensions lists the accepted extensions for field.
func Extensions(field Field) []string {
	return allowedExt[field]
}

func isVideoExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".mp4", ".webm", ".mov":
		return true
	}
	return false
}

// Disabled rejects every upload. Used when credentials are not configured.
type Disabled struct{}

func (Disabled) Upload(context.Context, io.Reader, UploadOptions) (string, error) {
	return "", ErrNotConfigured
}
