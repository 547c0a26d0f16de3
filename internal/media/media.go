// Package media stores user-supplied images (avatars and blog thumbnails) in
// an S3-compatible object store and hands back their public URLs.
package media

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrUnavailable is returned by Upload when no object store is configured.
	ErrUnavailable = errors.New("media: object storage is not configured")
	// ErrTooLarge is returned when an upload exceeds the size limit.
	ErrTooLarge = errors.New("media: file is too large")
	// ErrUnsupportedType is returned when the content is not an accepted image.
	ErrUnsupportedType = errors.New("media: unsupported file type")
	// ErrForeignURL is returned by Remove for URLs this host did not issue.
	ErrForeignURL = errors.New("media: url was not issued by this host")
)

// File is an upload in flight. Name is the client-supplied filename and is
// used for logging only; the stored object name is generated.
type File struct {
	Name   string
	Reader io.Reader
}

// Host uploads files and removes them again by URL.
type Host interface {
	Upload(ctx context.Context, f File) (string, error)
	Remove(ctx context.Context, url string) error
}

// allowedTypes maps accepted sniffed content types to object key extensions.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Unavailable is the Host used when no bucket is configured. Uploads fail
// with ErrUnavailable and removals succeed without doing anything.
type Unavailable struct{}

var _ Host = Unavailable{}

func (Unavailable) Upload(context.Context, File) (string, error) { return "", ErrUnavailable }

func (Unavailable) Remove(context.Context, string) error { return nil }
