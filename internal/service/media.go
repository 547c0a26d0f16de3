package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jenilmangukiya/blog-backend/internal/apperror"
	"github.com/jenilmangukiya/blog-backend/internal/media"
)

// upload stores f on host, translating rejections of the file itself into
// validation errors on field and anything else into Internal.
func upload(ctx context.Context, host media.Host, logger *slog.Logger, field string, f media.File) (string, error) {
	url, err := host.Upload(ctx, f)
	if err == nil {
		return url, nil
	}

	switch {
	case errors.Is(err, media.ErrTooLarge):
		return "", apperror.ValidationFailed(field, "file is too large")
	case errors.Is(err, media.ErrUnsupportedType):
		return "", apperror.ValidationFailed(field, "file must be a jpeg, png, gif or webp image")
	}

	logger.Error("media upload failed",
		slog.String("field", field),
		slog.String("filename", f.Name),
		slog.String("error", err.Error()),
	)
	return "", apperror.Internal("error while uploading "+field, err)
}

// removeQuietly deletes url from host. Failures are logged and dropped: a
// stale object in the bucket never fails the request that orphaned it.
func removeQuietly(ctx context.Context, host media.Host, logger *slog.Logger, url string) {
	if url == "" {
		return
	}
	if err := host.Remove(ctx, url); err != nil {
		logger.Warn("media cleanup failed",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}
}
