package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"vexillum/internal/middleware"
	"vexillum/internal/models"
	"vexillum/internal/storage"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMaxUploadMB = 16
	ThumbnailMaxWidth  = 480
	WebPQuality        = 70
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// UploadImageInput is a raw upload as received from a multipart form.
type UploadImageInput struct {
	Filename string
	Content  []byte
}

// StoredImage references a saved upload and its optional thumbnail.
type StoredImage struct {
	Ref          string
	ThumbnailRef string
	Width        int
	Height       int
}

// ImageService validates uploads and writes them to the storage backend.
type ImageService struct {
	store              storage.Store
	maxUploadSizeBytes int64
}

// NewImageService wraps store. maxUploadMB <= 0 selects the default.
func NewImageService(store storage.Store, maxUploadMB int) *ImageService {
	if maxUploadMB <= 0 {
		maxUploadMB = DefaultMaxUploadMB
	}
	return &ImageService{
		store:              store,
		maxUploadSizeBytes: int64(maxUploadMB) * 1024 * 1024,
	}
}

// Save validates the upload, stores it under a fresh unique name and
// stores a webp thumbnail when the image is wider than ThumbnailMaxWidth.
// A failed thumbnail is logged and otherwise ignored.
func (s *ImageService) Save(ctx context.Context, in UploadImageInput) (*StoredImage, error) {
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}
	ext := strings.ToLower(filepath.Ext(in.Filename))
	if !allowedExtensions[ext] {
		return nil, models.NewValidationError("Allowed image types are png, jpg, jpeg, gif and webp")
	}
	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return nil, models.NewValidationError("Unsupported image format")
	}

	name := storage.UniqueName(in.Filename)
	ref, err := s.store.Store(ctx, in.Content, name)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	b := decoded.Bounds()
	stored := &StoredImage{Ref: ref, Width: b.Dx(), Height: b.Dy()}

	if b.Dx() > ThumbnailMaxWidth {
		thumbName := strings.TrimSuffix(name, filepath.Ext(name)) + "_thumb.webp"
		thumbRef, thumbErr := s.storeThumbnail(ctx, decoded, thumbName)
		if thumbErr != nil {
			middleware.Logger.WarnContext(ctx, "thumbnail generation failed",
				slog.String("ref", ref),
				slog.String("error", thumbErr.Error()),
			)
		} else {
			stored.ThumbnailRef = thumbRef
		}
	}
	return stored, nil
}

func (s *ImageService) storeThumbnail(ctx context.Context, src image.Image, name string) (string, error) {
	thumb := resizeToWidth(src, ThumbnailMaxWidth)
	encoded, err := encodeWebP(thumb, WebPQuality)
	if err != nil {
		return "", err
	}
	return s.store.Store(ctx, encoded, name)
}

// Delete removes stored objects, logging failures. Empty refs are skipped.
func (s *ImageService) Delete(ctx context.Context, refs ...string) {
	for _, ref := range refs {
		if strings.TrimSpace(ref) == "" {
			continue
		}
		if err := s.store.Delete(ctx, ref); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to delete stored image",
				slog.String("ref", ref),
				slog.String("error", err.Error()),
			)
		}
	}
}

// URL is the public address of a stored object, or "" for an empty ref.
func (s *ImageService) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.store.URL(ref)
}

func resizeToWidth(src image.Image, maxWidth int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth || w <= 0 || h <= 0 {
		return src
	}
	newH := int(float64(h) * float64(maxWidth) / float64(w))
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}
