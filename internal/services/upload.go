package services

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"

	"go.uber.org/zap"
)

// Upload failure modes surfaced to callers.
var (
	ErrUnsupportedType = errors.New("file must be an image (JPEG, PNG, GIF, or WebP)")
	ErrTooLarge        = errors.New("file size max is 5MB")
)

// MaxUploadBytes bounds the accepted upload size.
const MaxUploadBytes = 5 * 1024 * 1024

const (
	maxUploadWidth  = 1920
	maxUploadHeight = 1080
	jpegQuality     = 70
)

// UploadServiceConfig describes the dependencies of the upload service.
type UploadServiceConfig struct {
	Logger *zap.Logger
}

// UploadService validates raw image uploads and re-encodes them into a
// bounded JPEG data URL ready to store on a meme record.
type UploadService struct {
	logger *zap.Logger
}

// NewUploadService constructs the upload service.
func NewUploadService(cfg UploadServiceConfig) *UploadService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{logger: logger}
}

// ValidateImage checks size and sniffed content type without decoding.
func (s *UploadService) ValidateImage(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty upload", ErrUnsupportedType)
	}
	if len(data) > MaxUploadBytes {
		return ErrTooLarge
	}
	switch http.DetectContentType(data) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return nil
	default:
		return ErrUnsupportedType
	}
}

// ProcessImage validates the upload and returns a data URL. JPEG, PNG, and
// GIF inputs are downscaled to fit 1920x1080 and re-encoded as JPEG; WebP is
// passed through untouched since it is already compressed.
func (s *UploadService) ProcessImage(data []byte) (string, error) {
	if err := s.ValidateImage(data); err != nil {
		return "", err
	}

	contentType := http.DetectContentType(data)
	if contentType == "image/webp" {
		return dataURL(contentType, data), nil
	}

	decoded, err := decodeImage(contentType, data)
	if err != nil {
		// Sniffed as an image but undecodable; keep the original bytes
		// the way the browser fallback did.
		s.logger.Warn("image re-encode skipped", zap.String("content_type", contentType), zap.Error(err))
		return dataURL(contentType, data), nil
	}

	scaled := downscale(decoded, maxUploadWidth, maxUploadHeight)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", err
	}
	return dataURL("image/jpeg", buf.Bytes()), nil
}

func decodeImage(contentType string, data []byte) (image.Image, error) {
	reader := bytes.NewReader(data)
	switch contentType {
	case "image/jpeg":
		return jpeg.Decode(reader)
	case "image/png":
		return png.Decode(reader)
	case "image/gif":
		return gif.Decode(reader)
	default:
		return nil, fmt.Errorf("no decoder for %s", contentType)
	}
}

// downscale resizes the image to fit within the bounds, preserving aspect
// ratio. Images already inside the bounds are returned as is.
func downscale(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= maxWidth && height <= maxHeight {
		return src
	}

	targetWidth := width
	targetHeight := height
	if width > height {
		targetWidth = maxWidth
		targetHeight = height * maxWidth / width
	} else {
		targetHeight = maxHeight
		targetWidth = width * maxHeight / height
	}
	if targetWidth < 1 {
		targetWidth = 1
	}
	if targetHeight < 1 {
		targetHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	for y := 0; y < targetHeight; y++ {
		srcY := bounds.Min.Y + y*height/targetHeight
		for x := 0; x < targetWidth; x++ {
			srcX := bounds.Min.X + x*width/targetWidth
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}
	return dst
}

func dataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
