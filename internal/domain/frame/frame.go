package frame

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	platformerrors "snapquiz-server-go/internal/platform/errors"
)

// ErrNoFrame is returned by sources when no usable still is available. The
// pipeline reports this as a camera failure, not as a fatal error.
var ErrNoFrame = errors.New("no frame available")

// Frame is one captured still, held as a data URI so it can be handed to the
// recognition service unchanged.
type Frame struct {
	DataURI    string
	Format     string
	Size       int64
	CapturedAt time.Time
}

// Source yields the most recent still image on demand.
type Source interface {
	Still(ctx context.Context) (*Frame, error)
}

// Limits bounds accepted frame payloads.
type Limits struct {
	MaxBytes  int64
	MaxWidth  int
	MaxHeight int
}

// DefaultLimits mirrors the upload caps of the web surface.
func DefaultLimits() Limits {
	return Limits{
		MaxBytes:  5 * 1024 * 1024,
		MaxWidth:  8192,
		MaxHeight: 8192,
	}
}

// FromBytes validates raw image bytes and wraps them into a Frame. The format
// is sniffed from the payload; the declared format (if any) only has to match
// when both are known.
func FromBytes(data []byte, declaredFormat string, limits Limits, capturedAt time.Time) (*Frame, error) {
	if len(data) == 0 {
		return nil, platformerrors.New(platformerrors.KindCapture, "frame.from_bytes", "empty image payload")
	}
	if limits.MaxBytes > 0 && int64(len(data)) > limits.MaxBytes {
		return nil, platformerrors.New(platformerrors.KindCapture, "frame.from_bytes",
			fmt.Sprintf("image exceeds maximum size of %d bytes", limits.MaxBytes))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindCapture, "frame.from_bytes", "undecodable image payload", err)
	}
	if declaredFormat != "" && !strings.EqualFold(declaredFormat, format) {
		return nil, platformerrors.New(platformerrors.KindCapture, "frame.from_bytes",
			fmt.Sprintf("declared format %s does not match payload format %s", declaredFormat, format))
	}
	if limits.MaxWidth > 0 && cfg.Width > limits.MaxWidth {
		return nil, platformerrors.New(platformerrors.KindCapture, "frame.from_bytes",
			fmt.Sprintf("image width %d exceeds limit %d", cfg.Width, limits.MaxWidth))
	}
	if limits.MaxHeight > 0 && cfg.Height > limits.MaxHeight {
		return nil, platformerrors.New(platformerrors.KindCapture, "frame.from_bytes",
			fmt.Sprintf("image height %d exceeds limit %d", cfg.Height, limits.MaxHeight))
	}

	uri := fmt.Sprintf("data:image/%s;base64,%s", format, base64.StdEncoding.EncodeToString(data))
	return &Frame{
		DataURI:    uri,
		Format:     format,
		Size:       int64(len(data)),
		CapturedAt: capturedAt,
	}, nil
}

// FromDataURI parses a browser-produced data URI and validates the payload.
func FromDataURI(uri string, limits Limits, capturedAt time.Time) (*Frame, error) {
	const prefix = "data:"
	if !strings.HasPrefix(uri, prefix) {
		return nil, platformerrors.New(platformerrors.KindCapture, "frame.from_data_uri", "not a data URI")
	}
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, platformerrors.New(platformerrors.KindCapture, "frame.from_data_uri", "malformed data URI")
	}
	meta := uri[len(prefix):comma]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, platformerrors.New(platformerrors.KindCapture, "frame.from_data_uri", "data URI is not base64 encoded")
	}

	declared := ""
	if mime := strings.TrimSuffix(meta, ";base64"); strings.HasPrefix(mime, "image/") {
		declared = strings.TrimPrefix(mime, "image/")
		if declared == "jpg" {
			declared = "jpeg"
		}
	}

	data, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindCapture, "frame.from_data_uri", "decode base64 payload", err)
	}
	return FromBytes(data, declared, limits, capturedAt)
}
