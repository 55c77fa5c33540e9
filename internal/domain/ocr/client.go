package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"snapquiz-server-go/internal/domain/frame"
	platformerrors "snapquiz-server-go/internal/platform/errors"
	"snapquiz-server-go/internal/platform/logging"
)

const op = "ocr.recognize"

// Client submits frames to the hosted text-recognition service.
//
// An error return always means the call itself failed; a successfully parsed
// but empty text comes back as ("", nil) so the pipeline can tell a blank
// frame apart from a broken service.
type Client struct {
	endpoint   string
	language   string
	httpClient *http.Client
	logger     *logging.Logger
}

// Options configures the OCR client.
type Options struct {
	Endpoint string
	Language string
	Timeout  time.Duration
	Logger   *logging.Logger
}

func NewClient(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "ocr.new", "endpoint is required")
	}
	if opts.Language == "" {
		opts.Language = "eng"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   opts.Endpoint,
		language:   opts.Language,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     opts.Logger,
	}, nil
}

// Recognize uploads the frame and returns the first parsed result's text.
func (c *Client) Recognize(ctx context.Context, f *frame.Frame, apiKey string) (string, error) {
	if f == nil {
		return "", platformerrors.New(platformerrors.KindOCR, op, "nil frame")
	}
	if strings.TrimSpace(apiKey) == "" {
		return "", platformerrors.New(platformerrors.KindOCR, op, "missing API key")
	}

	body := &strings.Builder{}
	writer := multipart.NewWriter(body)
	fields := map[string]string{
		"base64Image": f.DataURI,
		"apikey":      apiKey,
		"language":    c.language,
		"isTable":     "false",
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return "", platformerrors.Wrap(platformerrors.KindOCR, op, "build multipart form", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", platformerrors.Wrap(platformerrors.KindOCR, op, "finalize multipart form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body.String()))
	if err != nil {
		return "", platformerrors.Wrap(platformerrors.KindOCR, op, "build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", platformerrors.Wrap(platformerrors.KindOCR, op, "submit image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", platformerrors.New(platformerrors.KindOCR, op,
			fmt.Sprintf("recognition service returned status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", platformerrors.Wrap(platformerrors.KindOCR, op, "read response body", err)
	}

	var parsed parseResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", platformerrors.Wrap(platformerrors.KindOCR, op, "decode response body", err)
	}

	if parsed.IsErroredOnProcessing {
		return "", platformerrors.New(platformerrors.KindOCR, op,
			fmt.Sprintf("recognition failed: %s", parsed.errorText()))
	}
	if len(parsed.ParsedResults) == 0 {
		return "", platformerrors.New(platformerrors.KindOCR, op, "response contains no parsed results")
	}

	text := parsed.ParsedResults[0].ParsedText
	if c.logger != nil {
		c.logger.DebugTag("OCR", "recognized %d characters", len(text))
	}
	return text, nil
}
