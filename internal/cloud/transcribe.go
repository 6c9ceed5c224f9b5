package cloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rbright/murmur/internal/session"
)

// Transcribe uploads asset to {base}/audio/transcriptions.
func (c *Client) Transcribe(ctx context.Context, asset session.Asset, language string) (string, error) {
	body, contentType, err := transcriptionForm(asset.Path, c.cfg.TranscribeModel, language)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/audio/transcriptions"), body)
	if err != nil {
		return "", fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	raw, err := c.do(req)
	if err != nil {
		return "", err
	}

	text, ok := extractText(raw, c.cfg.TextPath)
	if !ok {
		return "", invalidResponse("transcription response has no string at %q: %s", c.cfg.TextPath, truncate(raw, 256))
	}
	return strings.TrimSpace(text), nil
}

func transcriptionForm(path, model, language string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open audio asset: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy audio asset: %w", err)
	}

	fields := [][2]string{{"model", model}, {"response_format", "json"}}
	if lang := session.BaseLanguage(language); lang != "" {
		fields = append(fields, [2]string{"language", lang})
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", field[0], err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}
