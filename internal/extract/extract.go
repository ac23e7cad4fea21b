// Package extract converts uploaded file bytes to plain text.
package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/documentloaders"
	"golang.org/x/text/encoding/charmap"

	"github.com/streamchat-ai/chat-backend/internal/llm"
	"github.com/streamchat-ai/chat-backend/internal/model"
	"github.com/streamchat-ai/chat-backend/pkg/metrics"
)

// maxExtractedChars caps the text taken from any single file.
const maxExtractedChars = 10000

const visionInstruction = "Extract text or describe the content of this image clearly and concisely."

// Extractor converts bytes to text given a filename hint. Implementations
// must not be called for extensions outside the configured allow-list; the
// pipeline enforces that before any bytes are read.
type Extractor interface {
	Extract(ctx context.Context, data []byte, filename string, useVision bool) (string, error)
}

// Service is the default Extractor: plain text directly, PDFs via the
// document loader, images via a vision-capable provider.
type Service struct {
	vision      llm.Client
	visionModel string
}

// NewService creates an extractor. vision may be nil, which disables image
// extraction.
func NewService(vision llm.Client, visionModel string) *Service {
	return &Service{vision: vision, visionModel: visionModel}
}

// Kind returns the lowercased extension of filename without the dot, or ""
// when there is none.
func Kind(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return strings.TrimPrefix(ext, ".")
}

// IsImage reports whether the kind is a supported image format.
func IsImage(kind string) bool {
	return kind == "png" || kind == "jpg" || kind == "jpeg"
}

// Extract converts the uploaded bytes to plain text.
func (s *Service) Extract(ctx context.Context, data []byte, filename string, useVision bool) (string, error) {
	kind := Kind(filename)

	text, err := s.extract(ctx, data, kind, useVision)
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues(kind, "error").Inc()
		return "", &model.ExtractionError{Filename: filename, Cause: err}
	}

	metrics.ExtractionsTotal.WithLabelValues(kind, "success").Inc()
	return capText(text), nil
}

func (s *Service) extract(ctx context.Context, data []byte, kind string, useVision bool) (string, error) {
	switch {
	case kind == "txt":
		return decodeText(data)
	case kind == "pdf":
		// Vision-based page extraction is not available in this stack;
		// PDFs always go through text extraction.
		return extractPDF(ctx, data)
	case IsImage(kind):
		return s.describeImage(ctx, data, kind)
	default:
		return "", fmt.Errorf("unsupported file type: %s", kind)
	}
}

// decodeText decodes file bytes as UTF-8, falling back to Latin-1.
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", errors.New("could not decode text file")
	}
	return string(decoded), nil
}

// extractPDF pulls text from every page of the document.
func extractPDF(ctx context.Context, data []byte) (string, error) {
	loader := documentloaders.NewPDF(bytes.NewReader(data), int64(len(data)))
	docs, err := loader.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}

	var pages []string
	for i, doc := range docs {
		if strings.TrimSpace(doc.PageContent) == "" {
			continue
		}
		pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", i+1, doc.PageContent))
	}
	if len(pages) == 0 {
		return "", errors.New("no text content in PDF")
	}
	return strings.Join(pages, "\n\n"), nil
}

// describeImage asks the vision model to transcribe or describe the image.
func (s *Service) describeImage(ctx context.Context, data []byte, kind string) (string, error) {
	if s.vision == nil {
		return "", errors.New("image extraction requires a vision-capable provider")
	}

	mime := "image/jpeg"
	if kind == "png" {
		mime = "image/png"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))

	resp, err := s.vision.Complete(ctx, &llm.CompletionRequest{
		Model: s.visionModel,
		Messages: []llm.ChatMessage{
			{Role: "user", Content: visionInstruction, ImageURL: dataURL},
		},
		Temperature: 0.2,
		TopP:        0.1,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func capText(text string) string {
	if len(text) > maxExtractedChars {
		return text[:maxExtractedChars]
	}
	return text
}
