package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
	"github.com/kirillkom/knowledge-hub-tools/internal/core/ports"
)

// maxBodyBytes bounds a single guide body read from storage.
const maxBodyBytes = 4 << 20

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

// Extract reads a markdown or text body. A leading UTF-8 BOM is dropped and
// line endings are normalized to \n.
func (e *Extractor) Extract(ctx context.Context, key string) (string, error) {
	reader, err := e.storage.Open(ctx, key)
	if err != nil {
		return "", fmt.Errorf("open guide body: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("read guide body: %w", err)
	}
	if len(raw) > maxBodyBytes {
		return "", domain.WrapError(domain.ErrInvalidInput, "read guide body", fmt.Errorf("%s exceeds %d bytes", key, maxBodyBytes))
	}
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrInvalidInput, "read guide body", fmt.Errorf("%s is not utf-8 text", key))
	}

	text := strings.TrimPrefix(string(raw), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimSpace(text), nil
}
