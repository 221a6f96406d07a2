package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/vta/internal/model"
	appErr "github.com/xxxsen/vta/internal/pkg/errors"
)

const (
	contextSeparator = "\n\n---\n\n"
	imageAnnotation  = "Image is attached with the question. Use it if relevant."
	fileRefPrefix    = "file://"
)

// ResolveImage turns the optional image reference of a query into a payload.
// A file:// reference is read and base64 encoded; a file that cannot be read
// is logged and treated as no image. Any other non empty value is used as is.
func ResolveImage(ctx context.Context, ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	if !strings.HasPrefix(ref, fileRefPrefix) {
		return ref, true
	}
	payload, err := readImageFile(strings.TrimPrefix(ref, fileRefPrefix))
	if err != nil {
		logutil.GetLogger(ctx).Warn("image not attached", zap.String("ref", ref), zap.Error(err))
		return "", false
	}
	return payload, true
}

func readImageFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read image: %w", appErr.ErrLocalIO, err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// BuildContext joins match texts in rank order. maxChars bounds the joined
// passages in runes when positive; the image annotation is always kept.
func BuildContext(matches []model.Match, imagePresent bool, maxChars int) string {
	parts := make([]string, 0, len(matches)+1)
	for _, m := range matches {
		parts = append(parts, m.Record.Text)
	}
	text := strings.Join(parts, contextSeparator)
	if maxChars > 0 {
		if runes := []rune(text); len(runes) > maxChars {
			text = string(runes[:maxChars])
		}
	}
	if imagePresent {
		text += contextSeparator + imageAnnotation
	}
	return text
}
