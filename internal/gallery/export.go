package gallery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/existflow/joyful/internal/logger"
	"github.com/existflow/joyful/internal/model"
)

// writeClipboard is swapped out in tests
var writeClipboard = clipboard.WriteAll

// FileName returns the download name for the n-th image (1-based)
func FileName(n int, mime string, at time.Time) string {
	return fmt.Sprintf("generated-image-%d-%d%s", n, at.UnixMilli(), extension(mime))
}

func extension(mime string) string {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

// Save decodes img and writes it into dir, returning the file path
func Save(dir string, img model.Image, n int, at time.Time) (string, error) {
	data, mime, err := img.Decode()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, FileName(n, mime, at))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	logger.Info("Image saved", logger.F("path", path), logger.F("bytes", len(data)))
	return path, nil
}

// SaveGroup saves every image of g, numbered from 1
func SaveGroup(dir string, g model.ResultGroup, at time.Time) ([]string, error) {
	paths := make([]string, 0, len(g.Images))
	for i, img := range g.Images {
		p, err := Save(dir, img, i+1, at)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Copy puts the image on the system clipboard as a data URI
func Copy(img model.Image) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard is not available on this system")
	}
	if err := writeClipboard(img.DataURI()); err != nil {
		return fmt.Errorf("failed to copy image: %w", err)
	}
	return nil
}
