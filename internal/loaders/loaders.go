// Package loaders turns files on disk into documents ready for
// ingestion. Loaders are selected by file extension.
package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coretext-ai/corpusqa/internal/core/domain"
)

// loaderFunc converts raw file bytes into document text.
type loaderFunc func(data []byte) (content string, extra map[string]any, err error)

var loadersByExt = map[string]loaderFunc{
	".txt": loadText,
	".md":  loadMarkdown,
	".csv": loadCSV,
}

// Supported reports whether a loader exists for the file's extension.
func Supported(path string) bool {
	_, ok := loadersByExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the supported file extensions, for help text.
func Extensions() []string {
	return []string{".txt", ".md", ".csv"}
}

// Load reads the file and returns a document carrying its text,
// with source, type and title recorded in the metadata.
func Load(path string) (domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := loadersByExt[ext]
	if !ok {
		return domain.Document{}, fmt.Errorf("load %s: unsupported file type %q: %w", path, ext, domain.ErrInvalidInput)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("load %s: %w", path, err)
	}

	content, extra, err := loader(data)
	if err != nil {
		return domain.Document{}, fmt.Errorf("load %s: %w", path, err)
	}
	if strings.TrimSpace(content) == "" {
		return domain.Document{}, fmt.Errorf("load %s: file is empty: %w", path, domain.ErrInvalidInput)
	}

	metadata := map[string]any{
		"source": path,
		"type":   strings.TrimPrefix(ext, "."),
		"title":  titleFromPath(path),
	}
	for k, v := range extra {
		metadata[k] = v
	}
	if t, ok := extra["title"]; ok {
		metadata["title"] = t
	}

	return domain.Document{
		ID:        uuid.New().String(),
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// titleFromPath derives a human-readable title from the file name.
func titleFromPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}
