package loaders

import (
	"strings"
)

// loadText passes plain text through unchanged apart from normalising
// line endings.
func loadText(data []byte) (string, map[string]any, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	return content, nil, nil
}

// loadMarkdown keeps the markdown source as document text, using the
// first top-level heading as the title when one exists. Markdown
// structure survives into the chunks, where paragraph splitting
// respects it naturally.
func loadMarkdown(data []byte) (string, map[string]any, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")

	extra := map[string]any{}
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(trimmed, "# "); ok {
			if title := strings.TrimSpace(after); title != "" {
				extra["title"] = title
			}
			break
		}
		if trimmed != "" {
			break
		}
	}

	return content, extra, nil
}
