package loaders

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// loadCSV renders each record as "header: value" lines separated by
// blank lines, so one row becomes one paragraph for the splitter.
func loadCSV(data []byte) (string, map[string]any, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("read csv header: %w", err)
	}

	var b strings.Builder
	rows := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("read csv row %d: %w", rows+1, err)
		}

		if rows > 0 {
			b.WriteString("\n\n")
		}
		for i, field := range record {
			if i > 0 {
				b.WriteString("\n")
			}
			name := fmt.Sprintf("column_%d", i+1)
			if i < len(header) {
				name = header[i]
			}
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(field)
		}
		rows++
	}

	return b.String(), map[string]any{"rows": rows}, nil
}
