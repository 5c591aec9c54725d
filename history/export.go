package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"scorekeeper/core"
)

// WriteCSV writes records in the legacy spreadsheet export format: a header of
// the first record's keys, values joined by commas, and only comma-bearing
// strings wrapped in double quotes. Rows are separated by "\n" with no
// trailing newline; an empty slice writes nothing.
func WriteCSV(w io.Writer, records []core.Record) error {
	if len(records) == 0 {
		return nil
	}
	var header []string
	for _, f := range records[0].Fields() {
		header = append(header, f.Key)
	}
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	for _, r := range records {
		values := make(map[string]any, len(header))
		for _, f := range r.Fields() {
			values[f.Key] = f.Value
		}
		cells := make([]string, len(header))
		for i, k := range header {
			cells[i] = csvCell(values[k])
		}
		b.WriteByte('\n')
		b.WriteString(strings.Join(cells, ","))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func csvCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		if strings.Contains(x, ",") {
			return `"` + x + `"`
		}
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

// ExportCSV writes the history of (g, d) to w as CSV.
func (m *Manager) ExportCSV(ctx context.Context, g core.GameType, d core.Difficulty, w io.Writer) error {
	records, err := m.GetHistory(ctx, g, d)
	if err != nil {
		return err
	}
	if err := WriteCSV(w, records); err != nil {
		return fmt.Errorf("export %s_%s: %w", g, d, err)
	}
	return nil
}

// ExportFilename is the download name used for a partition export.
func ExportFilename(g core.GameType, d core.Difficulty) string {
	return fmt.Sprintf("%s_%s_history.csv", g, d)
}
