package records

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/agenthands/reviewgraph/internal/logger"
)

const maxLineSize = 16 * 1024 * 1024

// Record is one decoded JSON line. Numbers decode as json.Number.
type Record map[string]any

type Stats struct {
	Lines     int
	Loaded    int
	Malformed int
}

type Loader struct {
	log *logger.Logger
}

func NewLoader(log *logger.Logger) *Loader {
	return &Loader{log: log}
}

// Load reads newline-delimited JSON from path, stopping after limit lines when limit > 0.
// Malformed lines are counted and skipped.
func (l *Loader) Load(path string, limit int) ([]Record, Stats, error) {
	var stats Stats

	f, err := os.Open(path)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to open records file '%s': %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var out []Record
	for scanner.Scan() {
		if limit > 0 && stats.Lines >= limit {
			break
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Lines++

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var rec Record
		if err := dec.Decode(&rec); err != nil || rec == nil {
			stats.Malformed++
			l.log.Warn("skipping malformed record", "path", path, "line", stats.Lines, "error", err)
			continue
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return out, stats, fmt.Errorf("failed to read records file '%s': %w", path, err)
	}

	stats.Loaded = len(out)
	if stats.Malformed > 0 {
		l.log.Warn("records loaded with malformed lines", "path", path, "loaded", stats.Loaded, "malformed", stats.Malformed)
	}
	return out, stats, nil
}
