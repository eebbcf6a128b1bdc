package fetch

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Entry is one category and the URL of its review shard.
type Entry struct {
	Category string
	URL      string
}

// Manifest keeps entries in file order.
type Manifest []Entry

// ParseManifest reads "category: url" lines. Lines that do not split into exactly
// two non-empty parts are ignored.
func ParseManifest(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest '%s': %w", path, err)
	}
	defer f.Close()

	var m Manifest
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if e, ok := parseLine(scanner.Text()); ok {
			m = append(m, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest '%s': %w", path, err)
	}
	return m, nil
}

func parseLine(line string) (Entry, bool) {
	parts := strings.Split(strings.TrimSpace(line), ": ")
	if len(parts) != 2 {
		return Entry{}, false
	}
	category := strings.TrimSpace(parts[0])
	url := strings.TrimSpace(parts[1])
	if category == "" || url == "" {
		return Entry{}, false
	}
	return Entry{Category: category, URL: url}, true
}

// Write stores the manifest in the format ParseManifest reads.
func (m Manifest) Write(path string) error {
	var b strings.Builder
	for _, e := range m {
		fmt.Fprintf(&b, "%s: %s\n", e.Category, e.URL)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write manifest '%s': %w", path, err)
	}
	return nil
}

// Limit returns at most n entries. n <= 0 returns everything.
func (m Manifest) Limit(n int) Manifest {
	if n <= 0 || n >= len(m) {
		return m
	}
	return m[:n]
}
