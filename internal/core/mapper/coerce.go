package mapper

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// asFloat parses numbers and numeric strings. Anything else is 0.
func asFloat(v any) float64 {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(t, "$")), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		return int64(asFloat(t))
	case int:
		return int64(t)
	case int64:
		return t
	case float64:
		return int64(asFloat(t))
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n
		}
		return int64(asFloat(t))
	default:
		return 0
	}
}

func asInt(v any) int {
	return int(asInt64(v))
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	default:
		return false
	}
}

// textList accepts a list of strings or a single string and drops empty entries.
func textList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range t {
			if s := strings.TrimSpace(asString(item)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// imageURLs collects field from a list of image objects, keeping at most max when max > 0.
func imageURLs(v any, field string, max int) []string {
	out := []string{}
	list, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range list {
		if max > 0 && len(out) >= max {
			break
		}
		img, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if u := asString(img[field]); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// categoryPaths accepts a flat list (one path) or a list of lists.
func categoryPaths(v any) [][]string {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil
	}
	var paths [][]string
	var flat []string
	for _, item := range list {
		switch t := item.(type) {
		case []any:
			if p := textList(t); len(p) > 0 {
				paths = append(paths, p)
			}
		case string:
			if s := strings.TrimSpace(t); s != "" {
				flat = append(flat, s)
			}
		}
	}
	if len(flat) > 0 {
		paths = append([][]string{flat}, paths...)
	}
	return paths
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	if len(m) == 0 {
		return nil
	}
	return m
}
