package engine

import "strings"

// Segments splits a request path into its segments. Surrounding separators are
// trimmed first, so "/" has no segments; interior empty segments are kept.
func Segments(path string) []string {
	trimmed := strings.Trim(path, "/")
	if strings.TrimSpace(trimmed) == "" {
		return nil
	}
	parts := strings.Split(trimmed, "/")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
