// Package stacktrace trims raw goroutine stacks down to frames from this module.
package stacktrace

import "strings"

// InternalPaths returns "internal/<pkg>/<file>.go:<line>" entries found in a raw debug.Stack output.
func InternalPaths(stack []byte) []string {
	var paths []string
	for _, line := range strings.Split(string(stack), "\n") {
		line = strings.TrimSpace(line)

		_, rest, found := strings.Cut(line, "/internal/")
		if !found || !strings.Contains(rest, ".go:") {
			continue
		}

		// drop the "+0x1f" program counter offset
		if idx := strings.IndexByte(rest, ' '); idx != -1 {
			rest = rest[:idx]
		}
		paths = append(paths, "internal/"+rest)
	}
	return paths
}
