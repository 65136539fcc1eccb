package platform

import (
	"strings"
)

// shellEscape wraps s in single quotes for safe use in a remote shell
// command, escaping any single quotes inside it.
func shellEscape(s string) string {
	escaped := strings.ReplaceAll(s, "'", "'\\''")
	return "'" + escaped + "'"
}

// validatePath reports whether path is an absolute path made only of
// alphanumerics, dash, underscore, slash and dot, with no ".." segment.
// Remote proc roots are interpolated into shell commands, so anything else
// is rejected.
func validatePath(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") {
		return false
	}
	if strings.Contains(path, "..") {
		return false
	}
	for _, c := range path {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_' ||
			c == '/' || c == '.') {
			return false
		}
	}
	return true
}
