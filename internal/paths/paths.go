// Package paths holds the path manipulation helpers shared by the
// modeller and the build-plan generator, plus environment-variable
// substitution for definition-file values.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetLastNode returns the final node of a path: "a/b/c" -> "c". A
// trailing separator is ignored, so "a/b/" -> "b".
func GetLastNode(p string) string {
	return filepath.Base(strings.TrimRight(p, "/"))
}

// GetContainingDir returns the directory containing the file system
// object at p.
func GetContainingDir(p string) string {
	return filepath.Dir(p)
}

// RemoveSuffix strips suffix from p if present.
func RemoveSuffix(p, suffix string) string {
	return strings.TrimSuffix(p, suffix)
}

// HasSuffix reports whether p ends in suffix.
func HasSuffix(p, suffix string) bool {
	return strings.HasSuffix(p, suffix)
}

// EndsWithSeparator reports whether p ends in a path separator.
func EndsWithSeparator(p string) bool {
	return strings.HasSuffix(p, "/")
}

// IsAbsolute reports whether p is an absolute path.
func IsAbsolute(p string) bool {
	return strings.HasPrefix(p, "/")
}

// MakeAbsolute turns p into an absolute path relative to the current
// working directory, without resolving symlinks.
func MakeAbsolute(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

// Combine joins two path fragments with exactly one separator.
func Combine(base, p string) string {
	if base == "" {
		return p
	}
	if p == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p, "/")
}

// Minimize removes redundant "." and ".." nodes and duplicate separators.
func Minimize(p string) string {
	return filepath.Clean(p)
}

// GetIdentifierSafeName converts a file name into a C-identifier-safe
// name by replacing every unusable character with an underscore.
func GetIdentifierSafeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Unquote strips one level of surrounding double quotes, if present.
func Unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// DoSubstitution replaces every $NAME and ${NAME} environment-variable
// reference in s with the variable's value. An undefined variable
// substitutes as empty, matching shell behavior. A '$' not followed by a
// valid name is an error.
func DoSubstitution(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		if c != '$' {
			b.WriteByte(c)
			i++
			continue
		}
		i++
		if i < len(s) && s[i] == '{' {
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated environment variable reference in '%s'", s)
			}
			name := s[i+1 : i+end]
			if name == "" {
				return "", fmt.Errorf("empty environment variable reference in '%s'", s)
			}
			b.WriteString(os.Getenv(name))
			i += end + 1
			continue
		}
		start := i
		for i < len(s) && isNameChar(s[i]) {
			i++
		}
		if i == start {
			return "", fmt.Errorf("missing environment variable name after '$' in '%s'", s)
		}
		b.WriteString(os.Getenv(s[start:i]))
	}
	return b.String(), nil
}

func isNameChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
