// Package sanitize cleans file and folder names before they touch the
// filesystem: path separators, traversal sequences and reserved characters
// are neutralized, lengths capped, and reserved device names avoided.
package sanitize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxNameLength caps sanitized names. Most filesystems allow 255 bytes;
// 200 runes leaves room for conflict suffixes.
const maxNameLength = 200

// maxUniqueAttempts bounds the unique-name search as a safety valve
const maxUniqueAttempts = 1000

var reservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true, "com5": true,
	"com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true, "lpt5": true,
	"lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

// Name returns a filesystem-safe version of s. Separators, ".." sequences,
// reserved characters and control characters become underscores; trailing
// dots and spaces are trimmed; the result is capped at 200 runes and never
// empty. Reserved device names (CON, NUL, ...) get an underscore suffix.
func Name(s string) string {
	s = strings.ReplaceAll(s, "..", "_")

	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case r == '<' || r == '>' || r == ':' || r == '"' || r == '|' || r == '?' || r == '*':
			b.WriteRune('_')
		case r < 0x20:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	out := strings.TrimRight(b.String(), ". ")

	if runes := []rune(out); len(runes) > maxNameLength {
		out = string(runes[:maxNameLength])
		out = strings.TrimRight(out, ". ")
	}

	if out == "" {
		return "_"
	}

	// Reserved device names apply to the stem, not the extension
	stem := out
	if dot := strings.IndexByte(out, '.'); dot > 0 {
		stem = out[:dot]
	}
	if reservedNames[strings.ToLower(stem)] {
		out = out + "_"
	}

	return out
}

// SplitExt splits a filename into stem and extension (extension keeps the
// dot, may be empty). Dotfiles are treated as all-stem.
func SplitExt(name string) (stem, ext string) {
	ext = filepath.Ext(name)
	if ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

// UniqueName returns a name that does not collide with any existing entry
// in dir, appending _<n> before the extension as needed. The search is
// bounded at 1000 attempts.
func UniqueName(dir, name string) (string, error) {
	if !exists(filepath.Join(dir, name)) {
		return name, nil
	}

	stem, ext := SplitExt(name)
	for n := 1; n <= maxUniqueAttempts; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if !exists(filepath.Join(dir, candidate)) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no unique name found for %q after %d attempts", name, maxUniqueAttempts)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
