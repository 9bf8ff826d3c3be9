package nlu

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var contractions = []struct{ from, to string }{
	{"what's", "what is"},
	{"it's", "it is"},
	{"let's", "let us"},
	{"i'm", "i am"},
	{"don't", "do not"},
	{"doesn't", "does not"},
	{"can't", "cannot"},
	{"won't", "will not"},
}

var foldCaser = cases.Fold()

// Normalize prepares raw input for rule matching: NFC normalization,
// Unicode case folding, contraction expansion, whitespace collapsing.
// Idempotent, so re-normalizing already-normalized text is a no-op.
func Normalize(text string) string {
	s := norm.NFC.String(text)
	s = foldCaser.String(s)
	for _, c := range contractions {
		s = strings.ReplaceAll(s, c.from, c.to)
	}
	return strings.Join(strings.Fields(s), " ")
}

// normalizePath expands a leading ~ and flips backslashes forward.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return strings.ReplaceAll(path, "\\", "/")
}

// normalizeURL inserts an https scheme when none is present.
func normalizeURL(url string) string {
	url = strings.TrimSpace(url)
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return "https://" + url
}

func normalizeAppName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
