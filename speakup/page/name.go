package page

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	FilePrefix = "learn_"
	FileSuffix = ".html"

	// maxNameBytes keeps prefix, name, collision suffix and extension well
	// under the 255 byte file name limit of common filesystems.
	maxNameBytes = 150
)

// SafeName maps a topic onto a file name fragment. Letters and digits of
// any script, '-' and '_' are kept; everything else becomes '_'. The result
// is cut to at most maxNameBytes on a rune boundary.
func SafeName(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "untitled"
	}

	var b strings.Builder
	for _, r := range topic {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_') {
			r = '_'
		}
		if b.Len()+utf8.RuneLen(r) > maxNameBytes {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Filename returns the page file name for a topic. attempt > 1 adds a
// collision suffix: learn_x.html, learn_x.2.html, learn_x.3.html...
func Filename(topic string, attempt int) string {
	name := FilePrefix + SafeName(topic)
	if attempt > 1 {
		name += "." + strconv.Itoa(attempt)
	}
	return name + FileSuffix
}

// IsPageFile reports whether name looks like a generated page.
func IsPageFile(name string) bool {
	return strings.HasPrefix(name, FilePrefix) && strings.HasSuffix(name, FileSuffix) &&
		len(name) > len(FilePrefix)+len(FileSuffix)
}

// TopicFromFilename rebuilds a display topic from a page file name. The
// original punctuation is lost, so underscores come back as spaces.
func TopicFromFilename(name string) (string, bool) {
	if !IsPageFile(name) {
		return "", false
	}
	base := strings.TrimSuffix(strings.TrimPrefix(name, FilePrefix), FileSuffix)
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		if _, err := strconv.Atoi(base[i+1:]); err == nil {
			base = base[:i]
		}
	}
	return strings.ReplaceAll(base, "_", " "), true
}
