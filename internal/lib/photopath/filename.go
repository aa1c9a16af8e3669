package photopath

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"
)

const (
	defaultExt       = ".jpg"
	maxSanitizedName = 60
	fallbackName     = "photo"
)

// contentTypes is a fixed extension table. It is an approximation: bytes are
// never sniffed, and anything unknown is served as JPEG.
var contentTypes = map[string]string{
	".png":  "image/png",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".gif":  "image/gif",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

func ContentType(name string) string {
	if ct, ok := contentTypes[Ext(name)]; ok {
		return ct
	}

	return "image/jpeg"
}

// GenerateFilename builds "{unix millis}-{random}-{name}{ext}" for a new
// upload. name is the sanitised original filename stem, or the title when
// the stem sanitises to nothing. The random part keeps concurrent uploads of
// the same file in the same millisecond apart.
func GenerateFilename(original, title string, now time.Time) (string, error) {
	random, err := randomToken(4)
	if err != nil {
		return "", fmt.Errorf("generate filename: %w", err)
	}

	ext := Ext(original)
	if !safeExt(ext) {
		ext = defaultExt
	}

	stem := Sanitize(strings.TrimSuffix(path.Base(original), path.Ext(original)))
	if stem == "" {
		stem = Sanitize(title)
	}
	if stem == "" {
		stem = fallbackName
	}

	return fmt.Sprintf("%d-%s-%s%s", now.UnixMilli(), random, stem, ext), nil
}

// WithExtension replaces the extension of name with ext.
func WithExtension(name, ext string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + ext
}

// Sanitize lower-cases s and replaces every run of non-alphanumeric ASCII
// characters with a single '-'.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	out := strings.TrimRight(b.String(), "-")
	if len(out) > maxSanitizedName {
		out = strings.TrimRight(out[:maxSanitizedName], "-")
	}

	return out
}

// safeExt accepts "." followed by one to five lower-case ASCII letters or
// digits, so the generated name needs no escaping in a URL.
func safeExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 6 || ext[0] != '.' {
		return false
	}

	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}

	return true
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
