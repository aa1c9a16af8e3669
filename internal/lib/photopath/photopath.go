// Package photopath maps the many historical forms of a photo reference onto
// one canonical public path and an ordered list of blob-store locations.
package photopath

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"
)

const DefaultAPIPrefix = "/api/photos"

var ErrInvalidReference = errors.New("invalid photo reference")

// legacyPrefixes are matched case-insensitively after leading slashes are
// trimmed. Longer prefixes come first so "Photos/Portfolio/" is not eaten as
// "Photos/" followed by a stray directory.
var legacyPrefixes = []string{
	"api/photos/",
	"photos/portfolio/",
	"photos/",
	"portfolio/",
}

// legacyDirs are the directories photos were historically filed under in the
// blob store, probed after the configured root and the bare basename.
var legacyDirs = []string{
	"Photos/",
	"Portfolio/",
	"Photos/Portfolio/",
}

// Reference is the result of normalising one incoming photo reference.
type Reference struct {
	Basename            string
	CanonicalPublicPath string
	// CandidateStoragePaths is ordered by priority and never empty. The first
	// entry is always the configured-root location.
	CandidateStoragePaths []string
}

// Primary returns the configured-root storage path.
func (r Reference) Primary() string {
	return r.CandidateStoragePaths[0]
}

// Legacy returns the fallback storage paths, in probe order.
func (r Reference) Legacy() []string {
	return r.CandidateStoragePaths[1:]
}

type Normalizer struct {
	apiPrefix string
	root      string
}

// New builds a Normalizer. apiPrefix is the public route photos are served
// under; root is the blob-store directory new uploads are written to.
func New(apiPrefix, root string) *Normalizer {
	apiPrefix = "/" + strings.Trim(apiPrefix, "/")
	if apiPrefix == "/" {
		apiPrefix = DefaultAPIPrefix
	}

	return &Normalizer{
		apiPrefix: apiPrefix,
		root:      strings.Trim(root, "/"),
	}
}

func (n *Normalizer) APIPrefix() string {
	return n.apiPrefix
}

// Root is the blob-store directory new uploads are written to, without
// surrounding slashes.
func (n *Normalizer) Root() string {
	return n.root
}

// Normalize resolves raw into a Reference. raw must already be
// percent-decoded. It performs no I/O.
func (n *Normalizer) Normalize(raw string) (Reference, error) {
	base, err := n.basename(raw)
	if err != nil {
		return Reference{}, err
	}

	return Reference{
		Basename:              base,
		CanonicalPublicPath:   n.CanonicalPath(base),
		CandidateStoragePaths: n.candidates(base),
	}, nil
}

// CanonicalPath is the public reference for a basename. The legacy /photos/
// form is accepted as input but never produced.
func (n *Normalizer) CanonicalPath(basename string) string {
	return n.apiPrefix + "/" + basename
}

// StoragePath is where a new upload with the given basename is written.
func (n *Normalizer) StoragePath(basename string) string {
	if n.root == "" {
		return basename
	}

	return n.root + "/" + basename
}

func (n *Normalizer) basename(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	prefix := n.apiPrefix + "/"
	if strings.HasPrefix(s, prefix) {
		s = s[len(prefix):]
	} else {
		s = stripLegacyPrefixes(s)
	}

	// The store is flat: anything left above the last segment is noise.
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}

	if err := checkBasename(s); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidReference, raw, err)
	}

	return s, nil
}

func stripLegacyPrefixes(s string) string {
	for {
		s = strings.TrimLeft(s, "/")
		lower := strings.ToLower(s)

		stripped := false
		for _, p := range legacyPrefixes {
			if strings.HasPrefix(lower, p) {
				s = s[len(p):]
				stripped = true
				break
			}
		}

		if !stripped {
			return s
		}
	}
}

func checkBasename(s string) error {
	switch s {
	case "":
		return errors.New("empty basename")
	case ".", "..":
		return errors.New("relative path element")
	}

	for _, r := range s {
		if r == '\\' || unicode.IsControl(r) {
			return fmt.Errorf("illegal character %q", r)
		}
	}

	return nil
}

func (n *Normalizer) candidates(base string) []string {
	all := make([]string, 0, 2+len(legacyDirs))
	all = append(all, n.StoragePath(base), base)
	for _, dir := range legacyDirs {
		all = append(all, dir+base)
	}

	seen := make(map[string]struct{}, len(all))
	out := all[:0]
	for _, p := range all {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	return out
}

// IsLegacySrc reports whether src uses the retired /photos/{filename} form.
func IsLegacySrc(src string) bool {
	return strings.HasPrefix(strings.ToLower(src), "/photos/")
}

// Ext returns the lower-cased extension of name, including the dot.
func Ext(name string) string {
	return strings.ToLower(path.Ext(name))
}
