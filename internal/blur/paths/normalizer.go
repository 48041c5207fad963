package paths

import (
	"errors"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"bodyshop-gallery/internal/common/logging"
)

// ErrInvalidPath is returned by Normalize for empty input.
var ErrInvalidPath = errors.New("invalid image path")

var (
	absoluteURLPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
	identifierPattern  = regexp.MustCompile(`(?:^|[^a-z0-9])(?:before|after)-(?:\d+-)?([a-z0-9]+)-[a-z0-9]+`)
	unsafeDirChars     = regexp.MustCompile(`[^a-z0-9._/-]+`)

	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
		".avif": true, ".bmp": true, ".tif": true, ".tiff": true, ".svg": true,
	}
)

// ============================================================
// Options
// ============================================================

// Options configures a Normalizer.
type Options struct {
	// SiteHosts are the hosts whose absolute URLs are reduced to their path.
	SiteHosts []string
	// AssetsRoot is the top-level asset directory, e.g. "images".
	AssetsRoot string
	// GallerySubdir is the gallery directory below AssetsRoot, e.g. "gallery-page".
	GallerySubdir string
	// Identifiers maps an item identifier token to its gallery directory.
	Identifiers map[string]string
	// ContextIdentifier reports the identifier of the item currently being
	// edited, if any.
	ContextIdentifier func() string
	// Matchers overrides the lookup cascade used by FindZonesFor.
	Matchers []Matcher
	Logger   *slog.Logger
}

// ============================================================
// Normalizer
// ============================================================

// Normalizer turns arbitrary image references into canonical keys.
type Normalizer struct {
	hosts         map[string]bool
	assetsRoot    string
	gallerySubdir string
	identifiers   map[string]string
	idKeys        []string // identifier tokens, longest first
	contextID     func() string
	logger        *slog.Logger
	matchers      []Matcher
}

// New builds a Normalizer. Empty AssetsRoot/GallerySubdir default to
// "images" and "gallery-page".
func New(opts Options) *Normalizer {
	n := &Normalizer{
		hosts:         make(map[string]bool, len(opts.SiteHosts)),
		assetsRoot:    strings.Trim(strings.ToLower(opts.AssetsRoot), "/"),
		gallerySubdir: strings.Trim(strings.ToLower(opts.GallerySubdir), "/"),
		identifiers:   make(map[string]string, len(opts.Identifiers)),
		contextID:     opts.ContextIdentifier,
		logger:        logging.OrNop(opts.Logger),
	}
	if n.assetsRoot == "" {
		n.assetsRoot = "images"
	}
	if n.gallerySubdir == "" {
		n.gallerySubdir = "gallery-page"
	}
	for _, h := range opts.SiteHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			n.hosts[h] = true
		}
	}
	for id, dir := range opts.Identifiers {
		id = strings.ToLower(strings.TrimSpace(id))
		dir = cleanDir(dir)
		if id == "" || dir == "" {
			continue
		}
		n.identifiers[id] = dir
		n.idKeys = append(n.idKeys, id)
	}
	sort.Slice(n.idKeys, func(i, j int) bool {
		if len(n.idKeys[i]) != len(n.idKeys[j]) {
			return len(n.idKeys[i]) > len(n.idKeys[j])
		}
		return n.idKeys[i] < n.idKeys[j]
	})
	n.matchers = opts.Matchers
	if len(n.matchers) == 0 {
		n.matchers = DefaultMatchers(n)
	}
	return n
}

// AssetsPrefix returns "/<assets-root>/".
func (n *Normalizer) AssetsPrefix() string {
	return "/" + n.assetsRoot + "/"
}

// GalleryPrefix returns "/<assets-root>/<gallery-subdir>/".
func (n *Normalizer) GalleryPrefix() string {
	return n.AssetsPrefix() + n.gallerySubdir + "/"
}

// Normalize returns the canonical key for raw. Opaque local resources
// (blob:, data:) and third-party URLs are returned verbatim.
func (n *Normalizer) Normalize(raw string) (string, error) {
	return n.NormalizeFor(raw, "")
}

// NormalizeFor is Normalize with the identifier of the item being viewed or
// edited. item takes precedence over Options.ContextIdentifier as the last
// directory-inference fallback.
func (n *Normalizer) NormalizeFor(raw, item string) (string, error) {
	key, err := n.normalize(raw, item)
	if err != nil {
		return "", err
	}
	n.logger.Debug(logging.EventPathNormalized, "raw", raw, "item", item, "key", key)
	return key, nil
}

func (n *Normalizer) normalize(raw, item string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrInvalidPath
	}

	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "blob:") || strings.HasPrefix(lower, "data:") {
		return s, nil
	}

	if absoluteURLPattern.MatchString(s) || strings.HasPrefix(s, "//") {
		u, err := url.Parse(s)
		if err == nil && u.Host != "" {
			if !n.hosts[strings.ToLower(u.Hostname())] {
				return s, nil
			}
			p := u.EscapedPath()
			if p == "" {
				p = "/"
			}
			return n.normalize(p, item)
		}
	}

	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "./")
	s = cleanPath(strings.ToLower("/" + strings.TrimLeft(s, "/")))
	s = n.collapseDuplicates(s)

	if strings.Contains(s, n.GalleryPrefix()) {
		return s, nil
	}
	if inferred, ok := n.inferGalleryPath(s, item); ok {
		return inferred, nil
	}
	if looksLikeImage(s) && !strings.HasPrefix(s, n.AssetsPrefix()) {
		s = n.collapseDuplicates(strings.TrimSuffix(n.AssetsPrefix(), "/") + s)
	}
	return s, nil
}

// collapseDuplicates folds "/images/images/" and "/gallery-page/gallery-page/"
// into a single segment.
func (n *Normalizer) collapseDuplicates(s string) string {
	for _, seg := range []string{n.assetsRoot, n.gallerySubdir} {
		doubled := "/" + seg + "/" + seg + "/"
		single := "/" + seg + "/"
		for strings.Contains(s, doubled) {
			s = strings.ReplaceAll(s, doubled, single)
		}
	}
	return s
}

// inferGalleryPath rewrites a path into the gallery directory using the
// identifier embedded in its filename, the identifier table, or the current
// page context.
func (n *Normalizer) inferGalleryPath(p, item string) (string, bool) {
	filename := path.Base(p)
	if filename == "/" || filename == "." || filename == "" {
		return "", false
	}

	dir := ""
	if id := ExtractIdentifier(filename); id != "" {
		dir = n.identifiers[id]
	}
	if dir == "" {
		for _, id := range n.idKeys {
			if strings.Contains(filename, id) {
				dir = n.identifiers[id]
				break
			}
		}
	}
	if dir == "" {
		dir = cleanDir(item)
	}
	if dir == "" && n.contextID != nil {
		dir = cleanDir(n.contextID())
	}
	if dir == "" {
		return "", false
	}
	return n.GalleryPrefix() + dir + "/" + filename, true
}

// ExtractIdentifier returns the item identifier embedded in a gallery
// filename following the "(before|after)-<n>-<identifier>-<view>" pattern,
// or "" when there is none.
func ExtractIdentifier(p string) string {
	m := identifierPattern.FindStringSubmatch(strings.ToLower(path.Base(p)))
	if m == nil {
		return ""
	}
	return m[1]
}

// cleanDir turns a configured or caller-supplied directory into safe
// relative segments; dot segments are dropped.
func cleanDir(dir string) string {
	dir = unsafeDirChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(dir)), "-")
	var segs []string
	for _, seg := range strings.Split(dir, "/") {
		if seg != "" && seg != "." && seg != ".." {
			segs = append(segs, seg)
		}
	}
	return strings.Join(segs, "/")
}

// cleanPath resolves dot segments and repeated slashes, keeping a trailing
// slash.
func cleanPath(p string) string {
	trailing := strings.HasSuffix(p, "/")
	p = path.Clean(p)
	if trailing && p != "/" {
		p += "/"
	}
	return p
}

func looksLikeImage(p string) bool {
	return imageExtensions[strings.ToLower(path.Ext(p))]
}
