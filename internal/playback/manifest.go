package playback

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ErrNoReference means the lesson carries no usable playback reference.
var ErrNoReference = errors.New("no playable reference")

// ResolveManifestURL normalizes a lesson's playback reference to the
// canonical manifest URL https://<streamHost>/<id>.m3u8.
//
// Three input shapes are tolerated: a bare identifier ("abc123"), a full
// origin-qualified URL ("https://host/player/abc123.m3u8?x=1") and a
// manifest-suffixed path ("abc123.m3u8"). Query strings are discarded.
func ResolveManifestURL(ref, streamHost string) (string, error) {
	raw := strings.TrimSpace(ref)
	if raw == "" {
		return "", ErrNoReference
	}

	var p string
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%w: unparseable reference %q", ErrNoReference, ref)
		}
		p = u.Path
	} else {
		// Bare ids and manifest-suffixed paths may still carry a query part.
		p, _, _ = strings.Cut(raw, "?")
	}

	id := path.Base(p)
	id = strings.TrimSuffix(id, ".m3u8")
	if id == "" || id == "." || id == "/" {
		return "", fmt.Errorf("%w: empty stream id in %q", ErrNoReference, ref)
	}

	return fmt.Sprintf("https://%s/%s.m3u8", streamHost, id), nil
}
