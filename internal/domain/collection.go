package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// ContentPathKind distinguishes how a Collection resolves a MediaSource's
// content path.
type ContentPathKind int

const (
	// ContentPathVirtualFilePath resolves content paths relative to a
	// file:// root URL.
	ContentPathVirtualFilePath ContentPathKind = iota
	// ContentPathURI means content paths are already absolute URLs.
	ContentPathURI
)

// ContentPathConfig configures how a Collection's media paths resolve.
type ContentPathConfig struct {
	Kind    ContentPathKind
	RootURL string // meaningful only for ContentPathVirtualFilePath
}

// MediaSourceConfig binds a Collection's media-source resolution policy.
type MediaSourceConfig struct {
	ContentPath ContentPathConfig
}

// Collection is a named container of media sources rooted at a base URL.
type Collection struct {
	Title       string
	Kind        string
	Color       *uint32
	MediaSource MediaSourceConfig
}

// ResolvePath resolves a content path against the collection's root,
// enforcing the invariant that every media source resolves to a path under
// the root URL.
func (c Collection) ResolvePath(contentPath string) (string, error) {
	cfg := c.MediaSource.ContentPath
	if cfg.Kind == ContentPathURI {
		return contentPath, nil
	}

	root, err := url.Parse(cfg.RootURL)
	if err != nil {
		return "", fmt.Errorf("invalid collection root url: %w", err)
	}
	if strings.Contains(contentPath, "..") {
		return "", fmt.Errorf("content path escapes collection root: %q", contentPath)
	}
	joined := strings.TrimSuffix(root.String(), "/") + "/" + strings.TrimPrefix(contentPath, "/")
	return joined, nil
}
