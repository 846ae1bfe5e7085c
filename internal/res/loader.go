package res

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ResourceType represents the type of resource
type ResourceType int

const (
	ResourceTypeUnknown ResourceType = iota
	ResourceTypeImage
	ResourceTypeCSS
	ResourceTypeHTML
	ResourceTypeOther
)

var (
	// ErrNotFound is returned when no location holds the resource.
	ErrNotFound = errors.New("resource not found")
	// ErrDisallowed is returned for files and remote URLs by a loader
	// restricted to data URLs.
	ErrDisallowed = errors.New("only data URLs are allowed")
)

// Resource represents a loaded resource
type Resource struct {
	URL      string
	Type     ResourceType
	Data     []byte
	MimeType string
}

// Loader fetches figure payloads and stylesheets from data URLs, local
// files or http(s), caching by the requested URL.
type Loader struct {
	// BaseURL resolves relative references. It may be a file path or URL.
	BaseURL string

	cache     map[string]*Resource
	cacheLock sync.RWMutex

	searchPaths []string
	client      *http.Client
	dataOnly    bool
}

// NewLoader creates a new resource loader
func NewLoader(baseURL string) *Loader {
	return &Loader{
		BaseURL: baseURL,
		cache:   make(map[string]*Resource),
		client:  &http.Client{},
	}
}

// AddSearchPath adds a directory to search for local resources
func (l *Loader) AddSearchPath(path string) {
	l.searchPaths = append(l.searchPaths, path)
}

// SetHTTPClient replaces the client used for remote resources.
func (l *Loader) SetHTTPClient(c *http.Client) {
	if c != nil {
		l.client = c
	}
}

// RestrictToDataURLs makes Load refuse anything but data URLs, for
// loaders resolving markup received from untrusted clients.
func (l *Loader) RestrictToDataURLs() {
	l.dataOnly = true
}

// Load loads a resource from a URL or file path
func (l *Loader) Load(ctx context.Context, urlStr string) (*Resource, error) {
	l.cacheLock.RLock()
	if res, ok := l.cache[urlStr]; ok {
		l.cacheLock.RUnlock()
		return res, nil
	}
	l.cacheLock.RUnlock()

	var (
		res *Resource
		err error
	)
	switch {
	case strings.HasPrefix(urlStr, "data:"):
		res, err = ParseDataURL(urlStr)
	case l.dataOnly:
		return nil, fmt.Errorf("%s: %w", urlStr, ErrDisallowed)
	default:
		var resolved string
		resolved, err = l.resolveURL(urlStr)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(resolved, "http://") || strings.HasPrefix(resolved, "https://") {
			res, err = l.loadRemote(ctx, resolved)
		} else {
			res, err = l.loadLocal(resolved)
		}
	}
	if err != nil {
		return nil, err
	}

	l.cacheLock.Lock()
	l.cache[urlStr] = res
	l.cacheLock.Unlock()
	return res, nil
}

// ParseDataURL parses an RFC 2397 data URL such as
// data:image/png;base64,<base64>.
func ParseDataURL(u string) (*Resource, error) {
	s, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return nil, fmt.Errorf("not a data URL")
	}
	meta, dataPart, ok := strings.Cut(s, ",")
	if !ok {
		return nil, fmt.Errorf("invalid data URL")
	}

	mime := "application/octet-stream"
	isBase64 := false
	comps := strings.Split(meta, ";")
	if comps[0] != "" {
		mime = comps[0]
	}
	for _, c := range comps[1:] {
		if strings.EqualFold(strings.TrimSpace(c), "base64") {
			isBase64 = true
		}
	}

	var data []byte
	if isBase64 {
		var err error
		data, err = base64.StdEncoding.DecodeString(dataPart)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data URL: %w", err)
		}
	} else if d, err := url.QueryUnescape(dataPart); err == nil {
		data = []byte(d)
	} else {
		data = []byte(dataPart)
	}

	return &Resource{URL: u, Data: data, MimeType: mime, Type: determineResourceType(mime, "")}, nil
}

// DataURL encodes data as a base64 data URL.
func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (l *Loader) resolveURL(urlStr string) (string, error) {
	if strings.HasPrefix(urlStr, "http://") || strings.HasPrefix(urlStr, "https://") {
		return urlStr, nil
	}
	if filepath.IsAbs(urlStr) || l.BaseURL == "" {
		return urlStr, nil
	}

	if !strings.HasPrefix(l.BaseURL, "http://") && !strings.HasPrefix(l.BaseURL, "https://") {
		return filepath.Join(filepath.Dir(l.BaseURL), urlStr), nil
	}

	baseURL, err := url.Parse(l.BaseURL)
	if err != nil {
		return "", err
	}
	relURL, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(relURL).String(), nil
}

func (l *Loader) loadRemote(ctx context.Context, urlStr string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	mime := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "" {
		mime = determineMimeType(urlStr)
	}
	return &Resource{URL: urlStr, Data: data, MimeType: mime, Type: determineResourceType(mime, urlStr)}, nil
}

func (l *Loader) loadLocal(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l.loadFromSearchPaths(path)
		}
		return nil, err
	}
	mime := determineMimeType(path)
	return &Resource{URL: path, Data: data, MimeType: mime, Type: determineResourceType(mime, path)}, nil
}

func (l *Loader) loadFromSearchPaths(filename string) (*Resource, error) {
	base := filepath.Base(filename)
	for _, searchPath := range l.searchPaths {
		path := filepath.Join(searchPath, base)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		mime := determineMimeType(path)
		return &Resource{URL: path, Data: data, MimeType: mime, Type: determineResourceType(mime, path)}, nil
	}
	return nil, fmt.Errorf("%s: %w", filename, ErrNotFound)
}

func determineMimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".tiff", ".tif":
		return "image/tiff"
	case ".bmp":
		return "image/bmp"
	case ".svg":
		return "image/svg+xml"
	case ".css":
		return "text/css"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

func determineResourceType(mimeType, path string) ResourceType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return ResourceTypeImage
	case mimeType == "text/css":
		return ResourceTypeCSS
	case mimeType == "text/html":
		return ResourceTypeHTML
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".tiff", ".tif", ".bmp":
		return ResourceTypeImage
	case ".css":
		return ResourceTypeCSS
	case ".html", ".htm":
		return ResourceTypeHTML
	}
	return ResourceTypeOther
}

// LoadImage loads an image resource
func (l *Loader) LoadImage(ctx context.Context, urlStr string) (*Resource, error) {
	res, err := l.Load(ctx, urlStr)
	if err != nil {
		return nil, err
	}
	if res.Type != ResourceTypeImage {
		return nil, fmt.Errorf("resource is not an image: %s", urlStr)
	}
	return res, nil
}

// LoadCSS loads a CSS resource
func (l *Loader) LoadCSS(ctx context.Context, urlStr string) (*Resource, error) {
	res, err := l.Load(ctx, urlStr)
	if err != nil {
		return nil, err
	}
	if res.Type != ResourceTypeCSS {
		return nil, fmt.Errorf("resource is not CSS: %s", urlStr)
	}
	return res, nil
}

// GetReader returns a reader for a resource
func (r *Resource) GetReader() *bytes.Reader {
	return bytes.NewReader(r.Data)
}

// GetString returns the resource data as a string
func (r *Resource) GetString() string {
	return string(r.Data)
}
