// Package export renders graph documents to portable formats (DOT, SVG,
// PNG). Rendering goes through a DOT surface so every variant exports the
// same way, and rasterization is delegated to Graphviz.
package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-graphviz"

	"github.com/gioppoluca/foundry-graph-sub000/pkg/cache"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/document"
	apperrors "github.com/gioppoluca/foundry-graph-sub000/pkg/errors"
	"github.com/gioppoluca/foundry-graph-sub000/pkg/renderer"
)

// Export formats.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPNG = "png"
)

// maxInlineFetches bounds the concurrent image downloads per export.
const maxInlineFetches = 4

// Exporter renders documents through the variant registry. Exports for an
// unchanged document revision are served from cache when one is attached.
type Exporter struct {
	registry *renderer.Registry
	cache    cache.Cache
	keyer    cache.Keyer
	client   *http.Client
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithCache attaches a cache for rendered exports.
func WithCache(c cache.Cache, k cache.Keyer) Option {
	return func(e *Exporter) { e.cache, e.keyer = c, k }
}

// WithHTTPClient overrides the client used to fetch node images.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Exporter) { e.client = c }
}

// New creates an exporter over the given variant registry.
func New(reg *renderer.Registry, opts ...Option) *Exporter {
	e := &Exporter{
		registry: reg,
		cache:    cache.NewNullCache(),
		keyer:    cache.NewDefaultKeyer(),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export renders the document in the requested format. The revision keys the
// cache entry, so stale revisions never shadow newer ones.
func (e *Exporter) Export(ctx context.Context, d *document.GraphDocument, revision int, format string) ([]byte, error) {
	switch format {
	case FormatDOT, FormatSVG, FormatPNG:
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidFormat, "unsupported export format %q", format)
	}

	key := e.keyer.ExportKey(e.contentHash(d, revision), format)
	if data, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		log.FromContext(ctx).Debug("export cache hit", "graph", d.ID, "format", format)
		return data, nil
	}

	data, err := e.render(ctx, d, format)
	if err != nil {
		return nil, err
	}

	if err := e.cache.Set(ctx, key, data, time.Hour); err != nil {
		// Cache failures degrade to a cold export, never to an error.
		log.FromContext(ctx).Warn("export cache write failed", "graph", d.ID, "err", err)
	}
	return data, nil
}

// contentHash identifies the document state for cache keying. A known
// revision is the cheap stable handle; without one (ad hoc exports of unsaved
// documents) the key falls back to hashing the serialized document.
func (e *Exporter) contentHash(d *document.GraphDocument, revision int) string {
	if revision > 0 {
		return fmt.Sprintf("%s@%d", d.ID, revision)
	}
	data, err := document.Marshal(d)
	if err != nil {
		return d.ID
	}
	return cache.Hash(data)
}

func (e *Exporter) render(ctx context.Context, d *document.GraphDocument, format string) ([]byte, error) {
	v, err := e.registry.New(d.RendererID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRenderer, err, "resolve renderer")
	}
	defer v.Teardown()

	s := NewDOTSurface()
	if err := v.Render(s, d); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidDocument, err, "render for export")
	}
	dot := s.DOT()

	if format == FormatDOT {
		return []byte(dot), nil
	}

	svg, err := renderSVG(ctx, dot)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "rasterize")
	}
	svg = e.inlineImages(ctx, svg)

	if format == FormatSVG {
		return svg, nil
	}
	return renderPNG(ctx, dot)
}

// renderSVG renders DOT to SVG via Graphviz.
func renderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// renderPNG renders DOT straight to PNG via Graphviz.
func renderPNG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
	hrefRe    = regexp.MustCompile(`xlink:href="(https?://[^"]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// inlineImages replaces remote image references in the SVG with base64 data
// URIs so the export is self-contained. Fetches run concurrently, bounded by
// maxInlineFetches; an image that fails to download is simply left as a
// remote reference.
func (e *Exporter) inlineImages(ctx context.Context, svg []byte) []byte {
	matches := hrefRe.FindAllSubmatch(svg, -1)
	if len(matches) == 0 {
		return svg
	}

	urls := map[string]bool{}
	for _, m := range matches {
		urls[string(m[1])] = true
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		inlined = map[string][]byte{}
		sem     = make(chan struct{}, maxInlineFetches)
	)
	for url := range urls {
		wg.Add(1)
		sem <- struct{}{}
		go func(url string) {
			defer wg.Done()
			defer func() { <-sem }()

			data, err := e.fetchImage(ctx, url)
			if err != nil {
				log.FromContext(ctx).Debug("image inline skipped", "url", url, "err", err)
				return
			}
			mu.Lock()
			inlined[url] = data
			mu.Unlock()
		}(url)
	}
	wg.Wait()

	return hrefRe.ReplaceAllFunc(svg, func(match []byte) []byte {
		url := string(hrefRe.FindSubmatch(match)[1])
		data, ok := inlined[url]
		if !ok {
			return match
		}
		uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
		return []byte(`xlink:href="` + uri + `"`)
	})
}

func (e *Exporter) fetchImage(ctx context.Context, url string) ([]byte, error) {
	if err := apperrors.ValidateImageURL(url); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}
