package settingspage

import (
	"bytes"
	"html"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/serlink/internal/logging"
	"github.com/muurk/serlink/internal/settings"
)

// DefaultMaxPorts is the number of serial ports the reference hardware has.
const DefaultMaxPorts = 4

// Renderer turns settings snapshots into the settings page.
// Renderer holds no mutable state and is safe for concurrent use.
type Renderer struct {
	templates *Templates
	maxPorts  int
	logger    *zap.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMaxPorts sets the port capacity used for the InvalidPortCount check.
// Values below zero are treated as zero.
func WithMaxPorts(n int) Option {
	return func(r *Renderer) {
		if n < 0 {
			n = 0
		}
		r.maxPorts = n
	}
}

// WithLogger sets the logger used for render diagnostics.
// By default the global logger from the logging package is used.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) {
		r.logger = l
	}
}

// NewRenderer creates a renderer for the given templates. A nil t selects
// DefaultTemplates.
func NewRenderer(t *Templates, opts ...Option) *Renderer {
	if t == nil {
		t = DefaultTemplates()
	}
	r := &Renderer{
		templates: t,
		maxPorts:  DefaultMaxPorts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxPorts returns the configured port capacity.
func (r *Renderer) MaxPorts() int {
	return r.maxPorts
}

func (r *Renderer) log() *zap.Logger {
	if r.logger != nil {
		return r.logger
	}
	return logging.GetLogger()
}

// RenderPage produces the full page for s: header, one port block per
// entry of s.Ports in slice order, then footer. Every line ends in "\n".
//
// It returns an InvalidPortCount error when s has more ports than the
// renderer allows, and an EncodingFailure error when a field cannot be
// represented in the page. On error no partial page is returned.
//
// A baud rate or flow control with no matching option renders with no
// option selected; this is logged as a warning rather than failing.
func (r *Renderer) RenderPage(s settings.Snapshot) (string, error) {
	var buf bytes.Buffer
	if err := r.render(&buf, &s); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render writes the page for s to w. The page is built in memory first so
// that w receives nothing when rendering fails.
func (r *Renderer) Render(w io.Writer, s settings.Snapshot) (int, error) {
	var buf bytes.Buffer
	if err := r.render(&buf, &s); err != nil {
		return 0, err
	}
	n, err := w.Write(buf.Bytes())
	return n, err
}

func (r *Renderer) render(buf *bytes.Buffer, s *settings.Snapshot) error {
	start := time.Now()

	if len(s.Ports) > r.maxPorts {
		return settings.NewPortCountError(len(s.Ports), r.maxPorts)
	}
	if err := settings.ValidateEncoding(*s); err != nil {
		return err
	}

	t := r.templates
	buf.Grow(t.header.size() + t.footer.size() + len(s.Ports)*t.port.size())

	ctx := &renderContext{snapshot: s}
	writeSet(buf, t.header, ctx, nil)

	for i := range s.Ports {
		ctx.port = &s.Ports[i]
		matched := make(map[group]bool, len(t.groups))
		writeSet(buf, t.port, ctx, matched)

		for _, g := range t.groups {
			if !matched[g] {
				r.log().Warn("No option matched, rendering without selection",
					zap.String("port", s.Ports[i].Label()),
					zap.String("group", string(g)),
					zap.Int("baud_rate", int(s.Ports[i].BaudRate)),
					zap.String("flow_control", string(s.Ports[i].FlowControl)),
				)
			}
		}
	}
	ctx.port = nil

	writeSet(buf, t.footer, ctx, nil)

	logging.LogPageRender(len(s.Ports), buf.Len(), time.Since(start))
	return nil
}

func writeSet(buf *bytes.Buffer, set compiledSet, ctx *renderContext, matched map[group]bool) {
	for _, line := range set {
		for _, seg := range line {
			switch seg.kind {
			case segLiteral:
				buf.WriteString(seg.text)
			case segField:
				buf.WriteString(html.EscapeString(seg.field.resolve(ctx)))
			case segIndex:
				buf.WriteString(indexText(ctx.port.Index))
			case segSelect:
				if seg.option.active(*ctx.port) {
					buf.WriteString(selectedMarker)
					matched[seg.option.group] = true
				}
			}
		}
		buf.WriteByte('\n')
	}
}

var defaultRenderer = sync.OnceValue(func() *Renderer {
	return NewRenderer(DefaultTemplates())
})

// RenderPage renders s with the built-in templates and DefaultMaxPorts.
func RenderPage(s settings.Snapshot) (string, error) {
	return defaultRenderer().RenderPage(s)
}
