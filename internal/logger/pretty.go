package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// PrettyHandler is a slog.Handler that writes one colored line per record:
//
//	[2006-01-02 15:04:05] INFO  model loaded model=... elapsed=1.2s
//
// Attributes named "error" are highlighted. Colors are dropped when NO_COLOR
// is set.
type PrettyHandler struct {
	level   slog.Leveler
	w       io.Writer
	mu      *sync.Mutex
	noColor bool
	group   string
	// attrs are already qualified with the group that was open when they
	// were added.
	attrs []slog.Attr
}

func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	_, noColor := os.LookupEnv("NO_COLOR")
	return &PrettyHandler{
		level:   level,
		w:       w,
		mu:      &sync.Mutex{},
		noColor: noColor,
	}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)

	buf = h.paint(buf, colorGray, func(b []byte) []byte {
		b = append(b, '[')
		b = r.Time.AppendFormat(b, time.DateTime)
		return append(b, ']')
	})
	buf = append(buf, ' ')
	buf = h.paint(buf, levelColor(r.Level)+colorBold, func(b []byte) []byte {
		return fmt.Appendf(b, "%-5s", r.Level.String())
	})
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)

	for _, a := range h.attrs {
		buf = h.appendAttr(buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		buf = h.appendAttr(buf, qualify(a, h.group))
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, qualify(a, h.group))
	}
	return &clone
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func (h *PrettyHandler) paint(buf []byte, color string, body func([]byte) []byte) []byte {
	if h.noColor {
		return body(buf)
	}
	buf = append(buf, color...)
	buf = body(buf)
	return append(buf, colorReset...)
}

func (h *PrettyHandler) appendAttr(buf []byte, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}
	color := colorCyan
	if a.Key == "error" || strings.HasSuffix(a.Key, ".error") {
		color = colorRed
	}
	buf = append(buf, ' ')
	return h.paint(buf, color, func(b []byte) []byte {
		b = append(b, a.Key...)
		b = append(b, '=')
		return appendValue(b, a.Value)
	})
}

func qualify(a slog.Attr, group string) slog.Attr {
	if group != "" {
		a.Key = group + "." + a.Key
	}
	return a
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorBlue
	default:
		return colorGray
	}
}

func appendValue(buf []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		return appendString(buf, v.String())
	case slog.KindDuration:
		return append(buf, v.Duration().String()...)
	case slog.KindTime:
		return v.Time().AppendFormat(buf, time.RFC3339)
	case slog.KindGroup:
		buf = append(buf, '{')
		for i, a := range v.Group() {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = append(buf, a.Key...)
			buf = append(buf, '=')
			buf = appendValue(buf, a.Value.Resolve())
		}
		return append(buf, '}')
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return appendString(buf, err.Error())
		}
		return appendString(buf, fmt.Sprint(v.Any()))
	default:
		return append(buf, v.String()...)
	}
}

func appendString(buf []byte, s string) []byte {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}
