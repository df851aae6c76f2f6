// Package audit emits one structured log line per inbound request,
// accumulating provider and batch details as the request flows through the
// handler. The entry is carried in the request context so any layer can
// annotate it without plumbing.
package audit

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog"
)

// Level is the level audit entries are written at.
const Level = zerolog.InfoLevel

type auditKey struct{}

// Entry is the accumulated audit record for one request. Zero-valued
// sections are elided from the log output.
type Entry struct {
	Method    string
	Path      string
	Status    int
	SourceIP  string
	UserAgent string

	Provider  string
	Operation string

	Succeeded      int
	Duplicated     int
	Invalid        int
	Errored        int
	TotalProcessed int
	RemainingQuota int

	Error string
}

// Context returns a context carrying an audit entry, creating and attaching
// one when absent.
func Context(ctx context.Context) (context.Context, *Entry) {
	if entry, ok := ctx.Value(auditKey{}).(*Entry); ok {
		return ctx, entry
	}

	entry := &Entry{RemainingQuota: -1}
	return context.WithValue(ctx, auditKey{}, entry), entry
}

// Log returns the entry attached to the context, or a detached entry when
// the middleware is not in the chain so callers never need a nil check.
func Log(ctx context.Context) *Entry {
	if entry, ok := ctx.Value(auditKey{}).(*Entry); ok {
		return entry
	}
	return &Entry{RemainingQuota: -1}
}

// Begin captures the request attributes. Status starts at 200 and is
// overwritten when the handler writes a different code.
func (e *Entry) Begin(r *http.Request) {
	e.Method = r.Method
	e.Path = r.URL.Path
	e.Status = http.StatusOK
	e.UserAgent = r.UserAgent()

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		e.SourceIP = host
	} else {
		e.SourceIP = r.RemoteAddr
	}
}

// End returns the completion function to defer. It writes the audit line
// even when the handler panics, recording the panic before re-raising it.
func (e *Entry) End(ctx context.Context) func() {
	return func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("panic: %v", r)
			if e.Error != "" {
				e.Error = e.Error + "; " + msg
			} else {
				e.Error = msg
			}
			e.write(ctx)
			panic(r)
		}
		e.write(ctx)
	}
}

func (e *Entry) write(ctx context.Context) {
	zerolog.Ctx(ctx).WithLevel(Level).EmbedObject(e).Msg("request audit")
}

// SetBatch copies a batch outcome into the entry.
func (e *Entry) SetBatch(succeeded, duplicated, invalid, errored, totalProcessed, remainingQuota int) {
	e.Succeeded = succeeded
	e.Duplicated = duplicated
	e.Invalid = invalid
	e.Errored = errored
	e.TotalProcessed = totalProcessed
	e.RemainingQuota = remainingQuota
}

// MarshalZerologObject serializes the entry as nested dicts: request is
// always present, provider and batch only when annotated.
func (e *Entry) MarshalZerologObject(ev *zerolog.Event) {
	request := zerolog.Dict().
		Str("method", e.Method).
		Str("path", e.Path).
		Int("status", e.Status)
	if e.SourceIP != "" {
		request.Str("sourceIP", e.SourceIP)
	}
	if e.UserAgent != "" {
		request.Str("userAgent", e.UserAgent)
	}
	ev.Dict("request", request)

	provider := NewOptionalEvent(nil).
		Str("name", e.Provider).
		Str("operation", e.Operation)
	provider.Set(ev, "provider")

	batch := NewOptionalEvent(nil).
		Int("succeeded", e.Succeeded).
		Int("duplicated", e.Duplicated).
		Int("invalid", e.Invalid).
		Int("errored", e.Errored).
		Int("totalProcessed", e.TotalProcessed)
	if e.RemainingQuota >= 0 {
		batch.Event().Int("remainingQuota", e.RemainingQuota)
	}
	batch.Set(ev, "batch")

	if e.Error != "" {
		ev.Str("error", e.Error)
	}
}

type statusWriter struct {
	http.ResponseWriter
	entry *Entry
}

func (w *statusWriter) WriteHeader(status int) {
	w.entry.Status = status
	w.ResponseWriter.WriteHeader(status)
}

// Middleware attaches an audit entry to the request context and writes it
// when the handler returns.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, entry := Context(r.Context())
			entry.Begin(r)
			defer entry.End(ctx)()

			next.ServeHTTP(&statusWriter{ResponseWriter: w, entry: entry}, r.WithContext(ctx))
		})
	}
}
