package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/graphlens/internal/apperr"
	"github.com/starford/graphlens/internal/query"
)

// entityName extracts the {name} path segment. Supports encoded characters
// from clients (e.g. Acme%20Corp).
func entityName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// queryParams reads typed query parameters and keeps the first parse error.
type queryParams struct {
	v   url.Values
	err error
}

func newQueryParams(r *http.Request) *queryParams {
	return &queryParams{v: r.URL.Query()}
}

func (p *queryParams) fail(name, format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s: %s", apperr.ErrInvalidInput, name, fmt.Sprintf(format, args...))
	}
}

// Err returns the first invalid parameter, wrapping apperr.ErrInvalidInput.
func (p *queryParams) Err() error { return p.err }

func (p *queryParams) str(name, def string) string {
	if s := strings.TrimSpace(p.v.Get(name)); s != "" {
		return s
	}
	return def
}

// list splits a comma-separated parameter, trimming values and dropping
// empty segments. It returns nil when nothing remains.
func (p *queryParams) list(name string) []string {
	raw := p.v.Get(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// integer parses an integer in [lo, hi]; hi < lo means unbounded above.
func (p *queryParams) integer(name string, def, lo, hi int) int {
	raw := p.v.Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(name, "not an integer")
		return def
	}
	if n < lo || (hi >= lo && n > hi) {
		p.fail(name, "out of range")
		return def
	}
	return n
}

func (p *queryParams) optInt(name string, lo int) *int {
	if p.v.Get(name) == "" {
		return nil
	}
	n := p.integer(name, lo, lo, lo-1)
	return &n
}

func (p *queryParams) optInt64(name string) *int64 {
	raw := p.v.Get(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.fail(name, "not an integer")
		return nil
	}
	return &n
}

func (p *queryParams) number(name string, def, lo, hi float64) float64 {
	raw := p.v.Get(name)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(name, "not a number")
		return def
	}
	if f < lo || f > hi {
		p.fail(name, "must be between %g and %g", lo, hi)
		return def
	}
	return f
}

func (p *queryParams) boolean(name string, def bool) bool {
	raw := p.v.Get(name)
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(name, "not a boolean")
		return def
	}
	return b
}

func (p *queryParams) sortOrder(name string, def query.SortOrder) query.SortOrder {
	return query.SortOrder(strings.ToLower(p.str(name, string(def))))
}
