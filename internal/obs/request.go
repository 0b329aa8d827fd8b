package obs

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RequestInfo holds request attributes that only become known once the
// router and the access gates have run. The outermost observability
// middleware attaches it and reads it back after the handler returns.
type RequestInfo struct {
	Section string
}

type requestInfoKey struct{}

func attachInfo(r *http.Request) (*http.Request, *RequestInfo) {
	if info, ok := r.Context().Value(requestInfoKey{}).(*RequestInfo); ok {
		return r, info
	}
	info := &RequestInfo{}
	return r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)), info
}

// SetSection records the dashboard section that authorised the request.
func SetSection(ctx context.Context, section string) {
	if info, ok := ctx.Value(requestInfoKey{}).(*RequestInfo); ok {
		info.Section = section
	}
}

// Route reports the chi pattern that served r. It is only complete after the
// router has run; requests no route matched report "unmatched".
func Route(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

func sectionLabel(info *RequestInfo) string {
	if info.Section == "" {
		return "none"
	}
	return info.Section
}
