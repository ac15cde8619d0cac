// Package middleware adapts the reconciler to HTTP handler chains: a session
// guard for protected pages and a gin variant for API routes.
package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	walletgate "github.com/scholarchain/walletgate"
)

// NextParam is the query parameter carrying the originally requested URL
// through the login redirect.
const NextParam = "next"

type resultContextKey struct{}

// Options configures a session guard.
type Options struct {
	// LoginURL receives logged-out visitors. The requested URL is preserved
	// in the NextParam query parameter.
	LoginURL string

	// DefaultLanding receives logged-in visitors whose role does not meet
	// RequiredRole. Defaults to "/".
	DefaultLanding string

	// RequiredRole, when set, restricts the guarded routes to that role.
	// Admin always passes.
	RequiredRole string

	// Sensitive marks the guarded pages as administrative or upload-capable,
	// so account changes reload them rather than reconciling in place.
	Sensitive bool
}

// SessionGuard wraps a handler chain with reconciliation. Logged-out
// requests are redirected to the login page with the original URL preserved;
// role mismatches land on DefaultLanding.
func SessionGuard(r *walletgate.Reconciler, opts Options) func(http.Handler) http.Handler {
	if opts.DefaultLanding == "" {
		opts.DefaultLanding = "/"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			requested := req.URL.RequestURI()
			ctx := walletgate.WithPageURL(req.Context(), requested)
			ctx = walletgate.WithSensitivePage(ctx, opts.Sensitive)
			ctx = walletgate.WithClientIP(ctx, clientIP(req))

			result, err := r.Reconcile(ctx)
			if err != nil || !result.LoggedIn {
				redirectToLogin(w, req, opts.LoginURL, requested)
				return
			}

			if opts.RequiredRole != "" &&
				result.Role != opts.RequiredRole &&
				result.Role != walletgate.RoleAdmin {
				http.Redirect(w, req, opts.DefaultLanding, http.StatusSeeOther)
				return
			}

			ctx = context.WithValue(ctx, resultContextKey{}, result)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// ResultFromRequest returns the reconcile result the guard attached, or
// false when the request did not pass through a guard.
func ResultFromRequest(req *http.Request) (walletgate.ReconcileResult, bool) {
	result, ok := req.Context().Value(resultContextKey{}).(walletgate.ReconcileResult)
	return result, ok
}

func redirectToLogin(w http.ResponseWriter, req *http.Request, loginURL, requested string) {
	target := loginURL
	if requested != "" && requested != "/" {
		separator := "?"
		if strings.Contains(loginURL, "?") {
			separator = "&"
		}
		target = loginURL + separator + NextParam + "=" + url.QueryEscape(requested)
	}
	http.Redirect(w, req, target, http.StatusSeeOther)
}

func clientIP(req *http.Request) string {
	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, found := strings.Cut(forwarded, ","); found {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}
	host := req.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}
