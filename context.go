package walletgate

import "context"

type pageURLContextKey struct{}
type sensitivePageContextKey struct{}
type clientIPContextKey struct{}

// WithPageURL attaches the current page URL to ctx. The Reconciler records it
// in audit events and the SessionGuard uses it as the post-login return target.
func WithPageURL(ctx context.Context, url string) context.Context {
	return context.WithValue(ctx, pageURLContextKey{}, url)
}

// WithSensitivePage marks the current page as administrative or
// upload-capable. Account-changed events reload sensitive pages instead of
// reconciling in place.
func WithSensitivePage(ctx context.Context, sensitive bool) context.Context {
	return context.WithValue(ctx, sensitivePageContextKey{}, sensitive)
}

// WithClientIP attaches the caller's IP address to ctx for audit logging.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func pageURLFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	url, _ := ctx.Value(pageURLContextKey{}).(string)
	return url
}

func sensitivePageFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	sensitive, _ := ctx.Value(sensitivePageContextKey{}).(bool)
	return sensitive
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
