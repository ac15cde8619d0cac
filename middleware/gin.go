package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	walletgate "github.com/scholarchain/walletgate"
)

// resultGinKey is the gin context key the guard stores its result under.
const resultGinKey = "walletgate.result"

// GinSessionGuard is the API-route variant of [SessionGuard]: instead of
// redirecting it aborts with a JSON error body, matching what fetch-style
// callers expect.
func GinSessionGuard(r *walletgate.Reconciler, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		requested := c.Request.URL.RequestURI()
		ctx := walletgate.WithPageURL(c.Request.Context(), requested)
		ctx = walletgate.WithSensitivePage(ctx, opts.Sensitive)
		ctx = walletgate.WithClientIP(ctx, c.ClientIP())

		result, err := r.Reconcile(ctx)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "session check failed",
			})
			return
		}
		if !result.LoggedIn {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "not logged in",
				"reason":  result.Reason,
			})
			return
		}

		if opts.RequiredRole != "" &&
			result.Role != opts.RequiredRole &&
			result.Role != walletgate.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "insufficient role",
			})
			return
		}

		c.Set(resultGinKey, result)
		c.Next()
	}
}

// ResultFromGin returns the reconcile result the guard attached, or false
// when the handler chain has no guard.
func ResultFromGin(c *gin.Context) (walletgate.ReconcileResult, bool) {
	value, exists := c.Get(resultGinKey)
	if !exists {
		return walletgate.ReconcileResult{}, false
	}
	result, ok := value.(walletgate.ReconcileResult)
	return result, ok
}
