package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	walletgate "github.com/scholarchain/walletgate"
	"github.com/scholarchain/walletgate/kv"
	"github.com/scholarchain/walletgate/session"
)

type stubProvider struct {
	accounts []string
}

func (p *stubProvider) RequestAccounts(context.Context) ([]string, error) { return p.accounts, nil }
func (p *stubProvider) Accounts(context.Context) ([]string, error)        { return p.accounts, nil }

// guardedReconciler builds a reconciler whose cache holds a fresh session for
// the given role, with the wallet agreeing on the address.
func guardedReconciler(t *testing.T, role string) *walletgate.Reconciler {
	t.Helper()

	const address = "0xcccc00000000000000000000000000000000cccc"
	storage := kv.NewMemory()
	cfg := walletgate.DefaultConfig()

	sessions := session.NewStore(storage, cfg.Session.RecordKey, cfg.Session.LegacyTokenKey)
	err := sessions.Save(context.Background(), &session.Session{
		Address:  address,
		Token:    "tok-guard",
		Role:     role,
		LoggedIn: true,
		IssuedAt: time.Now().Unix(),
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	r, err := walletgate.New().
		WithStorage(storage).
		WithWallet(&stubProvider{accounts: []string{address}}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

func emptyReconciler(t *testing.T) *walletgate.Reconciler {
	t.Helper()
	r, err := walletgate.New().
		WithWallet(&stubProvider{}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

func TestSessionGuardRedirectsLoggedOut(t *testing.T) {
	guard := SessionGuard(emptyReconciler(t), Options{LoginURL: "/login"})
	handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without a session")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/42?tab=meta", nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}

	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse Location: %v", err)
	}
	if location.Path != "/login" {
		t.Errorf("redirect path = %q", location.Path)
	}
	if got := location.Query().Get(NextParam); got != "/documents/42?tab=meta" {
		t.Errorf("preserved URL = %q, want original request URI", got)
	}
}

func TestSessionGuardPassesLoggedIn(t *testing.T) {
	guard := SessionGuard(guardedReconciler(t, walletgate.RoleTeacher), Options{LoginURL: "/login"})

	var seen walletgate.ReconcileResult
	handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result, ok := ResultFromRequest(r)
		if !ok {
			t.Error("guard did not attach a result")
		}
		seen = result
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !seen.LoggedIn || seen.Role != walletgate.RoleTeacher {
		t.Errorf("attached result = %+v", seen)
	}
}

func TestSessionGuardRoleRequirement(t *testing.T) {
	t.Run("mismatch lands on default", func(t *testing.T) {
		guard := SessionGuard(guardedReconciler(t, walletgate.RoleStudent), Options{
			LoginURL:       "/login",
			DefaultLanding: "/home",
			RequiredRole:   walletgate.RoleDean,
		})
		handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("student reached a dean page")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/verification", nil))

		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/home" {
			t.Fatalf("got %d -> %q, want 303 -> /home", rec.Code, rec.Header().Get("Location"))
		}
	})

	t.Run("admin passes everywhere", func(t *testing.T) {
		guard := SessionGuard(guardedReconciler(t, walletgate.RoleAdmin), Options{
			LoginURL:     "/login",
			RequiredRole: walletgate.RoleDean,
		})
		handler := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/verification", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})
}

func TestGinSessionGuard(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("unauthorized is JSON not redirect", func(t *testing.T) {
		router := gin.New()
		router.GET("/api/documents",
			GinSessionGuard(emptyReconciler(t), Options{}),
			func(c *gin.Context) { c.Status(http.StatusOK) },
		)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("role mismatch is 403", func(t *testing.T) {
		router := gin.New()
		router.GET("/api/users",
			GinSessionGuard(guardedReconciler(t, walletgate.RoleTeacher), Options{RequiredRole: walletgate.RoleAdmin}),
			func(c *gin.Context) { c.Status(http.StatusOK) },
		)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))

		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("logged in attaches result", func(t *testing.T) {
		router := gin.New()
		router.GET("/api/me",
			GinSessionGuard(guardedReconciler(t, walletgate.RoleDean), Options{}),
			func(c *gin.Context) {
				result, ok := ResultFromGin(c)
				if !ok || result.Role != walletgate.RoleDean {
					t.Errorf("attached result = (%+v, %v)", result, ok)
				}
				c.Status(http.StatusOK)
			},
		)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})
}
