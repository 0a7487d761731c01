package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/propadmin/backoffice/internal/auth"
	"github.com/propadmin/backoffice/internal/config"
	"github.com/propadmin/backoffice/internal/contifico"
	"github.com/propadmin/backoffice/internal/handlers"
	"github.com/propadmin/backoffice/internal/httpx"
	"github.com/propadmin/backoffice/internal/models"
	"github.com/propadmin/backoffice/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, cfg config.Config) http.Handler {
	mux := http.NewServeMux()

	// Sessions resolve to an Actor carrying the role; services receive it
	// explicitly, nothing reads it ambiently.
	auth.SetActorResolver(func(_ context.Context, uid uint) (auth.Actor, bool) {
		var user models.User
		if err := db.Preload("Role").First(&user, uid).Error; err != nil {
			return auth.Actor{}, false
		}
		return auth.Actor{UserID: user.ID, Role: user.Role.Name}, true
	})

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth endpoints
	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	secured := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(auth.RequireAuth(h))
	}
	post := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				w.Header().Set("Allow", "POST")
				httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
				return
			}
			h(w, r)
		}
	}

	// Collections / invoice endpoints
	ih := handlers.NewInvoiceHandler(db)
	mux.Handle("/invoices", secured(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
			return
		}
		ih.List(w, r)
	}))
	mux.Handle("/invoices/detail", secured(ih.Detail))
	mux.Handle("/invoices/proof", secured(post(ih.AttachProof)))
	mux.Handle("/invoices/approve", secured(post(ih.Approve)))
	mux.Handle("/invoices/reject", secured(post(ih.Reject)))
	mux.Handle("/invoices/retention", secured(post(ih.Retention)))
	mux.Handle("/invoices/recalculate", secured(post(ih.Recalculate)))

	// Payment endpoints
	ph := handlers.NewPaymentHandler(db)
	mux.Handle("/payments", secured(post(ph.Create)))

	source := contifico.NewClient(cfg.ContificoBaseURL, cfg.ContificoAPIKey, cfg.ContificoTimeout)
	sh := handlers.NewSyncHandler(services.NewSyncService(db, source))
	mux.Handle("/payments/sync", secured(post(sh.Handle)))

	// Property endpoints
	prh := handlers.NewPropertyHandler(db)
	mux.Handle("/properties", secured(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			prh.List(w, r)
		case http.MethodPost:
			prh.Create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	}))
	mux.Handle("/properties/update", secured(post(prh.Update)))

	return withRecover(withLogging(mux))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
