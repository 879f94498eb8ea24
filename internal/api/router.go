package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/izposoja/internal/auth"
	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
// The users table lives in db; items and loans are reached through svc.
func NewRouter(db *sql.DB, svc *lending.Service, sessions *auth.Sessions, metrics *Metrics) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, Sessions: sessions}
	usersHandler := &UsersHandler{DB: db}
	itemsHandler := &ItemsHandler{Lending: svc}
	loansHandler := &LoansHandler{Lending: svc, Metrics: metrics}

	authMW := AuthMiddleware(sessions, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }
	member := func(h http.HandlerFunc) http.Handler { return authMW(h) }

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("GET /api/auth/me", member(authHandler.Me))
	mux.Handle("PUT /api/auth/password", member(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", member(authHandler.Logout))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Catalog: read (all roles), write (admin).
	mux.Handle("GET /api/items", member(itemsHandler.List))
	mux.Handle("POST /api/items", admin(itemsHandler.Create))
	mux.Handle("GET /api/items/{id}", member(itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}", admin(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", admin(itemsHandler.Delete))
	mux.Handle("GET /api/items/{id}/photo", member(itemsHandler.GetPhoto))
	mux.Handle("PUT /api/items/{id}/photo", admin(itemsHandler.UploadPhoto))

	// Loans: students request and see their own; admins decide and track.
	mux.Handle("POST /api/loans", member(loansHandler.Submit))
	mux.Handle("GET /api/loans/mine", member(loansHandler.Mine))
	mux.Handle("GET /api/loans/pending", admin(loansHandler.Pending))
	mux.Handle("GET /api/loans/active", admin(loansHandler.Active))
	mux.Handle("GET /api/loans/history", admin(loansHandler.History))
	mux.Handle("GET /api/loans/{id}", member(loansHandler.Get))
	mux.Handle("POST /api/loans/{id}/approve", admin(loansHandler.Transition(model.ActionApprove)))
	mux.Handle("POST /api/loans/{id}/reject", admin(loansHandler.Transition(model.ActionReject)))
	mux.Handle("POST /api/loans/{id}/return", admin(loansHandler.Transition(model.ActionReturn)))
	mux.Handle("GET /api/stats", admin(loansHandler.Stats))

	if metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	return mux
}
