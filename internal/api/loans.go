package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
)

// LoansHandler handles loan requests, decisions and returns.
type LoansHandler struct {
	Lending *lending.Service
	Metrics *Metrics
}

type submitLoanRequest struct {
	ItemID string `json:"itemId"`
}

// Submit handles POST /api/loans. The caller is the borrower.
func (h *LoansHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ItemID == "" {
		jsonError(w, http.StatusBadRequest, "itemId required")
		return
	}

	claims := GetClaims(r.Context())
	id, err := h.Lending.SubmitLoanRequest(r.Context(), req.ItemID, claims.UID())
	if err != nil {
		serviceError(w, err, "submit loan request")
		return
	}

	slog.Info("loan requested", "user", claims.Username, "loan_id", id, "item_id", req.ItemID)
	jsonResponse(w, http.StatusCreated, map[string]string{"id": id})
}

// Get handles GET /api/loans/{id}. Students may only see their own loans.
func (h *LoansHandler) Get(w http.ResponseWriter, r *http.Request) {
	loan, err := h.Lending.GetLoan(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, err, "get loan")
		return
	}

	claims := GetClaims(r.Context())
	if loan.BorrowerUID != claims.UID() && !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		jsonError(w, http.StatusNotFound, "loan not found")
		return
	}
	jsonResponse(w, http.StatusOK, loan)
}

// Mine handles GET /api/loans/mine.
func (h *LoansHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	h.list(w, r, "list loans", func() ([]lending.LoanView, error) {
		return h.Lending.ListBorrowerLoans(r.Context(), claims.UID())
	})
}

// Pending handles GET /api/loans/pending.
func (h *LoansHandler) Pending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "list pending loans", func() ([]lending.LoanView, error) {
		return h.Lending.ListPending(r.Context())
	})
}

// Active handles GET /api/loans/active.
func (h *LoansHandler) Active(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "list active loans", func() ([]lending.LoanView, error) {
		return h.Lending.ListActive(r.Context())
	})
}

// History handles GET /api/loans/history.
func (h *LoansHandler) History(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "list loan history", func() ([]lending.LoanView, error) {
		return h.Lending.ListHistory(r.Context())
	})
}

func (h *LoansHandler) list(w http.ResponseWriter, _ *http.Request, what string, fetch func() ([]lending.LoanView, error)) {
	loans, err := fetch()
	if err != nil {
		serviceError(w, err, what)
		return
	}
	if loans == nil {
		loans = []lending.LoanView{}
	}
	jsonResponse(w, http.StatusOK, loans)
}

// Transition returns the handler for POST /api/loans/{id}/{action}.
func (h *LoansHandler) Transition(action model.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		var (
			loan *model.Loan
			err  error
		)
		if action == model.ActionReturn {
			loan, err = h.Lending.RecordReturn(r.Context(), id)
		} else {
			loan, err = h.Lending.Decide(r.Context(), id, action)
		}
		h.Metrics.ObserveTransition(action, err)
		if err != nil {
			serviceError(w, err, string(action)+" loan")
			return
		}

		claims := GetClaims(r.Context())
		slog.Info("loan "+string(loan.Status), "user", claims.Username, "loan_id", loan.ID, "item_id", loan.ItemID)
		jsonResponse(w, http.StatusOK, loan)
	}
}

// Stats handles GET /api/stats.
func (h *LoansHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Lending.Stats(r.Context())
	if err != nil {
		serviceError(w, err, "get stats")
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}
