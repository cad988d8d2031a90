package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

type transactionJSON struct {
	ID          int64   `json:"id"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Type:        string(t.Type),
		Description: t.Description,
		Amount:      t.Amount.Rupees(),
		Date:        t.Date.String(),
	}
}

type addTransactionRequest struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Date        string      `json:"date"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.addTransaction(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	txs, err := s.ledger.Transactions(r.Context(), owner)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "List transactions failed", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]transactionJSON, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionJSON(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) addTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	var req addTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount.String())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	if cents < 0 {
		writeError(w, http.StatusUnprocessableEntity, "amount must not be negative")
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date, expected YYYY-MM-DD")
		return
	}

	tx := core.Transaction{
		Type:        core.TransactionType(req.Type),
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		Date:        date,
	}
	if err := tx.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	stored, err := s.ledger.AddTransaction(r.Context(), owner, tx)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Add transaction failed", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionJSON(stored))
}

func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}

	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	// Unknown IDs delete silently; removal is idempotent.
	if err := s.ledger.RemoveTransaction(r.Context(), owner, id); err != nil {
		s.logger.ErrorContext(r.Context(), "Remove transaction failed", "owner", owner, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	if err := s.ledger.Reset(r.Context(), owner); err != nil {
		s.logger.ErrorContext(r.Context(), "Reset failed", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type summaryResponse struct {
	Income       float64  `json:"income"`
	Expense      float64  `json:"expense"`
	Balance      float64  `json:"balance"`
	GoalProgress float64  `json:"goalProgress"`
	GoalStatus   string   `json:"goalStatus"`
	Suggestions  []string `json:"suggestions"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	sum, err := s.ledger.Summary(r.Context(), owner)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Summary failed", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	goal, err := s.ledger.Goal(r.Context(), owner)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Goal read failed", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	progress, _ := core.GoalProgress(sum.BalanceCents, goal)
	writeJSON(w, http.StatusOK, summaryResponse{
		Income:       core.Money{Cents: sum.IncomeCents}.Rupees(),
		Expense:      core.Money{Cents: sum.ExpenseCents}.Rupees(),
		Balance:      core.Money{Cents: sum.BalanceCents}.Rupees(),
		GoalProgress: progress,
		GoalStatus:   core.GoalStatus(sum.BalanceCents, goal),
		Suggestions:  core.Suggestions(sum),
	})
}

type monthBucketJSON struct {
	Month   string  `json:"month"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	txs, err := s.ledger.Transactions(r.Context(), owner)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Monthly summary failed", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	buckets := core.MonthlyBuckets(txs)
	out := make([]monthBucketJSON, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, monthBucketJSON{
			Month:   b.Month,
			Income:  core.Money{Cents: b.IncomeCents}.Rupees(),
			Expense: core.Money{Cents: b.ExpenseCents}.Rupees(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type goalRequest struct {
	Amount json.Number `json:"amount"`
}

type goalResponse struct {
	Amount   float64 `json:"amount"`
	Progress float64 `json:"progress"`
	Status   string  `json:"status"`
}

func (s *Server) handleGoal(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.readGoal(w, r)
	case http.MethodPut:
		s.setGoal(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

func (s *Server) readGoal(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	goal, err := s.ledger.Goal(r.Context(), owner)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Goal read failed", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	sum, err := s.ledger.Summary(r.Context(), owner)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Summary failed", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	progress, _ := core.GoalProgress(sum.BalanceCents, goal)
	writeJSON(w, http.StatusOK, goalResponse{
		Amount:   core.Money{Cents: goal}.Rupees(),
		Progress: progress,
		Status:   core.GoalStatus(sum.BalanceCents, goal),
	})
}

func (s *Server) setGoal(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount.String())
	if err != nil || cents < 0 {
		writeError(w, http.StatusUnprocessableEntity, "invalid goal amount")
		return
	}

	if err := s.ledger.SetGoal(r.Context(), owner, cents); err != nil {
		s.logger.ErrorContext(r.Context(), "Goal write failed", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type themeRequest struct {
	Theme string `json:"theme"`
}

type themeResponse struct {
	Theme string `json:"theme"`
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		owner, ok := s.requireOwner(w, r)
		if !ok {
			return
		}
		theme, err := s.ledger.Theme(r.Context(), owner)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Theme read failed", "owner", owner, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, themeResponse{Theme: theme})

	case http.MethodPut:
		owner, ok := s.requireOwner(w, r)
		if !ok {
			return
		}
		var req themeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}
		if req.Theme != "dark" && req.Theme != "light" {
			writeError(w, http.StatusUnprocessableEntity, "theme must be 'dark' or 'light'")
			return
		}
		if err := s.ledger.SetTheme(r.Context(), owner, req.Theme); err != nil {
			s.logger.ErrorContext(r.Context(), "Theme write failed", "owner", owner, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if _, ok := s.requireOwner(w, r); !ok {
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Reply: core.AdvisorReply(req.Message)})
}
