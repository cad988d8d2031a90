package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/payment"
)

type createOrderRequest struct {
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
}

type createOrderResponse struct {
	OrderID     string `json:"orderId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	KeyID       string `json:"keyId"`
	Description string `json:"description"`
}

// verifyPaymentRequest uses the field names the Razorpay checkout handler
// posts back, so the browser payload verifies without renaming.
type verifyPaymentRequest struct {
	OrderID   string          `json:"razorpay_order_id"`
	PaymentID string          `json:"razorpay_payment_id"`
	Signature string          `json:"razorpay_signature"`
	Metadata  json.RawMessage `json:"metadata"`
}

type verifyPaymentResponse struct {
	Success   bool            `json:"success"`
	PaymentID string          `json:"paymentId,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if s.payments == nil {
		writeError(w, http.StatusServiceUnavailable, "payments are not configured")
		return
	}
	if _, ok := s.requireOwner(w, r); !ok {
		return
	}

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	amount, err := req.Amount.Float64()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	order, err := s.payments.CreateOrder(r.Context(), amount)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidAmount) {
			writeError(w, http.StatusBadRequest, "Invalid amount")
			return
		}
		s.logger.ErrorContext(r.Context(), "Order creation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not create order")
		return
	}

	description := req.Description
	if description == "" {
		description = "ExpenseTracker top-up"
	}

	writeJSON(w, http.StatusOK, createOrderResponse{
		OrderID:     order.ID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		KeyID:       s.payments.KeyID(),
		Description: description,
	})
}

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if s.payments == nil {
		writeError(w, http.StatusServiceUnavailable, "payments are not configured")
		return
	}
	if _, ok := s.requireOwner(w, r); !ok {
		return
	}

	var req verifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	if !s.payments.VerifyPayment(req.OrderID, req.PaymentID, req.Signature) {
		writeJSON(w, http.StatusBadRequest, verifyPaymentResponse{
			Success: false,
			Error:   "Invalid signature",
		})
		return
	}

	writeJSON(w, http.StatusOK, verifyPaymentResponse{
		Success:   true,
		PaymentID: req.PaymentID,
		Metadata:  req.Metadata,
	})
}

// handlePaytmInitiate is a declared-but-unimplemented provider endpoint.
func (s *Server) handlePaytmInitiate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	writeError(w, http.StatusNotImplemented, "Paytm integration is not implemented")
}
