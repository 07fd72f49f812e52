package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kevin07696/gateway-console/internal/flows"
	apperrors "github.com/kevin07696/gateway-console/pkg/errors"
	"github.com/kevin07696/gateway-console/pkg/observability"
)

// FlowHandler exposes the flow orchestrators over JSON HTTP. Requests may
// carry explicit merchant credentials; omitted fields fall back to the
// configured sandbox defaults.
type FlowHandler struct {
	service  *flows.Service
	defaults flows.MerchantCredentials
	logger   *zap.Logger
}

// NewFlowHandler creates a flow handler
func NewFlowHandler(service *flows.Service, defaults flows.MerchantCredentials, logger *zap.Logger) *FlowHandler {
	return &FlowHandler{
		service:  service,
		defaults: defaults,
		logger:   logger,
	}
}

// errorResponse is the JSON body for rejected requests
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// HandlePayment POST /api/flows/payment
func (h *FlowHandler) HandlePayment(w http.ResponseWriter, r *http.Request) {
	var req flows.PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.applyDefaults(&req.MerchantCredentials)

	result, err := h.service.Payment(r.Context(), req)
	h.respond(w, "payment", result, err)
}

// HandleLiabilityShift POST /api/flows/liability-shift
func (h *FlowHandler) HandleLiabilityShift(w http.ResponseWriter, r *http.Request) {
	var req flows.LiabilityShiftRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.applyDefaults(&req.MerchantCredentials)

	result, err := h.service.LiabilityShift(r.Context(), req)
	h.respond(w, "liability_shift", result, err)
}

// HandleSettle POST /api/flows/settle
func (h *FlowHandler) HandleSettle(w http.ResponseWriter, r *http.Request) {
	h.handleTransactionAction(w, r, "settle", h.service.Settle)
}

// HandleVoid POST /api/flows/void
func (h *FlowHandler) HandleVoid(w http.ResponseWriter, r *http.Request) {
	h.handleTransactionAction(w, r, "void", h.service.Void)
}

// HandleRefund POST /api/flows/refund
func (h *FlowHandler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	h.handleTransactionAction(w, r, "refund", h.service.Refund)
}

func (h *FlowHandler) handleTransactionAction(
	w http.ResponseWriter,
	r *http.Request,
	flow string,
	action func(context.Context, flows.TransactionActionRequest) (flows.Result, error),
) {
	var req flows.TransactionActionRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.applyDefaults(&req.MerchantCredentials)

	result, err := action(r.Context(), req)
	h.respond(w, flow, result, err)
}

// HandlePayout POST /api/flows/payout
func (h *FlowHandler) HandlePayout(w http.ResponseWriter, r *http.Request) {
	var req flows.PayoutRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.applyDefaults(&req.MerchantCredentials)

	result, err := h.service.Payout(r.Context(), req)
	h.respond(w, "payout", result, err)
}

// HandleAPM POST /api/flows/apm
func (h *FlowHandler) HandleAPM(w http.ResponseWriter, r *http.Request) {
	var req flows.APMRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.applyDefaults(&req.MerchantCredentials)

	result, err := h.service.APM(r.Context(), req)
	h.respond(w, "apm", result, err)
}

// HandleUserList GET /api/users lists the local mirror of users created
// through this console, with their stored payment options.
func (h *FlowHandler) HandleUserList(w http.ResponseWriter, _ *http.Request) {
	list := h.service.LocalUsers()
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(list),
		"users": list,
	})
}

// HandleAPMList GET /api/apms lists the payment method identifiers the APM
// flow accepts, so the UI can populate its method picker.
func (h *FlowHandler) HandleAPMList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"paymentMethods": flows.SupportedAPMs()})
}

// HandlePaymentStatus POST /api/flows/payment-status
func (h *FlowHandler) HandlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req flows.PaymentStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.applyDefaults(&req.MerchantCredentials)

	result, err := h.service.PaymentStatus(r.Context(), req)
	h.respond(w, "payment_status", result, err)
}

// HandleUsers dispatches /api/flows/users by method:
// POST creates, PUT updates, GET fetches details by userTokenId query param.
func (h *FlowHandler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req flows.UserRequest
		if !h.decode(w, r, &req) {
			return
		}
		h.applyDefaults(&req.MerchantCredentials)
		result, err := h.service.CreateUser(r.Context(), req)
		h.respond(w, "user_create", result, err)

	case http.MethodPut:
		var req flows.UserRequest
		if !h.decode(w, r, &req) {
			return
		}
		h.applyDefaults(&req.MerchantCredentials)
		result, err := h.service.UpdateUser(r.Context(), req)
		h.respond(w, "user_update", result, err)

	case http.MethodGet:
		req := flows.UserRequest{
			UserTokenID: r.URL.Query().Get("userTokenId"),
		}
		h.applyDefaults(&req.MerchantCredentials)
		result, err := h.service.GetUserDetails(r.Context(), req)
		h.respond(w, "user_details", result, err)

	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}
}

// HandleUPO POST /api/flows/upo
func (h *FlowHandler) HandleUPO(w http.ResponseWriter, r *http.Request) {
	var req flows.UPORequest
	if !h.decode(w, r, &req) {
		return
	}
	h.applyDefaults(&req.MerchantCredentials)

	result, err := h.service.AddUPO(r.Context(), req)
	h.respond(w, "upo_add", result, err)
}

// applyDefaults fills empty credential fields from the configured defaults
func (h *FlowHandler) applyDefaults(creds *flows.MerchantCredentials) {
	if creds.MerchantID == "" {
		creds.MerchantID = h.defaults.MerchantID
	}
	if creds.MerchantSiteID == "" {
		creds.MerchantSiteID = h.defaults.MerchantSiteID
	}
	if creds.SecretKey == "" {
		creds.SecretKey = h.defaults.SecretKey
	}
	if creds.BaseURL == "" {
		creds.BaseURL = h.defaults.BaseURL
	}
}

func (h *FlowHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("Failed to decode flow request",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON request body"})
		return false
	}
	return true
}

func (h *FlowHandler) respond(w http.ResponseWriter, flow string, result flows.Result, err error) {
	if err != nil {
		var verr *apperrors.ValidationError
		if errors.As(err, &verr) {
			observability.RecordFlowRun(flow, "rejected")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error(), Field: verr.Field})
			return
		}
		h.logger.Error("Flow execution failed",
			zap.String("flow", flow),
			zap.Error(err),
		)
		observability.RecordFlowRun(flow, "internal_error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	observability.RecordFlowRun(flow, string(result.Status))
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
