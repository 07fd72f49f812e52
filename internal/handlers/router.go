package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/kevin07696/gateway-console/pkg/observability"
)

// NewRouter assembles the console's HTTP surface: flow triggers under
// /api/flows, the notification endpoints, and the challenge popup page.
func NewRouter(flowHandler *FlowHandler, dmnHandler *DMNHandler, challengeHandler *ChallengeHandler, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	route := func(pattern string, method string, fn http.HandlerFunc) {
		handler := http.Handler(fn)
		if method != "" {
			handler = requireMethod(method, handler)
		}
		mux.Handle(pattern, observability.HTTPMiddleware(pattern, recoverPanics(logger, handler)))
	}

	route("/api/flows/payment", http.MethodPost, flowHandler.HandlePayment)
	route("/api/flows/liability-shift", http.MethodPost, flowHandler.HandleLiabilityShift)
	route("/api/flows/settle", http.MethodPost, flowHandler.HandleSettle)
	route("/api/flows/void", http.MethodPost, flowHandler.HandleVoid)
	route("/api/flows/refund", http.MethodPost, flowHandler.HandleRefund)
	route("/api/flows/payout", http.MethodPost, flowHandler.HandlePayout)
	route("/api/flows/apm", http.MethodPost, flowHandler.HandleAPM)
	route("/api/apms", http.MethodGet, flowHandler.HandleAPMList)
	route("/api/flows/payment-status", http.MethodPost, flowHandler.HandlePaymentStatus)
	route("/api/flows/users", "", flowHandler.HandleUsers)
	route("/api/flows/upo", http.MethodPost, flowHandler.HandleUPO)
	route("/api/users", http.MethodGet, flowHandler.HandleUserList)

	route("/dmn", "", dmnHandler.HandleIngest)
	route("/dmn/3ds", "", dmnHandler.HandleThreeDSCallback)
	route("/api/dmns", "", dmnHandler.HandleList)

	route("/challenge", http.MethodGet, challengeHandler.HandleChallenge)

	return mux
}

func requireMethod(method string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanics keeps a handler panic from killing the connection without a
// response. The stack lands in the log; the caller gets a generic 500.
func recoverPanics(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Handler panic",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
