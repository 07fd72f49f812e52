package flows

import (
	"context"

	"github.com/kevin07696/gateway-console/internal/gateway"
	"github.com/kevin07696/gateway-console/internal/scenario"
)

// Payout withdraws funds to a user's stored payment option:
// session -> payout.
func (s *Service) Payout(ctx context.Context, req PayoutRequest) (Result, error) {
	if err := req.MerchantCredentials.validate(); err != nil {
		return Result{}, err
	}
	if err := requireFields(map[string]string{
		"userTokenId":         req.UserTokenID,
		"userPaymentOptionId": req.UserPaymentOptionID,
		"amount":              req.Amount,
		"currency":            req.Currency,
	}, "userTokenId", "userPaymentOptionId", "amount", "currency"); err != nil {
		return Result{}, err
	}
	if err := validateAmount(req.Amount); err != nil {
		return Result{}, err
	}

	seed := map[string]string{
		"userTokenId":         req.UserTokenID,
		"userPaymentOptionId": req.UserPaymentOptionID,
		"amount":              req.Amount,
		"currency":            req.Currency,
	}

	r := s.newRunner("Payout", req.MerchantCredentials, seed)

	if !r.ensureSession(ctx) {
		return r.finish(), nil
	}
	r.run(ctx, payoutStep())

	return r.finish(), nil
}

func payoutStep() scenario.Step {
	return scenario.Step{
		Name:     "payout",
		Endpoint: "payout",
		Body: map[string]any{
			"sessionToken":    "{{ctx.sessionToken}}",
			"merchantId":      "{{env.merchantId}}",
			"merchantSiteId":  "{{env.merchantSiteId}}",
			"clientRequestId": "{{meta.clientRequestId}}",
			"timeStamp":       "{{meta.timestamp}}",
			"amount":          "{{ctx.amount}}",
			"currency":        "{{ctx.currency}}",
			"userTokenId":     "{{ctx.userTokenId}}",
			"userPaymentOption": map[string]any{
				"userPaymentOptionId": "{{ctx.userPaymentOptionId}}",
			},
		},
		Checksum: gateway.FieldOrder("payout"),
		Extract: map[string]string{
			"transactionId":     "transactionId",
			"transactionStatus": "transactionStatus",
		},
	}
}
