package flows

import (
	"context"

	"github.com/kevin07696/gateway-console/internal/gateway"
	"github.com/kevin07696/gateway-console/internal/scenario"
)

// Payment runs the card payment flow: session -> initPayment -> payment.
// On the frictionless 3DS path all three steps succeed and the flow
// completes; a REDIRECT outcome on the payment step halts the flow with
// challenge_required and the challenge parameters for the popup. Resuming
// after the challenge is LiabilityShift, a separate invocation.
func (s *Service) Payment(ctx context.Context, req PaymentRequest) (Result, error) {
	if err := req.validate(); err != nil {
		return Result{}, err
	}

	seed := map[string]string{
		"amount":         req.Amount,
		"currency":       req.Currency,
		"cardNumber":     req.CardNumber,
		"cardHolderName": req.CardHolderName,
		"expMonth":       req.ExpirationMonth,
		"expYear":        req.ExpirationYear,
		"cvv":            req.CVV,
		"countryCode":    req.CountryCode,
		"email":          req.Email,
	}
	if req.SessionToken != "" {
		seed["sessionToken"] = req.SessionToken
	}

	r := s.newRunner("Payment", req.MerchantCredentials, seed)

	if !r.ensureSession(ctx) {
		return r.finish(), nil
	}
	if !r.run(ctx, initPaymentStep()) {
		return r.finish(), nil
	}
	r.run(ctx, paymentStep())

	return r.finish(), nil
}

func (req PaymentRequest) validate() error {
	if err := req.MerchantCredentials.validate(); err != nil {
		return err
	}
	if err := requireFields(map[string]string{
		"amount":          req.Amount,
		"currency":        req.Currency,
		"cardNumber":      req.CardNumber,
		"expirationMonth": req.ExpirationMonth,
		"expirationYear":  req.ExpirationYear,
		"CVV":             req.CVV,
	}, "amount", "currency", "cardNumber", "expirationMonth", "expirationYear", "CVV"); err != nil {
		return err
	}
	return validateAmount(req.Amount)
}

// LiabilityShift finalizes a challenged payment. It must be invoked only
// after the external challenge completion signal arrived, with the same
// session token and the challenged transaction's ID; it never polls.
func (s *Service) LiabilityShift(ctx context.Context, req LiabilityShiftRequest) (Result, error) {
	if err := req.MerchantCredentials.validate(); err != nil {
		return Result{}, err
	}
	if err := requireFields(map[string]string{
		"sessionToken":         req.SessionToken,
		"relatedTransactionId": req.RelatedTransactionID,
		"amount":               req.Amount,
		"currency":             req.Currency,
	}, "sessionToken", "relatedTransactionId", "amount", "currency"); err != nil {
		return Result{}, err
	}
	if err := validateAmount(req.Amount); err != nil {
		return Result{}, err
	}

	seed := map[string]string{
		"sessionToken":         req.SessionToken,
		"relatedTransactionId": req.RelatedTransactionID,
		"amount":               req.Amount,
		"currency":             req.Currency,
	}

	r := s.newRunner("Liability Shift", req.MerchantCredentials, seed)
	r.run(ctx, liabilityShiftStep())

	return r.finish(), nil
}

// PaymentStatus polls the payment bound to an existing session.
func (s *Service) PaymentStatus(ctx context.Context, req PaymentStatusRequest) (Result, error) {
	if err := req.MerchantCredentials.validate(); err != nil {
		return Result{}, err
	}
	if err := requireFields(map[string]string{"sessionToken": req.SessionToken}, "sessionToken"); err != nil {
		return Result{}, err
	}

	r := s.newRunner("Payment Status", req.MerchantCredentials, map[string]string{
		"sessionToken": req.SessionToken,
	})
	r.run(ctx, scenario.Step{
		Name:     "getPaymentStatus",
		Endpoint: "getPaymentStatus",
		Body: map[string]any{
			"sessionToken": "{{ctx.sessionToken}}",
		},
		Extract: map[string]string{
			"transactionStatus": "transactionStatus",
			"transactionId":     "transactionId",
		},
	})

	return r.finish(), nil
}

func initPaymentStep() scenario.Step {
	return scenario.Step{
		Name:     "initPayment",
		Endpoint: "initPayment",
		Body: map[string]any{
			"sessionToken":    "{{ctx.sessionToken}}",
			"merchantId":      "{{env.merchantId}}",
			"merchantSiteId":  "{{env.merchantSiteId}}",
			"clientRequestId": "{{meta.clientRequestId}}",
			"timeStamp":       "{{meta.timestamp}}",
			"amount":          "{{ctx.amount}}",
			"currency":        "{{ctx.currency}}",
			"paymentOption": map[string]any{
				"card": map[string]any{
					"cardNumber":      "{{ctx.cardNumber}}",
					"cardHolderName":  "{{ctx.cardHolderName}}",
					"expirationMonth": "{{ctx.expMonth}}",
					"expirationYear":  "{{ctx.expYear}}",
					"CVV":             "{{ctx.cvv}}",
				},
			},
		},
		Checksum: gateway.FieldOrder("initPayment"),
		Extract: map[string]string{
			"transactionId": "initTransactionId",
			"orderId":       "orderId",
		},
	}
}

func paymentStep() scenario.Step {
	return scenario.Step{
		Name:     "payment",
		Endpoint: "payment",
		Body: map[string]any{
			"sessionToken":         "{{ctx.sessionToken}}",
			"merchantId":           "{{env.merchantId}}",
			"merchantSiteId":       "{{env.merchantSiteId}}",
			"clientRequestId":      "{{meta.clientRequestId}}",
			"timeStamp":            "{{meta.timestamp}}",
			"amount":               "{{ctx.amount}}",
			"currency":             "{{ctx.currency}}",
			"relatedTransactionId": "{{ctx.initTransactionId}}",
			"billingAddress": map[string]any{
				"country": "{{ctx.countryCode}}",
				"email":   "{{ctx.email}}",
			},
			"paymentOption": map[string]any{
				"card": map[string]any{
					"cardNumber":      "{{ctx.cardNumber}}",
					"cardHolderName":  "{{ctx.cardHolderName}}",
					"expirationMonth": "{{ctx.expMonth}}",
					"expirationYear":  "{{ctx.expYear}}",
					"CVV":             "{{ctx.cvv}}",
				},
			},
		},
		Checksum: gateway.FieldOrder("payment"),
		Extract: map[string]string{
			"transactionId":                     "transactionId",
			"orderId":                           "orderId",
			"paymentOption.card.threeD.acsUrl":  "acsUrl",
			"paymentOption.card.threeD.cReq":    "cReq",
			"paymentOption.card.authCode":       "authCode",
			"paymentOption.card.threeD.eci":     "eci",
			"paymentOption.userPaymentOptionId": "userPaymentOptionId",
		},
	}
}

func liabilityShiftStep() scenario.Step {
	return scenario.Step{
		Name:     "liabilityShift",
		Endpoint: "payment",
		Body: map[string]any{
			"sessionToken":         "{{ctx.sessionToken}}",
			"merchantId":           "{{env.merchantId}}",
			"merchantSiteId":       "{{env.merchantSiteId}}",
			"clientRequestId":      "{{meta.clientRequestId}}",
			"timeStamp":            "{{meta.timestamp}}",
			"amount":               "{{ctx.amount}}",
			"currency":             "{{ctx.currency}}",
			"relatedTransactionId": "{{ctx.relatedTransactionId}}",
		},
		Checksum: gateway.FieldOrder("payment"),
		Extract: map[string]string{
			"transactionId":                 "transactionId",
			"paymentOption.card.authCode":   "authCode",
			"paymentOption.card.threeD.eci": "eci",
		},
	}
}
