package flows

import (
	"context"

	"github.com/kevin07696/gateway-console/internal/gateway"
	"github.com/kevin07696/gateway-console/internal/scenario"
)

// Settle captures a previously authorized transaction.
func (s *Service) Settle(ctx context.Context, req TransactionActionRequest) (Result, error) {
	return s.transactionAction(ctx, "Settle", "settleTransaction", req)
}

// Void cancels a previously authorized or settled transaction.
func (s *Service) Void(ctx context.Context, req TransactionActionRequest) (Result, error) {
	return s.transactionAction(ctx, "Void", "voidTransaction", req)
}

// Refund returns funds for a settled transaction.
func (s *Service) Refund(ctx context.Context, req TransactionActionRequest) (Result, error) {
	return s.transactionAction(ctx, "Refund", "refundTransaction", req)
}

// transactionAction runs one of the checksum-authenticated follow-up
// operations. These calls do not use a session token; the gateway
// authenticates them by checksum alone.
func (s *Service) transactionAction(ctx context.Context, label, endpoint string, req TransactionActionRequest) (Result, error) {
	if err := req.MerchantCredentials.validate(); err != nil {
		return Result{}, err
	}
	if err := requireFields(map[string]string{
		"relatedTransactionId": req.RelatedTransactionID,
		"amount":               req.Amount,
		"currency":             req.Currency,
	}, "relatedTransactionId", "amount", "currency"); err != nil {
		return Result{}, err
	}
	if err := validateAmount(req.Amount); err != nil {
		return Result{}, err
	}

	clientUniqueID := req.ClientUniqueID
	if clientUniqueID == "" {
		clientUniqueID = gateway.ClientUniqueID()
	}

	seed := map[string]string{
		"relatedTransactionId": req.RelatedTransactionID,
		"amount":               req.Amount,
		"currency":             req.Currency,
		"authCode":             req.AuthCode,
		"clientUniqueId":       clientUniqueID,
	}

	r := s.newRunner(label, req.MerchantCredentials, seed)
	r.run(ctx, transactionActionStep(endpoint))

	return r.finish(), nil
}

func transactionActionStep(endpoint string) scenario.Step {
	return scenario.Step{
		Name:     endpoint,
		Endpoint: endpoint,
		Body: map[string]any{
			"merchantId":           "{{env.merchantId}}",
			"merchantSiteId":       "{{env.merchantSiteId}}",
			"clientRequestId":      "{{meta.clientRequestId}}",
			"clientUniqueId":       "{{ctx.clientUniqueId}}",
			"timeStamp":            "{{meta.timestamp}}",
			"amount":               "{{ctx.amount}}",
			"currency":             "{{ctx.currency}}",
			"relatedTransactionId": "{{ctx.relatedTransactionId}}",
			"authCode":             "{{ctx.authCode}}",
		},
		Checksum: gateway.FieldOrder(endpoint),
		Extract: map[string]string{
			"transactionId": "transactionId",
		},
	}
}
