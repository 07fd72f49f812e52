package flows

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kevin07696/gateway-console/internal/gateway"
	"github.com/kevin07696/gateway-console/internal/scenario"
	apperrors "github.com/kevin07696/gateway-console/pkg/errors"
)

// apmRule describes one alternative payment method's gateway requirements:
// fields the method cannot be submitted without, and the country/currency
// allow-lists the gateway enforces. Empty lists mean no restriction.
type apmRule struct {
	RequiredFields []string
	Countries      []string
	Currencies     []string
	RequiresEmail  bool
}

// apmRules keys are gateway payment method identifiers.
var apmRules = map[string]apmRule{
	"apmgw_iDeal": {
		RequiredFields: []string{"BIC"},
		Countries:      []string{"NL"},
		Currencies:     []string{"EUR"},
	},
	"apmgw_Sofort": {
		Countries:  []string{"AT", "BE", "DE", "ES", "IT", "NL", "PL"},
		Currencies: []string{"EUR"},
	},
	"apmgw_giropay": {
		Countries:  []string{"DE"},
		Currencies: []string{"EUR"},
	},
	"apmgw_MoneyBookers": {
		RequiresEmail: true,
	},
	"apmgw_expresscheckout": {},
}

// APM runs an alternative-payment-method charge: session -> payment with
// an alternativePaymentMethod option. Method rules (required fields,
// country/currency allow-lists) are enforced before any outbound call.
func (s *Service) APM(ctx context.Context, req APMRequest) (Result, error) {
	if err := req.validate(); err != nil {
		return Result{}, err
	}

	seed := map[string]string{
		"paymentMethod": req.PaymentMethod,
		"amount":        req.Amount,
		"currency":      req.Currency,
		"countryCode":   req.CountryCode,
		"email":         req.Email,
	}
	if req.SessionToken != "" {
		seed["sessionToken"] = req.SessionToken
	}

	r := s.newRunner("APM Payment", req.MerchantCredentials, seed)

	if !r.ensureSession(ctx) {
		return r.finish(), nil
	}
	r.run(ctx, apmPaymentStep(req.PaymentMethod, req.MethodFields))

	return r.finish(), nil
}

func (req APMRequest) validate() error {
	if err := req.MerchantCredentials.validate(); err != nil {
		return err
	}
	if err := requireFields(map[string]string{
		"paymentMethod": req.PaymentMethod,
		"amount":        req.Amount,
		"currency":      req.Currency,
		"countryCode":   req.CountryCode,
	}, "paymentMethod", "amount", "currency", "countryCode"); err != nil {
		return err
	}
	if err := validateAmount(req.Amount); err != nil {
		return err
	}

	rule, ok := apmRules[req.PaymentMethod]
	if !ok {
		return apperrors.NewValidationError("paymentMethod",
			fmt.Sprintf("unsupported payment method %q", req.PaymentMethod))
	}

	for _, field := range rule.RequiredFields {
		if req.MethodFields[field] == "" {
			return apperrors.NewValidationError(field,
				fmt.Sprintf("%s requires the %s field", req.PaymentMethod, field))
		}
	}
	if rule.RequiresEmail && req.Email == "" {
		return apperrors.NewValidationError("email",
			fmt.Sprintf("%s requires an email address", req.PaymentMethod))
	}
	if len(rule.Countries) > 0 && !containsFold(rule.Countries, req.CountryCode) {
		return apperrors.NewValidationError("countryCode",
			fmt.Sprintf("%s is not available in %s (allowed: %s)",
				req.PaymentMethod, req.CountryCode, strings.Join(rule.Countries, ", ")))
	}
	if len(rule.Currencies) > 0 && !containsFold(rule.Currencies, req.Currency) {
		return apperrors.NewValidationError("currency",
			fmt.Sprintf("%s does not support %s (allowed: %s)",
				req.PaymentMethod, req.Currency, strings.Join(rule.Currencies, ", ")))
	}

	return nil
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}

// SupportedAPMs lists the configured payment method identifiers.
func SupportedAPMs() []string {
	names := make([]string, 0, len(apmRules))
	for name := range apmRules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func apmPaymentStep(method string, methodFields map[string]string) scenario.Step {
	apm := map[string]any{
		"paymentMethod": method,
	}
	if len(methodFields) > 0 {
		fields := make(map[string]any, len(methodFields))
		for k, v := range methodFields {
			fields[k] = v
		}
		apm["fields"] = fields
	}

	return scenario.Step{
		Name:     "payment",
		Endpoint: "payment",
		Body: map[string]any{
			"sessionToken":    "{{ctx.sessionToken}}",
			"merchantId":      "{{env.merchantId}}",
			"merchantSiteId":  "{{env.merchantSiteId}}",
			"clientRequestId": "{{meta.clientRequestId}}",
			"timeStamp":       "{{meta.timestamp}}",
			"amount":          "{{ctx.amount}}",
			"currency":        "{{ctx.currency}}",
			"billingAddress": map[string]any{
				"country": "{{ctx.countryCode}}",
				"email":   "{{ctx.email}}",
			},
			"paymentOption": map[string]any{
				"alternativePaymentMethod": apm,
			},
		},
		Checksum: gateway.FieldOrder("payment"),
		Extract: map[string]string{
			"transactionId":             "transactionId",
			"transactionStatus":         "transactionStatus",
			"paymentOption.redirectUrl": "redirectUrl",
		},
	}
}
