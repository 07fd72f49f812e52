package flows

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kevin07696/gateway-console/internal/scenario"
	apperrors "github.com/kevin07696/gateway-console/pkg/errors"
)

// MerchantCredentials identify the gateway environment a flow runs against.
// They arrive with every flow request; the server may fill in configured
// defaults before the flow validates them.
type MerchantCredentials struct {
	MerchantID     string `json:"merchantId"`
	MerchantSiteID string `json:"merchantSiteId"`
	SecretKey      string `json:"merchantSecretKey"`
	BaseURL        string `json:"baseUrl"`
}

func (m MerchantCredentials) credentials() scenario.Credentials {
	return scenario.Credentials{
		MerchantID:     m.MerchantID,
		MerchantSiteID: m.MerchantSiteID,
		SecretKey:      m.SecretKey,
		BaseURL:        m.BaseURL,
	}
}

// validate fails fast on missing credentials, before any outbound call.
func (m MerchantCredentials) validate() error {
	if m.MerchantID == "" {
		return apperrors.NewValidationError("merchantId", "merchant credentials are required")
	}
	if m.MerchantSiteID == "" {
		return apperrors.NewValidationError("merchantSiteId", "merchant credentials are required")
	}
	if m.SecretKey == "" {
		return apperrors.NewValidationError("merchantSecretKey", "merchant credentials are required")
	}
	if m.BaseURL == "" {
		return apperrors.NewValidationError("baseUrl", "gateway base URL is required")
	}
	return nil
}

// PaymentRequest triggers the card payment flow
// (session -> initPayment -> payment).
type PaymentRequest struct {
	MerchantCredentials

	// SessionToken, when supplied, skips the getSessionToken step.
	SessionToken string `json:"sessionToken,omitempty"`

	Amount   string `json:"amount"`
	Currency string `json:"currency"`

	CardNumber      string `json:"cardNumber"`
	CardHolderName  string `json:"cardHolderName"`
	ExpirationMonth string `json:"expirationMonth"`
	ExpirationYear  string `json:"expirationYear"`
	CVV             string `json:"CVV"`

	CountryCode string `json:"countryCode,omitempty"`
	Email       string `json:"email,omitempty"`
}

// LiabilityShiftRequest resumes a challenged payment after the 3DS
// completion callback arrived. It reuses the original session token and
// references the challenged transaction.
type LiabilityShiftRequest struct {
	MerchantCredentials

	SessionToken         string `json:"sessionToken"`
	RelatedTransactionID string `json:"relatedTransactionId"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
}

// TransactionActionRequest drives settle, void, and refund, which
// authenticate by checksum alone.
type TransactionActionRequest struct {
	MerchantCredentials

	RelatedTransactionID string `json:"relatedTransactionId"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
	AuthCode             string `json:"authCode,omitempty"`
	ClientUniqueID       string `json:"clientUniqueId,omitempty"`
}

// PayoutRequest pays out to a user's stored payment option.
type PayoutRequest struct {
	MerchantCredentials

	UserTokenID         string `json:"userTokenId"`
	UserPaymentOptionID string `json:"userPaymentOptionId"`
	Amount              string `json:"amount"`
	Currency            string `json:"currency"`
}

// APMRequest triggers an alternative-payment-method charge.
type APMRequest struct {
	MerchantCredentials

	SessionToken  string            `json:"sessionToken,omitempty"`
	PaymentMethod string            `json:"paymentMethod"`
	Amount        string            `json:"amount"`
	Currency      string            `json:"currency"`
	CountryCode   string            `json:"countryCode"`
	Email         string            `json:"email,omitempty"`
	MethodFields  map[string]string `json:"methodFields,omitempty"`
}

// UserRequest creates or updates a gateway user.
type UserRequest struct {
	MerchantCredentials

	UserTokenID string `json:"userTokenId"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Email       string `json:"email,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
}

// UPORequest attaches a tokenized card as a stored payment option.
type UPORequest struct {
	MerchantCredentials

	UserTokenID string `json:"userTokenId"`
	CCToken     string `json:"ccToken"`
}

// PaymentStatusRequest polls the status of the payment bound to a session.
type PaymentStatusRequest struct {
	MerchantCredentials

	SessionToken string `json:"sessionToken"`
}

// requireFields fails on the first empty required value, naming the field.
func requireFields(fields map[string]string, order ...string) error {
	for _, name := range order {
		if fields[name] == "" {
			return apperrors.NewValidationError(name, fmt.Sprintf("%s is required", name))
		}
	}
	return nil
}

// validateAmount enforces a positive decimal amount with at most two
// fraction digits, the gateway's minor-unit precision for card currencies.
func validateAmount(amount string) error {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return apperrors.NewValidationError("amount", "amount must be a decimal number")
	}
	if !d.IsPositive() {
		return apperrors.NewValidationError("amount", "amount must be positive")
	}
	if d.Exponent() < -2 {
		return apperrors.NewValidationError("amount", "amount supports at most two decimal places")
	}
	return nil
}
