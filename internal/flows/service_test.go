package flows

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/gateway-console/internal/dmn"
	"github.com/kevin07696/gateway-console/internal/gateway"
	"github.com/kevin07696/gateway-console/internal/scenario"
	"github.com/kevin07696/gateway-console/internal/users"
	apperrors "github.com/kevin07696/gateway-console/pkg/errors"
	"github.com/kevin07696/gateway-console/test/mocks"
)

var testCreds = MerchantCredentials{
	MerchantID:     "427583496191624621",
	MerchantSiteID: "142033",
	SecretKey:      "TopSecretKey",
	BaseURL:        "https://sandbox.gateway.test/ppp/api/v1",
}

// routeStub returns canned JSON per endpoint path; unrouted paths get a
// generic success body.
func routeStub(routes map[string]string) func(req *http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		if body, ok := routes[req.URL.Path]; ok {
			return mocks.JSONResponse(200, body), nil
		}
		return mocks.JSONResponse(200, `{"status":"SUCCESS"}`), nil
	}
}

func newTestService(client *mocks.MockHTTPClient) (*Service, *dmn.Store, *users.Registry) {
	logger := zap.NewNop()
	executor := scenario.NewExecutor(client, gateway.SHA256, logger)
	store := dmn.NewStore(dmn.DefaultCapacity)
	registry := users.NewRegistry(logger)
	return NewService(executor, store, registry, logger), store, registry
}

func decodeRequestBody(t *testing.T, req *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestPayment_FrictionlessCompletesInThreeSteps(t *testing.T) {
	client := mocks.NewMockHTTPClient(routeStub(map[string]string{
		"/ppp/api/v1/getSessionToken.do": `{"status":"SUCCESS","sessionToken":"tok-111"}`,
		"/ppp/api/v1/initPayment.do":     `{"status":"SUCCESS","transactionStatus":"APPROVED","transactionId":"2000001","orderId":"9001"}`,
		"/ppp/api/v1/payment.do":         `{"status":"SUCCESS","transactionStatus":"APPROVED","transactionId":"2000002","orderId":"9001"}`,
	}))
	svc, store, _ := newTestService(client)

	result, err := svc.Payment(context.Background(), PaymentRequest{
		MerchantCredentials: testCreds,
		Amount:              "10.00",
		Currency:            "USD",
		CardNumber:          "4000027891380961",
		CardHolderName:      "John Smith",
		ExpirationMonth:     "12",
		ExpirationYear:      "2030",
		CVV:                 "217",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	require.Len(t, result.Steps, 3)
	for _, step := range result.Steps {
		assert.Equal(t, scenario.StepSuccess, step.Status, step.Name)
	}
	assert.Nil(t, result.Challenge)

	// Session token threads from step 1 into the later calls.
	assert.Equal(t, "tok-111", result.Context["sessionToken"])
	assert.Equal(t, "2000002", result.Context["transactionId"])
	secondBody := decodeRequestBody(t, client.Calls[1])
	assert.Equal(t, "tok-111", secondBody["sessionToken"])

	// The final response is mirrored into the DMN log.
	records := store.List()
	require.Len(t, records, 1)
	assert.Equal(t, "Payment", records[0].Label)
}

func TestPayment_RedirectHaltsWithChallenge(t *testing.T) {
	client := mocks.NewMockHTTPClient(routeStub(map[string]string{
		"/ppp/api/v1/getSessionToken.do": `{"status":"SUCCESS","sessionToken":"tok-222"}`,
		"/ppp/api/v1/initPayment.do":     `{"status":"SUCCESS","transactionId":"2000010"}`,
		"/ppp/api/v1/payment.do": `{
			"status": "SUCCESS",
			"transactionStatus": "REDIRECT",
			"transactionId": "2000011",
			"paymentOption": {"card": {"threeD": {"acsUrl": "https://acs.bank.test/challenge", "cReq": "eyJjaGFsbGVuZ2UiOiJ5In0"}}}
		}`,
	}))
	svc, _, _ := newTestService(client)

	result, err := svc.Payment(context.Background(), PaymentRequest{
		MerchantCredentials: testCreds,
		Amount:              "10.00",
		Currency:            "EUR",
		CardNumber:          "4000020951595032",
		ExpirationMonth:     "12",
		ExpirationYear:      "2030",
		CVV:                 "217",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusChallengeRequired, result.Status)
	require.Len(t, result.Steps, 3)
	assert.Equal(t, scenario.StepRedirect, result.Steps[2].Status)
	require.NotNil(t, result.Challenge)
	assert.Equal(t, "https://acs.bank.test/challenge", result.Challenge.ACSURL)
	assert.Equal(t, "eyJjaGFsbGVuZ2UiOiJ5In0", result.Challenge.CReq)

	// No calls beyond the redirecting step.
	assert.Len(t, client.Calls, 3)
}

func TestPayment_GatewayErrorHaltsFlow(t *testing.T) {
	client := mocks.NewMockHTTPClient(routeStub(map[string]string{
		"/ppp/api/v1/getSessionToken.do": `{"status":"SUCCESS","sessionToken":"tok-333"}`,
		"/ppp/api/v1/initPayment.do":     `{"status":"ERROR","errCode":"1004","reason":"Invalid or expired session"}`,
	}))
	svc, _, _ := newTestService(client)

	result, err := svc.Payment(context.Background(), PaymentRequest{
		MerchantCredentials: testCreds,
		Amount:              "10.00",
		Currency:            "USD",
		CardNumber:          "4000027891380961",
		ExpirationMonth:     "12",
		ExpirationYear:      "2030",
		CVV:                 "217",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, scenario.StepError, result.Steps[1].Status)
	// The gateway's original payload stays attached to the failing step.
	assert.Equal(t, "Invalid or expired session", result.Steps[1].Response["reason"])
	assert.Len(t, client.Calls, 2)

	// The failure label carries the gateway's status, reason, and code.
	assert.Contains(t, result.Failure, "ERROR")
	assert.Contains(t, result.Failure, "Invalid or expired session")
	assert.Contains(t, result.Failure, "1004")
}

func TestGatewayFailure(t *testing.T) {
	tests := []struct {
		name     string
		response map[string]any
		want     *apperrors.GatewayError
	}{
		{
			name:     "string fields",
			response: map[string]any{"status": "ERROR", "errCode": "1163", "reason": "Invalid checksum"},
			want:     &apperrors.GatewayError{Status: "ERROR", ErrCode: "1163", Reason: "Invalid checksum"},
		},
		{
			name:     "numeric error code",
			response: map[string]any{"status": "ERROR", "errCode": float64(1163)},
			want:     &apperrors.GatewayError{Status: "ERROR", ErrCode: "1163"},
		},
		{
			name:     "declined transaction fields",
			response: map[string]any{"transactionStatus": "DECLINED", "gwErrorCode": "-1", "gwErrorReason": "Decline"},
			want:     &apperrors.GatewayError{Status: "DECLINED", ErrCode: "-1", Reason: "Decline"},
		},
		{
			name:     "nothing recognizable",
			response: map[string]any{"rawBody": "connection refused"},
			want:     nil,
		},
		{
			name:     "nil response",
			response: nil,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gatewayFailure(tt.response))
		})
	}
}

func TestPayment_SuppliedSessionTokenSkipsSessionStep(t *testing.T) {
	client := mocks.NewMockHTTPClient(routeStub(map[string]string{
		"/ppp/api/v1/initPayment.do": `{"status":"SUCCESS","transactionId":"2000020"}`,
		"/ppp/api/v1/payment.do":     `{"status":"SUCCESS","transactionStatus":"APPROVED","transactionId":"2000021"}`,
	}))
	svc, _, _ := newTestService(client)

	result, err := svc.Payment(context.Background(), PaymentRequest{
		MerchantCredentials: testCreds,
		SessionToken:        "tok-preexisting",
		Amount:              "25.50",
		Currency:            "USD",
		CardNumber:          "4000027891380961",
		ExpirationMonth:     "12",
		ExpirationYear:      "2030",
		CVV:                 "217",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "initPayment", result.Steps[0].Name)
}

func TestPayment_ValidationRejectsBeforeOutboundCall(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*PaymentRequest)
		wantField string
	}{
		{"missing card number", func(r *PaymentRequest) { r.CardNumber = "" }, "cardNumber"},
		{"missing amount", func(r *PaymentRequest) { r.Amount = "" }, "amount"},
		{"non-decimal amount", func(r *PaymentRequest) { r.Amount = "ten" }, "amount"},
		{"negative amount", func(r *PaymentRequest) { r.Amount = "-5.00" }, "amount"},
		{"too many decimals", func(r *PaymentRequest) { r.Amount = "1.999" }, "amount"},
		{"missing secret", func(r *PaymentRequest) { r.SecretKey = "" }, "merchantSecretKey"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewMockHTTPClient(nil)
			svc, _, _ := newTestService(client)

			req := PaymentRequest{
				MerchantCredentials: testCreds,
				Amount:              "10.00",
				Currency:            "USD",
				CardNumber:          "4000027891380961",
				ExpirationMonth:     "12",
				ExpirationYear:      "2030",
				CVV:                 "217",
			}
			tt.mutate(&req)

			_, err := svc.Payment(context.Background(), req)

			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Empty(t, client.Calls)
		})
	}
}

func TestLiabilityShift_SingleStepWithRelatedTransaction(t *testing.T) {
	client := mocks.NewMockHTTPClient(routeStub(map[string]string{
		"/ppp/api/v1/payment.do": `{"status":"SUCCESS","transactionStatus":"APPROVED","transactionId":"2000030"}`,
	}))
	svc, _, _ := newTestService(client)

	result, err := svc.LiabilityShift(context.Background(), LiabilityShiftRequest{
		MerchantCredentials:  testCreds,
		SessionToken:         "tok-444",
		RelatedTransactionID: "2000011",
		Amount:               "10.00",
		Currency:             "EUR",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	require.Len(t, result.Steps, 1)

	body := decodeRequestBody(t, client.Calls[0])
	assert.Equal(t, "tok-444", body["sessionToken"])
	assert.Equal(t, "2000011", body["relatedTransactionId"])
}

func TestLiabilityShift_RequiresSessionToken(t *testing.T) {
	client := mocks.NewMockHTTPClient(nil)
	svc, _, _ := newTestService(client)

	_, err := svc.LiabilityShift(context.Background(), LiabilityShiftRequest{
		MerchantCredentials:  testCreds,
		RelatedTransactionID: "2000011",
		Amount:               "10.00",
		Currency:             "EUR",
	})

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sessionToken", verr.Field)
	assert.Empty(t, client.Calls)
}

func TestTransactionActions_DirectChecksumCalls(t *testing.T) {
	tests := []struct {
		name string
		path string
		call func(*Service, context.Context, TransactionActionRequest) (Result, error)
	}{
		{"settle", "/ppp/api/v1/settleTransaction.do", (*Service).Settle},
		{"void", "/ppp/api/v1/voidTransaction.do", (*Service).Void},
		{"refund", "/ppp/api/v1/refundTransaction.do", (*Service).Refund},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewMockHTTPClient(routeStub(map[string]string{
				tt.path: `{"status":"SUCCESS","transactionStatus":"APPROVED","transactionId":"2000040"}`,
			}))
			svc, _, _ := newTestService(client)

			result, err := tt.call(svc, context.Background(), TransactionActionRequest{
				MerchantCredentials:  testCreds,
				RelatedTransactionID: "2000002",
				Amount:               "10.00",
				Currency:             "USD",
				AuthCode:             "075418",
			})

			require.NoError(t, err)
			assert.Equal(t, StatusCompleted, result.Status)
			// No session step: these authenticate by checksum alone.
			require.Len(t, client.Calls, 1)
			assert.Equal(t, tt.path, client.Calls[0].URL.Path)

			body := decodeRequestBody(t, client.Calls[0])
			assert.Equal(t, "2000002", body["relatedTransactionId"])
			assert.NotEmpty(t, body["checksum"])
			assert.NotEmpty(t, body["clientUniqueId"])
			assert.Equal(t, "2000040", result.Context["transactionId"])
		})
	}
}

func TestPayout_SessionThenPayout(t *testing.T) {
	client := mocks.NewMockHTTPClient(routeStub(map[string]string{
		"/ppp/api/v1/getSessionToken.do": `{"status":"SUCCESS","sessionToken":"tok-555"}`,
		"/ppp/api/v1/payout.do":          `{"status":"SUCCESS","transactionStatus":"APPROVED","transactionId":"2000050"}`,
	}))
	svc, _, _ := newTestService(client)

	result, err := svc.Payout(context.Background(), PayoutRequest{
		MerchantCredentials: testCreds,
		UserTokenID:         "user-77",
		UserPaymentOptionID: "8445231",
		Amount:              "50.00",
		Currency:            "USD",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	require.Len(t, result.Steps, 2)

	body := decodeRequestBody(t, client.Calls[1])
	assert.Equal(t, "user-77", body["userTokenId"])
	upo, ok := body["userPaymentOption"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "8445231", upo["userPaymentOptionId"])
}

func TestAPM_MissingBICRejectedBeforeOutboundCall(t *testing.T) {
	client := mocks.NewMockHTTPClient(nil)
	svc, _, _ := newTestService(client)

	_, err := svc.APM(context.Background(), APMRequest{
		MerchantCredentials: testCreds,
		PaymentMethod:       "apmgw_iDeal",
		Amount:              "10.00",
		Currency:            "EUR",
		CountryCode:         "NL",
	})

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "BIC", verr.Field)
	assert.Contains(t, verr.Message, "BIC")
	assert.Empty(t, client.Calls)
}

func TestAPM_RuleTable(t *testing.T) {
	tests := []struct {
		name      string
		req       APMRequest
		wantField string
	}{
		{
			name: "giropay outside Germany",
			req: APMRequest{
				PaymentMethod: "apmgw_giropay",
				Amount:        "10.00", Currency: "EUR", CountryCode: "FR",
			},
			wantField: "countryCode",
		},
		{
			name: "sofort in wrong currency",
			req: APMRequest{
				PaymentMethod: "apmgw_Sofort",
				Amount:        "10.00", Currency: "GBP", CountryCode: "DE",
			},
			wantField: "currency",
		},
		{
			name: "moneybookers without email",
			req: APMRequest{
				PaymentMethod: "apmgw_MoneyBookers",
				Amount:        "10.00", Currency: "USD", CountryCode: "GB",
			},
			wantField: "email",
		},
		{
			name: "unknown method",
			req: APMRequest{
				PaymentMethod: "apmgw_DoesNotExist",
				Amount:        "10.00", Currency: "USD", CountryCode: "US",
			},
			wantField: "paymentMethod",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewMockHTTPClient(nil)
			svc, _, _ := newTestService(client)

			tt.req.MerchantCredentials = testCreds
			_, err := svc.APM(context.Background(), tt.req)

			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Empty(t, client.Calls)
		})
	}
}

func TestAPM_ValidRequestRunsSessionThenPayment(t *testing.T) {
	client := mocks.NewMockHTTPClient(routeStub(map[string]string{
		"/ppp/api/v1/getSessionToken.do": `{"status":"SUCCESS","sessionToken":"tok-666"}`,
		"/ppp/api/v1/payment.do":         `{"status":"SUCCESS","transactionStatus":"APPROVED","transactionId":"2000060","paymentOption":{"redirectUrl":"https://apm.test/redirect"}}`,
	}))
	svc, _, _ := newTestService(client)

	result, err := svc.APM(context.Background(), APMRequest{
		MerchantCredentials: testCreds,
		PaymentMethod:       "apmgw_iDeal",
		Amount:              "10.00",
		Currency:            "eur",
		CountryCode:         "nl",
		MethodFields:        map[string]string{"BIC": "INGBNL2A"},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, "https://apm.test/redirect", result.Context["redirectUrl"])

	body := decodeRequestBody(t, client.Calls[1])
	option, ok := body["paymentOption"].(map[string]any)
	require.True(t, ok)
	apm, ok := option["alternativePaymentMethod"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "apmgw_iDeal", apm["paymentMethod"])
	fields, ok := apm["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "INGBNL2A", fields["BIC"])
}

func TestCreateUser_MirrorsIntoRegistry(t *testing.T) {
	client := mocks.NewMockHTTPClient(routeStub(map[string]string{
		"/ppp/api/v1/createUser.do": `{"status":"SUCCESS","userId":"10001"}`,
	}))
	svc, _, registry := newTestService(client)

	result, err := svc.CreateUser(context.Background(), UserRequest{
		MerchantCredentials: testCreds,
		UserTokenID:         "user-88",
		FirstName:           "Jane",
		LastName:            "Doe",
		Email:               "jane.doe@example.com",
		CountryCode:         "US",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)

	user, ok := registry.Get("user-88")
	require.True(t, ok)
	assert.Equal(t, "Jane", user.FirstName)
	assert.Equal(t, "jane.doe@example.com", user.Email)
}

func TestCreateUser_GatewayErrorSkipsMirror(t *testing.T) {
	client := mocks.NewMockHTTPClient(routeStub(map[string]string{
		"/ppp/api/v1/createUser.do": `{"status":"ERROR","errCode":"1060","reason":"userTokenId already exists"}`,
	}))
	svc, _, registry := newTestService(client)

	result, err := svc.CreateUser(context.Background(), UserRequest{
		MerchantCredentials: testCreds,
		UserTokenID:         "user-dup",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	_, ok := registry.Get("user-dup")
	assert.False(t, ok)
}

func TestUpdateUser_PreservesUPOsInMirror(t *testing.T) {
	client := mocks.NewMockHTTPClient(nil)
	svc, _, registry := newTestService(client)

	registry.Upsert(users.User{TokenID: "user-99", FirstName: "Old"})
	registry.AddUPO("user-99", users.UPO{ID: "7001", CCToken: "tok-cc"})

	_, err := svc.UpdateUser(context.Background(), UserRequest{
		MerchantCredentials: testCreds,
		UserTokenID:         "user-99",
		FirstName:           "New",
	})

	require.NoError(t, err)
	user, ok := registry.Get("user-99")
	require.True(t, ok)
	assert.Equal(t, "New", user.FirstName)
	require.Len(t, user.UPOs, 1)
	assert.Equal(t, "7001", user.UPOs[0].ID)
}

func TestAddUPO_ExtractsOptionIDIntoRegistry(t *testing.T) {
	client := mocks.NewMockHTTPClient(routeStub(map[string]string{
		"/ppp/api/v1/addUPOCreditCardByToken.do": `{"status":"SUCCESS","userPaymentOptionId":"8445231"}`,
	}))
	svc, _, registry := newTestService(client)

	result, err := svc.AddUPO(context.Background(), UPORequest{
		MerchantCredentials: testCreds,
		UserTokenID:         "user-77",
		CCToken:             "cc-tok-123",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "8445231", result.Context["userPaymentOptionId"])

	user, ok := registry.Get("user-77")
	require.True(t, ok)
	require.Len(t, user.UPOs, 1)
	assert.Equal(t, "8445231", user.UPOs[0].ID)
	assert.Equal(t, "cc-tok-123", user.UPOs[0].CCToken)
}

func TestPaymentStatus_SingleUncheckedStep(t *testing.T) {
	client := mocks.NewMockHTTPClient(routeStub(map[string]string{
		"/ppp/api/v1/getPaymentStatus.do": `{"status":"SUCCESS","transactionStatus":"APPROVED","transactionId":"2000070"}`,
	}))
	svc, _, _ := newTestService(client)

	result, err := svc.PaymentStatus(context.Background(), PaymentStatusRequest{
		MerchantCredentials: testCreds,
		SessionToken:        "tok-777",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	require.Len(t, client.Calls, 1)

	// getPaymentStatus carries no checksum.
	body := decodeRequestBody(t, client.Calls[0])
	_, hasChecksum := body["checksum"]
	assert.False(t, hasChecksum)
	assert.Equal(t, "tok-777", body["sessionToken"])
}

func TestFlow_ContextSnapshotOmitsCredentials(t *testing.T) {
	client := mocks.NewMockHTTPClient(nil)
	svc, _, _ := newTestService(client)

	result, err := svc.Settle(context.Background(), TransactionActionRequest{
		MerchantCredentials:  testCreds,
		RelatedTransactionID: "2000002",
		Amount:               "10.00",
		Currency:             "USD",
	})

	require.NoError(t, err)
	for key, value := range result.Context {
		assert.NotEqual(t, testCreds.SecretKey, value, key)
	}
}

func TestFlow_MirrorClassifiesFinalResponse(t *testing.T) {
	client := mocks.NewMockHTTPClient(routeStub(map[string]string{
		"/ppp/api/v1/settleTransaction.do": `{"status":"SUCCESS","transactionId":"2000080","transactionStatus":"APPROVED"}`,
	}))
	svc, store, _ := newTestService(client)

	_, err := svc.Settle(context.Background(), TransactionActionRequest{
		MerchantCredentials:  testCreds,
		RelatedTransactionID: "2000002",
		Amount:               "10.00",
		Currency:             "USD",
	})

	require.NoError(t, err)
	records := store.List()
	require.Len(t, records, 1)
	assert.Equal(t, "Settle", records[0].Label)
	assert.Equal(t, dmn.TypeTransactionDMN, records[0].Payload[dmn.KeyMessageType])
	assert.Equal(t, "2000080", records[0].Payload["transactionId"])
}
