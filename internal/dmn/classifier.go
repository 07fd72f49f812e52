package dmn

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Notification message types, first match wins in classification order.
const (
	Type3DSChallengeResponse = "3DS Challenge Response"
	Type3DSError             = "3DS Error"
	TypePaymentDMN           = "Payment DMN"
	TypeTransactionDMN       = "Transaction DMN"
	TypeUnknownDMN           = "Unknown DMN"
)

// Derived payload keys written by the classifier.
const (
	KeyMessageType     = "messageType"
	KeyCResError       = "cresError"
	KeyCResDecodeError = "cresDecodeError"
)

// Classifier normalizes inbound notification requests into a flat payload,
// decodes embedded 3-D Secure challenge responses, and derives the message
// type. It never fails: malformed input degrades to a best-effort payload
// because the calling gateway expects 200 OK regardless.
type Classifier struct {
	logger *zap.Logger
}

// NewClassifier creates a classifier.
func NewClassifier(logger *zap.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Payload normalizes one inbound notification request and returns the
// classified payload.
func (c *Classifier) Payload(r *http.Request) map[string]string {
	payload := c.normalize(r)
	c.decodeCRes(payload)
	payload[KeyMessageType] = ClassifyPayload(payload)

	c.logger.Info("Classified inbound notification",
		zap.String("message_type", payload[KeyMessageType]),
		zap.String("method", r.Method),
		zap.Int("fields", len(payload)),
	)

	return payload
}

// normalize flattens the request into key/value pairs. GET requests yield
// the query string; POST bodies are parsed by declared content type, with
// JSON-then-form-then-rawBody fallback when the type is missing or wrong.
func (c *Classifier) normalize(r *http.Request) map[string]string {
	if r.Method == http.MethodGet {
		return flattenValues(r.URL.Query())
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		c.logger.Warn("Failed to read notification body", zap.Error(err))
		return map[string]string{}
	}

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "application/x-www-form-urlencoded"):
		if values, err := url.ParseQuery(string(body)); err == nil {
			return flattenValues(values)
		}
	case strings.Contains(contentType, "application/json"):
		if payload, ok := flattenJSON(body); ok {
			return payload
		}
	}

	// Unspecified or unparseable content type: attempt JSON, then form,
	// then keep the raw body.
	if payload, ok := flattenJSON(body); ok {
		return payload
	}
	if values, err := url.ParseQuery(string(body)); err == nil && len(values) > 0 {
		return flattenValues(values)
	}
	return map[string]string{"rawBody": string(body)}
}

// decodeCRes handles an embedded base64url 3-D Secure challenge response.
// Decoded JSON yields the known result fields; decoded non-JSON is treated
// as an error message; a failed decode records a marker and keeps the raw
// value.
func (c *Classifier) decodeCRes(payload map[string]string) {
	raw, ok := payload["cres"]
	if !ok {
		return
	}

	decoded, err := decodeBase64URL(raw)
	if err != nil {
		c.logger.Warn("Failed to base64-decode cres", zap.Error(err))
		payload[KeyCResDecodeError] = err.Error()
		return
	}

	var fields map[string]any
	if err := json.Unmarshal(decoded, &fields); err != nil {
		payload[KeyCResError] = string(decoded)
		return
	}

	for _, key := range []string{"transStatus", "threeDSServerTransID", "acsTransID", "messageVersion"} {
		if v, ok := fields[key]; ok {
			payload[key] = payloadString(v)
		}
	}
}

// ClassifyPayload derives the message type. Evaluation order is fixed:
// cres first, then payment status fields, then transaction identifiers.
func ClassifyPayload(payload map[string]string) string {
	if _, ok := payload["cres"]; ok {
		if _, failed := payload[KeyCResError]; failed {
			return Type3DSError
		}
		return Type3DSChallengeResponse
	}

	if _, ok := payload["ppp_status"]; ok {
		return TypePaymentDMN
	}
	if _, ok := payload["Status"]; ok {
		return TypePaymentDMN
	}

	for _, key := range []string{"transactionId", "TransactionID", "PPP_TransactionID"} {
		if _, ok := payload[key]; ok {
			return TypeTransactionDMN
		}
	}

	return TypeUnknownDMN
}

// FlattenResponse converts a decoded gateway JSON response into a flat
// payload suitable for mirroring into the store. Nested values are kept as
// compact JSON.
func FlattenResponse(response map[string]any) map[string]string {
	out := make(map[string]string, len(response))
	for k, v := range response {
		out[k] = payloadString(v)
	}
	return out
}

func decodeBase64URL(raw string) ([]byte, error) {
	if decoded, err := base64.RawURLEncoding.DecodeString(raw); err == nil {
		return decoded, nil
	}
	return base64.URLEncoding.DecodeString(raw)
}

func flattenValues(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}

func flattenJSON(body []byte) (map[string]string, bool) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, false
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = payloadString(v)
	}
	return out, true
}

func payloadString(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(encoded)
	}
}
