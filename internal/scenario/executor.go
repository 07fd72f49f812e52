package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/gateway-console/internal/adapters/ports"
	"github.com/kevin07696/gateway-console/internal/gateway"
)

// ChallengePath locates the 3-D Secure challenge parameters in a gateway
// payment response.
const (
	acsURLPath = "paymentOption.card.threeD.acsUrl"
	cReqPath   = "paymentOption.card.threeD.cReq"
)

// Executor performs one declarative step against the gateway: template
// resolution, checksum injection, the HTTP round-trip, response extraction
// and outcome classification.
type Executor struct {
	client    ports.HTTPClient
	algorithm gateway.Algorithm
	logger    *zap.Logger
}

// NewExecutor creates a step executor.
func NewExecutor(client ports.HTTPClient, algorithm gateway.Algorithm, logger *zap.Logger) *Executor {
	return &Executor{
		client:    client,
		algorithm: algorithm,
		logger:    logger,
	}
}

// Execute resolves and performs one step, mutating the run context with the
// step's declared extractions. Transport failures never surface as Go
// errors; they become an error-status StepResult with status code 0 so the
// flow orchestrator decides how to proceed.
func (e *Executor) Execute(ctx context.Context, step Step, rc *RunContext) StepResult {
	meta := Meta{
		Timestamp:       gateway.Timestamp(),
		ClientRequestID: gateway.ClientRequestID(),
	}

	body := ResolveTemplate(step.Body, rc, meta)
	if body == nil {
		body = map[string]any{}
	}

	if len(step.Checksum) > 0 {
		body["checksum"] = e.checksumFor(step.Checksum, body, rc)
	}

	spec, ok := gateway.Lookup(step.Endpoint)
	if !ok {
		// Config error in the flow definition, not a gateway failure.
		e.logger.Error("Step references unknown endpoint",
			zap.String("step", step.Name),
			zap.String("endpoint", step.Endpoint),
		)
		return StepResult{
			Name:     step.Name,
			Status:   StepError,
			Request:  MaskRequestBody(body),
			Response: map[string]any{"error": fmt.Sprintf("unknown endpoint: %s", step.Endpoint)},
		}
	}

	url := strings.TrimRight(rc.Env.BaseURL, "/") + spec.Path

	payload, err := json.Marshal(body)
	if err != nil {
		return StepResult{
			Name:     step.Name,
			Status:   StepError,
			Request:  MaskRequestBody(body),
			Response: map[string]any{"error": fmt.Sprintf("marshal request: %v", err)},
		}
	}

	e.logger.Info("Executing gateway step",
		zap.String("step", step.Name),
		zap.String("endpoint", spec.Name),
		zap.String("url", url),
	)

	start := time.Now()
	respBody, statusCode, err := e.roundTrip(ctx, spec.Method, url, payload)
	elapsed := time.Since(start)

	if err != nil {
		e.logger.Warn("Gateway step transport failure",
			zap.String("step", step.Name),
			zap.Error(err),
			zap.Duration("elapsed", elapsed),
		)
		return StepResult{
			Name:       step.Name,
			Status:     StepError,
			Request:    MaskRequestBody(body),
			StatusCode: 0,
			Response:   map[string]any{"error": err.Error()},
			DurationMS: elapsed.Milliseconds(),
		}
	}

	var response map[string]any
	if err := json.Unmarshal(respBody, &response); err != nil {
		e.logger.Warn("Gateway step returned non-JSON body",
			zap.String("step", step.Name),
			zap.Int("status_code", statusCode),
		)
		return StepResult{
			Name:       step.Name,
			Status:     StepError,
			Request:    MaskRequestBody(body),
			StatusCode: statusCode,
			Response: map[string]any{
				"error":   "response is not valid JSON",
				"rawBody": string(respBody),
			},
			DurationMS: elapsed.Milliseconds(),
		}
	}

	for path, key := range step.Extract {
		if v, found := LookupPath(response, path); found && v != nil {
			rc.Set(key, stringify(v))
		}
	}

	status := classify(response)

	e.logger.Info("Gateway step completed",
		zap.String("step", step.Name),
		zap.String("status", string(status)),
		zap.Int("status_code", statusCode),
		zap.Duration("elapsed", elapsed),
	)

	return StepResult{
		Name:       step.Name,
		Status:     status,
		Request:    MaskRequestBody(body),
		StatusCode: statusCode,
		Response:   response,
		DurationMS: elapsed.Milliseconds(),
	}
}

// checksumFor builds the ordered value list for the step's declared field
// names. The sentinel secret field substitutes the merchant secret key;
// every other name reads from the resolved body, contributing an empty
// string when absent to match the gateway's concatenation convention.
func (e *Executor) checksumFor(fields []string, body map[string]any, rc *RunContext) string {
	values := make([]string, 0, len(fields))
	for _, name := range fields {
		if name == gateway.SecretFieldName {
			values = append(values, rc.Env.SecretKey)
			continue
		}
		if v, ok := body[name]; ok {
			values = append(values, stringify(v))
		} else {
			values = append(values, "")
		}
	}
	return gateway.Hash(values, e.algorithm)
}

func (e *Executor) roundTrip(ctx context.Context, method, url string, payload []byte) ([]byte, int, error) {
	var reqBody io.Reader
	if method != http.MethodGet {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// classify derives the step outcome from the response body.
//
// Error wins when the body carries an explicit error status; redirect
// requires the REDIRECT transaction status AND both challenge parameters
// present - one without the other is not a redirect and falls through to
// the success/error rules.
func classify(response map[string]any) StepStatus {
	status := strings.ToUpper(fieldString(response, "status"))
	pppStatus := strings.ToUpper(fieldString(response, "ppp_status"))
	txStatus := strings.ToUpper(fieldString(response, "transactionStatus"))

	if status == "ERROR" || pppStatus == "FAIL" || txStatus == "ERROR" || txStatus == "DECLINED" {
		return StepError
	}

	if txStatus == "REDIRECT" {
		if _, _, ok := ChallengeFromResponse(response); ok {
			return StepRedirect
		}
	}

	return StepSuccess
}

// ChallengeFromResponse returns the ACS URL and challenge request token
// from a payment response. Both must be present and non-empty.
func ChallengeFromResponse(response map[string]any) (acsURL, cReq string, ok bool) {
	acsValue, acsFound := LookupPath(response, acsURLPath)
	cReqValue, cReqFound := LookupPath(response, cReqPath)
	if !acsFound || !cReqFound {
		return "", "", false
	}

	acsURL = stringify(acsValue)
	cReq = stringify(cReqValue)
	if acsURL == "" || cReq == "" {
		return "", "", false
	}
	return acsURL, cReq, true
}

// LookupPath traverses a decoded JSON value by dot-separated path.
// Object segments index maps; numeric segments index arrays.
func LookupPath(root any, path string) (any, bool) {
	current := root
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

func fieldString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	return stringify(v)
}

func stringify(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case json.Number:
		return value.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", value)
	}
}
