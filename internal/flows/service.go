package flows

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/kevin07696/gateway-console/internal/dmn"
	"github.com/kevin07696/gateway-console/internal/gateway"
	"github.com/kevin07696/gateway-console/internal/scenario"
	"github.com/kevin07696/gateway-console/internal/users"
	apperrors "github.com/kevin07696/gateway-console/pkg/errors"
	"github.com/kevin07696/gateway-console/pkg/observability"
)

// Status is the terminal state of one flow run.
type Status string

const (
	// StatusCompleted means every step executed without error or redirect.
	StatusCompleted Status = "completed"
	// StatusFailed means a step returned error; no further steps ran.
	StatusFailed Status = "failed"
	// StatusChallengeRequired means a step returned a 3-D Secure redirect;
	// the flow halted pending external user action.
	StatusChallengeRequired Status = "challenge_required"
)

// Challenge carries the 3-D Secure challenge parameters back to the caller,
// which opens them in a popup window.
type Challenge struct {
	ACSURL string `json:"acsUrl"`
	CReq   string `json:"cReq"`
}

// Result is the outcome of one orchestrated flow: the executed steps in
// order, the terminal status, the context snapshot (credentials removed),
// and the challenge payload when a 3DS redirect halted the flow.
type Result struct {
	Steps     []scenario.StepResult `json:"steps"`
	Status    Status                `json:"status"`
	Context   map[string]string     `json:"context"`
	Challenge *Challenge            `json:"challenge,omitempty"`
	// Failure labels a gateway-reported business failure when Status is
	// failed and the response carried enough to identify one.
	Failure string `json:"failure,omitempty"`
}

// Service orchestrates multi-step gateway flows. Each invocation owns its
// run context; the only shared state it touches is the DMN store (mirroring)
// and the user registry, both internally synchronized.
type Service struct {
	executor *scenario.Executor
	store    *dmn.Store
	users    *users.Registry
	logger   *zap.Logger
}

// NewService creates a flow service.
func NewService(executor *scenario.Executor, store *dmn.Store, registry *users.Registry, logger *zap.Logger) *Service {
	return &Service{
		executor: executor,
		store:    store,
		users:    registry,
		logger:   logger,
	}
}

// LocalUsers returns the mirrored users and their stored payment options,
// oldest first.
func (s *Service) LocalUsers() []users.User {
	return s.users.List()
}

// runner is the shared flow skeleton: it executes steps in order against a
// single run context, halts on error or redirect, and mirrors the final
// gateway response into the DMN log.
type runner struct {
	svc   *Service
	rc    *scenario.RunContext
	label string
	steps []scenario.StepResult
}

func (s *Service) newRunner(label string, creds MerchantCredentials, seed map[string]string) *runner {
	return &runner{
		svc:   s,
		rc:    scenario.NewRunContext(creds.credentials(), seed),
		label: label,
	}
}

// run executes one step and reports whether the flow may continue.
func (r *runner) run(ctx context.Context, step scenario.Step) bool {
	result := r.svc.executor.Execute(ctx, step, r.rc)
	observability.RecordFlowStep(step.Endpoint, string(result.Status))
	r.steps = append(r.steps, result)
	return result.Status == scenario.StepSuccess
}

// ensureSession fetches a session token unless the caller seeded one.
func (r *runner) ensureSession(ctx context.Context) bool {
	if token, ok := r.rc.Get("sessionToken"); ok && token != "" {
		return true
	}
	return r.run(ctx, sessionTokenStep())
}

// finish derives the terminal status from the last executed step, mirrors
// the final gateway response into the DMN log, and assembles the result.
func (r *runner) finish() Result {
	result := Result{
		Steps:   r.steps,
		Status:  StatusCompleted,
		Context: r.rc.Snapshot(),
	}

	if len(r.steps) > 0 {
		last := r.steps[len(r.steps)-1]
		switch last.Status {
		case scenario.StepError:
			result.Status = StatusFailed
			if gwErr := gatewayFailure(last.Response); gwErr != nil {
				result.Failure = gwErr.Error()
				r.svc.logger.Warn("Gateway reported failure",
					zap.String("flow", r.label),
					zap.Error(gwErr),
				)
			}
		case scenario.StepRedirect:
			result.Status = StatusChallengeRequired
			if acsURL, cReq, ok := scenario.ChallengeFromResponse(last.Response); ok {
				result.Challenge = &Challenge{ACSURL: acsURL, CReq: cReq}
			}
		}
		r.mirror(last)
	}

	r.svc.logger.Info("Flow finished",
		zap.String("flow", r.label),
		zap.String("status", string(result.Status)),
		zap.Int("steps", len(r.steps)),
	)

	return result
}

// mirror copies the final gateway response into the DMN log for UI
// visibility. Best-effort: it must never block or fail the response path.
func (r *runner) mirror(last scenario.StepResult) {
	if r.svc.store == nil || last.Response == nil {
		return
	}
	payload := dmn.FlattenResponse(last.Response)
	payload[dmn.KeyMessageType] = dmn.ClassifyPayload(payload)
	r.svc.store.Insert(dmn.NewRecord(r.label, payload))
}

// gatewayFailure materializes the business failure a gateway response
// reports inside its 200 JSON body. Returns nil when the response carries
// no recognizable status, error code, or reason (e.g. transport failures).
func gatewayFailure(response map[string]any) *apperrors.GatewayError {
	if response == nil {
		return nil
	}
	str := func(key string) string {
		switch v := response[key].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatInt(int64(v), 10)
		}
		return ""
	}

	status := str("status")
	if status == "" {
		status = str("transactionStatus")
	}
	reason := str("reason")
	if reason == "" {
		reason = str("gwErrorReason")
	}
	errCode := str("errCode")
	if errCode == "" {
		errCode = str("gwErrorCode")
	}

	if status == "" && errCode == "" && reason == "" {
		return nil
	}
	return apperrors.NewGatewayError(status, errCode, reason)
}

// sessionTokenStep is the shared first step of session-based flows.
func sessionTokenStep() scenario.Step {
	return scenario.Step{
		Name:     "getSessionToken",
		Endpoint: "getSessionToken",
		Body: map[string]any{
			"merchantId":      "{{env.merchantId}}",
			"merchantSiteId":  "{{env.merchantSiteId}}",
			"clientRequestId": "{{meta.clientRequestId}}",
			"timeStamp":       "{{meta.timestamp}}",
		},
		Checksum: gateway.FieldOrder("getSessionToken"),
		Extract:  map[string]string{"sessionToken": "sessionToken"},
	}
}
