package scenario

// Credentials holds the merchant environment a flow runs against.
type Credentials struct {
	MerchantID     string
	MerchantSiteID string
	SecretKey      string
	BaseURL        string
}

// field resolves an env.* template token against the credentials.
// The secret key is deliberately not exposed to templates; it only ever
// enters a request through the checksum computation.
func (c Credentials) field(name string) (string, bool) {
	switch name {
	case "merchantId":
		return c.MerchantID, true
	case "merchantSiteId":
		return c.MerchantSiteID, true
	case "baseUrl":
		return c.BaseURL, true
	default:
		return "", false
	}
}

// RunContext is the mutable state threaded through one flow instance.
// It is owned by exactly one flow invocation and never shared, so it
// needs no locking. Keys written by a step's extraction rules stay
// readable for the rest of the flow; nothing deletes them mid-flow.
type RunContext struct {
	Env    Credentials
	values map[string]string
}

// NewRunContext creates a run context seeded with caller-supplied values.
func NewRunContext(env Credentials, seed map[string]string) *RunContext {
	values := make(map[string]string, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &RunContext{Env: env, values: values}
}

// Get reads a context value written by a seed or a prior step.
func (rc *RunContext) Get(key string) (string, bool) {
	v, ok := rc.values[key]
	return v, ok
}

// Set writes a context value for later steps.
func (rc *RunContext) Set(key, value string) {
	rc.values[key] = value
}

// Snapshot returns a copy of the accumulated context values. Credentials
// live in Env and are never part of the snapshot, so results handed back
// to the browser carry no secrets.
func (rc *RunContext) Snapshot() map[string]string {
	out := make(map[string]string, len(rc.values))
	for k, v := range rc.values {
		out[k] = v
	}
	return out
}

// StepStatus classifies the outcome of one HTTP round-trip.
type StepStatus string

const (
	StepSuccess  StepStatus = "success"
	StepError    StepStatus = "error"
	StepRedirect StepStatus = "redirect"
)

// StepResult is the immutable record of one executed step. The request
// body is masked (checksum, PAN, CVV) exactly once, at creation.
type StepResult struct {
	Name       string         `json:"name"`
	Status     StepStatus     `json:"status"`
	Request    map[string]any `json:"request,omitempty"`
	StatusCode int            `json:"statusCode"`
	Response   map[string]any `json:"response,omitempty"`
	DurationMS int64          `json:"durationMs"`
}

// Step is one declarative unit of a flow: the target endpoint, a request
// body template, the ordered checksum field names (empty when the endpoint
// does not sign requests), and extraction rules mapping response dot-paths
// to context keys.
type Step struct {
	Name     string
	Endpoint string
	Body     map[string]any
	Checksum []string
	Extract  map[string]string
}
