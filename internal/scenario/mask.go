package scenario

import "strings"

// checksumMask replaces computed checksums in retained request bodies.
const checksumMask = "***"

// maskedKeys are field names whose values never survive into a StepResult.
// Card data appears in the gateway contract under paymentOption.card and
// cardData; masking by key name covers both shapes at any nesting depth.
var maskedKeys = map[string]func(string) string{
	"checksum":   func(string) string { return checksumMask },
	"cardNumber": MaskPAN,
	"CVV":        maskAll,
	"cvv":        maskAll,
}

// MaskPAN masks a card number, keeping only the last four digits visible.
// Output length always equals input length; inputs of four characters or
// fewer are masked entirely.
func MaskPAN(pan string) string {
	if len(pan) <= 4 {
		return strings.Repeat("*", len(pan))
	}
	return strings.Repeat("*", len(pan)-4) + pan[len(pan)-4:]
}

func maskAll(s string) string {
	return strings.Repeat("*", len(s))
}

// MaskRequestBody returns a deep copy of the request body with checksum and
// card fields irreversibly masked. The transform runs exactly once, when a
// StepResult is created; the original body is never retained.
func MaskRequestBody(body map[string]any) map[string]any {
	masked, _ := maskValue("", body).(map[string]any)
	return masked
}

func maskValue(key string, v any) any {
	switch node := v.(type) {
	case string:
		if mask, ok := maskedKeys[key]; ok {
			return mask(node)
		}
		return node
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[k] = maskValue(k, child)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			out[i] = maskValue(key, child)
		}
		return out
	default:
		return node
	}
}
