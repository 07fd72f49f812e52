package scenario

import (
	"regexp"
)

// TokenKind enumerates the template placeholder namespaces.
type TokenKind int

const (
	// TokenEnv resolves from the merchant credentials (env.merchantId, ...).
	TokenEnv TokenKind = iota
	// TokenContext resolves from the run context (ctx.sessionToken, ...).
	TokenContext
	// TokenTimestamp resolves to the per-step gateway timestamp.
	TokenTimestamp
	// TokenClientRequestID resolves to the per-step correlation ID.
	TokenClientRequestID
)

// Token is a parsed template placeholder.
type Token struct {
	Kind TokenKind
	Name string
}

// Meta carries the per-step generated values templates may reference.
type Meta struct {
	Timestamp       string
	ClientRequestID string
}

var tokenPattern = regexp.MustCompile(`\{\{\s*(env|ctx|meta)\.([A-Za-z0-9_]+)\s*\}\}`)

// parseToken maps a matched namespace/field pair to a typed token.
// Unknown meta fields are rejected here; env/ctx names are validated at
// resolution time against the credentials and context.
func parseToken(namespace, field string) (Token, bool) {
	switch namespace {
	case "env":
		return Token{Kind: TokenEnv, Name: field}, true
	case "ctx":
		return Token{Kind: TokenContext, Name: field}, true
	case "meta":
		switch field {
		case "timestamp":
			return Token{Kind: TokenTimestamp}, true
		case "clientRequestId":
			return Token{Kind: TokenClientRequestID}, true
		}
	}
	return Token{}, false
}

// resolveToken evaluates a token against the run context and step meta.
// Unresolvable tokens yield an empty string; callers depend on this silent
// substitution, so it is preserved rather than turned into an error.
func resolveToken(tok Token, rc *RunContext, meta Meta) string {
	switch tok.Kind {
	case TokenEnv:
		v, _ := rc.Env.field(tok.Name)
		return v
	case TokenContext:
		v, _ := rc.Get(tok.Name)
		return v
	case TokenTimestamp:
		return meta.Timestamp
	case TokenClientRequestID:
		return meta.ClientRequestID
	}
	return ""
}

// resolveString substitutes every {{namespace.field}} occurrence in s.
func resolveString(s string, rc *RunContext, meta Meta) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := tokenPattern.FindStringSubmatch(match)
		tok, ok := parseToken(parts[1], parts[2])
		if !ok {
			return ""
		}
		return resolveToken(tok, rc, meta)
	})
}

// ResolveTemplate deep-copies the body template, substituting tokens in
// every string leaf. Nested objects and arrays recurse; non-string leaves
// pass through unchanged.
func ResolveTemplate(body map[string]any, rc *RunContext, meta Meta) map[string]any {
	resolved, _ := resolveValue(body, rc, meta).(map[string]any)
	return resolved
}

func resolveValue(v any, rc *RunContext, meta Meta) any {
	switch node := v.(type) {
	case string:
		return resolveString(node, rc, meta)
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[k] = resolveValue(child, rc, meta)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			out[i] = resolveValue(child, rc, meta)
		}
		return out
	default:
		return node
	}
}
