package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLookupByName tests exact operation-name lookup
func TestLookupByName(t *testing.T) {
	spec, ok := Lookup("payment")
	require.True(t, ok)

	assert.Equal(t, "/payment.do", spec.Path)
	assert.Equal(t, "POST", spec.Method)
	assert.True(t, spec.RequiresChecksum)
	assert.True(t, spec.RequiresSessionToken)
}

// TestLookupByPath tests path normalization and scan
func TestLookupByPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"full path", "/settleTransaction.do", "settleTransaction"},
		{"missing leading slash", "settleTransaction.do", "settleTransaction"},
		{"missing suffix", "/refundTransaction", "refundTransaction"},
		{"bare name via path fallback", "voidTransaction", "voidTransaction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, ok := Lookup(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.want, spec.Name)
		})
	}
}

// TestLookupUnknown tests the not-found case
func TestLookupUnknown(t *testing.T) {
	_, ok := Lookup("closeAccount")
	assert.False(t, ok)
}

// TestChecksumFieldInvariant tests that every checksum endpoint has a
// non-empty ordered field list ending in the merchant secret
func TestChecksumFieldInvariant(t *testing.T) {
	for _, name := range EndpointNames() {
		spec, ok := Lookup(name)
		require.True(t, ok)

		if !spec.RequiresChecksum {
			continue
		}

		require.NotEmpty(t, spec.ChecksumFields, "endpoint %s", name)

		last := spec.ChecksumFields[len(spec.ChecksumFields)-1]
		assert.Equal(t, SourceMerchantSecret, last.Source, "endpoint %s", name)
		assert.Equal(t, SecretFieldName, last.Name, "endpoint %s", name)
	}
}

// TestFieldOrder tests ordered field-name extraction
func TestFieldOrder(t *testing.T) {
	order := FieldOrder("getSessionToken")
	assert.Equal(t, []string{
		"merchantId", "merchantSiteId", "clientRequestId", "timeStamp", SecretFieldName,
	}, order)

	assert.Empty(t, FieldOrder("getPaymentStatus"))
	assert.Empty(t, FieldOrder("noSuchEndpoint"))
}
