package gateway

import "strings"

// FieldSource indicates where a checksum field's value comes from.
type FieldSource int

const (
	// SourceRequest resolves the field by name from the request data.
	SourceRequest FieldSource = iota
	// SourceMerchantSecret substitutes the merchant's secret key.
	SourceMerchantSecret
)

// ChecksumField is one entry in an endpoint's ordered checksum input list.
type ChecksumField struct {
	Name     string
	Required bool
	Source   FieldSource
}

// EndpointSpec describes one gateway operation: its path, method, and the
// ordered checksum field list. The field order is authoritative - the
// checksum is a positional concatenation, so reordering breaks parity
// with the gateway.
type EndpointSpec struct {
	Name                 string
	Path                 string
	Method               string
	RequiresChecksum     bool
	RequiresSessionToken bool
	ChecksumFields       []ChecksumField
}

// SecretFieldName is the sentinel field name that resolves to the merchant
// secret key instead of request data.
const SecretFieldName = "merchantSecretKey"

func req(name string) ChecksumField {
	return ChecksumField{Name: name, Required: true, Source: SourceRequest}
}

func opt(name string) ChecksumField {
	return ChecksumField{Name: name, Required: false, Source: SourceRequest}
}

func secret() ChecksumField {
	return ChecksumField{Name: SecretFieldName, Required: true, Source: SourceMerchantSecret}
}

// endpointSpecs is defined once at init and read-only thereafter.
var endpointSpecs = map[string]EndpointSpec{
	"getSessionToken": {
		Name:             "getSessionToken",
		Path:             "/getSessionToken.do",
		Method:           "POST",
		RequiresChecksum: true,
		ChecksumFields: []ChecksumField{
			req("merchantId"), req("merchantSiteId"), req("clientRequestId"),
			req("timeStamp"), secret(),
		},
	},
	"openOrder": {
		Name:                 "openOrder",
		Path:                 "/openOrder.do",
		Method:               "POST",
		RequiresChecksum:     true,
		RequiresSessionToken: true,
		ChecksumFields: []ChecksumField{
			req("merchantId"), req("merchantSiteId"), req("clientRequestId"),
			req("amount"), req("currency"), req("timeStamp"), secret(),
		},
	},
	"initPayment": {
		Name:                 "initPayment",
		Path:                 "/initPayment.do",
		Method:               "POST",
		RequiresChecksum:     true,
		RequiresSessionToken: true,
		ChecksumFields: []ChecksumField{
			req("merchantId"), req("merchantSiteId"), req("clientRequestId"),
			req("amount"), req("currency"), req("timeStamp"), secret(),
		},
	},
	"payment": {
		Name:                 "payment",
		Path:                 "/payment.do",
		Method:               "POST",
		RequiresChecksum:     true,
		RequiresSessionToken: true,
		ChecksumFields: []ChecksumField{
			req("merchantId"), req("merchantSiteId"), req("clientRequestId"),
			req("amount"), req("currency"), opt("relatedTransactionId"),
			req("timeStamp"), secret(),
		},
	},
	"settleTransaction": {
		Name:             "settleTransaction",
		Path:             "/settleTransaction.do",
		Method:           "POST",
		RequiresChecksum: true,
		ChecksumFields: []ChecksumField{
			req("merchantId"), req("merchantSiteId"), req("clientRequestId"),
			opt("clientUniqueId"), req("amount"), req("currency"),
			req("relatedTransactionId"), opt("authCode"), req("timeStamp"), secret(),
		},
	},
	"voidTransaction": {
		Name:             "voidTransaction",
		Path:             "/voidTransaction.do",
		Method:           "POST",
		RequiresChecksum: true,
		ChecksumFields: []ChecksumField{
			req("merchantId"), req("merchantSiteId"), req("clientRequestId"),
			opt("clientUniqueId"), req("amount"), req("currency"),
			req("relatedTransactionId"), opt("authCode"), req("timeStamp"), secret(),
		},
	},
	"refundTransaction": {
		Name:             "refundTransaction",
		Path:             "/refundTransaction.do",
		Method:           "POST",
		RequiresChecksum: true,
		ChecksumFields: []ChecksumField{
			req("merchantId"), req("merchantSiteId"), req("clientRequestId"),
			opt("clientUniqueId"), req("amount"), req("currency"),
			req("relatedTransactionId"), opt("authCode"), req("timeStamp"), secret(),
		},
	},
	"getPaymentStatus": {
		Name:                 "getPaymentStatus",
		Path:                 "/getPaymentStatus.do",
		Method:               "POST",
		RequiresSessionToken: true,
	},
	"payout": {
		Name:                 "payout",
		Path:                 "/payout.do",
		Method:               "POST",
		RequiresChecksum:     true,
		RequiresSessionToken: true,
		ChecksumFields: []ChecksumField{
			req("merchantId"), req("merchantSiteId"), req("clientRequestId"),
			req("amount"), req("currency"), req("userTokenId"),
			req("timeStamp"), secret(),
		},
	},
	"createUser": {
		Name:             "createUser",
		Path:             "/createUser.do",
		Method:           "POST",
		RequiresChecksum: true,
		ChecksumFields: []ChecksumField{
			req("merchantId"), req("merchantSiteId"), req("userTokenId"),
			req("clientRequestId"), opt("firstName"), opt("lastName"),
			opt("email"), opt("countryCode"), req("timeStamp"), secret(),
		},
	},
	"updateUser": {
		Name:             "updateUser",
		Path:             "/updateUser.do",
		Method:           "POST",
		RequiresChecksum: true,
		ChecksumFields: []ChecksumField{
			req("merchantId"), req("merchantSiteId"), req("userTokenId"),
			req("clientRequestId"), opt("firstName"), opt("lastName"),
			opt("email"), opt("countryCode"), req("timeStamp"), secret(),
		},
	},
	"getUserDetails": {
		Name:             "getUserDetails",
		Path:             "/getUserDetails.do",
		Method:           "POST",
		RequiresChecksum: true,
		ChecksumFields: []ChecksumField{
			req("merchantId"), req("merchantSiteId"), req("userTokenId"),
			req("timeStamp"), secret(),
		},
	},
	"addUPOCreditCardByToken": {
		Name:             "addUPOCreditCardByToken",
		Path:             "/addUPOCreditCardByToken.do",
		Method:           "POST",
		RequiresChecksum: true,
		ChecksumFields: []ChecksumField{
			req("merchantId"), req("merchantSiteId"), req("userTokenId"),
			req("ccToken"), req("timeStamp"), secret(),
		},
	},
}

// Lookup finds an endpoint spec by operation name or by request path.
// Name match is exact; a path-like input is normalized (leading slash,
// ".do" suffix) and matched against spec paths.
func Lookup(nameOrPath string) (EndpointSpec, bool) {
	if spec, ok := endpointSpecs[nameOrPath]; ok {
		return spec, true
	}

	path := normalizePath(nameOrPath)
	for _, spec := range endpointSpecs {
		if spec.Path == path {
			return spec, true
		}
	}

	return EndpointSpec{}, false
}

// FieldOrder returns the ordered checksum field names for an endpoint.
// Unknown endpoints and endpoints without a checksum yield an empty slice.
func FieldOrder(name string) []string {
	spec, ok := Lookup(name)
	if !ok || !spec.RequiresChecksum {
		return nil
	}

	names := make([]string, 0, len(spec.ChecksumFields))
	for _, f := range spec.ChecksumFields {
		names = append(names, f.Name)
	}
	return names
}

// EndpointNames returns all registered operation names.
func EndpointNames() []string {
	names := make([]string, 0, len(endpointSpecs))
	for name := range endpointSpecs {
		names = append(names, name)
	}
	return names
}

func normalizePath(p string) string {
	if !strings.HasSuffix(p, ".do") {
		p += ".do"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
