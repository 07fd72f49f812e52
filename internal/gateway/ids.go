package gateway

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timestampLayout is the gateway's request timestamp format: YYYYMMDDHHmmss.
const timestampLayout = "20060102150405"

// Timestamp returns the current UTC time in the gateway's timestamp format.
func Timestamp() string {
	return FormatTimestamp(time.Now())
}

// FormatTimestamp renders an arbitrary time in the gateway's timestamp format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ClientRequestID returns a fresh correlation ID for one outbound call.
func ClientRequestID() string {
	return uuid.NewString()
}

// ClientUniqueID returns a merchant-side unique transaction reference.
// Millisecond prefix keeps the IDs sortable in the gateway's back office.
func ClientUniqueID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
