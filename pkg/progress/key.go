package progress

import (
	"strings"
)

// KeyPrefix namespaces all ledger keys.
const KeyPrefix = "steamreviews:progress"

// Key identifies the ledger entry of one app.
type Key struct {
	AppID string
}

// String generates the Redis key.
// Format: steamreviews:progress:<appid>
func (k Key) String() string {
	return KeyPrefix + ":" + strings.TrimSpace(k.AppID)
}
