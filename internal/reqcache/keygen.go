package reqcache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/goccy/go-json"
)

// Key derives a content-addressed cache key from a request payload. The
// payload is marshaled, decoded into generic form, and re-marshaled so that
// map key order never changes the key; goccy/go-json emits object keys
// sorted.
func Key(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
