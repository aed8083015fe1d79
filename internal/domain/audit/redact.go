package audit

import (
	"encoding/json"
	"strings"
)

const redactedPlaceholder = "[REDACTED]"

// Keys whose values never reach the audit tables.
var sensitiveKeys = map[string]bool{
	"password":     true,
	"new_password": true,
	"old_password": true,
	"token":        true,
	"secret":       true,
}

func sensitiveKey(key string) bool {
	return sensitiveKeys[strings.ToLower(key)]
}

// RedactMap replaces sensitive values in place, descending into nested
// maps and slices.
func RedactMap(m map[string]any) map[string]any {
	for k, v := range m {
		if sensitiveKey(k) {
			m[k] = redactedPlaceholder
			continue
		}
		switch t := v.(type) {
		case map[string]any:
			m[k] = RedactMap(t)
		case []any:
			for i, e := range t {
				if em, ok := e.(map[string]any); ok {
					t[i] = RedactMap(em)
				}
			}
		}
	}
	return m
}

// RedactJSON redacts a JSON object payload. Non-object payloads pass
// through untouched.
func RedactJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return raw
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return raw
	}
	out, err := json.Marshal(RedactMap(m))
	if err != nil {
		return raw
	}
	return out
}
