// Package serialization masks sensitive submit configuration before it is logged or exported.
package serialization

import (
	"strings"
	"sync"
)

const maskValue = "********"

var (
	maskedKeysMu sync.RWMutex
	maskedKeys   = []string{"password", "secret", "token"}
)

// SetMaskedConfKeys replaces the list of conf key fragments whose values are masked.
func SetMaskedConfKeys(keys []string) {
	maskedKeysMu.Lock()
	defer maskedKeysMu.Unlock()
	maskedKeys = append([]string(nil), keys...)
}

// MaskConf returns a copy of conf in which every key containing a masked fragment
// (case-insensitive) has its value replaced.
func MaskConf(conf map[string]string) map[string]string {
	if len(conf) == 0 {
		return map[string]string{}
	}
	maskedKeysMu.RLock()
	defer maskedKeysMu.RUnlock()

	out := make(map[string]string, len(conf))
	for k, v := range conf {
		out[k] = v
		lk := strings.ToLower(k)
		for _, frag := range maskedKeys {
			if frag != "" && strings.Contains(lk, strings.ToLower(frag)) {
				out[k] = maskValue
				break
			}
		}
	}
	return out
}
