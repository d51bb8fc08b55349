package instance

import (
	"os"
	"strings"
)

const envInstanceID = "STOREFRONT_INSTANCE_ID"

// ID names the running process in logs. It prefers STOREFRONT_INSTANCE_ID,
// then the platform dyno name, then the host name, and finally kind-0.
func ID(kind string) string {
	for _, key := range []string{envInstanceID, "DYNO"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return kind + "-0"
}
