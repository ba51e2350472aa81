package watcher

import (
	"os"
	"strings"
)

// MachineName identifies the host events are recorded on.
// It prefers $HOSTNAME, then $HOST, then the kernel node name, then
// /etc/hostname. It returns "" when none is available.
func MachineName() string {
	for _, key := range []string{"HOSTNAME", "HOST"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	if name := nodeName(); name != "" {
		return name
	}
	if data, err := os.ReadFile("/etc/hostname"); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
