//go:build !linux && !darwin

package watcher

import "os"

func nodeName() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return name
}
