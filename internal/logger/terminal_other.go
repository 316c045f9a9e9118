//go:build !linux

package logger

import "os"

// isTerminal falls back to a file-mode check on non-Linux platforms
func isTerminal(fd uintptr) bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
