//go:build !unix

package diagnose

import "syscall"

func errnoName(syscall.Errno) string {
	return ""
}
