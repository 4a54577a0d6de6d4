package diagnose

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"syscall"
)

type Class int

const (
	Other Class = iota
	PermissionDenied
	AddressInUse
)

func (c Class) String() string {
	switch c {
	case PermissionDenied:
		return "permission denied"
	case AddressInUse:
		return "address in use"
	default:
		return "other"
	}
}

var Program = "tlsfront"

func Classify(err error) Class {
	switch {
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return PermissionDenied
	case errors.Is(err, syscall.EADDRINUSE):
		return AddressInUse
	default:
		return Other
	}
}

// Code returns the symbolic errno behind err, or its number when the platform
// has no name for it.
func Code(err error) string {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return "EUNKNOWN"
	}
	if name := errnoName(errno); name != "" {
		return name
	}
	return "errno " + strconv.Itoa(int(errno))
}

// Explain turns a bind/listen failure into text an operator can act on. It
// never decides what happens next.
func Explain(err error, address string, port int) string {
	target := net.JoinHostPort(address, strconv.Itoa(port))

	var b strings.Builder
	b.WriteString("\n")
	if err != nil {
		fmt.Fprintf(&b, "Error: %s\n", err.Error())
	}

	switch Classify(err) {
	case PermissionDenied:
		fmt.Fprintf(&b, "You don't have permission to access '%s'.\n", target)
		fmt.Fprintf(&b, "You probably need to use \"sudo\" or \"sudo setcap 'cap_net_bind_service=+ep' $(which %s)\"\n", Program)
	case AddressInUse:
		fmt.Fprintf(&b, "'%s' is already being used by some other program.\n", target)
		b.WriteString("You probably need to stop that program or restart your computer.\n")
	default:
		fmt.Fprintf(&b, "%s: '%s'\n", Code(err), target)
	}
	b.WriteString("\n")

	return b.String()
}
