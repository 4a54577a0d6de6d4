package transport

import (
	"go/version"
	"runtime"
	"strings"
)

type Variant int

const (
	Legacy Variant = iota
	Multiplexed
)

// net/http negotiates h2 on its own from go1.6 onwards.
const minimumMultiplexedVersion = "go1.6"

func (v Variant) String() string {
	if v == Multiplexed {
		return "multiplexed"
	}
	return "legacy"
}

func DetectVariant(allowHTTP2 bool) Variant {
	return ProbeVariant(runtime.Version(), allowHTTP2)
}

func ProbeVariant(goVersion string, allowHTTP2 bool) Variant {
	if !allowHTTP2 {
		return Legacy
	}

	v := strings.TrimPrefix(goVersion, "devel ")
	if i := strings.IndexAny(v, " -+"); i >= 0 {
		v = v[:i]
	}

	if !version.IsValid(v) {
		return Legacy
	}
	if version.Compare(v, minimumMultiplexedVersion) < 0 {
		return Legacy
	}
	return Multiplexed
}
