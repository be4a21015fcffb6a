package model

import (
	"errors"
	"fmt"
	"strings"
)

// Algorithm selects the dispatch discipline for a scheduling run.
type Algorithm string

const (
	AlgorithmRoundRobin Algorithm = "ROUND_ROBIN"
	AlgorithmPriority   Algorithm = "PRIORITY"
)

// ErrUnknownAlgorithm is returned for selector values outside the two
// supported disciplines. The engine refuses to run rather than defaulting.
var ErrUnknownAlgorithm = errors.New("unknown scheduling algorithm")

// String returns the string representation of the algorithm.
func (a Algorithm) String() string {
	return string(a)
}

// Valid reports whether a is one of the supported disciplines.
func (a Algorithm) Valid() bool {
	return a == AlgorithmRoundRobin || a == AlgorithmPriority
}

// ParseAlgorithm converts user input to an Algorithm. It accepts the
// canonical names plus the CLI shorthands ("rr", "round-robin", "prio").
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "round_robin", "round-robin", "roundrobin", "rr":
		return AlgorithmRoundRobin, nil
	case "priority", "prio":
		return AlgorithmPriority, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}
