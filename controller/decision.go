package controller

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// DecisionKind classifies a judge response.
type DecisionKind int

const (
	// DecisionInvalid ends the run without convergence.
	DecisionInvalid DecisionKind = iota
	// DecisionStop ends the run as converged.
	DecisionStop
	// DecisionAdjust sets the next steering value.
	DecisionAdjust
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionStop:
		return "stop"
	case DecisionAdjust:
		return "adjust"
	default:
		return "invalid"
	}
}

// Decision is the classified form of a raw judge response. Value is set only
// for DecisionAdjust and is not yet clamped.
type Decision struct {
	Kind  DecisionKind
	Value float64
}

// ParseDecision classifies raw judge text. "stop" in any case, surrounded by
// any whitespace, is DecisionStop. Any decimal number, including infinities
// and out-of-range magnitudes, is DecisionAdjust. Hexadecimal floats, NaN, and
// everything else are DecisionInvalid.
func ParseDecision(raw string) Decision {
	s := strings.TrimSpace(raw)
	if strings.EqualFold(s, "stop") {
		return Decision{Kind: DecisionStop}
	}

	if isHex(s) {
		return Decision{Kind: DecisionInvalid}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Decision{Kind: DecisionInvalid}
	}
	if math.IsNaN(v) {
		return Decision{Kind: DecisionInvalid}
	}
	return Decision{Kind: DecisionAdjust, Value: v}
}

func isHex(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
