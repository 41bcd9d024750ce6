package permgroup

import (
	"strconv"
	"strings"

	"github.com/mmcdole/permtree/pkg/permerr"
)

// Priority is a number that remembers whether the caller expressed it as an
// integer or a float; IsLong selects which representation is authoritative
// for rendering, while comparison always happens in floating point.
type Priority struct {
	IsLong bool
	Long   int64
	Double float64
}

// LongPriority builds an integer-backed priority.
func LongPriority(v int64) Priority {
	return Priority{IsLong: true, Long: v}
}

// DoublePriority builds a float-backed priority.
func DoublePriority(v float64) Priority {
	return Priority{IsLong: false, Double: v}
}

// ParsePriority parses a priority string, preferring the integer form when
// the string is a valid signed long, falling back to a double.
func ParsePriority(s string) (Priority, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return LongPriority(v), nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return DoublePriority(v), nil
	}
	return Priority{}, permerr.NewInvalidPriority(s)
}

// AsFloat returns the priority's value for comparison purposes.
func (p Priority) AsFloat() float64 {
	if p.IsLong {
		return float64(p.Long)
	}
	return p.Double
}

// String renders the priority in whichever form it was authored in.
func (p Priority) String() string {
	if p.IsLong {
		return strconv.FormatInt(p.Long, 10)
	}
	s := strconv.FormatFloat(p.Double, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0" // keep an integral double from reading back as a long
	}
	return s
}
