package refstate

import (
	"fmt"
	"strings"
)

// RefSpec is a single parsed `+?src:dst` entry from a push batch. An
// empty Src means delete.
type RefSpec struct {
	Raw   string
	Force bool
	Src   string
	Dst   string
}

// ParseRefSpec parses a single refspec string.
func ParseRefSpec(raw string) (RefSpec, error) {
	rs := RefSpec{Raw: raw}
	s := raw
	if strings.HasPrefix(s, "+") {
		rs.Force = true
		s = s[1:]
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return RefSpec{}, fmt.Errorf("malformed refspec %q", raw)
	}
	rs.Src, rs.Dst = parts[0], parts[1]
	if rs.Dst == "" {
		return RefSpec{}, fmt.Errorf("refspec %q has no destination", raw)
	}
	return rs, nil
}

// IsDelete reports whether this refspec deletes its destination.
func (rs RefSpec) IsDelete() bool { return rs.Src == "" }

// WithForce returns rs.Raw with a leading "+" if force is true and it is
// not already present.
func WithForce(raw string, force bool) string {
	if !force || strings.HasPrefix(raw, "+") {
		return raw
	}
	return "+" + raw
}
