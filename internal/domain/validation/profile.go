package validation

import (
	"fmt"
	"sort"
	"strings"
)

// Profile is the founder-supplied startup description a session is scored
// against. The shape is intentionally open; the wizard evolves faster than
// the pipeline and unknown keys must pass through untouched.
type Profile map[string]any

// Render flattens the profile into stable "key: value" lines for prompt
// construction. Keys are sorted so the same profile always renders the same
// text.
func (p Profile) Render() string {
	if len(p) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		v := p[k]
		if v == nil {
			continue
		}
		s := strings.TrimSpace(fmt.Sprintf("%v", v))
		if s == "" {
			continue
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	return sb.String()
}
