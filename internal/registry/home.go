package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"codeatlas/internal/resource"
)

// orientation builds the root display: every registered resourcespace with
// its description, rendered fresh on each call so late registrations appear.
func (r *Registry) orientation() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	b.WriteString(HomeName + "\n")
	if len(r.order) == 0 {
		b.WriteString("No resourcespaces registered.")
		return b.String()
	}
	b.WriteString("Available resourcespaces:\n")
	for _, name := range r.order {
		fmt.Fprintf(&b, "  %s() — %s\n", name, r.roots[name].Describe())
	}
	calls := make([]string, 0, len(r.published))
	for _, name := range r.published {
		calls = append(calls, name+"()")
	}
	sort.Strings(calls)
	fmt.Fprintf(&b, "Tools here: %s\n", strings.Join(calls, ", "))
	b.WriteString("Call a name to navigate into it.")
	return b.String()
}

// homeTools is the minimal set published at the root. Verbs that need a
// resource context are absent here on purpose; invoking one produces a
// capability error that names a resourcespace which does support it.
func (r *Registry) homeTools() resource.ToolMap {
	return resource.ToolMap{
		"orient": {
			Name:        "orient",
			Description: "Show the registered resourcespaces",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return r.orientation(), nil
			},
		},
		"where": {
			Name:        "where",
			Description: "Show the current navigation path",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return r.Breadcrumb(), nil
			},
		},
	}
}
