package env

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/rede/packages/core/parser"
)

func MergeVariables(sources ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// ParseAssignments turns "name=value" pairs, as given to --var, into a map.
func ParseAssignments(pairs []string) (map[string]any, error) {
	result := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q, expected name=value", pair)
		}
		result[key] = value
	}
	return result, nil
}

// ApplyFileVariables resolves the @name = value declarations of a parsed file
// in order and registers them, so later declarations may refer to earlier
// ones. Names present in pinned keep their existing value.
func ApplyFileVariables(file *parser.File, r *Resolver, pinned map[string]any) {
	for _, v := range file.Variables {
		if _, ok := pinned[v.Name]; ok {
			continue
		}
		r.SetVariable(v.Name, r.Resolve(v.Value))
	}
}
