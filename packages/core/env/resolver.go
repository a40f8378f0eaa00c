package env

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/rede/packages/builtin"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Resolver expands templates. It is safe for concurrent use.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]any
	dotenv    map[string]string
	funcs     *builtin.Registry
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]any),
		dotenv:    make(map[string]string),
		funcs:     builtin.NewRegistry(),
	}
}

// SetWarnFunc sets a function to be called when warnings occur (e.g., unresolved variables)
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (r *Resolver) SetVariables(vars map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

// SetDotEnv registers .env entries. They answer {{$dotenv NAME}} and act as
// the lowest-precedence plain variables.
func (r *Resolver) SetDotEnv(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.dotenv[k] = v
	}
}

func (r *Resolver) Resolve(input string) string {
	return r.resolve(input, nil)
}

// ResolveQuery expands templates inside raw query text, escaping each
// substituted value. The literal text around the templates is untouched.
func (r *Resolver) ResolveQuery(input string) string {
	return r.resolve(input, url.QueryEscape)
}

func (r *Resolver) resolve(input string, escape func(string) string) string {
	if input == "" {
		return input
	}
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])
		if val, ok := r.lookup(expr); ok {
			if escape != nil {
				return escape(val)
			}
			return val
		}
		r.warn("unresolved template: %s", match)
		return match
	})
}

func (r *Resolver) lookup(expr string) (string, bool) {
	if name, ok := strings.CutPrefix(expr, "$dotenv "); ok {
		r.mu.RLock()
		defer r.mu.RUnlock()
		val, found := r.dotenv[strings.TrimSpace(name)]
		return val, found
	}

	if strings.Contains(expr, "(") {
		result, err := r.funcs.Call(strings.TrimPrefix(expr, "$"))
		if err != nil {
			return "", false
		}
		return fmt.Sprintf("%v", result), true
	}

	if strings.HasPrefix(expr, "$") {
		name := strings.TrimPrefix(strings.TrimPrefix(expr, "$"), "env.")
		return os.LookupEnv(name)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if val, ok := r.variables[expr]; ok {
		return fmt.Sprintf("%v", val), true
	}
	if val, ok := r.dotenv[expr]; ok {
		return val, true
	}
	return "", false
}

// Unresolved lists, sorted and without duplicates, the templates in input
// that cannot be resolved.
func (r *Resolver) Unresolved(input string) []string {
	seen := make(map[string]bool)
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		if _, ok := r.lookup(strings.TrimSpace(m[1])); !ok {
			seen[m[0]] = true
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *Resolver) HasVariable(name string) bool {
	_, ok := r.GetVariable(name)
	return ok
}

func (r *Resolver) GetVariable(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.variables[name]; ok {
		return v, true
	}
	if v, ok := r.dotenv[name]; ok {
		return v, true
	}
	return nil, false
}
