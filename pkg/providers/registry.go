package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/asphodel42/amadeus/pkg/contracts"
)

// Handler executes one provider function with named arguments.
type Handler func(ctx context.Context, args map[string]any) (string, error)

type functionKey struct {
	tool     string
	function string
}

type registration struct {
	handler Handler
	schema  *jsonschema.Schema
}

// Registry maps (tool namespace, function name) to a typed handler.
// Built once at startup; dispatch never resolves names reflectively.
type Registry struct {
	functions map[functionKey]registration
}

// NewRegistry builds the registry over one provider set, compiling the
// argument schema for every function. A schema that fails to compile
// aborts startup.
func NewRegistry(set Set) (*Registry, error) {
	r := &Registry{functions: make(map[functionKey]registration)}

	for _, spec := range builtinFunctions(set) {
		if err := r.register(spec.tool, spec.function, spec.schema, spec.handler); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(tool, function, schema string, handler Handler) error {
	key := functionKey{tool, function}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("duplicate registration for %s.%s", tool, function)
	}

	reg := registration{handler: handler}
	if schema != "" {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		url := fmt.Sprintf("https://amadeus.schemas.local/%s/%s.schema.json", tool, function)
		if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
			return fmt.Errorf("schema load for %s.%s: %w", tool, function, err)
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return fmt.Errorf("schema compile for %s.%s: %w", tool, function, err)
		}
		reg.schema = compiled
	}
	r.functions[key] = reg
	return nil
}

// Has reports whether a handler is registered for the function.
func (r *Registry) Has(tool, function string) bool {
	_, ok := r.functions[functionKey{tool, function}]
	return ok
}

// Functions lists the registered functions as "tool.function", sorted.
func (r *Registry) Functions() []string {
	out := make([]string, 0, len(r.functions))
	for key := range r.functions {
		out = append(out, key.tool+"."+key.function)
	}
	sort.Strings(out)
	return out
}

// ValidatePlan rejects a plan referencing any unregistered function
// before a single action dispatches.
func (r *Registry) ValidatePlan(plan contracts.ActionPlan) error {
	for _, action := range plan.Actions {
		if !r.Has(action.Tool, action.Function) {
			return fmt.Errorf("no handler registered for %s.%s", action.Tool, action.Function)
		}
	}
	return nil
}

// Dispatch validates the action's arguments against the function's
// schema and invokes the handler.
func (r *Registry) Dispatch(ctx context.Context, action contracts.Action) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	reg, ok := r.functions[functionKey{action.Tool, action.Function}]
	if !ok {
		return "", fmt.Errorf("no handler registered for %s.%s", action.Tool, action.Function)
	}

	if reg.schema != nil {
		if err := validateArgs(reg.schema, action.Args); err != nil {
			return "", fmt.Errorf("invalid arguments for %s.%s: %w", action.Tool, action.Function, err)
		}
	}
	return reg.handler(ctx, action.Args)
}

// validateArgs round-trips the args through JSON so the schema sees
// plain types (int becomes float64, exactly as decoded input would).
func validateArgs(schema *jsonschema.Schema, args map[string]any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	var plain any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return err
	}
	return schema.Validate(plain)
}
