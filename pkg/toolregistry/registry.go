// Package toolregistry is the decorator-based tool catalog exposed to the
// LLM Gateway's chat orchestrator (§4.9 Tool Registry). Tools are registered
// as plain Go functions; their JSON schema is derived by reflection so a new
// tool needs no hand-written schema.
package toolregistry

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
)

// ToolContext is the hidden first parameter every tool handler receives. It
// is never exposed in the tool's JSON schema and carries caller identity for
// permission checks (§4.9).
type ToolContext struct {
	UserID string
	OrgID  string
}

// Annotation carries the provider-neutral display metadata for a tool call
// (e.g. a short human label shown while the UI streams `tool_start`/`tool_end`).
type Annotation struct {
	Title          string
	ReadOnlyHint   bool
	Destructive    bool
}

// Handler is a registered tool's callable body: it receives the decoded
// context and arguments and returns a result (or an error, which the
// registry formats into a typed denial/failure string rather than
// propagating, per §4.9).
type Handler func(ctx context.Context, tc ToolContext, args map[string]any) (any, error)

// Tool is one registered tool definition.
type Tool struct {
	Name               string
	Description        string
	Module             string
	RequiredPermission string // empty means no permission required
	Annotation         Annotation
	Schema             *jsonschema.Schema
	handler            Handler
	argsType           reflect.Type
}

// RBAC is the collaborator the registry asks whether a caller may invoke a
// given tool (§4.9 permission filtering).
type RBAC interface {
	Allowed(tc ToolContext, permission string) bool
}

// AllowAll is a permissive RBAC used when no access control is configured
// (single-tenant/dev deployments).
type AllowAll struct{}

func (AllowAll) Allowed(ToolContext, string) bool { return true }

// Registry holds every registered tool, keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	rbac  RBAC
}

// New returns an empty Registry using AllowAll until SetRBAC is called.
func New() *Registry {
	return &Registry{tools: make(map[string]*Tool), rbac: AllowAll{}}
}

// SetRBAC swaps in the permission collaborator.
func (r *Registry) SetRBAC(rbac RBAC) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rbac = rbac
}

// Register adds a tool. The type parameter T is the handler's argument
// struct; the JSON schema is derived from it by reflection, and raw
// arguments are decoded into a T before each call.
func Register[T any](r *Registry, name, description, module, requiredPermission string, annotation Annotation, handler func(ctx context.Context, tc ToolContext, args T) (any, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	reflector := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	schema := reflector.Reflect(new(T))

	r.tools[name] = &Tool{
		Name:               name,
		Description:        description,
		Module:             module,
		RequiredPermission: requiredPermission,
		Annotation:         annotation,
		Schema:             schema,
		argsType:           reflect.TypeOf(*new(T)),
		handler: func(ctx context.Context, tc ToolContext, rawArgs map[string]any) (any, error) {
			var typed T
			if err := decodeArgs(rawArgs, &typed); err != nil {
				return nil, fmt.Errorf("decode arguments for %q: %w", name, err)
			}
			return handler(ctx, tc, typed)
		},
	}
	return nil
}

// Available returns the tools the caller may invoke, permission-filtered
// before being sent to the LLM (§4.9).
func (r *Registry) Available(tc ToolContext) []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		if t.RequiredPermission == "" || r.rbac.Allowed(tc, t.RequiredPermission) {
			out = append(out, t)
		}
	}
	return out
}

// Execute invokes name's handler after re-checking permission. It never
// panics or returns a raw Go error to the caller's caller: handler panics
// and permission denials alike become a typed result string so the LLM
// receives a normal tool result it can react to.
func (r *Registry) Execute(ctx context.Context, tc ToolContext, name string, args map[string]any) (result any, denied bool, err error) {
	r.mu.RLock()
	t, exists := r.tools[name]
	rbac := r.rbac
	r.mu.RUnlock()

	if !exists {
		return nil, false, fmt.Errorf("unknown tool %q", name)
	}

	if t.RequiredPermission != "" && !rbac.Allowed(tc, t.RequiredPermission) {
		return fmt.Sprintf("permission denied: %q requires %q", name, t.RequiredPermission), true, nil
	}

	return r.safeCall(ctx, tc, t, args)
}

func (r *Registry) safeCall(ctx context.Context, tc ToolContext, t *Tool, args map[string]any) (result any, denied bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = fmt.Sprintf("tool %q failed: %v", t.Name, rec)
			err = nil
		}
	}()

	res, callErr := t.handler(ctx, tc, args)
	if callErr != nil {
		return fmt.Sprintf("tool %q failed: %v", t.Name, callErr), false, nil
	}
	return res, false, nil
}
