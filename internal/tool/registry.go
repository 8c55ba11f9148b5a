package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/streamchat-ai/streamchat/pkg/types"
)

// Registry is the tool catalog: read-only after initialization and safe for
// concurrent invocation. Argument schemas are compiled at registration so
// validation failures never reach a tool body.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool to the registry. A tool with an uncompilable
// parameter schema is rejected.
func (r *Registry) Register(t Tool) error {
	compiled, err := jsonschema.CompileString(t.ID()+".schema.json", string(t.Parameters()))
	if err != nil {
		return fmt.Errorf("tool %s has invalid parameter schema: %w", t.ID(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.ID()] = t
	r.schemas[t.ID()] = compiled
	return nil
}

// Get retrieves a tool by ID.
func (r *Registry) Get(id string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[id]
	return t, ok
}

// List returns all registered tools.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	return tools
}

// Execute validates arguments against the tool's schema and runs one call to
// completion. Failures come back as *types.ToolError so the caller can fold
// them into a tool result instead of aborting the turn.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage, toolCtx *Context) (*Result, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	compiled := r.schemas[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &types.ToolError{
			Kind: types.ErrKindUnknownTool,
			Tool: name,
			Err:  fmt.Errorf("unknown tool: %s", name),
		}
	}

	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	var decoded any
	if err := json.Unmarshal(args, &decoded); err != nil {
		return nil, &types.ToolError{Kind: types.ErrKindInvalidArguments, Tool: name, Err: err}
	}
	if err := compiled.Validate(decoded); err != nil {
		return nil, &types.ToolError{Kind: types.ErrKindInvalidArguments, Tool: name, Err: err}
	}

	result, err := t.Execute(ctx, args, toolCtx)
	if err != nil {
		return nil, &types.ToolError{Kind: types.ErrKindToolExecutionFailed, Tool: name, Err: err}
	}
	return result, nil
}

// ToolInfos returns the catalog in Eino form for provider requests.
func (r *Registry) ToolInfos() []*schema.ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]*schema.ToolInfo, 0, len(r.tools))
	for _, t := range r.tools {
		params := parseJSONSchemaToParams(t.Parameters())
		infos = append(infos, &schema.ToolInfo{
			Name:        t.ID(),
			Desc:        t.Description(),
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos
}

// DefaultRegistry creates a registry with the built-in tools.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	// Built-in schemas are static; registration cannot fail.
	_ = r.Register(NewKnowledgeTool())
	_ = r.Register(NewContextTool())
	return r
}

// parseJSONSchemaToParams converts JSON Schema to Eino ParameterInfo.
func parseJSONSchemaToParams(schemaJSON json.RawMessage) map[string]*schema.ParameterInfo {
	var jsonSchema struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}

	if err := json.Unmarshal(schemaJSON, &jsonSchema); err != nil {
		return nil
	}

	requiredSet := make(map[string]bool)
	for _, req := range jsonSchema.Required {
		requiredSet[req] = true
	}

	params := make(map[string]*schema.ParameterInfo)
	for name, prop := range jsonSchema.Properties {
		paramType := schema.String
		switch prop.Type {
		case "integer":
			paramType = schema.Integer
		case "number":
			paramType = schema.Number
		case "boolean":
			paramType = schema.Boolean
		case "array":
			paramType = schema.Array
		case "object":
			paramType = schema.Object
		}

		params[name] = &schema.ParameterInfo{
			Type:     paramType,
			Desc:     prop.Description,
			Required: requiredSet[name],
		}
	}

	return params
}
