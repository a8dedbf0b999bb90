package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Tool names. The set is closed; a registry holds a subset of these.
const (
	PlanTasks     = "plan_tasks"
	WebFetch      = "web_fetch"
	CodeExec      = "code_exec"
	WriteNote     = "write_note"
	SummarizeText = "summarize_text"
	RAGSearch     = "rag_search"
)

// Kinds lists every tool name in display order.
var Kinds = []string{PlanTasks, WebFetch, CodeExec, WriteNote, SummarizeText, RAGSearch}

// SideEffect classifies whether a tool needs confirmation before it runs.
type SideEffect int

const (
	Safe SideEffect = iota
	RequiresApproval
)

// String returns the side-effect class name.
func (s SideEffect) String() string {
	if s == RequiresApproval {
		return "requires_approval"
	}
	return "safe"
}

// FieldType is the JSON Schema type of an argument.
type FieldType string

const (
	String  FieldType = "string"
	Integer FieldType = "integer"
)

// Field describes one argument. Zero Min, Max and MaxLen are unbounded.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
	Min, Max    int
	MaxLen      int // runes, strings only
	Default     any // filled when the argument is absent
}

// Descriptor is the static description of one tool.
type Descriptor struct {
	Name        string
	Description string
	Fields      []Field
	SideEffect  SideEffect
}

// Schema renders the descriptor's input as a JSON Schema object.
func (d Descriptor) Schema() map[string]any {
	props := make(map[string]any, len(d.Fields))
	required := []string{}
	for _, f := range d.Fields {
		p := map[string]any{
			"type":        string(f.Type),
			"description": f.Description,
		}
		if f.Type == Integer {
			if f.Min != 0 {
				p["minimum"] = f.Min
			}
			if f.Max != 0 {
				p["maximum"] = f.Max
			}
		}
		if f.Type == String && f.MaxLen > 0 {
			p["maxLength"] = f.MaxLen
		}
		if f.Default != nil {
			p["default"] = f.Default
		}
		props[f.Name] = p
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Definition renders the descriptor as an OpenAI-style tool definition.
func (d Descriptor) Definition() map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        d.Name,
			"description": d.Description,
			"parameters":  d.Schema(),
		},
	}
}

// Args are validated, typed tool arguments. Strings are string and
// integers are int.
type Args map[string]any

// String returns a string argument or "".
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Int returns an integer argument or 0.
func (a Args) Int(name string) int {
	n, _ := a[name].(int)
	return n
}

// validate checks raw arguments against the descriptor and returns typed
// arguments with defaults filled. Unknown arguments are dropped.
func (d Descriptor) validate(raw map[string]any) (Args, error) {
	out := make(Args, len(d.Fields))
	for _, f := range d.Fields {
		v, present := raw[f.Name]
		if !present || v == nil {
			if f.Default != nil {
				out[f.Name] = f.Default
				continue
			}
			if f.Required {
				return nil, &ValidationError{Tool: d.Name, Field: f.Name, Reason: "required"}
			}
			continue
		}

		switch f.Type {
		case String:
			s, ok := v.(string)
			if !ok {
				return nil, &ValidationError{Tool: d.Name, Field: f.Name, Reason: fmt.Sprintf("expected string, got %T", v)}
			}
			if f.Required && strings.TrimSpace(s) == "" {
				return nil, &ValidationError{Tool: d.Name, Field: f.Name, Reason: "must not be empty"}
			}
			if f.MaxLen > 0 && utf8.RuneCountInString(s) > f.MaxLen {
				return nil, &ValidationError{Tool: d.Name, Field: f.Name, Reason: fmt.Sprintf("longer than %d characters", f.MaxLen)}
			}
			out[f.Name] = s

		case Integer:
			n, ok := toInt(v)
			if !ok {
				return nil, &ValidationError{Tool: d.Name, Field: f.Name, Reason: fmt.Sprintf("expected integer, got %v", v)}
			}
			if f.Min != 0 && n < f.Min {
				return nil, &ValidationError{Tool: d.Name, Field: f.Name, Reason: fmt.Sprintf("must be at least %d", f.Min)}
			}
			if f.Max != 0 && n > f.Max {
				return nil, &ValidationError{Tool: d.Name, Field: f.Name, Reason: fmt.Sprintf("must be at most %d", f.Max)}
			}
			out[f.Name] = n
		}
	}
	return out, nil
}

// toInt accepts JSON numbers with no fractional part and numeric
// strings, which small models often send.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}
