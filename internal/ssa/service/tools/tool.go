// Package tools holds the tool model shared by the registry, the schema
// generators and the conversation controller.
package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Kind is the coarse parameter type exposed to completion providers.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Origin names where a tool came from.
const (
	SourceCore = "core"
)

// ParamSpec describes one keyword parameter of a tool. It is built once when
// the tool is registered.
type ParamSpec struct {
	Name        string
	Kind        Kind
	Required    bool
	Description string

	// Declared is the type the handler actually reads. Kind may differ when
	// the naming convention promoted a parameter to integer.
	Declared   Kind
	Default    any
	HasDefault bool
}

// InferParam applies the type heuristic: integer when declared integer or
// when the name starts with "cod" or "nu", array when declared array,
// otherwise string. Declared keeps the handler's type so a JSON string can
// still be coerced into a map, number or bool. A parameter is required
// exactly when it has no default.
func InferParam(name string, declared Kind, def any, hasDefault bool) ParamSpec {
	if declared == "" {
		declared = KindString
	}
	lower := strings.ToLower(name)

	kind := KindString
	switch {
	case declared == KindInteger || strings.HasPrefix(lower, "cod") || strings.HasPrefix(lower, "nu"):
		kind = KindInteger
	case declared == KindArray:
		kind = KindArray
	}

	return ParamSpec{
		Name:        name,
		Kind:        kind,
		Required:    !hasDefault,
		Description: "Parâmetro " + name,
		Declared:    declared,
		Default:     def,
		HasDefault:  hasDefault,
	}
}

// Param is a shorthand for a required parameter.
func Param(name string, declared Kind) ParamSpec {
	return InferParam(name, declared, nil, false)
}

// Optional is a shorthand for a parameter with a default value.
func Optional(name string, declared Kind, def any) ParamSpec {
	return InferParam(name, declared, def, true)
}

// Handler executes a tool. Rejected input is reported through the returned
// string; the error is reserved for execution failures.
type Handler func(ctx context.Context, args Args) (string, error)

// Tool is a named capability exposed to the completion provider.
type Tool struct {
	Name    string
	Doc     string
	Params  []ParamSpec
	Handler Handler
	// Source is the skill module (or "core") that contributed the tool.
	Source string

	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
}

// DocSummary is the first non-empty line of Doc.
func (t *Tool) DocSummary() string {
	for _, line := range strings.Split(t.Doc, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}

// Param looks up a parameter spec by name.
func (t *Tool) Param(name string) (ParamSpec, bool) {
	for _, p := range t.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Args are the decoded, defaulted and coerced arguments of one call.
type Args map[string]any

func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// String returns the argument rendered as text. Whole numbers print without
// a fractional part.
func (a Args) String(name string) string {
	switch v := a[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the argument as an integer, or def when absent or not numeric.
func (a Args) Int(name string, def int) int {
	switch v := a[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Strings returns an array argument as strings.
func (a Args) Strings(name string) []string {
	switch v := a[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, Args{"v": item}.String("v"))
		}
		return out
	}
	return nil
}

// Map returns an object argument.
func (a Args) Map(name string) map[string]any {
	if m, ok := a[name].(map[string]any); ok {
		return m
	}
	return nil
}
