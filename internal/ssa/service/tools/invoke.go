package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/metrics"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

// Invoke runs the tool with raw provider arguments. Missing optional
// arguments take their defaults, values are coerced to the declared kinds and
// the result is validated before the handler sees it. A handler panic is
// returned as an error.
func (t *Tool) Invoke(ctx context.Context, raw map[string]any) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.ToolCalls.WithLabelValues(t.Name, result).Inc()
	}()

	if t.Handler == nil {
		return "", fmt.Errorf("ferramenta %q sem implementação", t.Name)
	}
	args, err := t.prepare(raw)
	if err != nil {
		return "", err
	}
	return t.Handler(ctx, args)
}

func (t *Tool) prepare(raw map[string]any) (Args, error) {
	args := make(Args, len(raw)+len(t.Params))
	for k, v := range raw {
		args[k] = v
	}
	for _, p := range t.Params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.HasDefault {
				args[p.Name] = p.Default
			}
			continue
		}
		args[p.Name] = coerce(p.Declared, v)
	}

	sch, err := t.argSchema()
	if err != nil {
		return nil, fmt.Errorf("schema de argumentos de %s: %w", t.Name, err)
	}
	// the validator only understands JSON-shaped values
	doc, err := jsonShape(args)
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("argumentos inválidos para %s: %v", t.Name, err)
	}
	return args, nil
}

// argSchema compiles the JSON schema of the declared parameters once.
func (t *Tool) argSchema() (*jsonschema.Schema, error) {
	t.schemaOnce.Do(func() {
		props := make(map[string]any, len(t.Params))
		required := make([]any, 0, len(t.Params))
		for _, p := range t.Params {
			prop := map[string]any{}
			// a nil default is allowed to reach the handler
			if p.HasDefault && p.Default == nil {
				prop["type"] = []any{string(p.Declared), "null"}
			} else {
				prop["type"] = string(p.Declared)
			}
			props[p.Name] = prop
			if p.Required {
				required = append(required, p.Name)
			}
		}
		doc := map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             required,
			"additionalProperties": false,
		}

		c := jsonschema.NewCompiler()
		url := "tool-" + t.Name + ".json"
		if err := c.AddResource(url, doc); err != nil {
			t.schemaErr = err
			return
		}
		t.schema, t.schemaErr = c.Compile(url)
	})
	return t.schema, t.schemaErr
}

func jsonShape(args Args) (any, error) {
	data, err := json.Marshal(map[string]any(args))
	if err != nil {
		return nil, fmt.Errorf("argumentos não serializáveis: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// coerce adapts the loose values models tend to send (numbers as text,
// arrays as JSON strings) to the declared kind. Values that cannot be
// adapted are returned unchanged for the validator to reject.
func coerce(kind Kind, v any) any {
	switch kind {
	case KindInteger, KindNumber:
		switch n := v.(type) {
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f
			}
		}
	case KindString:
		switch v.(type) {
		case float64, int, int64, bool:
			return Args{"v": v}.String("v")
		}
	case KindBoolean:
		if s, ok := v.(string); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
				return b
			}
		}
	case KindArray:
		switch a := v.(type) {
		case []string:
			out := make([]any, len(a))
			for i, s := range a {
				out[i] = s
			}
			return out
		case string:
			s := strings.TrimSpace(a)
			if strings.HasPrefix(s, "[") {
				var out []any
				if err := json.UnmarshalString(s, &out); err == nil {
					return out
				}
			}
			if s == "" {
				return []any{}
			}
			return []any{s}
		}
	case KindObject:
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				return map[string]any{}
			}
			var out map[string]any
			if err := json.UnmarshalString(s, &out); err == nil {
				return out
			}
		}
	}
	return v
}
