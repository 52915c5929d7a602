// Package schema turns registered tools into function-calling schemas. The
// neutral FunctionSpec is rendered per provider dialect.
package schema

import (
	einoschema "github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
)

const noDescription = "Sem descrição"

// Param is one parameter of a FunctionSpec.
type Param struct {
	Name        string
	Kind        tools.Kind
	Description string
	Required    bool
}

// FunctionSpec is the provider-neutral schema of one tool.
type FunctionSpec struct {
	Name        string
	Description string
	Params      []Param
}

// Build derives the function specs of every tool in the snapshot, in name
// order.
func Build(snap *tools.Snapshot) []FunctionSpec {
	list := snap.List()
	out := make([]FunctionSpec, 0, len(list))
	for _, t := range list {
		out = append(out, FromTool(t))
	}
	return out
}

// FromTool derives the spec of a single tool.
func FromTool(t *tools.Tool) FunctionSpec {
	desc := t.DocSummary()
	if desc == "" {
		desc = noDescription
	}
	fs := FunctionSpec{Name: t.Name, Description: desc}
	for _, p := range t.Params {
		d := p.Description
		if d == "" {
			d = "Parâmetro " + p.Name
		}
		fs.Params = append(fs.Params, Param{Name: p.Name, Kind: p.Kind, Description: d, Required: p.Required})
	}
	return fs
}

// RequiredNames lists the required parameters in declaration order.
func (f FunctionSpec) RequiredNames() []string {
	var out []string
	for _, p := range f.Params {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// Generator renders specs in one provider's vocabulary.
type Generator[T any] interface {
	Generate(specs []FunctionSpec) []T
}

// EinoGenerator renders eino ToolInfo values, consumed by the OpenAI,
// Anthropic, DeepSeek, Qwen and Ollama chat models.
type EinoGenerator struct{}

var _ Generator[*einoschema.ToolInfo] = EinoGenerator{}

func (EinoGenerator) Generate(specs []FunctionSpec) []*einoschema.ToolInfo {
	out := make([]*einoschema.ToolInfo, 0, len(specs))
	for _, fs := range specs {
		out = append(out, &einoschema.ToolInfo{
			Name:        fs.Name,
			Desc:        fs.Description,
			ParamsOneOf: einoschema.NewParamsOneOfByParams(einoParams(fs)),
		})
	}
	return out
}

func einoParams(fs FunctionSpec) map[string]*einoschema.ParameterInfo {
	params := make(map[string]*einoschema.ParameterInfo, len(fs.Params))
	for _, p := range fs.Params {
		info := &einoschema.ParameterInfo{
			Type:     einoType(p.Kind),
			Desc:     p.Description,
			Required: p.Required,
		}
		if p.Kind == tools.KindArray {
			info.ElemInfo = &einoschema.ParameterInfo{Type: einoschema.String}
		}
		params[p.Name] = info
	}
	return params
}

func einoType(k tools.Kind) einoschema.DataType {
	switch k {
	case tools.KindInteger:
		return einoschema.Integer
	case tools.KindNumber:
		return einoschema.Number
	case tools.KindBoolean:
		return einoschema.Boolean
	case tools.KindArray:
		return einoschema.Array
	case tools.KindObject:
		return einoschema.Object
	default:
		return einoschema.String
	}
}

// GeminiGenerator renders genai function declarations. Gemini rejects array
// parameters without an item type, so arrays always carry STRING items.
// OBJECT needs declared properties too, so free-form objects go out as STRING
// and the handler side decodes the JSON text.
type GeminiGenerator struct{}

var _ Generator[*genai.FunctionDeclaration] = GeminiGenerator{}

func (GeminiGenerator) Generate(specs []FunctionSpec) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, fs := range specs {
		props := make(map[string]*genai.Schema, len(fs.Params))
		for _, p := range fs.Params {
			s := &genai.Schema{Type: geminiType(p.Kind), Description: p.Description}
			if p.Kind == tools.KindArray {
				s.Items = &genai.Schema{Type: genai.TypeString}
			}
			props[p.Name] = s
		}
		required := fs.RequiredNames()
		if required == nil {
			required = []string{}
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        fs.Name,
			Description: fs.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   required,
			},
		})
	}
	return out
}

func geminiType(k tools.Kind) genai.Type {
	switch k {
	case tools.KindInteger:
		return genai.TypeInteger
	case tools.KindNumber:
		return genai.TypeNumber
	case tools.KindBoolean:
		return genai.TypeBoolean
	case tools.KindArray:
		return genai.TypeArray
	default:
		return genai.TypeString
	}
}

// JSONSchema renders the parameters as a plain JSON schema object, used by
// the MCP server and the tools listing.
func JSONSchema(fs FunctionSpec) map[string]any {
	props := make(map[string]any, len(fs.Params))
	for _, p := range fs.Params {
		prop := map[string]any{"type": string(p.Kind), "description": p.Description}
		if p.Kind == tools.KindArray {
			prop["items"] = map[string]any{"type": "string"}
		}
		props[p.Name] = prop
	}
	required := fs.RequiredNames()
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
