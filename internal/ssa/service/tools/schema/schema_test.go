package schema

import (
	"context"
	"testing"

	einoschema "github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/core"
)

func snapshot(t *testing.T) *tools.Snapshot {
	t.Helper()
	noop := func(context.Context, tools.Args) (string, error) { return "", nil }
	reg := tools.NewRegistry([]*tools.Tool{
		{
			Name:    "load_records",
			Doc:     "Carrega registros de uma entidade.\nUsa CRUDServiceProvider.",
			Handler: noop,
			Params: []tools.ParamSpec{
				tools.Param("entity_name", tools.KindString),
				tools.Optional("criteria", tools.KindString, ""),
				tools.Optional("fields", tools.KindArray, []any{}),
			},
		},
		{
			Name:    "get_stock_info",
			Handler: noop,
			Params: []tools.ParamSpec{
				tools.Param("codprod", ""),
				tools.Optional("codlocal", tools.KindInteger, 10010000),
			},
		},
	})
	require.NoError(t, reg.Reload(context.Background()))
	return reg.Snapshot()
}

func TestBuild(t *testing.T) {
	specs := Build(snapshot(t))
	require.Len(t, specs, 2)

	stock := specs[0]
	assert.Equal(t, "get_stock_info", stock.Name)
	assert.Equal(t, "Sem descrição", stock.Description)
	assert.Equal(t, []string{"codprod"}, stock.RequiredNames())
	assert.Equal(t, tools.KindInteger, stock.Params[0].Kind)

	load := specs[1]
	assert.Equal(t, "Carrega registros de uma entidade.", load.Description)
	assert.Equal(t, "Parâmetro criteria", load.Params[1].Description)
}

func TestEinoGenerator(t *testing.T) {
	infos := EinoGenerator{}.Generate(Build(snapshot(t)))
	require.Len(t, infos, 2)

	assert.Equal(t, "load_records", infos[1].Name)
	assert.Equal(t, "Carrega registros de uma entidade.", infos[1].Desc)
	require.NotNil(t, infos[1].ParamsOneOf)

	params := einoParams(Build(snapshot(t))[1])
	assert.True(t, params["entity_name"].Required)
	assert.False(t, params["fields"].Required)
	assert.Equal(t, einoschema.Array, params["fields"].Type)
	require.NotNil(t, params["fields"].ElemInfo)
	assert.Equal(t, einoschema.String, params["fields"].ElemInfo.Type)
	assert.Equal(t, einoschema.Integer, einoType(tools.KindInteger))
}

func TestGeminiGenerator(t *testing.T) {
	decls := GeminiGenerator{}.Generate(Build(snapshot(t)))
	require.Len(t, decls, 2)

	stock := decls[0]
	assert.Equal(t, genai.TypeObject, stock.Parameters.Type)
	assert.Equal(t, genai.TypeInteger, stock.Parameters.Properties["codprod"].Type)
	assert.Equal(t, []string{"codprod"}, stock.Parameters.Required)

	fields := decls[1].Parameters.Properties["fields"]
	assert.Equal(t, genai.TypeArray, fields.Type)
	require.NotNil(t, fields.Items, "gemini requires items on arrays")
	assert.Equal(t, genai.TypeString, fields.Items.Type)
}

func TestGeminiGenerator_CoreTools(t *testing.T) {
	reg := tools.NewRegistry(core.Tools(core.Deps{}))
	require.NoError(t, reg.Reload(context.Background()))
	decls := GeminiGenerator{}.Generate(Build(reg.Snapshot()))
	require.NotEmpty(t, decls)

	byName := map[string]*genai.FunctionDeclaration{}
	for _, d := range decls {
		byName[d.Name] = d
		for name, prop := range d.Parameters.Properties {
			if prop.Type == genai.TypeObject {
				assert.NotEmpty(t, prop.Properties, "%s.%s is OBJECT without properties", d.Name, name)
			}
			if prop.Type == genai.TypeArray {
				assert.NotNil(t, prop.Items, "%s.%s is ARRAY without items", d.Name, name)
			}
		}
	}

	tests := []struct {
		tool  string
		param string
	}{
		{tool: core.CallSankhyaService, param: "request_body"},
		{tool: core.SaveRecord, param: "values"},
		{tool: core.SaveRecord, param: "primary_key"},
	}
	for _, tt := range tests {
		t.Run(tt.tool+"/"+tt.param, func(t *testing.T) {
			d := byName[tt.tool]
			require.NotNil(t, d)
			require.Contains(t, d.Parameters.Properties, tt.param)
			assert.Equal(t, genai.TypeString, d.Parameters.Properties[tt.param].Type)
		})
	}
}

func TestJSONSchema(t *testing.T) {
	js := JSONSchema(Build(snapshot(t))[1])
	assert.Equal(t, "object", js["type"])
	props := js["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, props["fields"].(map[string]any)["items"])
	assert.Equal(t, []string{"entity_name"}, js["required"])
}
