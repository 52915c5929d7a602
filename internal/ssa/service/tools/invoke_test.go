package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferParam(t *testing.T) {
	tests := []struct {
		name       string
		declared   Kind
		hasDefault bool
		wantKind   Kind
		wantReq    bool
	}{
		{name: "sql", declared: KindString, wantKind: KindString, wantReq: true},
		{name: "codprod", declared: "", wantKind: KindInteger, wantReq: true},
		{name: "CODLOCAL", declared: KindString, hasDefault: true, wantKind: KindInteger},
		{name: "nunota", declared: KindString, wantKind: KindInteger, wantReq: true},
		{name: "days", declared: KindInteger, hasDefault: true, wantKind: KindInteger},
		{name: "fields", declared: KindArray, hasDefault: true, wantKind: KindArray},
		{name: "values", declared: KindObject, wantKind: KindString, wantReq: true},
		{name: "primary_key", declared: KindObject, hasDefault: true, wantKind: KindString},
		{name: "ratio", declared: KindNumber, wantKind: KindString, wantReq: true},
		{name: "dry_run", declared: KindBoolean, hasDefault: true, wantKind: KindString},
		{name: "query", declared: "", wantKind: KindString, wantReq: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := InferParam(tt.name, tt.declared, nil, tt.hasDefault)
			assert.Equal(t, tt.wantKind, p.Kind)
			assert.Equal(t, tt.wantReq, p.Required)
			assert.Equal(t, "Parâmetro "+tt.name, p.Description)
		})
	}
}

func TestTool_DocSummary(t *testing.T) {
	tool := &Tool{Doc: "\n  Executa SELECT.  \nDetalhes longos."}
	assert.Equal(t, "Executa SELECT.", tool.DocSummary())
	assert.Empty(t, (&Tool{}).DocSummary())
}

func captureTool(params ...ParamSpec) (*Tool, *Args) {
	var got Args
	return &Tool{
		Name:   "capture",
		Doc:    "captura",
		Params: params,
		Handler: func(_ context.Context, a Args) (string, error) {
			got = a
			return "ok", nil
		},
	}, &got
}

func TestTool_InvokeDefaultsAndCoercion(t *testing.T) {
	tool, got := captureTool(
		Param("codprod", KindInteger),
		Optional("codlocal", KindInteger, 10010000),
		Optional("codemp_csv", KindString, ""),
		Optional("fields", KindArray, []any{}),
		Optional("primary_key", KindObject, map[string]any{}),
	)

	out, err := tool.Invoke(context.Background(), map[string]any{
		"codprod":    "20",
		"codemp_csv": float64(1),
		"fields":     `["CODPARC","NOMEPARC"]`,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	a := *got
	assert.Equal(t, 20, a.Int("codprod", 0))
	assert.Equal(t, 10010000, a.Int("codlocal", 0))
	assert.Equal(t, "1", a.String("codemp_csv"))
	assert.Equal(t, []string{"CODPARC", "NOMEPARC"}, a.Strings("fields"))
	assert.NotNil(t, a.Map("primary_key"))
}

func TestTool_InvokeDecodesObjectText(t *testing.T) {
	tool, got := captureTool(
		Param("values", KindObject),
		Optional("primary_key", KindObject, map[string]any{}),
	)
	require.Equal(t, KindString, tool.Params[0].Kind)

	_, err := tool.Invoke(context.Background(), map[string]any{
		"values":      `{"NOMEPARC":"ACME"}`,
		"primary_key": `{"CODPARC":7}`,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"NOMEPARC": "ACME"}, got.Map("values"))
	assert.Equal(t, float64(7), got.Map("primary_key")["CODPARC"])
}

func TestTool_InvokeRejectsBadArguments(t *testing.T) {
	tool, _ := captureTool(Param("codprod", KindInteger))

	_, err := tool.Invoke(context.Background(), map[string]any{})
	require.Error(t, err, "missing required")

	_, err = tool.Invoke(context.Background(), map[string]any{"codprod": "vinte"})
	require.Error(t, err, "not an integer")

	_, err = tool.Invoke(context.Background(), map[string]any{"codprod": 1, "extra": true})
	require.Error(t, err, "unknown argument")
	assert.Contains(t, err.Error(), "argumentos inválidos para capture")
}

func TestTool_InvokeRecoversPanic(t *testing.T) {
	tool := &Tool{Name: "boom", Handler: func(context.Context, Args) (string, error) {
		panic("kaboom")
	}}
	out, err := tool.Invoke(context.Background(), nil)
	assert.Empty(t, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestArgs_String(t *testing.T) {
	a := Args{"i": float64(42), "f": 1.5, "s": "x", "b": true}
	assert.Equal(t, "42", a.String("i"))
	assert.Equal(t, "1.5", a.String("f"))
	assert.Equal(t, "x", a.String("s"))
	assert.Equal(t, "true", a.String("b"))
	assert.Equal(t, "", a.String("missing"))
	assert.Equal(t, 7, a.Int("missing", 7))
}
