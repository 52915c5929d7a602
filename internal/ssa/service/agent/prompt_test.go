package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/rules"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
)

func TestBuildSystemPrompt(t *testing.T) {
	reg := tools.NewRegistry([]*tools.Tool{
		{Name: "b_tool", Doc: "Segunda.\nDetalhes ignorados."},
		{Name: "a_tool"},
	})
	require.NoError(t, reg.Reload(context.Background()))

	out := BuildSystemPrompt(reg.Snapshot(), nil)

	persona := strings.Index(out, "PERSONALIDADE: RESOLVA, NÃO PERGUNTE")
	ooda := strings.Index(out, "PROTOCOLO DE RESILIÊNCIA (OODA LOOP)")
	schema := strings.Index(out, "CONHECIMENTO DO SCHEMA SANKHYA")
	security := strings.Index(out, "SEGURANÇA")
	toolsAt := strings.Index(out, "FERRAMENTAS ATIVAS (2)")
	for _, i := range []int{persona, ooda, schema, security, toolsAt} {
		require.GreaterOrEqual(t, i, 0)
	}
	assert.Less(t, persona, ooda)
	assert.Less(t, ooda, schema)
	assert.Less(t, schema, security)
	assert.Less(t, security, toolsAt)

	assert.Contains(t, out, "- `a_tool`: Sem descrição\n- `b_tool`: Segunda.\n")
	assert.NotContains(t, out, "Detalhes ignorados")
	assert.NotContains(t, out, "REGRAS DE NEGÓCIO APRENDIDAS")
}

func TestBuildSystemPrompt_ActiveRules(t *testing.T) {
	out := BuildSystemPrompt(nil, []rules.Rule{
		{ID: "oracle_date_functions_only", Description: "Use TRUNC(SYSDATE)."},
	})
	assert.Contains(t, out, "FERRAMENTAS ATIVAS (0)")
	rulesAt := strings.Index(out, "REGRAS DE NEGÓCIO APRENDIDAS")
	require.GreaterOrEqual(t, rulesAt, 0)
	assert.Less(t, rulesAt, strings.Index(out, "FERRAMENTAS ATIVAS"))
	assert.Contains(t, out, "- `oracle_date_functions_only`: Use TRUNC(SYSDATE).\n")
}
