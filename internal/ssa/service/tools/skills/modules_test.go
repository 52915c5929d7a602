package skills

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/gateway"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
)

func inTree(t *testing.T, d Deps) *tools.Registry {
	t.Helper()
	return registry(t, NewInTreeSource(d))
}

func TestLenses_Sales(t *testing.T) {
	exec := &stubExec{byPrefix: map[string]*gateway.ResultSet{
		"SELECT CODEMP, TO_CHAR": {Rows: []gateway.Row{
			{"CODEMP": float64(1), "MES": "2026-09", "TOTAL": 1234.5},
			{"CODEMP": "2", "MES": "2026-09", "TOTAL": float64(10)},
		}},
	}}
	r := inTree(t, Deps{Exec: exec})

	out := call(t, r, GetConsolidatedSalesLens, nil)
	require.Len(t, exec.queries, 1)
	assert.Contains(t, exec.queries[0], "CODEMP IN (1, 5, 7, 2, 6)")
	assert.Contains(t, exec.queries[0], "ADD_MONTHS(SYSDATE, -3)")
	assert.True(t, strings.HasPrefix(out, "### 📊 Lente de Vendas Consolidada (Últimos 3 Meses)\n| Mês | Segmento | Empresa | Venda Líquida |"), out)
	assert.Contains(t, out, "| 2026-09 | ATACADO | 1 | R$ 1,234.50 |")
	assert.Contains(t, out, "| 2026-09 | INDUSTRIA | 2 | R$ 10.00 |")

	custom := inTree(t, Deps{Exec: &stubExec{}, Segments: []Segment{{Name: "VAREJO", Companies: []int{9}}}})
	assert.Equal(t, "Nenhuma venda encontrada no período.", call(t, custom, GetConsolidatedSalesLens, map[string]any{"months": 6}))
}

func TestLenses_FinanceHotspots(t *testing.T) {
	tests := []struct {
		name    string
		exec    *stubExec
		want    []string
		notWant []string
	}{
		{
			name: "clean",
			exec: &stubExec{},
			want: []string{"✅ **Qualidade de Dados:** Nenhuma inconsistência grave detectada nos últimos 60 dias."},
		},
		{
			name: "noise and unbound",
			exec: &stubExec{byPrefix: map[string]*gateway.ResultSet{
				"SELECT COUNT(*) AS QTD, SUM(VLRDESDOB) AS TOTAL FROM TGFFIN WHERE CODNAT = 1": {Rows: []gateway.Row{{"QTD": float64(2), "TOTAL": float64(500)}}},
				"SELECT COUNT(*) AS QTD, SUM(VLRDESDOB) AS TOTAL FROM TGFFIN WHERE CODNAT = 0": {Rows: []gateway.Row{{"QTD": float64(3), "TOTAL": 1500.25}}},
			}},
			want: []string{
				"⚠️ **Ruído na Receita:** 2 lançamentos (R$ 500.00)",
				"🔴 **Pontos Cegos:** R$ 1,500.25 em 3 lançamentos estão sem classificação (Natureza 0).",
			},
			notWant: []string{"✅"},
		},
		{
			name: "query error",
			exec: &stubExec{failing: map[string]error{"SELECT COUNT(*)": errors.New("timeout")}},
			want: []string{"Erro ao processar lente financeira: timeout"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := call(t, inTree(t, Deps{Exec: tt.exec}), GetFinanceHotspotLens, nil)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, out, w)
			}
		})
	}
}

func TestFinanceAI_Productivity(t *testing.T) {
	exec := &stubExec{byPrefix: map[string]*gateway.ResultSet{
		"SELECT CODEMP, SUM(VLRNOTA)": {Rows: []gateway.Row{
			{"CODEMP": float64(1), "FATURAMENTO": float64(1000)},
			{"CODEMP": float64(5), "FATURAMENTO": float64(500)},
			{"CODEMP": float64(2), "FATURAMENTO": float64(300)},
		}},
		"SELECT CODEMP, SUM(VLRDESDOB)": {Rows: []gateway.Row{
			{"CODEMP": float64(1), "CUSTO_PESSOAL": float64(300)},
		}},
	}}
	out := call(t, inTree(t, Deps{Exec: exec}), AnalyzeProductivityByUnit, nil)

	require.Len(t, exec.queries, 2)
	assert.Contains(t, exec.queries[1], "CODPARC = 3")
	assert.Contains(t, out, "| ATACADO (1, 5, 7) | R$ 1,500.00 | R$ 300.00 | 5.00x | 20.0% |")
	assert.Contains(t, out, "| INDUSTRIA (2, 6) | R$ 300.00 | R$ 0.00 | 0.00x | 0.0% |")
	assert.Contains(t, out, "```json-chart\n{\"data\":[{\"type\":\"bar\",\"name\":\"Faturamento\"")
	assert.Contains(t, out, `"barmode":"group"`)
}

func TestParseProductName(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		color string
	}{
		{name: "CABO FLEXIVEL 2,5MM AZ (ROLO 100MT)", base: "CABO FLEXIVEL 2,5MM", color: "AZ"},
		{name: "cabo flexivel 2,5mm - preto bobina", base: "CABO FLEXIVEL 2,5MM", color: "PRETO"},
		{name: "DISJUNTOR 20A 50MT", base: "DISJUNTOR 20A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseProductName(tt.name)
			assert.Equal(t, tt.base, got.base)
			assert.Equal(t, tt.color, got.color)
		})
	}
	assert.True(t, sameBase("CABO FLEXIVEL 2,5MM", "CABO FLEXIVEL 2,5MM EXTRA"))
	assert.False(t, sameBase("CABO RIGIDO", "CABO FLEXIVEL 2,5MM"))
}

func procurementExec(sold float64) *stubExec {
	return &stubExec{byPrefix: map[string]*gateway.ResultSet{
		"SELECT P.CODPROD, P.DESCRPROD, P.CODGRUPOPROD": {Rows: []gateway.Row{
			{"CODPROD": float64(100), "DESCRPROD": "CABO FLEXIVEL 2,5MM AZ (ROLO 100MT)", "CODGRUPOPROD": float64(10), "SALDO": float64(50)},
		}},
		"SELECT I.CODPROD, SUM(I.QTDNEG)": {Rows: []gateway.Row{{"CODPROD": float64(100), "QTD_VENDIDA_90D": sold}}},
		"SELECT P.CODPROD, P.DESCRPROD, (E.": {Rows: []gateway.Row{
			{"CODPROD": float64(200), "DESCRPROD": "CABO FLEXIVEL 2,5MM AZ BOBINA", "SALDO": float64(400)},
			{"CODPROD": float64(201), "DESCRPROD": "CABO FLEXIVEL 2,5MM PT", "SALDO": float64(1000)},
			{"CODPROD": float64(202), "DESCRPROD": "CABO RIGIDO 2,5MM AZ", "SALDO": float64(999)},
		}},
		"SELECT CODPROD FROM (": {Rows: []gateway.Row{{"CODPROD": float64(100)}}},
	}}
}

func TestProcurement_Dossier(t *testing.T) {
	tests := []struct {
		name string
		sold float64
		want string
	}{
		{name: "alternative covers", sold: 900, want: "| 100 | CABO FLEXIVEL 2,5MM AZ (ROLO 100MT) | 50 | 10.0 | 5d | 400 | 🔵 ALTERNAT. | Usar alternativo (Saldo: 400 un) |"},
		{name: "critical", sold: 1800, want: "| 20.0 | 2d | 400 | 🔴 CRÍTICO | Comprar Reposição (Giro: 20.0/dia) |"},
		{name: "attention", sold: 180, want: "| 2.0 | 25d | 400 | 🟡 ATENÇÃO | Acompanhar estoque |"},
		{name: "no sales", sold: 0, want: "| 0.0 | 999d | 400 | 🟢 OK | Nível Adequado |"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := procurementExec(tt.sold)
			out := call(t, inTree(t, Deps{Exec: exec}), GetProductPurchasingDossier, map[string]any{"product_ids": []any{"100"}})
			assert.Contains(t, out, "## 📊 Dossiê de Compras com Alternativos (Mesma Cor)")
			assert.Contains(t, out, tt.want)
			assert.Contains(t, exec.queries[0], "WHERE P.CODPROD IN (100)")
		})
	}

	r := inTree(t, Deps{Exec: &stubExec{}})
	assert.Equal(t, "⚠️ Lista de IDs de produtos vazia.", call(t, r, GetProductPurchasingDossier, map[string]any{"product_ids": []any{}}))
}

func TestProcurement_Suggestion(t *testing.T) {
	exec := procurementExec(900)
	out := call(t, inTree(t, Deps{Exec: exec}), GeneratePurchaseSuggestion, nil)
	assert.Contains(t, exec.queries[0], "WHERE ROWNUM <= 15")
	assert.Contains(t, out, "| 100 |")

	exec = procurementExec(900)
	call(t, inTree(t, Deps{Exec: exec}), GeneratePurchaseSuggestion, map[string]any{"criteria": "100, 300"})
	assert.Contains(t, exec.queries[0], "WHERE P.CODPROD IN (100,300)")
}

func factoryDeps(t *testing.T, exec *stubExec) (Deps, *time.Time) {
	t.Helper()
	now := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	return Deps{Exec: exec, Dir: t.TempDir(), Now: func() time.Time { return now }}, &now
}

func TestToolFactory_ProposeReviewPublishRollback(t *testing.T) {
	exec := &stubExec{byPrefix: map[string]*gateway.ResultSet{
		"SELECT NOMETAB": {Rows: []gateway.Row{{"NOMETAB": "TGFFIN", "DESCRTAB": "Financeiro"}}},
	}}
	d, now := factoryDeps(t, exec)
	r := inTree(t, d)

	out := call(t, r, ProposeTool, map[string]any{"description": "diagnosticar lançamentos financeiros da nota 123456"})
	assert.Contains(t, out, "✅ Proposta criada: `20261015100000`")
	assert.Contains(t, out, "- Arquivo alvo: `tgffin_helper.yaml`")
	assert.Contains(t, out, "- Ferramenta: `diagnose_tgffin_issue`")
	assert.Contains(t, exec.queries[0], "FROM TDDTAB WHERE (UPPER(DESCRTAB) LIKE '%DIAGNOSTICAR%'")
	assert.NoFileExists(t, filepath.Join(d.Dir, "tgffin_helper.yaml"))

	review := call(t, r, ReviewToolProposal, map[string]any{"proposal_id": "20261015100000"})
	assert.Contains(t, review, "- Status: **draft**")
	assert.Contains(t, review, "- Segurança: **OK**")
	assert.Contains(t, review, "```yaml\nmodule: tgffin_helper")
	assert.Contains(t, review, "SELECT * FROM TGFFIN WHERE NUNOTA IN (123456)")

	assert.Contains(t, call(t, r, ListToolProposals, map[string]any{"status": "draft"}),
		"| 20261015100000 | draft | tgffin_helper.yaml | diagnose_tgffin_issue | 2026-10-15 10:00:00 |")

	published := call(t, r, PublishToolProposal, map[string]any{"proposal_id": "20261015100000"})
	assert.Equal(t, "✅ Proposta `20261015100000` publicada em `tgffin_helper.yaml`.\nFerramenta disponível: `diagnose_tgffin_issue`.", published)

	manifests := registry(t, NewManifestSource(d.Dir, d))
	call(t, manifests, "diagnose_tgffin_issue", nil)
	assert.Equal(t, "SELECT * FROM TGFFIN WHERE NUNOTA IN (123456)", exec.queries[len(exec.queries)-1])
	assert.Empty(t, manifests.Snapshot().Errors(), "the factory directory is not loaded as a manifest")

	// a second version of the same skill backs the first one up
	out = call(t, r, ProposeTool, map[string]any{"description": "diagnosticar lançamentos financeiros da nota 654321"})
	assert.Contains(t, out, "`20261015100001`")
	*now = now.Add(time.Minute)
	published = call(t, r, PublishToolProposal, map[string]any{"proposal_id": "20261015100001"})
	assert.Contains(t, published, "Backup criado em")
	current, err := os.ReadFile(filepath.Join(d.Dir, "tgffin_helper.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(current), "654321")

	assert.Contains(t, call(t, r, RollbackTool, map[string]any{"skill_filename": "tgffin_helper"}),
		"✅ Rollback concluído para `tgffin_helper.yaml` usando backup `tgffin_helper.yaml.20261015_100100.20261015100001.bak`.")
	current, err = os.ReadFile(filepath.Join(d.Dir, "tgffin_helper.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(current), "123456")

	listed := call(t, r, ListToolProposals, map[string]any{"status": "published"})
	assert.Contains(t, listed, "| 20261015100000 | published |")
	assert.Contains(t, listed, "| 20261015100001 | published |")
}

func TestToolFactory_Rejections(t *testing.T) {
	d, _ := factoryDeps(t, &stubExec{})
	r := inTree(t, d)

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{name: "short description", tool: ProposeTool, args: map[string]any{"description": "abc de"}, want: "⚠️ Descrição muito curta para identificar o propósito da tool."},
		{name: "no table", tool: ProposeTool, args: map[string]any{"description": "verificar clientes inadimplentes"}, want: "❌ Não identifiquei tabela alvo."},
		{name: "unknown proposal", tool: ReviewToolProposal, args: map[string]any{"proposal_id": "nope"}, want: "❌ Proposta `nope` não encontrada."},
		{name: "unknown publish", tool: PublishToolProposal, args: map[string]any{"proposal_id": "../../etc"}, want: "❌ Proposta `../../etc` não encontrada."},
		{name: "no backup", tool: RollbackTool, args: map[string]any{"skill_filename": "outro.yaml"}, want: "❌ Nenhum backup encontrado para `outro.yaml`."},
		{name: "empty list", tool: ListToolProposals, want: "Nenhuma proposta encontrada para status `all`."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, call(t, r, tt.tool, tt.args), tt.want)
		})
	}
}

func TestToolFactory_CreateProductionImpact(t *testing.T) {
	exec := &stubExec{byPrefix: map[string]*gateway.ResultSet{
		"SELECT CODPROD, DESCRPROD, MARCA": {Columns: []string{"CODPROD"}, Rows: []gateway.Row{{"CODPROD": float64(17364)}}},
	}}
	d, _ := factoryDeps(t, exec)
	r := inTree(t, d)

	out := call(t, r, CreateAgentSkill, map[string]any{"description": "duplicidade de matéria prima dos produtos 17364 e 153363"})
	assert.Contains(t, out, "- Arquivo alvo: `production_impact_helper.yaml`")
	assert.Contains(t, out, "✅ Proposta `20261015100000` publicada em `production_impact_helper.yaml`.")

	manifests := registry(t, NewManifestSource(d.Dir, d))
	report := call(t, manifests, "diagnose_production_impact_issue", nil)
	assert.Contains(t, report, "### Relatório de Impacto de Produção e Duplicidade\n\n**1. Cadastro dos Produtos:**\n| CODPROD |")
	assert.Contains(t, report, "Nenhum vínculo em fórmulas de produção encontrado.")
	assert.Contains(t, exec.queries[len(exec.queries)-1], "WHERE CODPROD IN (17364, 153363) GROUP BY CODPROD")
}

func TestVet(t *testing.T) {
	ten := any(10)
	tests := []struct {
		name string
		man  *Manifest
		want string
	}{
		{
			name: "select with default",
			man: &Manifest{Tools: []ToolManifest{{Name: "a", Doc: "x", Params: []ParamManifest{{Name: "limit", Type: "int", Default: &ten}},
				SQL: "SELECT * FROM TGFPRO WHERE ROWNUM <= {{.limit}}"}}},
		},
		{
			name: "service kind",
			man:  &Manifest{Tools: []ToolManifest{{Name: "a", Doc: "x", Kind: KindService, Service: "CRUDServiceProvider.saveRecord", Body: "{}"}}},
			want: "❌ SEGURANÇA: ferramentas geradas só podem ser do tipo sql",
		},
		{
			name: "write statement",
			man:  &Manifest{Tools: []ToolManifest{{Name: "a", Doc: "x", SQL: "DELETE FROM TGFPRO"}}},
			want: "❌ SEGURANÇA:",
		},
		{
			name: "write in a section",
			man: &Manifest{Tools: []ToolManifest{{Name: "a", Doc: "x", Sections: []SectionManifest{
				{SQL: "SELECT 1 FROM DUAL"}, {SQL: "SELECT 1 FROM DUAL; DROP TABLE TGFPRO"},
			}}}},
			want: "❌ SEGURANÇA:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := vet(tt.man)
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.True(t, strings.HasPrefix(got, tt.want), got)
		})
	}
}

func TestShippedManifests(t *testing.T) {
	dir := filepath.Join("..", "..", "..", "..", "..", "skills")
	exec := &stubExec{byPrefix: map[string]*gateway.ResultSet{
		"SELECT CODPROD, DESCRPROD, MARCA": {Columns: []string{"CODPROD", "ATIVO"}, Rows: []gateway.Row{{"CODPROD": float64(17364), "ATIVO": "S"}}},
	}}
	r := registry(t, NewManifestSource(dir, Deps{Exec: exec}))
	require.Empty(t, r.Snapshot().Errors())

	for _, name := range []string{"analyze_tgfpar_data", "analyze_tsicta_data", "diagnose_tgffcp_issue", "diagnose_production_impact_issue"} {
		_, ok := r.Get(name)
		assert.True(t, ok, name)
	}

	out := call(t, r, "diagnose_production_impact_issue", map[string]any{"produtos": "17364"})
	require.Len(t, exec.queries, 3)
	assert.Contains(t, exec.queries[1], "WHERE I.CODMATPRIMA IN (17364)")
	assert.True(t, strings.HasPrefix(out, "### 🏭 Relatório de Impacto de Produção e Duplicidade\n\n**1. Cadastro dos Produtos:**\n| CODPROD | ATIVO |"), out)
	assert.Contains(t, out, "✅ **Nenhum vínculo em fórmulas de produção encontrado para estes códigos.**")
	assert.Contains(t, out, "### 💡 Plano de Ação para Unificação:")

	out = call(t, r, "diagnose_tgffcp_issue", nil)
	assert.Equal(t, "SELECT * FROM TGFFCP WHERE NUNOTA IN (17364, 153363, 17756)", exec.queries[3])
	assert.Contains(t, out, "Nenhum registro problemático encontrado em TGFFCP.")
}
