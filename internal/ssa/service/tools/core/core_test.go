package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/gateway"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/guard"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/knowledge"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
)

type fakeExec struct {
	queries []string
	results []*gateway.ResultSet
	errs    []error

	services   []string
	bodies     []map[string]any
	serviceOut map[string]any
	serviceErr error
}

func (f *fakeExec) ExecuteQuery(_ context.Context, sql string) (*gateway.ResultSet, error) {
	i := len(f.queries)
	f.queries = append(f.queries, sql)
	var rs *gateway.ResultSet
	var err error
	if i < len(f.results) {
		rs = f.results[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return rs, err
}

func (f *fakeExec) CallService(_ context.Context, name string, body map[string]any) (map[string]any, error) {
	f.services = append(f.services, name)
	f.bodies = append(f.bodies, body)
	return f.serviceOut, f.serviceErr
}

func toolByName(t *testing.T, ts []*tools.Tool, name string) *tools.Tool {
	t.Helper()
	for _, tool := range ts {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %s not found", name)
	return nil
}

func invoke(t *testing.T, d Deps, name string, args map[string]any) string {
	t.Helper()
	out, err := toolByName(t, Tools(d), name).Invoke(context.Background(), args)
	require.NoError(t, err)
	return out
}

func productRows(n int) *gateway.ResultSet {
	rs := &gateway.ResultSet{Columns: []string{"CODPROD", "DESCRPROD"}}
	for i := 1; i <= n; i++ {
		rs.Rows = append(rs.Rows, gateway.Row{"CODPROD": float64(i), "DESCRPROD": "PRODUTO"})
	}
	return rs
}

func TestTools_Names(t *testing.T) {
	ts := Tools(Deps{Exec: &fakeExec{}})
	seen := map[string]bool{}
	for _, tool := range ts {
		assert.False(t, seen[tool.Name], tool.Name)
		seen[tool.Name] = true
		assert.NotNil(t, tool.Handler, tool.Name)
		assert.NotEmpty(t, tool.DocSummary(), tool.Name)
	}
	assert.Len(t, ts, 17)
}

func TestRunSQLSelect(t *testing.T) {
	t.Run("trailing semicolon is normalized", func(t *testing.T) {
		exec := &fakeExec{results: []*gateway.ResultSet{productRows(5)}}
		out := invoke(t, Deps{Exec: exec}, RunSQLSelect, map[string]any{"sql": "SELECT * FROM TGFPRO WHERE ROWNUM <= 5;"})

		require.Len(t, exec.queries, 1)
		assert.Equal(t, "SELECT * FROM TGFPRO WHERE ROWNUM <= 5", exec.queries[0])
		assert.Contains(t, out, "**5 registro(s) encontrado(s):**")
		assert.Contains(t, out, "| CODPROD | DESCRPROD |")
		assert.Contains(t, out, "| 5 | PRODUTO |")
	})

	blocked := []struct {
		name string
		sql  string
		want string
	}{
		{name: "drop", sql: "DROP TABLE TGFPRO", want: guard.NotSelectReason("DROP TABLE TGFPRO")},
		{name: "stacked", sql: "SELECT 1 FROM DUAL; DROP TABLE TGFPRO", want: guard.ReasonSemicolon},
		{name: "comment", sql: "SELECT 1 FROM DUAL -- x", want: guard.ReasonComments},
		{name: "delete in subquery", sql: "SELECT * FROM (DELETE FROM TGFPRO)", want: guard.ForbiddenReason("DELETE")},
	}
	for _, tt := range blocked {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExec{}
			out := invoke(t, Deps{Exec: exec}, RunSQLSelect, map[string]any{"sql": tt.sql})
			assert.Equal(t, tt.want, out)
			assert.Empty(t, exec.queries)
		})
	}

	t.Run("gateway error is reported", func(t *testing.T) {
		exec := &fakeExec{errs: []error{&gateway.FunctionalError{Message: "ORA-00904: invalid identifier"}}}
		out := invoke(t, Deps{Exec: exec}, RunSQLSelect, map[string]any{"sql": "SELECT X FROM TGFPRO"})
		assert.Contains(t, out, "ORA-00904")
	})
}

func TestGetTableColumns_FallsBackToOracle(t *testing.T) {
	exec := &fakeExec{results: []*gateway.ResultSet{
		{},
		{Columns: []string{"Coluna", "Tipo"}, Rows: []gateway.Row{{"Coluna": "CODPROD", "Tipo": "NUMBER"}}},
	}}
	out := invoke(t, Deps{Exec: exec}, GetTableColumns, map[string]any{"table_name": "tgfpro'; --"})

	require.Len(t, exec.queries, 2)
	assert.Contains(t, exec.queries[0], "FROM TDICAM")
	assert.Contains(t, exec.queries[0], "NOMETAB = 'TGFPRO'")
	assert.Contains(t, exec.queries[1], "FROM ALL_TAB_COLUMNS")
	assert.Contains(t, out, "**Colunas da tabela `TGFPRO` (Oracle):**")
	assert.Contains(t, out, "| CODPROD | NUMBER |")
}

func TestGetStockInfo_DefaultLocal(t *testing.T) {
	exec := &fakeExec{}
	out := invoke(t, Deps{Exec: exec}, GetStockInfo, map[string]any{"codprod": "20"})

	require.Len(t, exec.queries, 1)
	assert.Contains(t, exec.queries[0], "CODLOCAL = 10010000")
	assert.Contains(t, exec.queries[0], "P.CODPROD = 20")
	assert.Equal(t, "Produto 20 não encontrado.", out)
}

func TestSaveRecord(t *testing.T) {
	t.Run("blocked by default", func(t *testing.T) {
		exec := &fakeExec{}
		d := Deps{Exec: exec, Guard: guard.NewWriteGuard(guard.StaticSource{})}
		out := invoke(t, d, SaveRecord, map[string]any{"entity_name": "Parceiro", "values": map[string]any{"NOMEPARC": "X"}})

		assert.Contains(t, out, "❌ BLOQUEADO")
		assert.Contains(t, out, "save_record -> Parceiro")
		assert.Empty(t, exec.services)
	})

	t.Run("entity outside allowlist", func(t *testing.T) {
		exec := &fakeExec{}
		d := Deps{Exec: exec, Guard: guard.NewWriteGuard(guard.StaticSource{Enabled: true, Entities: []string{"Produto"}})}
		out := invoke(t, d, SaveRecord, map[string]any{"entity_name": "Parceiro", "values": map[string]any{"NOMEPARC": "X"}})

		assert.Contains(t, out, "não está na allowlist")
		assert.Empty(t, exec.services)
	})

	t.Run("update when allowed", func(t *testing.T) {
		exec := &fakeExec{serviceOut: map[string]any{"status": "1"}}
		d := Deps{Exec: exec, Guard: guard.NewWriteGuard(guard.StaticSource{Enabled: true, Entities: []string{"Parceiro"}})}
		out := invoke(t, d, SaveRecord, map[string]any{
			"entity_name": "Parceiro",
			"values":      map[string]any{"NOMEPARC": "ACME", "CODCID": float64(10)},
			"primary_key": map[string]any{"CODPARC": "1"},
		})

		require.Equal(t, []string{saveService}, exec.services)
		body := exec.bodies[0]
		assert.Equal(t, "Parceiro", body["entityName"])
		assert.Equal(t, false, body["standAlone"])
		assert.Equal(t, []string{"CODCID", "NOMEPARC"}, body["fields"])
		record := body["records"].([]any)[0].(map[string]any)
		assert.Equal(t, map[string]any{"0": "10", "1": "ACME"}, record["values"])
		assert.Equal(t, map[string]any{"CODPARC": "1"}, record["pk"])
		assert.Contains(t, out, "✅ Registro atualizado com sucesso na entidade `Parceiro`.")
	})
}

func TestCallService(t *testing.T) {
	t.Run("blocked", func(t *testing.T) {
		exec := &fakeExec{}
		d := Deps{Exec: exec, Guard: guard.NewWriteGuard(guard.StaticSource{Enabled: true})}
		out := invoke(t, d, CallSankhyaService, map[string]any{"service_name": "CACSP.incluirNota", "request_body": map[string]any{}})

		assert.Contains(t, out, "Allowlist vazia")
		assert.Empty(t, exec.services)
	})

	t.Run("allowed", func(t *testing.T) {
		exec := &fakeExec{serviceOut: map[string]any{"status": "1"}}
		d := Deps{Exec: exec, Guard: guard.NewWriteGuard(guard.StaticSource{Enabled: true, Services: []string{"CACSP.incluirNota"}})}
		out := invoke(t, d, CallSankhyaService, map[string]any{"service_name": "CACSP.incluirNota", "request_body": map[string]any{"a": "b"}})

		assert.Equal(t, []string{"CACSP.incluirNota"}, exec.services)
		assert.Equal(t, map[string]any{"a": "b"}, exec.bodies[0])
		assert.Contains(t, out, "✅ Serviço `CACSP.incluirNota` executado com sucesso:")
		assert.Contains(t, out, "```json\n{\n  \"status\": \"1\"\n}\n```")
	})

	t.Run("failure", func(t *testing.T) {
		exec := &fakeExec{serviceErr: errors.New("timeout")}
		d := Deps{Exec: exec, Guard: guard.NewWriteGuard(guard.StaticSource{Enabled: true, Services: []string{"X.y"}})}
		out := invoke(t, d, CallSankhyaService, map[string]any{"service_name": "X.y", "request_body": map[string]any{}})
		assert.Equal(t, "❌ Erro ao executar serviço `X.y`: timeout", out)
	})
}

func TestLoadRecords(t *testing.T) {
	exec := &fakeExec{serviceOut: map[string]any{
		"responseBody": map[string]any{
			"entities": map[string]any{
				"entity": map[string]any{
					"CODPARC":  map[string]any{"$": "1"},
					"NOMEPARC": map[string]any{"$": "ACME"},
				},
			},
		},
	}}
	out := invoke(t, Deps{Exec: exec}, LoadRecords, map[string]any{"entity_name": "Parceiro", "fields": []any{"CODPARC", "NOMEPARC"}})

	require.Equal(t, []string{loadRecordsService}, exec.services)
	ds := exec.bodies[0]["dataSet"].(map[string]any)
	assert.Equal(t, "Parceiro", ds["rootEntity"])
	assert.Equal(t, map[string]any{"expression": map[string]any{"$": "1=1"}}, ds["criteria"])
	assert.Equal(t, map[string]any{"fieldset": map[string]any{"list": "CODPARC, NOMEPARC"}}, ds["entity"])
	assert.Contains(t, out, "**Resultados para `Parceiro`:**")
	assert.Contains(t, out, "| 1 | ACME |")

	empty := &fakeExec{serviceOut: map[string]any{"responseBody": map[string]any{}}}
	out = invoke(t, Deps{Exec: empty}, LoadRecords, map[string]any{"entity_name": "Parceiro", "criteria": "CODPARC = 0"})
	assert.Equal(t, "Nenhum registro encontrado para a entidade `Parceiro` com o critério `CODPARC = 0`.", out)
}

func TestGenerateChartReport(t *testing.T) {
	exec := &fakeExec{results: []*gateway.ResultSet{{
		Columns: []string{"MES", "TOTAL"},
		Rows:    []gateway.Row{{"MES": "01", "TOTAL": 10.5}, {"MES": "02", "TOTAL": 20.0}},
	}}}
	out := invoke(t, Deps{Exec: exec}, GenerateChartReport, map[string]any{"sql": "SELECT MES, TOTAL FROM V", "chart_type": "radar"})

	assert.Contains(t, out, "Gerando gráfico scatter para seu pedido:")
	assert.Contains(t, out, "```chart\n")
	assert.Contains(t, out, `"labels":["01","02"]`)
	assert.Contains(t, out, `"values":[10.5,20]`)
	assert.Contains(t, out, `"title":"Relatório SSA"`)

	blocked := invoke(t, Deps{Exec: &fakeExec{}}, GenerateChartReport, map[string]any{"sql": "SELECT 1 FROM DUAL;;SELECT 2 FROM DUAL"})
	assert.Equal(t, guard.ReasonSemicolon, blocked)
}

func TestDailySalesReport(t *testing.T) {
	exec := &fakeExec{results: []*gateway.ResultSet{{
		Columns: []string{"Data", "Empresa", "QtdNotas", "TotalVendas"},
		Rows: []gateway.Row{
			{"Data": "2024-05-02", "Empresa": float64(1), "QtdNotas": float64(3), "TotalVendas": 1000.5},
			{"Data": "2024-05-02", "Empresa": float64(5), "QtdNotas": "2", "TotalVendas": "234.25"},
		},
	}}}
	out := invoke(t, Deps{Exec: exec}, GetDailySalesReport, map[string]any{"days": 90, "codemp_csv": "1, 5x"})

	require.Len(t, exec.queries, 1)
	assert.Contains(t, exec.queries[0], "TRUNC(SYSDATE) - 59")
	assert.Contains(t, exec.queries[0], "AND CODEMP IN (1, 5)")
	assert.Contains(t, out, "últimos **60 dia(s)**")
	assert.Contains(t, out, "Escopo: **Empresas: 1, 5**")
	assert.Contains(t, out, "Notas: **5**")
	assert.Contains(t, out, "Total: **R$ 1,234.75**")

	invalid := invoke(t, Deps{Exec: &fakeExec{}}, GetDailySalesReport, map[string]any{"codemp_csv": "abc"})
	assert.Contains(t, invalid, "`codemp_csv` inválido")
}

func TestTestConnection(t *testing.T) {
	ok := invoke(t, Deps{Exec: &fakeExec{results: []*gateway.ResultSet{productRows(1)}}}, TestConnection, nil)
	assert.Equal(t, "✅ Conexão com o Gateway Sankhya estabelecida com sucesso!", ok)

	empty := invoke(t, Deps{Exec: &fakeExec{}}, TestConnection, nil)
	assert.Equal(t, "⚠️ Conexão estabelecida, mas o resultado foi vazio.", empty)

	failed := invoke(t, Deps{Exec: &fakeExec{errs: []error{errors.New("dial tcp")}}}, TestConnection, nil)
	assert.Equal(t, "❌ Falha na conexão: dial tcp", failed)
}

func TestDocsTools(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notas.md"), []byte("Intro\nComo consultar notas\nUse TGFCAB\nFim\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema_map.json"), []byte(`{"TGFPRO":"Produtos","TGFCAB":"Cabeçalho"}`), 0o644))
	d := Deps{Exec: &fakeExec{}, Docs: knowledge.Docs{Dir: dir}}

	out := invoke(t, d, SearchDocs, map[string]any{"query": "consultar"})
	assert.Contains(t, out, "**Resultados para 'consultar':**")
	assert.Contains(t, out, "### 📄 notas.md")

	out = invoke(t, d, SearchDocs, map[string]any{"query": "inexistente"})
	assert.Equal(t, "Nenhum resultado encontrado para 'inexistente' na base de conhecimento.", out)

	out = invoke(t, d, ListTables, nil)
	assert.Contains(t, out, "**Tabelas do Sankhya (2):**")
	assert.Contains(t, out, "| TGFCAB | Cabeçalho |")
}

func TestSearchSolutions(t *testing.T) {
	missing := invoke(t, Deps{Exec: &fakeExec{}, KnowledgeDB: filepath.Join(t.TempDir(), "none.db")}, SearchSolutions, map[string]any{"query": "x"})
	assert.Contains(t, missing, "Base de conhecimento ainda não indexada")

	path := filepath.Join(t.TempDir(), "knowledge.db")
	s, err := knowledge.Open(path)
	require.NoError(t, err)
	_, err = s.Index(context.Background(), []knowledge.Article{
		{ID: 7, URL: "https://ajuda/7", Title: "Erro de parceiros", Body: "Cadastro de parceiros bloqueado", UpdatedAt: "2024-01-01"},
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	out := invoke(t, Deps{Exec: &fakeExec{}, KnowledgeDB: path}, SearchSolutions, map[string]any{"query": "parceiros"})
	assert.Contains(t, out, "**Soluções Encontradas para 'parceiros':**")
	assert.Contains(t, out, "### 📄 [Erro de parceiros](https://ajuda/7)")
	assert.Contains(t, out, "[Ler artigo completo](https://ajuda/7)")
}

func TestSubjectTable(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{subject: "quero entender a tgfcab", want: "TGFCAB"},
		{subject: "campos da AD_PEDIDOS e TSIUSU", want: "TSIUSU"},
		{subject: "Quero entender sobre comissões", want: "COMISS"},
		{subject: "como sobre", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			assert.Equal(t, tt.want, subjectTable(tt.subject))
		})
	}
}

func TestInvestigateSystem(t *testing.T) {
	columns := &gateway.ResultSet{Columns: []string{"Coluna"}, Rows: []gateway.Row{{"Coluna": "NUNOTA"}}}
	sample := &gateway.ResultSet{Columns: []string{"NUNOTA"}, Rows: []gateway.Row{{"NUNOTA": float64(42)}}}
	exec := &fakeExec{results: []*gateway.ResultSet{columns, sample}}
	d := Deps{Exec: exec, KnowledgeDB: filepath.Join(t.TempDir(), "none.db")}

	out := invoke(t, d, InvestigateSystem, map[string]any{"subject": "quero entender a tgfcab"})

	require.Len(t, exec.queries, 2)
	assert.Contains(t, exec.queries[0], "WHERE NOMETAB = 'TGFCAB'")
	assert.Equal(t, "SELECT * FROM TGFCAB WHERE ROWNUM <= 3", exec.queries[1])
	assert.Contains(t, out, "# 🔍 Relatório de Investigação Proativa: quero entender a tgfcab")
	assert.Contains(t, out, "Base de conhecimento ainda não indexada")
	assert.Contains(t, out, "## 🏗️ Metadados da Tabela `TGFCAB`")
	assert.Contains(t, out, "| NUNOTA |")
	assert.Contains(t, out, "| 42 |")

	exec = &fakeExec{results: []*gateway.ResultSet{columns}, errs: []error{nil, errors.New("ORA-00942")}}
	out = invoke(t, Deps{Exec: exec}, InvestigateSystem, map[string]any{"subject": "TGFXYZ"})
	assert.Contains(t, out, "⚠️ Não foi possível obter amostra: ORA-00942")
}
