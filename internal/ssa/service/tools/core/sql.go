package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/guard"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/render"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

var tableNameChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// safeSQL normalizes then validates a free-form query.
func safeSQL(raw string) (string, string, bool) {
	sql := guard.NormalizeSQL(raw)
	if reason, ok := guard.ValidateSQL(sql); !ok {
		return "", reason, false
	}
	return sql, "", true
}

func (ts *toolset) runSQLSelect(ctx context.Context, args tools.Args) (string, error) {
	sql, reason, ok := safeSQL(args.String("sql"))
	if !ok {
		return reason, nil
	}
	rs, err := ts.Exec.ExecuteQuery(ctx, sql)
	if err != nil {
		return "❌ Erro ao executar SQL: " + err.Error(), nil
	}
	if rs.Len() == 0 {
		return "A consulta não retornou registros.", nil
	}
	return render.CountHeader(rs.Len()) + render.ResultTable(rs), nil
}

func (ts *toolset) getTableColumns(ctx context.Context, args tools.Args) (string, error) {
	name := strings.ToUpper(tableNameChars.ReplaceAllString(args.String("table_name"), ""))

	tdicam := fmt.Sprintf(`
    SELECT
        CAMPO AS "Coluna",
        DESCRICAO AS "Descricao",
        TIPO AS "Tipo",
        TAMANHO AS "Tamanho"
    FROM TDICAM
    WHERE NOMETAB = '%s'
    ORDER BY ORDEM`, name)
	if rs, err := ts.Exec.ExecuteQuery(ctx, tdicam); err == nil && rs.Len() > 0 {
		return fmt.Sprintf("**Colunas da tabela `%s` (TDICAM):**\n\n%s", name, render.ResultTable(rs)), nil
	}

	oracle := fmt.Sprintf(`
    SELECT
        COLUMN_NAME AS "Coluna",
        DATA_TYPE AS "Tipo",
        DATA_LENGTH AS "Tamanho",
        NULLABLE AS "Nulo"
    FROM ALL_TAB_COLUMNS
    WHERE TABLE_NAME = '%s'
    ORDER BY COLUMN_ID`, name)
	rs, err := ts.Exec.ExecuteQuery(ctx, oracle)
	if err != nil {
		return "❌ Erro ao consultar dicionário: " + err.Error(), nil
	}
	if rs.Len() == 0 {
		return fmt.Sprintf("Tabela `%s` não encontrada no dicionário de dados.", name), nil
	}
	return fmt.Sprintf("**Colunas da tabela `%s` (Oracle):**\n\n%s", name, render.ResultTable(rs)), nil
}

func (ts *toolset) describeEntity(ctx context.Context, args tools.Args) (string, error) {
	return ts.getTableColumns(ctx, tools.Args{"table_name": args.String("entity_name")})
}

// Chart is the payload of a ```chart block. The first column feeds the
// labels and the second (or the first again) the values.
type Chart struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	X      string `json:"x"`
	Y      string `json:"y"`
	Labels []any  `json:"labels"`
	Values []any  `json:"values"`
}

var chartTypes = map[string]bool{"bar": true, "line": true, "pie": true, "scatter": true}

func (ts *toolset) generateChartReport(ctx context.Context, args tools.Args) (string, error) {
	sql, reason, ok := safeSQL(args.String("sql"))
	if !ok {
		return reason, nil
	}
	chartType := strings.ToLower(args.String("chart_type"))
	if !chartTypes[chartType] {
		chartType = "scatter"
	}

	rs, err := ts.Exec.ExecuteQuery(ctx, sql)
	if err != nil {
		return "Erro ao gerar gráfico: " + err.Error(), nil
	}
	if rs.Len() == 0 {
		return "A consulta não retornou dados para gerar o gráfico.", nil
	}
	cols := rs.Columns
	if len(cols) == 0 {
		cols = render.SortedKeys(rs.Rows[0])
	}
	if len(cols) == 0 {
		return "Erro: Estrutura de dados inválida.", nil
	}

	chart := Chart{Type: chartType, Title: args.String("title"), X: cols[0], Y: cols[0]}
	if len(cols) > 1 {
		chart.Y = cols[1]
	}
	for _, row := range rs.Rows {
		chart.Labels = append(chart.Labels, row[chart.X])
		chart.Values = append(chart.Values, row[chart.Y])
	}

	data, err := json.Marshal(chart)
	if err != nil {
		return "", fmt.Errorf("encode chart: %w", err)
	}
	return fmt.Sprintf("Gerando gráfico %s para seu pedido:\n\n```chart\n%s\n```", chartType, data), nil
}
