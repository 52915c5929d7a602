package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/gateway"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/render"
)

const (
	LensesModule = "lenses"

	GetConsolidatedSalesLens = "get_consolidated_sales_lens"
	GetFinanceHotspotLens    = "get_finance_hotspot_lens"
)

// Lenses are pre-aggregated views of the ERP that answer common questions
// in one call instead of several raw queries.
func Lenses(d Deps) tools.Module {
	l := &lenses{exec: d.Exec, segments: segments(d.Segments)}
	return tools.Module{
		Name: LensesModule,
		Tools: []*tools.Tool{
			{
				Name: GetConsolidatedSalesLens,
				Doc: "Retorna uma visão consolidada das vendas por segmento do grupo.\n" +
					"Agrupa as empresas conforme a estrutura do grupo (ex.: ATACADO 1+5+7, INDUSTRIA 2+6).",
				Params:  []tools.ParamSpec{tools.Optional("months", tools.KindInteger, 3)},
				Handler: l.sales,
			},
			{
				Name:    GetFinanceHotspotLens,
				Doc:     "Lente de pontos de calor financeiros: ruído na conta de receita e lançamentos sem natureza.",
				Handler: l.financeHotspots,
			},
		},
	}
}

type lenses struct {
	exec     gateway.Executor
	segments segments
}

func (l *lenses) sales(ctx context.Context, args tools.Args) (string, error) {
	months := args.Int("months", 3)
	if months <= 0 {
		months = 3
	}
	sql := fmt.Sprintf("SELECT CODEMP, TO_CHAR(DTNEG, 'YYYY-MM') AS MES, SUM(VLRNOTA) AS TOTAL FROM TGFCAB "+
		"WHERE STATUSNOTA = 'L' AND TIPMOV = 'V' AND DTNEG > ADD_MONTHS(SYSDATE, -%d) AND CODEMP IN (%s) "+
		"GROUP BY CODEMP, TO_CHAR(DTNEG, 'YYYY-MM') ORDER BY MES DESC, CODEMP",
		months, joinInts(l.segments.companies(), ", "))

	rs, err := l.exec.ExecuteQuery(ctx, sql)
	if err != nil {
		return "Erro ao processar lente de vendas: " + err.Error(), nil
	}
	if rs.Len() == 0 {
		return "Nenhuma venda encontrada no período.", nil
	}

	columns := []string{"Mês", "Segmento", "Empresa", "Venda Líquida"}
	rows := make([]gateway.Row, 0, rs.Len())
	for _, r := range rs.Rows {
		emp := int(render.ToFloat(r["CODEMP"]))
		seg := "OUTRAS"
		if s, ok := l.segments.of(emp); ok {
			seg = s.Name
		}
		rows = append(rows, gateway.Row{
			"Mês":           r["MES"],
			"Segmento":      seg,
			"Empresa":       emp,
			"Venda Líquida": "R$ " + render.Money(render.ToFloat(r["TOTAL"])),
		})
	}
	return fmt.Sprintf("### 📊 Lente de Vendas Consolidada (Últimos %d Meses)\n", months) + render.Table(columns, rows), nil
}

const (
	revenueNoiseSQL = "SELECT COUNT(*) AS QTD, SUM(VLRDESDOB) AS TOTAL FROM TGFFIN WHERE CODNAT = 1010100 AND RECDESP = -1 " +
		"AND DTNEG > SYSDATE - 30 AND CODTIPOPER <> 900 AND HISTORICO NOT LIKE '%Compensa%' AND HISTORICO NOT LIKE '%Devolu%'"
	unboundNatureSQL = "SELECT COUNT(*) AS QTD, SUM(VLRDESDOB) AS TOTAL FROM TGFFIN WHERE CODNAT = 0 AND DTNEG > SYSDATE - 60 AND CODTIPOPER <> 900"
)

// financeHotspots ignores TOP 900 (budget) entries in both checks.
func (l *lenses) financeHotspots(ctx context.Context, _ tools.Args) (string, error) {
	noiseQty, noiseTotal, err := l.countAndTotal(ctx, revenueNoiseSQL)
	if err != nil {
		return "Erro ao processar lente financeira: " + err.Error(), nil
	}
	unboundQty, unboundTotal, err := l.countAndTotal(ctx, unboundNatureSQL)
	if err != nil {
		return "Erro ao processar lente financeira: " + err.Error(), nil
	}

	report := []string{"### ⚡ Lente de Saúde Financeira (Alertas de Qualidade)\n"}
	if noiseQty > 0 {
		report = append(report, fmt.Sprintf("⚠️ **Ruído na Receita:** %d lançamentos (R$ %s) detectados como saída na conta de venda. "+
			"Isso distorce seu lucro bruto.", noiseQty, render.Money(noiseTotal)))
	}
	if unboundQty > 0 {
		report = append(report, fmt.Sprintf("🔴 **Pontos Cegos:** R$ %s em %d lançamentos estão sem classificação (Natureza 0).",
			render.Money(unboundTotal), unboundQty))
	}
	if noiseQty == 0 && unboundQty == 0 {
		report = append(report, "✅ **Qualidade de Dados:** Nenhuma inconsistência grave detectada nos últimos 60 dias.")
	}
	return strings.Join(report, "\n\n"), nil
}

func (l *lenses) countAndTotal(ctx context.Context, sql string) (int, float64, error) {
	rs, err := l.exec.ExecuteQuery(ctx, sql)
	if err != nil {
		return 0, 0, err
	}
	if rs.Len() == 0 {
		return 0, 0, nil
	}
	row := rs.Rows[0]
	return int(render.ToFloat(row["QTD"])), render.ToFloat(row["TOTAL"]), nil
}
