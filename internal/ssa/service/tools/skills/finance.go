package skills

import (
	"context"
	"fmt"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/gateway"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/render"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

const (
	FinanceAIModule = "finance_ai"

	AnalyzeProductivityByUnit = "analyze_productivity_by_unit"

	// personnelPartner is the partner (CODPARC) that books payroll costs.
	personnelPartner = 3
)

// FinanceAI translates intercompany figures into per-segment indicators.
func FinanceAI(d Deps) tools.Module {
	f := &financeAI{exec: d.Exec, segments: segments(d.Segments)}
	return tools.Module{
		Name: FinanceAIModule,
		Tools: []*tools.Tool{{
			Name: AnalyzeProductivityByUnit,
			Doc: "Analisa a produtividade por segmento do grupo.\n" +
				"Cruza o faturamento dos últimos 3 meses com o custo de pessoal (parceiro 3).",
			Handler: f.productivity,
		}},
	}
}

type financeAI struct {
	exec     gateway.Executor
	segments segments
}

var (
	unitSalesSQL = "SELECT CODEMP, SUM(VLRNOTA) AS FATURAMENTO FROM TGFCAB " +
		"WHERE STATUSNOTA = 'L' AND TIPMOV = 'V' AND DTNEG > ADD_MONTHS(SYSDATE, -3) GROUP BY CODEMP"
	unitPersonnelSQL = fmt.Sprintf("SELECT CODEMP, SUM(VLRDESDOB) AS CUSTO_PESSOAL FROM TGFFIN "+
		"WHERE CODPARC = %d AND DTNEG > ADD_MONTHS(SYSDATE, -3) GROUP BY CODEMP", personnelPartner)
)

type unitTotals struct {
	revenue, personnel float64
}

// plotlyTrace and plotlyChart are the payload of a ```json-chart block.
type plotlyTrace struct {
	Type string    `json:"type"`
	Name string    `json:"name"`
	X    []string  `json:"x"`
	Y    []float64 `json:"y"`
}

type plotlyChart struct {
	Data   []plotlyTrace  `json:"data"`
	Layout map[string]any `json:"layout"`
}

func (f *financeAI) productivity(ctx context.Context, _ tools.Args) (string, error) {
	sales, err := f.exec.ExecuteQuery(ctx, unitSalesSQL)
	if err != nil {
		return "Erro na análise de produtividade: " + err.Error(), nil
	}
	personnel, err := f.exec.ExecuteQuery(ctx, unitPersonnelSQL)
	if err != nil {
		return "Erro na análise de produtividade: " + err.Error(), nil
	}

	var order []string
	totals := map[string]*unitTotals{}
	get := func(emp any) *unitTotals {
		label := f.segments.label(int(render.ToFloat(emp)))
		t, ok := totals[label]
		if !ok {
			t = &unitTotals{}
			totals[label] = t
			order = append(order, label)
		}
		return t
	}
	for _, r := range sales.Rows {
		get(r["CODEMP"]).revenue += render.ToFloat(r["FATURAMENTO"])
	}
	for _, r := range personnel.Rows {
		get(r["CODEMP"]).personnel += render.ToFloat(r["CUSTO_PESSOAL"])
	}

	columns := []string{"GRUPO", "FATURAMENTO", "CUSTO PESSOAL", "PRODUTIVIDADE", "PESO (%)"}
	rows := make([]gateway.Row, 0, len(order))
	revenue := plotlyTrace{Type: "bar", Name: "Faturamento"}
	cost := plotlyTrace{Type: "bar", Name: fmt.Sprintf("Custo Pessoal (%d)", personnelPartner)}
	for _, label := range order {
		t := totals[label]
		var ratio, weight float64
		if t.personnel > 0 {
			ratio = t.revenue / t.personnel
		}
		if t.revenue > 0 {
			weight = t.personnel / t.revenue * 100
		}
		rows = append(rows, gateway.Row{
			"GRUPO":         label,
			"FATURAMENTO":   "R$ " + render.Money(t.revenue),
			"CUSTO PESSOAL": "R$ " + render.Money(t.personnel),
			"PRODUTIVIDADE": fmt.Sprintf("%.2fx", ratio),
			"PESO (%)":      fmt.Sprintf("%.1f%%", weight),
		})
		revenue.X, revenue.Y = append(revenue.X, label), append(revenue.Y, t.revenue)
		cost.X, cost.Y = append(cost.X, label), append(cost.Y, t.personnel)
	}

	chart, err := json.Marshal(plotlyChart{
		Data:   []plotlyTrace{revenue, cost},
		Layout: map[string]any{"title": "Produtividade Consolidada", "barmode": "group", "template": "plotly_dark"},
	})
	if err != nil {
		return "", fmt.Errorf("encode chart: %w", err)
	}

	return "### 📊 Análise de Produtividade por Unidade\n\n" + render.Table(columns, rows) + "\n\n" +
		"**Insights SSA:**\n" +
		fmt.Sprintf("- Uma produtividade de **5.00x** significa que para cada R$ 1,00 gasto com o Parceiro %d, a empresa fatura R$ 5,00.\n", personnelPartner) +
		"- Verifique as unidades onde o **Peso (%)** está acima da média do grupo.\n\n" +
		"```json-chart\n" + string(chart) + "\n```", nil
}
