package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/gateway"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/render"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

const (
	WatchersModule = "watchers"
	RunAllWatchers = "run_all_watchers"

	watcherPreviewRows = 5
)

// Severity of a watcher alert.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityDanger  Severity = "DANGER"
)

func (s Severity) icon() string {
	switch s {
	case SeverityDanger:
		return "🔴"
	case SeverityWarning:
		return "🟡"
	}
	return "🔵"
}

// Watcher is a fixed query whose rows are alerts.
type Watcher struct {
	Name        string
	Query       string
	Description string
	Severity    Severity
}

// SystemWatchers are the watchers run by run_all_watchers.
var SystemWatchers = []Watcher{
	{
		Name:        "Notas Pendentes",
		Query:       "SELECT NUNOTA, CODPARC, VLRNOTA FROM TGFCAB WHERE STATUSNOTA = 'P' AND DTNEG > SYSDATE - 7",
		Description: "Notas que foram digitadas mas não confirmadas nos últimos 7 dias.",
		Severity:    SeverityWarning,
	},
	{
		Name:        "Estoque Crítico",
		Query:       "SELECT CODPROD, ESTOQUE FROM TGFEST WHERE ESTOQUE < 5 AND CODPROD IN (SELECT CODPROD FROM TGFPRO WHERE ATIVO = 'S')",
		Description: "Produtos ativos com menos de 5 unidades em estoque.",
		Severity:    SeverityDanger,
	},
	{
		Name:        "Novos Parceiros sem CPF/CNPJ",
		Query:       "SELECT CODPARC, NOMEPARC FROM TGFPAR WHERE (CGC_CPF IS NULL OR CGC_CPF = '') AND DTALTER > SYSDATE - 1",
		Description: "Parceiros criados ou alterados hoje sem documento fiscal.",
		Severity:    SeverityInfo,
	},
}

// Watchers exposes the proactive alert panel.
func Watchers(d Deps) tools.Module {
	return tools.Module{
		Name: WatchersModule,
		Tools: []*tools.Tool{{
			Name: RunAllWatchers,
			Doc:  "Executa todos os vigias proativos e retorna um painel de alertas.",
			Handler: func(ctx context.Context, _ tools.Args) (string, error) {
				return RunWatchers(ctx, d.Exec, SystemWatchers), nil
			},
		}},
	}
}

// RunWatchers renders the alert panel. A failing watcher is logged and
// left out of the panel.
func RunWatchers(ctx context.Context, exec gateway.Executor, watchers []Watcher) string {
	var alerts []string
	for _, w := range watchers {
		rs, err := exec.ExecuteQuery(ctx, w.Query)
		if err != nil {
			logger.ErrorX(ModuleName, "Erro ao rodar watcher %s: %v", w.Name, err)
			continue
		}
		if rs.Len() == 0 {
			continue
		}
		alerts = append(alerts, fmt.Sprintf("%s **%s**: %d ocorrência(s)\n_%s_", w.Severity.icon(), w.Name, rs.Len(), w.Description))
		preview := &gateway.ResultSet{Columns: rs.Columns, Rows: rs.Rows[:min(rs.Len(), watcherPreviewRows)]}
		alerts = append(alerts, render.ResultTable(preview))
	}

	if len(alerts) == 0 {
		return "✅ **Tudo limpo!** Nenhum alerta proativo detectado nos vigias do sistema."
	}
	return "### 🚨 Painel de Alertas Proativos\n\n" + strings.Join(alerts, "\n\n")
}
