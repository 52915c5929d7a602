package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/core"
)

const (
	allCompaniesNote = "ℹ️ Escopo aplicado: **todas as empresas** (nenhuma empresa específica foi informada).\n\n"

	simulationHelp = "⚠️ **Modo Simulação (Sem IA)**: Não entendi o comando.\n\n" +
		"Tente comandos diretos como:\n" +
		"- 'Saldo do produto 20'\n" +
		"- 'Parceiro 1'\n" +
		"- 'Nota 12345'\n" +
		"- 'Colunas da TGFPRO'\n" +
		"- 'Como consultar notas?'\n" +
		"- 'SQL SELECT * FROM TGFCAB WHERE ROWNUM <= 5'"
)

var (
	reNumber  = regexp.MustCompile(`\b\d+\b`)
	reStock   = regexp.MustCompile(`(estoque|saldo).*?(\d+)`)
	rePartner = regexp.MustCompile(`(parceiro|cliente|fornecedor).*?(\d+)`)
	reInvoice = regexp.MustCompile(`(nota|pedido).*?(\d+)`)
	reColumns = regexp.MustCompile(`(coluna|tabela|estrutura).*?(tgf\w+|tsi\w+)`)
)

// fallbackRequest is one message being answered without a model.
type fallbackRequest struct {
	ctx  context.Context
	snap *tools.Snapshot
	// raw is the message as typed; lower is its lower-cased form used for
	// matching.
	raw   string
	lower string
}

func (r *fallbackRequest) call(name string, args map[string]any) string {
	t, ok := r.snap.Get(name)
	if !ok {
		return fmt.Sprintf("Ferramenta `%s` não está disponível.", name)
	}
	out, err := t.Invoke(r.ctx, args)
	if err != nil {
		return toolErrorPrefix + err.Error()
	}
	return out
}

// fallbackRule answers a message when match accepts it.
type fallbackRule struct {
	name  string
	match func(r *fallbackRequest) bool
	act   func(r *fallbackRequest) string
}

// FallbackResponder answers a message deterministically, by keyword and
// pattern, using the tools of a snapshot. It is used when no model is
// configured or the model call failed.
type FallbackResponder struct {
	rules []fallbackRule
}

func NewFallbackResponder() *FallbackResponder {
	return &FallbackResponder{rules: defaultFallbackRules()}
}

// Respond applies the first matching rule, or returns the help text.
func (f *FallbackResponder) Respond(ctx context.Context, snap *tools.Snapshot, msg string) string {
	if snap == nil {
		snap = &tools.Snapshot{}
	}
	req := &fallbackRequest{ctx: ctx, snap: snap, raw: msg, lower: strings.ToLower(msg)}
	for _, rule := range f.rules {
		if rule.match(req) {
			return rule.act(req)
		}
	}
	return simulationHelp
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// firstNumber returns the second group of re as an integer.
func firstNumber(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return n, true
}

func defaultFallbackRules() []fallbackRule {
	return []fallbackRule{
		{
			name: "daily_sales",
			match: func(r *fallbackRequest) bool {
				return strings.Contains(r.lower, "venda") && containsAny(r.lower, "diari", "diári", "hoje")
			},
			act: func(r *fallbackRequest) string {
				if _, ok := r.snap.Get(core.GetDailySalesReport); !ok {
					return r.call(core.GetDailySalesReport, nil)
				}
				days := 7
				if strings.Contains(r.lower, "hoje") {
					days = 1
				}
				codemp := strings.Join(reNumber.FindAllString(r.lower, -1), ",")
				out := r.call(core.GetDailySalesReport, map[string]any{"days": days, "codemp_csv": codemp})
				if codemp == "" {
					return allCompaniesNote + out
				}
				return out
			},
		},
		{
			name: "stock",
			match: func(r *fallbackRequest) bool {
				return reStock.MatchString(r.lower)
			},
			act: func(r *fallbackRequest) string {
				n, ok := firstNumber(reStock, r.lower)
				if !ok {
					return simulationHelp
				}
				return r.call(core.GetStockInfo, map[string]any{"codprod": n})
			},
		},
		{
			name: "partner",
			match: func(r *fallbackRequest) bool {
				return rePartner.MatchString(r.lower)
			},
			act: func(r *fallbackRequest) string {
				n, ok := firstNumber(rePartner, r.lower)
				if !ok {
					return simulationHelp
				}
				return r.call(core.GetPartnerInfo, map[string]any{"codparc": n})
			},
		},
		{
			name: "invoice",
			match: func(r *fallbackRequest) bool {
				return reInvoice.MatchString(r.lower)
			},
			act: func(r *fallbackRequest) string {
				n, ok := firstNumber(reInvoice, r.lower)
				if !ok {
					return simulationHelp
				}
				args := map[string]any{"nunota": n}
				return r.call(core.GetInvoiceHeader, args) + "\n\n" + r.call(core.GetInvoiceItems, args)
			},
		},
		{
			name: "columns",
			match: func(r *fallbackRequest) bool {
				return reColumns.MatchString(r.lower)
			},
			act: func(r *fallbackRequest) string {
				m := reColumns.FindStringSubmatch(r.lower)
				return r.call(core.GetTableColumns, map[string]any{"table_name": strings.ToUpper(m[2])})
			},
		},
		{
			name: "list_tables",
			match: func(r *fallbackRequest) bool {
				return containsAny(r.lower, "quais tabelas", "listar tabelas")
			},
			act: func(r *fallbackRequest) string {
				return r.call(core.ListTables, map[string]any{})
			},
		},
		{
			name: "docs",
			match: func(r *fallbackRequest) bool {
				return containsAny(r.lower, "como", "consultar", "processo", "ajuda")
			},
			act: func(r *fallbackRequest) string {
				return r.call(core.SearchDocs, map[string]any{"query": r.lower})
			},
		},
		{
			name: "sql",
			match: func(r *fallbackRequest) bool {
				return strings.HasPrefix(strings.TrimSpace(r.lower), "sql")
			},
			act: func(r *fallbackRequest) string {
				// the statement keeps its original case so literals survive
				sql := strings.TrimSpace(strings.TrimSpace(r.raw)[len("sql"):])
				return r.call(core.RunSQLSelect, map[string]any{"sql": sql})
			},
		},
	}
}
