package skills

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/gateway"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/render"
)

const (
	ProcurementModule = "procurement"

	GetProductPurchasingDossier = "get_product_purchasing_dossier"
	GeneratePurchaseSuggestion  = "generate_purchase_suggestion"

	CriteriaCurveA = "curva_a"

	salesWindowDays = 90
	curveALimit     = 15
	maxNameLen      = 40
)

// Procurement builds purchasing dossiers that weigh stock cover against
// same-colour alternatives of the same product group.
func Procurement(d Deps) tools.Module {
	p := &procurement{exec: d.Exec}
	return tools.Module{
		Name: ProcurementModule,
		Tools: []*tools.Tool{
			{
				Name:    GetProductPurchasingDossier,
				Doc:     "Gera um dossiê de compras considerando giro, cobertura e produtos alternativos (mesma cor/grupo).",
				Params:  []tools.ParamSpec{tools.Param("product_ids", tools.KindArray)},
				Handler: p.dossierTool,
			},
			{
				Name: GeneratePurchaseSuggestion,
				Doc: "Sugestão de compras. Use criteria='curva_a' para os 15 mais vendidos em 90 dias " +
					"ou uma lista de códigos separados por vírgula.",
				Params:  []tools.ParamSpec{tools.Optional("criteria", tools.KindString, CriteriaCurveA)},
				Handler: p.suggestion,
			},
		},
	}
}

type procurement struct {
	exec gateway.Executor
}

var (
	colorTokens = map[string]bool{
		"AZ": true, "AM": true, "PT": true, "VD": true, "VM": true, "BC": true, "CZ": true, "MR": true, "BR": true,
		"VD/AM": true, "AZUL": true, "CINZA": true, "BRANCO": true, "PRETO": true, "VERMELHO": true, "VERDE": true, "AMARELO": true,
	}
	// packaging and volume words left out of the base name
	ignoreTokens = map[string]bool{"ROLO": true, "100MT": true, "BOBINA": true, "MT": true, "M": true, "UN": true, "CX": true, "KG": true}
	meterLength  = regexp.MustCompile(`^\d+MT`)
)

type productName struct {
	base  string
	color string
}

// parseProductName splits 'CABO FLEXIVEL 2,5MM AZ (ROLO 100MT)' into the
// base 'CABO FLEXIVEL 2,5MM' and the colour 'AZ'.
func parseProductName(name string) productName {
	clean := strings.NewReplacer("(", "", ")", "", "-", " ").Replace(strings.ToUpper(name))
	var out productName
	var base []string
	for _, part := range strings.Fields(clean) {
		switch {
		case colorTokens[part]:
			out.color = part
		case ignoreTokens[part] || meterLength.MatchString(part):
		default:
			base = append(base, part)
		}
	}
	out.base = strings.Join(base, " ")
	return out
}

// sameBase compares the first three words of both base names.
func sameBase(a, b string) bool {
	wa, wb := strings.Fields(a), strings.Fields(b)
	wa, wb = wa[:min(3, len(wa))], wb[:min(3, len(wb))]
	if len(wa) != len(wb) {
		return false
	}
	for i := range wa {
		if wa[i] != wb[i] {
			return false
		}
	}
	return true
}

// alternativeBalance sums the stock of active products of the same group
// whose name has the same base and colour.
func (p *procurement) alternativeBalance(ctx context.Context, id, group int, name productName) (float64, error) {
	sql := fmt.Sprintf("SELECT P.CODPROD, P.DESCRPROD, (E.ESTOQUE - E.RESERVADO) AS SALDO FROM TGFPRO P "+
		"JOIN TGFEST E ON P.CODPROD = E.CODPROD WHERE P.CODGRUPOPROD = %d AND P.CODPROD <> %d AND P.ATIVO = 'S'", group, id)
	rs, err := p.exec.ExecuteQuery(ctx, sql)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, r := range rs.Rows {
		rival := parseProductName(fmt.Sprint(r["DESCRPROD"]))
		if rival.color == name.color && sameBase(name.base, rival.base) {
			total += render.ToFloat(r["SALDO"])
		}
	}
	return total, nil
}

func (p *procurement) dossierTool(ctx context.Context, args tools.Args) (string, error) {
	return p.dossier(ctx, parseIDs(args.Strings("product_ids")))
}

func parseIDs(raw []string) []int {
	var ids []int
	for _, s := range raw {
		for _, f := range strings.Split(s, ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(f)); err == nil {
				ids = append(ids, n)
			}
		}
	}
	return ids
}

func (p *procurement) dossier(ctx context.Context, ids []int) (string, error) {
	if len(ids) == 0 {
		return "⚠️ Lista de IDs de produtos vazia.", nil
	}
	idList := joinInts(ids, ",")

	items, err := p.exec.ExecuteQuery(ctx, fmt.Sprintf("SELECT P.CODPROD, P.DESCRPROD, P.CODGRUPOPROD, SUM(E.ESTOQUE - E.RESERVADO) AS SALDO "+
		"FROM TGFPRO P JOIN TGFEST E ON P.CODPROD = E.CODPROD WHERE P.CODPROD IN (%s) GROUP BY P.CODPROD, P.DESCRPROD, P.CODGRUPOPROD", idList))
	if err != nil {
		return "❌ Erro ao montar dossiê de compras: " + err.Error(), nil
	}
	sales, err := p.exec.ExecuteQuery(ctx, fmt.Sprintf("SELECT I.CODPROD, SUM(I.QTDNEG) AS QTD_VENDIDA_90D FROM TGFITE I "+
		"JOIN TGFCAB C ON I.NUNOTA = C.NUNOTA WHERE I.CODPROD IN (%s) AND C.DTNEG >= SYSDATE - %d AND C.TIPMOV = 'V' AND C.STATUSNOTA = 'L' "+
		"GROUP BY I.CODPROD", idList, salesWindowDays))
	if err != nil {
		return "❌ Erro ao montar dossiê de compras: " + err.Error(), nil
	}
	sold := map[int]float64{}
	for _, r := range sales.Rows {
		sold[int(render.ToFloat(r["CODPROD"]))] = render.ToFloat(r["QTD_VENDIDA_90D"])
	}

	columns := []string{"Código", "Produto", "Saldo", "Giro/Dia", "Cobertura", "Saldo Alt. (Mesma Cor)", "Status", "Sugestão"}
	var rows []gateway.Row
	for _, item := range items.Rows {
		id := int(render.ToFloat(item["CODPROD"]))
		name := fmt.Sprint(item["DESCRPROD"])
		balance := render.ToFloat(item["SALDO"])

		altBalance, err := p.alternativeBalance(ctx, id, int(render.ToFloat(item["CODGRUPOPROD"])), parseProductName(name))
		if err != nil {
			return "❌ Erro ao buscar alternativos: " + err.Error(), nil
		}

		perDay := sold[id] / salesWindowDays
		cover := 999
		if perDay > 0 {
			cover = int(balance / perDay)
		}

		status, advice := "🟢 OK", "Nível Adequado"
		switch {
		case cover < 15 && altBalance > perDay*30:
			status, advice = "🔵 ALTERNAT.", fmt.Sprintf("Usar alternativo (Saldo: %.0f un)", altBalance)
		case cover < 15:
			status, advice = "🔴 CRÍTICO", fmt.Sprintf("Comprar Reposição (Giro: %.1f/dia)", perDay)
		case cover < 30:
			status, advice = "🟡 ATENÇÃO", "Acompanhar estoque"
		}

		if r := []rune(name); len(r) > maxNameLen {
			name = string(r[:maxNameLen])
		}
		rows = append(rows, gateway.Row{
			"Código":                 id,
			"Produto":                name,
			"Saldo":                  balance,
			"Giro/Dia":               fmt.Sprintf("%.1f", perDay),
			"Cobertura":              fmt.Sprintf("%dd", cover),
			"Saldo Alt. (Mesma Cor)": fmt.Sprintf("%.0f", altBalance),
			"Status":                 status,
			"Sugestão":               advice,
		})
	}
	if len(rows) == 0 {
		return "Sem dados.", nil
	}
	return "## 📊 Dossiê de Compras com Alternativos (Mesma Cor)\n\n" + render.Table(columns, rows), nil
}

func (p *procurement) suggestion(ctx context.Context, args tools.Args) (string, error) {
	criteria := strings.TrimSpace(args.String("criteria"))
	if criteria != "" && criteria != CriteriaCurveA {
		return p.dossier(ctx, parseIDs([]string{criteria}))
	}

	rs, err := p.exec.ExecuteQuery(ctx, fmt.Sprintf("SELECT CODPROD FROM (SELECT I.CODPROD, SUM(I.QTDNEG) AS V FROM TGFITE I "+
		"JOIN TGFCAB C ON I.NUNOTA = C.NUNOTA WHERE C.DTNEG > SYSDATE - %d AND C.TIPMOV = 'V' GROUP BY I.CODPROD ORDER BY V DESC) "+
		"WHERE ROWNUM <= %d", salesWindowDays, curveALimit))
	if err != nil {
		return "❌ Erro ao calcular curva A: " + err.Error(), nil
	}
	ids := make([]int, 0, rs.Len())
	for _, r := range rs.Rows {
		ids = append(ids, int(render.ToFloat(r["CODPROD"])))
	}
	return p.dossier(ctx, ids)
}
