package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/render"
)

func (ts *toolset) getStockInfo(ctx context.Context, args tools.Args) (string, error) {
	codprod := args.Int("codprod", 0)
	sql := fmt.Sprintf(`
    SELECT
        P.CODPROD,
        P.DESCRPROD AS "Descricao",
        NVL(TRIM(P.MARCA), 'SEM MARCA') AS "Marca",
        P.CODVOL AS "Unidade",
        NVL(E.ESTOQUE, 0) AS "Saldo",
        NVL(C.CUSREP, 0) AS "CustoUnit",
        ROUND(NVL(E.ESTOQUE, 0) * NVL(C.CUSREP, 0), 2) AS "ValorEstoque"
    FROM TGFPRO P
    LEFT JOIN (
        SELECT CODPROD, SUM(ESTOQUE) AS ESTOQUE
        FROM TGFEST
        WHERE CODLOCAL = %d AND CODEMP = 1
        GROUP BY CODPROD
    ) E ON P.CODPROD = E.CODPROD
    LEFT JOIN (
        SELECT C.CODPROD, C.CUSREP
        FROM TGFCUS C
        WHERE C.CODEMP = 1
          AND C.DHALTER = (SELECT MAX(X.DHALTER) FROM TGFCUS X WHERE X.CODPROD = C.CODPROD AND X.CODEMP = C.CODEMP)
    ) C ON P.CODPROD = C.CODPROD
    WHERE P.CODPROD = %d`, args.Int("codlocal", defaultCodLocal), codprod)

	rs, err := ts.Exec.ExecuteQuery(ctx, sql)
	if err != nil {
		return "❌ Erro ao consultar estoque: " + err.Error(), nil
	}
	if rs.Len() == 0 {
		return fmt.Sprintf("Produto %d não encontrado.", codprod), nil
	}
	return fmt.Sprintf("**Estoque do Produto %d:**\n\n%s", codprod, render.ResultTable(rs)), nil
}

func (ts *toolset) getPartnerInfo(ctx context.Context, args tools.Args) (string, error) {
	codparc := args.Int("codparc", 0)
	sql := fmt.Sprintf(`
    SELECT
        P.CODPARC,
        P.RAZAOSOCIAL AS "RazaoSocial",
        P.NOMEPARC AS "Fantasia",
        P.CGC_CPF AS "CNPJ_CPF",
        P.TIPPESSOA AS "Tipo",
        C.NOMECID AS "Cidade",
        C.UF,
        P.TELEFONE AS "Telefone",
        P.EMAIL
    FROM TGFPAR P
    LEFT JOIN TSICID C ON P.CODCID = C.CODCID
    WHERE P.CODPARC = %d`, codparc)

	rs, err := ts.Exec.ExecuteQuery(ctx, sql)
	if err != nil {
		return "❌ Erro ao consultar parceiro: " + err.Error(), nil
	}
	if rs.Len() == 0 {
		return fmt.Sprintf("Parceiro %d não encontrado.", codparc), nil
	}
	return fmt.Sprintf("**Parceiro %d:**\n\n%s", codparc, render.ResultTable(rs)), nil
}

func (ts *toolset) getInvoiceHeader(ctx context.Context, args tools.Args) (string, error) {
	nunota := args.Int("nunota", 0)
	sql := fmt.Sprintf(`
    SELECT
        C.NUNOTA,
        C.NUMNOTA AS "NumNota",
        C.DTNEG AS "DataNeg",
        P.NOMEPARC AS "Parceiro",
        T.DESCROPER AS "TOP",
        C.VLRNOTA AS "ValorTotal",
        C.STATUSNOTA AS "Status",
        C.PENDENTE AS "Pendente",
        U.NOMEUSU AS "Usuario"
    FROM TGFCAB C
    LEFT JOIN TGFPAR P ON C.CODPARC = P.CODPARC
    LEFT JOIN TGFTPV T ON C.CODTIPOPER = T.CODTIPOPER AND C.DHTIPOPER = T.DHALTER
    LEFT JOIN TSIUSU U ON C.CODUSU = U.CODUSU
    WHERE C.NUNOTA = %d`, nunota)

	rs, err := ts.Exec.ExecuteQuery(ctx, sql)
	if err != nil {
		return "❌ Erro ao consultar nota: " + err.Error(), nil
	}
	if rs.Len() == 0 {
		return fmt.Sprintf("Nota %d não encontrada.", nunota), nil
	}
	return fmt.Sprintf("**Nota %d:**\n\n%s", nunota, render.ResultTable(rs)), nil
}

func (ts *toolset) getInvoiceItems(ctx context.Context, args tools.Args) (string, error) {
	nunota := args.Int("nunota", 0)
	sql := fmt.Sprintf(`
    SELECT
        I.SEQUENCIA AS "Seq",
        I.CODPROD,
        P.DESCRPROD AS "Produto",
        I.QTDNEG AS "Qtd",
        I.VLRUNIT AS "VlrUnit",
        I.VLRTOT AS "VlrTotal",
        I.CODVOL AS "Unidade"
    FROM TGFITE I
    JOIN TGFPRO P ON I.CODPROD = P.CODPROD
    WHERE I.NUNOTA = %d
    ORDER BY I.SEQUENCIA`, nunota)

	rs, err := ts.Exec.ExecuteQuery(ctx, sql)
	if err != nil {
		return "❌ Erro ao consultar itens: " + err.Error(), nil
	}
	if rs.Len() == 0 {
		return fmt.Sprintf("Nenhum item encontrado para a nota %d.", nunota), nil
	}
	return fmt.Sprintf("**Itens da Nota %d (%d itens):**\n\n%s", nunota, rs.Len(), render.ResultTable(rs)), nil
}

var nonCSVDigits = regexp.MustCompile(`[^0-9,]`)

func (ts *toolset) dailySalesReport(ctx context.Context, args tools.Args) (string, error) {
	days := min(max(args.Int("days", 7), 1), 60)

	whereEmp := ""
	scope := "Todas as empresas"
	if raw := strings.TrimSpace(args.String("codemp_csv")); raw != "" {
		var ids []string
		for _, id := range strings.Split(nonCSVDigits.ReplaceAllString(raw, ""), ",") {
			if id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return "❌ `codemp_csv` inválido. Exemplo esperado: `1,5`.", nil
		}
		whereEmp = fmt.Sprintf(" AND CODEMP IN (%s)", strings.Join(ids, ", "))
		scope = "Empresas: " + strings.Join(ids, ", ")
	}

	sql := fmt.Sprintf(`
    SELECT
        TO_CHAR(TRUNC(DTNEG), 'YYYY-MM-DD') AS "Data",
        CODEMP AS "Empresa",
        COUNT(*) AS "QtdNotas",
        ROUND(SUM(VLRNOTA), 2) AS "TotalVendas"
    FROM TGFCAB
    WHERE STATUSNOTA = 'L'
      AND TIPMOV = 'V'
      AND TRUNC(DTNEG) >= TRUNC(SYSDATE) - %d
      %s
    GROUP BY TRUNC(DTNEG), CODEMP
    ORDER BY TRUNC(DTNEG) DESC, CODEMP`, days-1, whereEmp)

	rs, err := ts.Exec.ExecuteQuery(ctx, sql)
	if err != nil {
		return "❌ Erro ao gerar relatório diário: " + err.Error(), nil
	}
	if rs.Len() == 0 {
		return "Nenhuma venda encontrada para o período/filtro informado.", nil
	}

	var total float64
	var notas int
	for _, r := range rs.Rows {
		total += render.ToFloat(r["TotalVendas"])
		notas += int(render.ToFloat(r["QtdNotas"]))
	}
	header := fmt.Sprintf("### 📅 Relatório de Vendas Diárias\n"+
		"- Período: últimos **%d dia(s)**\n"+
		"- Escopo: **%s**\n"+
		"- Notas: **%d**\n"+
		"- Total: **R$ %s**\n\n", days, scope, notas, render.Money(total))
	return header + render.ResultTable(rs), nil
}
