package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/render"
)

const sampleRows = 3

// tablePatterns are tried in order; the last one takes any upper-case word
// of five or more characters.
var tablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(TGF[A-Z0-9_]+)\b`),
	regexp.MustCompile(`\b(TSI[A-Z0-9_]+)\b`),
	regexp.MustCompile(`\b(AD_[A-Z0-9_]+)\b`),
	regexp.MustCompile(`\b(TDV[A-Z0-9_]+)\b`),
	regexp.MustCompile(`\b(TSW[A-Z0-9_]+)\b`),
	regexp.MustCompile(`\b([A-Z]{3}[A-Z0-9_]{2,})\b`),
}

var subjectStopWords = map[string]bool{"QUERO": true, "ENTENDER": true, "TABELA": true, "COMO": true, "SOBRE": true}

// subjectTable finds the table a free-form subject talks about.
func subjectTable(subject string) string {
	upper := strings.ToUpper(subject)
	for _, p := range tablePatterns {
		for _, m := range p.FindAllStringSubmatch(upper, -1) {
			if !subjectStopWords[m[1]] {
				return m[1]
			}
		}
	}
	return ""
}

// investigate combines the knowledge base, the data dictionary and a sample
// of real rows into one report.
func (ts *toolset) investigate(ctx context.Context, args tools.Args) (string, error) {
	subject := args.String("subject")
	table := subjectTable(subject)
	report := []string{fmt.Sprintf("# 🔍 Relatório de Investigação Proativa: %s\n", subject)}

	report = append(report, "## 📚 Documentação (Knowledge Base)")
	docs, err := ts.searchSolutions(ctx, tools.Args{"query": subject})
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(docs, "Nenhuma solução encontrada") && table != "" {
		if docs, err = ts.searchSolutions(ctx, tools.Args{"query": table}); err != nil {
			return "", err
		}
	}
	report = append(report, docs+"\n")

	if table != "" {
		report = append(report, fmt.Sprintf("## 🏗️ Metadados da Tabela `%s`", table))
		columns, err := ts.getTableColumns(ctx, tools.Args{"table_name": table})
		if err != nil {
			return "", err
		}
		report = append(report, columns+"\n")

		report = append(report, fmt.Sprintf("## 📋 Amostra de Dados Reais (Top %d)", sampleRows))
		rs, err := ts.Exec.ExecuteQuery(ctx, fmt.Sprintf("SELECT * FROM %s WHERE ROWNUM <= %d", table, sampleRows))
		switch {
		case err != nil:
			report = append(report, "⚠️ Não foi possível obter amostra: "+err.Error())
		case rs.Len() == 0:
			report = append(report, "*Nenhum dado encontrado para amostragem.*")
		default:
			report = append(report, render.ResultTable(rs))
		}
	}

	report = append(report, "\n---\n*Investigação concluída de forma autônoma pelo Agente.*")
	return strings.Join(report, "\n"), nil
}
