package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/gateway"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/knowledge"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/render"
)

const snippetLen = 300

func (ts *toolset) searchDocs(_ context.Context, args tools.Args) (string, error) {
	query := args.String("query")
	hits, err := ts.Docs.Search(query)
	if err != nil {
		return "❌ Erro ao pesquisar documentação: " + err.Error(), nil
	}
	if len(hits) == 0 {
		return fmt.Sprintf("Nenhum resultado encontrado para '%s' na base de conhecimento.", query), nil
	}

	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, fmt.Sprintf("### 📄 %s\n\n%s", h.File, strings.Join(h.Snippets, "\n\n---\n\n")))
	}
	return fmt.Sprintf("**Resultados para '%s':**\n\n%s", query, strings.Join(parts, "\n\n")), nil
}

func (ts *toolset) listTables(_ context.Context, _ tools.Args) (string, error) {
	tables, err := ts.Docs.Tables()
	if err != nil {
		return "❌ Erro ao ler schema_map.json: " + err.Error(), nil
	}
	rows := make([]gateway.Row, 0, len(tables))
	for _, t := range tables {
		rows = append(rows, gateway.Row{"Tabela": t.Table, "Descricao": t.Description})
	}
	return fmt.Sprintf("**Tabelas do Sankhya (%d):**\n\n%s", len(rows), render.Table([]string{"Tabela", "Descricao"}, rows)), nil
}

func (ts *toolset) searchSolutions(ctx context.Context, args tools.Args) (string, error) {
	if ts.KnowledgeDB == "" || !knowledge.Exists(ts.KnowledgeDB) {
		return "⚠️ Base de conhecimento ainda não indexada. Execute `ssactl kb index` primeiro.", nil
	}
	store, err := knowledge.Open(ts.KnowledgeDB)
	if err != nil {
		return "❌ Erro ao buscar na Knowledge Base: " + err.Error(), nil
	}
	defer store.Close()

	query := knowledge.CleanQuery(args.String("query"))
	articles, err := store.Search(ctx, query, 3)
	if err != nil {
		return "❌ Erro ao buscar na Knowledge Base: " + err.Error(), nil
	}
	if len(articles) == 0 {
		return fmt.Sprintf("Nenhuma solução encontrada na base de conhecimento para: '%s'", query), nil
	}

	parts := make([]string, 0, len(articles))
	for _, a := range articles {
		snippet := a.Body
		if r := []rune(snippet); len(r) > snippetLen {
			snippet = string(r[:snippetLen]) + "..."
		}
		parts = append(parts, fmt.Sprintf("### 📄 [%s](%s)\n%s\n\n[Ler artigo completo](%s)", a.Title, a.URL, snippet, a.URL))
	}
	return fmt.Sprintf("**Soluções Encontradas para '%s':**\n\n%s", query, strings.Join(parts, "\n\n---\n\n")), nil
}
