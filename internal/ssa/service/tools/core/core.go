// Package core implements the fixed tool set registered before any skill.
package core

import (
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/gateway"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/guard"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/knowledge"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
)

// Tool names referenced outside this package.
const (
	RunSQLSelect        = "run_sql_select"
	GetTableColumns     = "get_table_columns"
	GetStockInfo        = "get_stock_info"
	GetPartnerInfo      = "get_partner_info"
	GetInvoiceHeader    = "get_invoice_header"
	GetInvoiceItems     = "get_invoice_items"
	SearchDocs          = "search_docs"
	ListTables          = "list_tables"
	TestConnection      = "test_connection"
	CallSankhyaService  = "call_sankhya_service"
	LoadRecords         = "load_records"
	SaveRecord          = "save_record"
	SearchSolutions     = "search_solutions"
	DescribeEntity      = "describe_entity"
	GenerateChartReport = "generate_chart_report"
	GetDailySalesReport = "get_daily_sales_report"
	InvestigateSystem   = "investigate_system_behavior"
)

const defaultCodLocal = 10010000

// Deps are the collaborators of the core tools.
type Deps struct {
	Exec  gateway.Executor
	Guard *guard.WriteGuard
	Docs  knowledge.Docs
	// KnowledgeDB is the sqlite article index used by search_solutions.
	KnowledgeDB string
}

type toolset struct {
	Deps
}

// Tools builds the core tool set.
func Tools(d Deps) []*tools.Tool {
	if d.Guard == nil {
		d.Guard = guard.NewWriteGuard(nil)
	}
	ts := &toolset{Deps: d}

	return []*tools.Tool{
		{
			Name:    RunSQLSelect,
			Doc:     "Executa SELECT com validação de segurança.",
			Params:  []tools.ParamSpec{tools.Param("sql", tools.KindString)},
			Handler: ts.runSQLSelect,
		},
		{
			Name:    GetTableColumns,
			Doc:     "Consulta dicionário de dados (TDICAM ou ALL_TAB_COLUMNS).",
			Params:  []tools.ParamSpec{tools.Param("table_name", tools.KindString)},
			Handler: ts.getTableColumns,
		},
		{
			Name: GetStockInfo,
			Doc:  "Consulta estoque atual de um produto.",
			Params: []tools.ParamSpec{
				tools.Param("codprod", tools.KindInteger),
				tools.Optional("codlocal", tools.KindInteger, defaultCodLocal),
			},
			Handler: ts.getStockInfo,
		},
		{
			Name:    GetPartnerInfo,
			Doc:     "Busca dados de um parceiro.",
			Params:  []tools.ParamSpec{tools.Param("codparc", tools.KindInteger)},
			Handler: ts.getPartnerInfo,
		},
		{
			Name:    GetInvoiceHeader,
			Doc:     "Busca cabeçalho de nota.",
			Params:  []tools.ParamSpec{tools.Param("nunota", tools.KindInteger)},
			Handler: ts.getInvoiceHeader,
		},
		{
			Name:    GetInvoiceItems,
			Doc:     "Lista itens de uma nota.",
			Params:  []tools.ParamSpec{tools.Param("nunota", tools.KindInteger)},
			Handler: ts.getInvoiceItems,
		},
		{
			Name:    SearchDocs,
			Doc:     "Pesquisa na knowledge base.",
			Params:  []tools.ParamSpec{tools.Param("query", tools.KindString)},
			Handler: ts.searchDocs,
		},
		{
			Name:    ListTables,
			Doc:     "Lista tabelas mapeadas.",
			Handler: ts.listTables,
		},
		{
			Name:    TestConnection,
			Doc:     "Testa conexão.",
			Handler: ts.testConnection,
		},
		{
			Name: CallSankhyaService,
			Doc: "Executa qualquer serviço (Service Name) da API do Sankhya.\n" +
				"Útil para operações específicas não cobertas por outras ferramentas (ex: faturar nota, cancelar).",
			Params: []tools.ParamSpec{
				tools.Param("service_name", tools.KindString),
				tools.Param("request_body", tools.KindObject),
			},
			Handler: ts.callService,
		},
		{
			Name: LoadRecords,
			Doc: "Consulta registros de qualquer entidade (Tabela) usando a API de Dados (loadRecords).\n" +
				"Mais seguro e poderoso que SQL direto, pois aplica formatação e regras de negócio.",
			Params: []tools.ParamSpec{
				tools.Param("entity_name", tools.KindString),
				tools.Optional("criteria", tools.KindString, ""),
				tools.Optional("fields", tools.KindArray, []any{}),
			},
			Handler: ts.loadRecords,
		},
		{
			Name: SaveRecord,
			Doc:  "Insere (INSERT) ou Atualiza (UPDATE) um registro em qualquer entidade.",
			Params: []tools.ParamSpec{
				tools.Param("entity_name", tools.KindString),
				tools.Param("values", tools.KindObject),
				tools.Optional("primary_key", tools.KindObject, map[string]any{}),
			},
			Handler: ts.saveRecord,
		},
		{
			Name: SearchSolutions,
			Doc: "Busca soluções na Base de Conhecimento Sankhya (artigos oficiais indexados).\n" +
				"Use isso quando encontrar erros (ex: ORA-xxxxx) ou tiver dúvidas de processo.",
			Params:  []tools.ParamSpec{tools.Param("query", tools.KindString)},
			Handler: ts.searchSolutions,
		},
		{
			Name:    DescribeEntity,
			Doc:     "Lista os campos disponíveis em uma entidade (Dicionário de Dados).",
			Params:  []tools.ParamSpec{tools.Param("entity_name", tools.KindString)},
			Handler: ts.describeEntity,
		},
		{
			Name: GenerateChartReport,
			Doc: "Gera um gráfico visual (BI) baseado em uma consulta SQL.\n" +
				"Tipos suportados: 'bar', 'line', 'pie', 'scatter'.",
			Params: []tools.ParamSpec{
				tools.Param("sql", tools.KindString),
				tools.Optional("chart_type", tools.KindString, "bar"),
				tools.Optional("title", tools.KindString, "Relatório SSA"),
			},
			Handler: ts.generateChartReport,
		},
		{
			Name: GetDailySalesReport,
			Doc: "Gera relatório de vendas diárias (TGFCAB) com filtro opcional de empresas.\n" +
				"Use para pedidos como \"vendas de hoje\", \"relatório diário\", \"empresa 1 e 5\".",
			Params: []tools.ParamSpec{
				tools.Optional("days", tools.KindInteger, 7),
				tools.Optional("codemp_csv", tools.KindString, ""),
			},
			Handler: ts.dailySalesReport,
		},
		{
			Name: InvestigateSystem,
			Doc: "Investiga uma tabela, campo ou processo do Sankhya.\n" +
				"Combina a Base de Conhecimento, o dicionário de dados e uma amostra de registros reais.",
			Params:  []tools.ParamSpec{tools.Param("subject", tools.KindString)},
			Handler: ts.investigate,
		},
	}
}
