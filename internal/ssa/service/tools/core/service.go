package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/guard"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/render"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

const (
	loadRecordsService = "CRUDServiceProvider.loadRecords"
	saveService        = "DatasetSP.save"
)

func (ts *toolset) testConnection(ctx context.Context, _ tools.Args) (string, error) {
	rs, err := ts.Exec.ExecuteQuery(ctx, "SELECT 1 AS TESTE FROM DUAL")
	if err != nil {
		return "❌ Falha na conexão: " + err.Error(), nil
	}
	if rs.Len() == 0 {
		return "⚠️ Conexão estabelecida, mas o resultado foi vazio.", nil
	}
	return "✅ Conexão com o Gateway Sankhya estabelecida com sucesso!", nil
}

func (ts *toolset) callService(ctx context.Context, args tools.Args) (string, error) {
	name := args.String("service_name")
	d := ts.Guard.Check(guard.ActionService, name, "call_sankhya_service -> "+name)
	if !d.Allowed() {
		return d.Message(), nil
	}

	out, err := ts.Exec.CallService(ctx, name, args.Map("request_body"))
	if err != nil {
		return fmt.Sprintf("❌ Erro ao executar serviço `%s`: %s", name, err), nil
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode service response: %w", err)
	}
	return fmt.Sprintf("✅ Serviço `%s` executado com sucesso:\n\n```json\n%s\n```", name, data), nil
}

func (ts *toolset) loadRecords(ctx context.Context, args tools.Args) (string, error) {
	entity := args.String("entity_name")
	criteria := args.String("criteria")
	expr := criteria
	if expr == "" {
		expr = "1=1"
	}
	fieldset := "*"
	if fields := args.Strings("fields"); len(fields) > 0 {
		fieldset = strings.Join(fields, ", ")
	}

	body := map[string]any{
		"dataSet": map[string]any{
			"rootEntity":                entity,
			"includePresentationFields": "S",
			"offsetPage":                "0",
			"criteria": map[string]any{
				"expression": map[string]any{"$": expr},
			},
			"entity": map[string]any{
				"fieldset": map[string]any{"list": fieldset},
			},
		},
	}

	out, err := ts.Exec.CallService(ctx, loadRecordsService, body)
	if err != nil {
		return fmt.Sprintf("❌ Erro ao consultar `%s`: %s", entity, err), nil
	}

	entities := extractEntities(out)
	if len(entities) == 0 {
		return fmt.Sprintf("Nenhum registro encontrado para a entidade `%s` com o critério `%s`.", entity, criteria), nil
	}
	return fmt.Sprintf("**Resultados para `%s`:**\n\n%s", entity, render.Table(nil, entities)), nil
}

// extractEntities flattens responseBody.entities.entity, which the API returns
// as an object for a single record and a list otherwise. Fields come back as
// {"$": value}.
func extractEntities(out map[string]any) []map[string]any {
	body, _ := out["responseBody"].(map[string]any)
	ents, _ := body["entities"].(map[string]any)

	var list []any
	switch e := ents["entity"].(type) {
	case []any:
		list = e
	case map[string]any:
		list = []any{e}
	}

	rows := make([]map[string]any, 0, len(list))
	for _, item := range list {
		ent, ok := item.(map[string]any)
		if !ok {
			continue
		}
		row := make(map[string]any, len(ent))
		for k, v := range ent {
			if m, ok := v.(map[string]any); ok {
				if inner, ok := m["$"]; ok {
					row[k] = inner
					continue
				}
			}
			row[k] = fmt.Sprint(v)
		}
		rows = append(rows, row)
	}
	return rows
}

func (ts *toolset) saveRecord(ctx context.Context, args tools.Args) (string, error) {
	entity := args.String("entity_name")
	d := ts.Guard.Check(guard.ActionEntity, entity, "save_record -> "+entity)
	if !d.Allowed() {
		return d.Message(), nil
	}

	values := args.Map("values")
	fields := render.SortedKeys(values)
	indexed := make(map[string]any, len(fields))
	for i, f := range fields {
		indexed[strconv.Itoa(i)] = tools.Args(values).String(f)
	}
	record := map[string]any{"values": indexed}
	pk := args.Map("primary_key")
	if len(pk) > 0 {
		record["pk"] = pk
	}

	out, err := ts.Exec.CallService(ctx, saveService, map[string]any{
		"entityName": entity,
		"standAlone": false,
		"fields":     fields,
		"records":    []any{record},
	})
	if err != nil {
		return fmt.Sprintf("❌ Erro ao salvar registro em `%s`: %s", entity, err), nil
	}

	msg := "Registro criado"
	if len(pk) > 0 {
		msg = "Registro atualizado"
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return fmt.Sprintf("✅ %s com sucesso na entidade `%s`.\nRetorno: %s", msg, entity, data), nil
}
