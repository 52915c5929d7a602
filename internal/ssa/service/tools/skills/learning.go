package skills

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/gateway"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/metrics"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/rules"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/render"
)

const (
	LearningEngineModule = "learning_engine"

	ProposeNewRule = "propose_new_rule"
	ApproveRule    = "approve_rule"
	ListRules      = "list_rules"
)

// LearningEngine lets the agent propose business rules and the operator
// approve them.
func LearningEngine(d Deps) tools.Module {
	m := tools.Module{Name: LearningEngineModule}
	if d.Rules == nil {
		m.Err = errors.New("rule store not configured")
		return m
	}
	le := &learningEngine{store: d.Rules}
	m.Tools = []*tools.Tool{
		{
			Name: ProposeNewRule,
			Doc:  "Propõe a criação ou atualização de uma regra de negócio baseada no aprendizado.",
			Params: []tools.ParamSpec{
				tools.Param("rule_id", tools.KindString),
				tools.Param("condition", tools.KindString),
				tools.Param("description", tools.KindString),
				tools.Optional("category", tools.KindString, rules.DefaultCategory),
			},
			Handler: le.propose,
		},
		{
			Name:    ApproveRule,
			Doc:     "Move uma regra da fila de proposta para a produção.",
			Params:  []tools.ParamSpec{tools.Param("rule_id", tools.KindString)},
			Handler: le.approve,
		},
		{
			Name:    ListRules,
			Doc:     "Lista as regras de negócio ativas e as propostas pendentes.",
			Handler: le.list,
		},
	}
	return m
}

type learningEngine struct {
	store rules.Store
}

func (le *learningEngine) propose(ctx context.Context, args tools.Args) (string, error) {
	id := args.String("rule_id")
	outcome, err := le.store.Propose(ctx, rules.Rule{
		ID:          id,
		Condition:   args.String("condition"),
		Description: args.String("description"),
		Category:    args.String("category"),
	})
	if err != nil {
		return "Erro ao processar aprendizado: " + err.Error(), nil
	}

	switch outcome {
	case rules.AlreadyPending:
		return fmt.Sprintf("💡 A regra '%s' já está na fila de aprendizado para sua aprovação.", id), nil
	case rules.AlreadyActive:
		return fmt.Sprintf("💡 A regra '%s' já faz parte das regras ativas.", id), nil
	}
	metrics.RulesProposed.Inc()
	return fmt.Sprintf("🧠 **Novo Aprendizado:** Detectei um padrão e propus a regra `%s`.\n_%s_\n\n"+
		"Deseja aprovar este aprendizado para as próximas análises?", id, args.String("description")), nil
}

func (le *learningEngine) approve(ctx context.Context, args tools.Args) (string, error) {
	id := args.String("rule_id")
	if _, err := le.store.Approve(ctx, id); err != nil {
		if errors.Is(err, rules.ErrRuleNotFound) {
			return "❌ Proposta não encontrada.", nil
		}
		return "Erro ao aprovar regra: " + err.Error(), nil
	}
	return fmt.Sprintf("✅ **Unanimidade Confirmada:** A regra `%s` agora faz parte do meu DNA oficial.", id), nil
}

func (le *learningEngine) list(ctx context.Context, _ tools.Args) (string, error) {
	doc, err := le.store.List(ctx)
	if err != nil {
		return "Erro ao listar regras: " + err.Error(), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Regras ativas (%d):**\n\n%s", len(doc.MappingRules), ruleTable(doc.MappingRules))
	fmt.Fprintf(&b, "\n\n**Propostas pendentes (%d):**\n\n%s", len(doc.ProposedRules), ruleTable(doc.ProposedRules))
	return b.String(), nil
}

func ruleTable(list []rules.Rule) string {
	rows := make([]gateway.Row, 0, len(list))
	for _, r := range list {
		rows = append(rows, gateway.Row{"ID": r.ID, "Condicao": r.Condition, "Descricao": r.Description})
	}
	return render.Table([]string{"ID", "Condicao", "Descricao"}, rows)
}
