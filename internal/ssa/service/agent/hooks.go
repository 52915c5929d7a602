package agent

import (
	"context"
	"strings"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/metrics"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/core"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/skills"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

// Validator messages recognised by the hooks, lower-cased.
var semicolonFingerprints = []string{
	"ponto-e-vírgula detectado",
	"apenas um statement por vez",
}

func hasSemicolonFingerprint(lower string) bool {
	for _, f := range semicolonFingerprints {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

// SelfCorrector retries SQL tools whose input was rejected only because of
// trailing semicolons.
type SelfCorrector struct {
	// Tools are the tool names taking a "sql" argument.
	Tools map[string]bool
}

func NewSelfCorrector() *SelfCorrector {
	return &SelfCorrector{Tools: map[string]bool{
		core.RunSQLSelect:        true,
		core.GenerateChartReport: true,
	}}
}

// MaybeRetry re-invokes t with the trailing semicolons stripped from its
// sql argument. It reports whether the retry result replaced result; a
// failing retry keeps the original.
func (s *SelfCorrector) MaybeRetry(ctx context.Context, t *tools.Tool, args map[string]any, result string) (string, bool) {
	if t == nil || !s.Tools[t.Name] {
		return result, false
	}
	if !hasSemicolonFingerprint(strings.ToLower(result)) {
		return result, false
	}
	sql, ok := args["sql"].(string)
	if !ok {
		return result, false
	}
	fixed := stripTrailingSemicolons(sql)
	if fixed == sql {
		return result, false
	}

	retry := make(map[string]any, len(args))
	for k, v := range args {
		retry[k] = v
	}
	retry["sql"] = fixed

	logger.InfoX(ModuleName, "Auto-correção SQL aplicada em %s: removido ';' final e reexecutando.", t.Name)
	out, err := t.Invoke(ctx, retry)
	if err != nil {
		logger.WarnX(ModuleName, "auto-correção de %s falhou: %v", t.Name, err)
		return result, false
	}
	metrics.SelfCorrections.WithLabelValues(t.Name).Inc()
	return out, true
}

func stripTrailingSemicolons(sql string) string {
	cleaned := strings.TrimSpace(sql)
	for strings.HasSuffix(cleaned, ";") {
		cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, ";"))
	}
	return cleaned
}

// learningTrigger maps a recognised failure to the rule it teaches.
type learningTrigger struct {
	ruleID      string
	condition   string
	description string
	match       func(lower string) bool
}

var learningTriggers = []learningTrigger{
	{
		ruleID:      "oracle_date_functions_only",
		condition:   "SQL com funções MySQL/Postgres de data (CURDATE, DATE_TRUNC) em ambiente Oracle",
		description: "Ao gerar SQL para Sankhya/Oracle, usar TRUNC(SYSDATE), SYSDATE e TO_CHAR; nunca usar CURDATE/DATE_TRUNC.",
		match: func(lower string) bool {
			return strings.Contains(lower, "ora-00904") &&
				(strings.Contains(lower, "curdate") || strings.Contains(lower, "date_trunc"))
		},
	},
	{
		ruleID:      "single_statement_sql_only",
		condition:   "Tentativa de executar SQL com múltiplos statements",
		description: "Toda execução SQL deve conter apenas um SELECT/WITH sem ponto-e-vírgula.",
		match:       hasSemicolonFingerprint,
	},
}

// AutoLearner proposes business rules when a tool result shows a known
// recurring mistake. It never fails the turn.
type AutoLearner struct{}

// MaybeLearn proposes the rule of the first matching trigger through the
// propose_new_rule tool of snap. It returns the proposed rule id, or "".
func (AutoLearner) MaybeLearn(ctx context.Context, toolName string, result string, snap *tools.Snapshot) string {
	if snap == nil {
		return ""
	}
	propose, ok := snap.Get(skills.ProposeNewRule)
	if !ok {
		return ""
	}

	lower := strings.ToLower(result)
	for _, trig := range learningTriggers {
		if !trig.match(lower) {
			continue
		}
		msg, err := propose.Invoke(ctx, map[string]any{
			"rule_id":     trig.ruleID,
			"condition":   trig.condition,
			"description": trig.description,
		})
		if err != nil {
			logger.WarnX(ModuleName, "Falha ao registrar auto-learning (%s): %v", trig.ruleID, err)
			return ""
		}
		logger.InfoX(ModuleName, "Auto-learning acionado (%s) após %s: %s", trig.ruleID, toolName, msg)
		return trig.ruleID
	}
	return ""
}
