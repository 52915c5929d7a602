package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/guard"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/skills"
)

// strictSQL rejects trailing semicolons instead of normalizing them.
func strictSQL(name string, fail error) *tools.Tool {
	return &tools.Tool{
		Name:   name,
		Doc:    "SQL estrito.",
		Params: []tools.ParamSpec{tools.Param("sql", tools.KindString)},
		Handler: func(_ context.Context, args tools.Args) (string, error) {
			if fail != nil {
				return "", fail
			}
			sql := args.String("sql")
			if strings.Contains(sql, ";") {
				return guard.ReasonSemicolon, nil
			}
			return "ok: " + sql, nil
		},
	}
}

func TestSelfCorrector(t *testing.T) {
	tests := []struct {
		name      string
		tool      *tools.Tool
		args      map[string]any
		result    string
		want      string
		corrected bool
	}{
		{
			name:      "strips trailing semicolons and retries",
			tool:      strictSQL("run_sql_select", nil),
			args:      map[string]any{"sql": "SELECT 1 FROM DUAL ; ;"},
			result:    guard.ReasonSemicolon,
			want:      "ok: SELECT 1 FROM DUAL",
			corrected: true,
		},
		{
			name:   "chart tool is covered too",
			tool:   strictSQL("generate_chart_report", nil),
			args:   map[string]any{"sql": "SELECT 1 FROM DUAL;"},
			result: guard.ReasonSemicolon, want: "ok: SELECT 1 FROM DUAL", corrected: true,
		},
		{
			name:   "other tools are left alone",
			tool:   strictSQL("custom_sql", nil),
			args:   map[string]any{"sql": "SELECT 1 FROM DUAL;"},
			result: guard.ReasonSemicolon, want: guard.ReasonSemicolon,
		},
		{
			name:   "no fingerprint",
			tool:   strictSQL("run_sql_select", nil),
			args:   map[string]any{"sql": "SELECT 1 FROM DUAL;"},
			result: "❌ Erro ao executar SQL: timeout", want: "❌ Erro ao executar SQL: timeout",
		},
		{
			name:   "inner semicolon cannot be fixed",
			tool:   strictSQL("run_sql_select", nil),
			args:   map[string]any{"sql": "SELECT 1 FROM DUAL; SELECT 2 FROM DUAL"},
			result: guard.ReasonSemicolon, want: guard.ReasonSemicolon,
		},
		{
			name:   "non string sql",
			tool:   strictSQL("run_sql_select", nil),
			args:   map[string]any{"sql": 42},
			result: guard.ReasonSemicolon, want: guard.ReasonSemicolon,
		},
		{
			name:   "failing retry keeps the original",
			tool:   strictSQL("run_sql_select", errors.New("boom")),
			args:   map[string]any{"sql": "SELECT 1 FROM DUAL;"},
			result: guard.ReasonSemicolon, want: guard.ReasonSemicolon,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, corrected := NewSelfCorrector().MaybeRetry(context.Background(), tt.tool, tt.args, tt.result)
			assert.Equal(t, tt.want, out)
			assert.Equal(t, tt.corrected, corrected)
		})
	}
}

func TestSelfCorrector_DoesNotMutateArgs(t *testing.T) {
	args := map[string]any{"sql": "SELECT 1 FROM DUAL;"}
	_, ok := NewSelfCorrector().MaybeRetry(context.Background(), strictSQL("run_sql_select", nil), args, guard.ReasonSemicolon)
	require.True(t, ok)
	assert.Equal(t, "SELECT 1 FROM DUAL;", args["sql"])
}

type proposals struct {
	calls []tools.Args
	err   error
}

func (p *proposals) snapshot(t *testing.T) *tools.Snapshot {
	t.Helper()
	propose := &tools.Tool{
		Name: skills.ProposeNewRule,
		Doc:  "Propõe regra.",
		Params: []tools.ParamSpec{
			tools.Param("rule_id", tools.KindString),
			tools.Param("condition", tools.KindString),
			tools.Param("description", tools.KindString),
		},
		Handler: func(_ context.Context, args tools.Args) (string, error) {
			p.calls = append(p.calls, args)
			return "ok", p.err
		},
	}
	reg := tools.NewRegistry([]*tools.Tool{propose})
	require.NoError(t, reg.Reload(context.Background()))
	return reg.Snapshot()
}

func TestAutoLearner(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   string
	}{
		{name: "oracle dates", result: `Erro Funcional Sankhya: ORA-00904: "CURDATE": invalid identifier`, want: "oracle_date_functions_only"},
		{name: "date_trunc", result: "ora-00904 DATE_TRUNC", want: "oracle_date_functions_only"},
		{name: "semicolon", result: guard.ReasonSemicolon, want: "single_statement_sql_only"},
		{name: "invalid column only", result: "ORA-00904: CODX invalid identifier"},
		{name: "success", result: "**5 registro(s) encontrado(s):**"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &proposals{}
			got := AutoLearner{}.MaybeLearn(context.Background(), "run_sql_select", tt.result, p.snapshot(t))
			assert.Equal(t, tt.want, got)
			if tt.want == "" {
				assert.Empty(t, p.calls)
				return
			}
			require.Len(t, p.calls, 1)
			assert.Equal(t, tt.want, p.calls[0].String("rule_id"))
			assert.NotEmpty(t, p.calls[0].String("description"))
		})
	}
}

func TestAutoLearner_Failures(t *testing.T) {
	assert.Empty(t, AutoLearner{}.MaybeLearn(context.Background(), "x", guard.ReasonSemicolon, nil))
	assert.Empty(t, AutoLearner{}.MaybeLearn(context.Background(), "x", guard.ReasonSemicolon, &tools.Snapshot{}))

	p := &proposals{err: errors.New("disk full")}
	assert.Empty(t, AutoLearner{}.MaybeLearn(context.Background(), "x", guard.ReasonSemicolon, p.snapshot(t)))
	assert.Len(t, p.calls, 1)
}
