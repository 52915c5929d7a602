package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	bolt, err := OpenBoltStore(filepath.Join(dir, "rules.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bolt.Close() })
	return map[string]Store{
		"file": NewFileStore(filepath.Join(dir, "knowledge", "business_rules.json")),
		"bolt": bolt,
	}
}

var oracleRule = Rule{
	ID:          "oracle_date_functions_only",
	Condition:   "SQL com funções MySQL/Postgres de data (CURDATE, DATE_TRUNC) em ambiente Oracle",
	Description: "Ao gerar SQL para Sankhya/Oracle, usar TRUNC(SYSDATE), SYSDATE e TO_CHAR; nunca usar CURDATE/DATE_TRUNC.",
}

func TestStore_ProposeIsIdempotent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			out, err := s.Propose(ctx, oracleRule)
			require.NoError(t, err)
			assert.Equal(t, Proposed, out)

			out, err = s.Propose(ctx, oracleRule)
			require.NoError(t, err)
			assert.Equal(t, AlreadyPending, out)

			doc, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, doc.ProposedRules, 1)
			assert.Equal(t, StatusPending, doc.ProposedRules[0].Status)
			assert.Empty(t, doc.MappingRules)
		})
	}
}

func TestStore_Approve(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Approve(ctx, "missing")
			assert.ErrorIs(t, err, ErrRuleNotFound)

			_, err = s.Propose(ctx, oracleRule)
			require.NoError(t, err)
			r, err := s.Approve(ctx, oracleRule.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusActive, r.Status)
			assert.NotNil(t, r.ApprovedAt)

			active, err := s.Active(ctx)
			require.NoError(t, err)
			require.Len(t, active, 1)
			assert.Equal(t, oracleRule.ID, active[0].ID)

			doc, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, doc.ProposedRules)

			out, err := s.Propose(ctx, oracleRule)
			require.NoError(t, err)
			assert.Equal(t, AlreadyActive, out)
		})
	}
}

func TestFileStore_PreservesUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "business_rules.json")
	seed := `{
    "version": 3,
    "lenses": {"vendas": "TGFCAB"},
    "mapping_rules": [{"id": "manual", "condition": "c", "description": "d"}]
}`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	s := NewFileStore(path)
	_, err := s.Propose(context.Background(), oracleRule)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, float64(3), out["version"])
	assert.Equal(t, map[string]any{"vendas": "TGFCAB"}, out["lenses"])
	assert.Len(t, out["proposed_rules"], 1)

	active, err := s.Active(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, StatusActive, active[0].Status, "hand-written rules count as active")
}

func TestConfig_New(t *testing.T) {
	cfg := &Config{Backend: "BOLT", Path: filepath.Join(t.TempDir(), "r.db")}
	s, closeFn, err := cfg.Complete().New()
	require.NoError(t, err)
	assert.IsType(t, &BoltStore{}, s)
	require.NoError(t, closeFn())

	_, _, err = (&Config{Backend: "redis"}).Complete().New()
	assert.Error(t, err)
}
