package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name    string
	modules []Module
	err     error
	calls   int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Modules(context.Context) ([]Module, error) {
	f.calls++
	return f.modules, f.err
}

func echoTool(name, reply string) *Tool {
	return &Tool{
		Name: name,
		Doc:  "Responde " + reply,
		Handler: func(context.Context, Args) (string, error) {
			return reply, nil
		},
	}
}

func coreSet() []*Tool {
	return []*Tool{echoTool("run_sql_select", "sql"), echoTool("list_tables", "tables")}
}

func TestRegistry_CoreToolsPresentOnce(t *testing.T) {
	r := NewRegistry(coreSet())
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Reload(context.Background()))
	}
	snap := r.Snapshot()
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, []string{"list_tables", "run_sql_select"}, names(snap.List()))
	tool, ok := r.Get("run_sql_select")
	require.True(t, ok)
	assert.Equal(t, SourceCore, tool.Source)
	assert.Equal(t, uint64(3), snap.Version())
}

func TestRegistry_CollisionLastLoadedWins(t *testing.T) {
	// sources are loaded in name order, so "b_skills" wins over "a_skills"
	b := &fakeSource{name: "b_skills", modules: []Module{{Name: "beta", Tools: []*Tool{echoTool("dup", "beta")}}}}
	a := &fakeSource{name: "a_skills", modules: []Module{
		{Name: "alpha1", Tools: []*Tool{echoTool("dup", "alpha1")}},
		{Name: "alpha2", Tools: []*Tool{echoTool("dup", "alpha2")}},
	}}
	r := NewRegistry(coreSet(), b, a)
	require.NoError(t, r.Reload(context.Background()))

	all := r.All()
	assert.Len(t, all, 3)
	out, err := all["dup"].Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "beta", out)
	assert.Equal(t, "beta", all["dup"].Source)
}

func TestRegistry_FailingSourcesAreSkipped(t *testing.T) {
	broken := &fakeSource{name: "broken", err: errors.New("boom")}
	partial := &fakeSource{name: "partial", modules: []Module{
		{Name: "bad", Err: errors.New("syntax error")},
		{Name: "good", Tools: []*Tool{echoTool("good_tool", "ok")}},
	}}
	r := NewRegistry(coreSet(), broken, partial)
	require.NoError(t, r.Reload(context.Background()))

	snap := r.Snapshot()
	_, ok := snap.Get("good_tool")
	assert.True(t, ok)
	assert.Equal(t, 3, snap.Len())
	require.Len(t, snap.Errors(), 2)
	assert.Equal(t, "broken", snap.Errors()[0].Source)
	assert.Equal(t, "bad", snap.Errors()[1].Module)
}

func TestRegistry_SnapshotIsStableAcrossReload(t *testing.T) {
	src := &fakeSource{name: "skills", modules: []Module{{Name: "m", Tools: []*Tool{echoTool("first", "1")}}}}
	r := NewRegistry(coreSet(), src)
	require.NoError(t, r.Reload(context.Background()))
	old := r.Snapshot()

	src.modules = []Module{{Name: "m", Tools: []*Tool{echoTool("second", "2")}}}
	require.NoError(t, r.Reload(context.Background()))

	_, ok := old.Get("first")
	assert.True(t, ok, "old snapshot keeps its tools")
	_, ok = r.Get("first")
	assert.False(t, ok, "reload supersedes instead of merging")
	_, ok = r.Get("second")
	assert.True(t, ok)
	assert.Greater(t, r.Snapshot().Version(), old.Version())
}

func TestRegistry_CancelledReloadKeepsSnapshot(t *testing.T) {
	src := &fakeSource{name: "skills"}
	r := NewRegistry(coreSet(), src)
	require.NoError(t, r.Reload(context.Background()))
	before := r.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Reload(ctx), context.Canceled)
	assert.Same(t, before, r.Snapshot())
}

func TestRegistry_EmptyBeforeFirstReload(t *testing.T) {
	r := NewRegistry(coreSet())
	assert.Equal(t, 0, r.Snapshot().Len())
	_, ok := r.Get("run_sql_select")
	assert.False(t, ok)
}

func names(ts []*Tool) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Name)
	}
	return out
}
