package tools

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/metrics"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

const ModuleName = "tools"

// Module is one skill module produced by a source. A module that failed to
// load carries Err and no tools.
type Module struct {
	Name  string
	Tools []*Tool
	Err   error
}

// SkillSource contributes skill modules on every reload.
type SkillSource interface {
	Name() string
	Modules(ctx context.Context) ([]Module, error)
}

// LoadError records a module that was skipped during a reload.
type LoadError struct {
	Source string
	Module string
	Err    error
}

// Snapshot is an immutable, complete view of the registered tools.
type Snapshot struct {
	tools    map[string]*Tool
	names    []string
	version  uint64
	loadedAt time.Time
	errors   []LoadError
}

// Get looks up a tool by name.
func (s *Snapshot) Get(name string) (*Tool, bool) {
	if s == nil {
		return nil, false
	}
	t, ok := s.tools[name]
	return t, ok
}

// List returns the tools sorted by name.
func (s *Snapshot) List() []*Tool {
	if s == nil {
		return nil
	}
	out := make([]*Tool, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, s.tools[n])
	}
	return out
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

func (s *Snapshot) Version() uint64     { return s.version }
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Errors lists the modules skipped while building this snapshot.
func (s *Snapshot) Errors() []LoadError { return s.errors }

// Registry owns the current snapshot. Reload builds a new snapshot off to
// the side and swaps it in, so readers always see every tool of one load.
type Registry struct {
	core    []*Tool
	sources []SkillSource

	reloadMu sync.Mutex
	current  atomic.Pointer[Snapshot]
	version  atomic.Uint64
}

// NewRegistry creates a registry holding the core tools. Skill sources are
// loaded in name order after the core set.
func NewRegistry(core []*Tool, sources ...SkillSource) *Registry {
	srcs := append([]SkillSource(nil), sources...)
	sort.SliceStable(srcs, func(i, j int) bool { return srcs[i].Name() < srcs[j].Name() })

	r := &Registry{core: core, sources: srcs}
	r.current.Store(&Snapshot{tools: map[string]*Tool{}})
	return r
}

// Reload rebuilds the registry from the core set and every skill source.
// Failing sources and modules are logged and skipped. Only a cancelled
// context aborts the reload, leaving the previous snapshot in place.
func (r *Registry) Reload(ctx context.Context) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	tools := make(map[string]*Tool, len(r.core))
	var loadErrs []LoadError

	add := func(t *Tool, module string) {
		if prev, ok := tools[t.Name]; ok {
			logger.WarnX(ModuleName, "tool %q from %s replaces the one from %s (last loaded wins)", t.Name, module, prev.Source)
		}
		if t.Source == "" {
			t.Source = module
		}
		tools[t.Name] = t
	}

	for _, t := range r.core {
		if t.Source == "" {
			t.Source = SourceCore
		}
		add(t, SourceCore)
	}

	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			metrics.RegistryReloads.WithLabelValues("cancelled").Inc()
			return err
		}
		modules, err := src.Modules(ctx)
		if err != nil {
			logger.ErrorX(ModuleName, "skill source %s failed: %v", src.Name(), err)
			loadErrs = append(loadErrs, LoadError{Source: src.Name(), Err: err})
			continue
		}
		for _, m := range modules {
			if m.Err != nil {
				logger.ErrorX(ModuleName, "Erro ao carregar skill %s: %v", m.Name, m.Err)
				loadErrs = append(loadErrs, LoadError{Source: src.Name(), Module: m.Name, Err: m.Err})
				continue
			}
			for _, t := range m.Tools {
				if t == nil || t.Name == "" {
					continue
				}
				add(t, m.Name)
			}
		}
	}

	names := make([]string, 0, len(tools))
	for n := range tools {
		names = append(names, n)
	}
	sort.Strings(names)

	snap := &Snapshot{
		tools:    tools,
		names:    names,
		version:  r.version.Add(1),
		loadedAt: time.Now(),
		errors:   loadErrs,
	}
	r.current.Store(snap)

	metrics.RegistryReloads.WithLabelValues("ok").Inc()
	metrics.RegistrySize.Set(float64(len(names)))
	logger.DebugX(ModuleName, "registry v%d loaded with %d tools (%d skipped modules)", snap.version, len(names), len(loadErrs))
	return nil
}

// Snapshot returns the current snapshot. Callers keep the reference for the
// whole turn.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Get looks up a tool in the current snapshot.
func (r *Registry) Get(name string) (*Tool, bool) {
	return r.Snapshot().Get(name)
}

// All returns a copy of the current name to tool mapping.
func (r *Registry) All() map[string]*Tool {
	snap := r.Snapshot()
	out := make(map[string]*Tool, snap.Len())
	for k, v := range snap.tools {
		out[k] = v
	}
	return out
}
