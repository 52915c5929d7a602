// Package skills provides the skill sources loaded by the tool registry on
// top of the core set: compiled-in modules and declarative manifests.
package skills

import (
	"context"
	"time"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/gateway"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/guard"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/rules"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
)

const (
	ModuleName = "skills"

	InTreeSourceName   = "in-tree"
	ManifestSourceName = "manifest"
)

// Deps are the collaborators shared by the skill modules.
type Deps struct {
	Exec  gateway.Executor
	Guard *guard.WriteGuard
	Rules rules.Store
	// Segments is the group structure of the sales and finance lenses.
	Segments []Segment
	// Dir is the manifest directory the tool factory publishes into.
	Dir string
	Now func() time.Time
}

func (d Deps) complete() Deps {
	if d.Guard == nil {
		d.Guard = guard.NewWriteGuard(nil)
	}
	if len(d.Segments) == 0 {
		d.Segments = DefaultSegments
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Factory builds one compiled-in module. It runs on every reload so each
// snapshot gets fresh tool values.
type Factory func(Deps) tools.Module

// InTreeSource serves the modules compiled into the binary.
type InTreeSource struct {
	deps      Deps
	factories []Factory
}

var _ tools.SkillSource = (*InTreeSource)(nil)

// DefaultFactories are the modules every in-tree source serves.
var DefaultFactories = []Factory{LearningEngine, Watchers, Lenses, FinanceAI, Procurement, ToolFactory}

// NewInTreeSource returns the default modules plus any extra factories.
func NewInTreeSource(d Deps, extra ...Factory) *InTreeSource {
	return &InTreeSource{
		deps:      d.complete(),
		factories: append(append([]Factory(nil), DefaultFactories...), extra...),
	}
}

func (s *InTreeSource) Name() string { return InTreeSourceName }

func (s *InTreeSource) Modules(ctx context.Context) ([]tools.Module, error) {
	out := make([]tools.Module, 0, len(s.factories))
	for _, f := range s.factories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, f(s.deps))
	}
	return out, nil
}
