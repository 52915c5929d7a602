package agent

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/rules"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

//go:embed prompts/*.md
var promptFS embed.FS

const sectionRule = "═══════════════════════════════════════════"

// PromptContext is what the dynamic sections render from.
type PromptContext struct {
	Tools []*tools.Tool
	Rules []rules.Rule
}

// promptSection is one block of the system instruction. Sections are
// joined in priority order; a section rendering "" is left out.
type promptSection interface {
	Name() string
	Priority() int
	Render(pc *PromptContext) string
}

type staticSection struct {
	name     string
	priority int
	text     string
}

func (s staticSection) Name() string { return s.name }
func (s staticSection) Priority() int { return s.priority }
func (s staticSection) Render(_ *PromptContext) string { return s.text }

// rulesSection lists the approved business rules.
type rulesSection struct{}

func (rulesSection) Name() string  { return "rules" }
func (rulesSection) Priority() int { return 50 }

func (rulesSection) Render(pc *PromptContext) string {
	if len(pc.Rules) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(banner("REGRAS DE NEGÓCIO APRENDIDAS"))
	b.WriteString("\n\n")
	for _, r := range pc.Rules {
		fmt.Fprintf(&b, "- `%s`: %s", r.ID, r.Description)
		if r.Condition != "" {
			fmt.Fprintf(&b, " (quando: %s)", r.Condition)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// toolsSection lists every callable tool with its one-line summary.
type toolsSection struct{}

func (toolsSection) Name() string  { return "tools" }
func (toolsSection) Priority() int { return 90 }

func (toolsSection) Render(pc *PromptContext) string {
	var b strings.Builder
	b.WriteString(banner(fmt.Sprintf("FERRAMENTAS ATIVAS (%d)", len(pc.Tools))))
	b.WriteString("\n\n")
	for _, t := range pc.Tools {
		summary := t.DocSummary()
		if summary == "" {
			summary = "Sem descrição"
		}
		fmt.Fprintf(&b, "- `%s`: %s\n", t.Name, summary)
	}
	return strings.TrimRight(b.String(), "\n")
}

func banner(title string) string {
	return sectionRule + "\n " + title + "\n" + sectionRule
}

var defaultSections = loadSections()

// loadSections reads the embedded static sections. The numeric file name
// prefix is the priority.
func loadSections() []promptSection {
	sections := []promptSection{rulesSection{}, toolsSection{}}
	entries, err := fs.ReadDir(promptFS, "prompts")
	if err != nil {
		logger.ErrorX(ModuleName, "read embedded prompts: %v", err)
		return sections
	}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		prio, label, _ := strings.Cut(name, "_")
		p, err := strconv.Atoi(prio)
		if err != nil {
			continue
		}
		data, err := promptFS.ReadFile(path.Join("prompts", e.Name()))
		if err != nil {
			continue
		}
		sections = append(sections, staticSection{name: label, priority: p, text: strings.TrimSpace(string(data))})
	}
	sort.SliceStable(sections, func(i, j int) bool { return sections[i].Priority() < sections[j].Priority() })
	return sections
}

// BuildSystemPrompt assembles the system instruction from the tools of the
// snapshot and the active business rules.
func BuildSystemPrompt(snap *tools.Snapshot, active []rules.Rule) string {
	pc := &PromptContext{Rules: active}
	if snap != nil {
		pc.Tools = snap.List()
	}
	parts := make([]string, 0, len(defaultSections))
	for _, s := range defaultSections {
		if text := s.Render(pc); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n") + "\n"
}
