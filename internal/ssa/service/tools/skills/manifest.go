package skills

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/jinzhu/copier"
	"gopkg.in/yaml.v3"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/guard"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/render"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

// Manifest tool kinds.
const (
	KindSQL     = "sql"
	KindService = "service"
)

// Manifest is one skill file.
type Manifest struct {
	Module string         `yaml:"module,omitempty" json:"module,omitempty"`
	Tools  []ToolManifest `yaml:"tools" json:"tools"`
}

// ToolManifest declares one tool. SQL and Body are text/template sources
// rendered with the call arguments.
type ToolManifest struct {
	Name    string          `yaml:"name" json:"name"`
	Doc     string          `yaml:"doc" json:"doc"`
	Kind    string          `yaml:"kind,omitempty" json:"kind,omitempty"`
	Params  []ParamManifest `yaml:"params,omitempty" json:"params,omitempty" copier:"-"`
	SQL     string          `yaml:"sql,omitempty" json:"sql,omitempty"`
	Service string          `yaml:"service,omitempty" json:"service,omitempty"`
	Body    string          `yaml:"body,omitempty" json:"body,omitempty"`
	// Title heads the result table; Empty replaces it when no row came back.
	Title string `yaml:"title,omitempty" json:"title,omitempty"`
	Empty string `yaml:"empty,omitempty" json:"empty,omitempty"`
	// Sections replace SQL with several queries rendered in order under
	// Title, followed by Footer.
	Sections []SectionManifest `yaml:"sections,omitempty" json:"sections,omitempty"`
	Footer   string            `yaml:"footer,omitempty" json:"footer,omitempty"`
}

// SectionManifest is one query of a multi-section SQL tool.
type SectionManifest struct {
	Title string `yaml:"title,omitempty" json:"title,omitempty"`
	SQL   string `yaml:"sql" json:"sql"`
	Empty string `yaml:"empty,omitempty" json:"empty,omitempty"`
}

// ParamManifest declares one parameter. A parameter without default is
// required.
type ParamManifest struct {
	Name    string `yaml:"name" json:"name"`
	Type    string `yaml:"type,omitempty" json:"type,omitempty"`
	Default *any   `yaml:"default,omitempty" json:"default,omitempty"`
}

var declaredKinds = map[string]tools.Kind{
	"":        tools.KindString,
	"str":     tools.KindString,
	"string":  tools.KindString,
	"int":     tools.KindInteger,
	"integer": tools.KindInteger,
	"float":   tools.KindNumber,
	"number":  tools.KindNumber,
	"bool":    tools.KindBoolean,
	"boolean": tools.KindBoolean,
	"list":    tools.KindArray,
	"array":   tools.KindArray,
	"dict":    tools.KindObject,
	"object":  tools.KindObject,
}

// ManifestSource reads skill manifests from a directory on every reload.
type ManifestSource struct {
	dir  string
	deps Deps
}

var _ tools.SkillSource = (*ManifestSource)(nil)

func NewManifestSource(dir string, d Deps) *ManifestSource {
	return &ManifestSource{dir: dir, deps: d.complete()}
}

func (s *ManifestSource) Name() string { return ManifestSourceName }

func (s *ManifestSource) Dir() string { return s.dir }

// Modules loads every manifest of the directory in file name order. A
// missing directory yields no modules; a broken file yields a module
// carrying its error.
func (s *ManifestSource) Modules(ctx context.Context) ([]tools.Module, error) {
	if s.dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read skills dir: %w", err)
	}

	var out []tools.Module
	for _, e := range entries {
		if e.IsDir() || !tools.IsManifest(e.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, s.load(filepath.Join(s.dir, e.Name())))
	}
	return out, nil
}

func (s *ManifestSource) load(path string) tools.Module {
	base := filepath.Base(path)
	m := tools.Module{Name: strings.TrimSuffix(base, filepath.Ext(base))}

	man, err := ParseManifest(path)
	if err != nil {
		m.Err = err
		return m
	}
	if man.Module != "" {
		m.Name = man.Module
	}

	for _, tm := range man.Tools {
		// undocumented or private entries are not exposed
		if strings.TrimSpace(tm.Doc) == "" || strings.HasPrefix(tm.Name, "_") {
			logger.DebugX(ModuleName, "skill %s: skipping %q", m.Name, tm.Name)
			continue
		}
		tool, err := s.build(m.Name, tm)
		if err != nil {
			m.Err = fmt.Errorf("%s: %w", base, err)
			m.Tools = nil
			return m
		}
		m.Tools = append(m.Tools, tool)
	}
	return m
}

// ParseManifest decodes a YAML or JSON manifest file.
func ParseManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var man Manifest
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &man)
	} else {
		err = yaml.Unmarshal(data, &man)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return &man, nil
}

func (s *ManifestSource) build(module string, raw ToolManifest) (*tools.Tool, error) {
	if raw.Name == "" {
		return nil, errors.New("tool without name")
	}
	// the handler closes over a private copy of the declaration
	var tm ToolManifest
	if err := copier.CopyWithOption(&tm, &raw, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}

	params := make([]tools.ParamSpec, 0, len(raw.Params))
	for _, p := range raw.Params {
		kind, ok := declaredKinds[strings.ToLower(p.Type)]
		if !ok {
			return nil, fmt.Errorf("tool %s: unknown type %q for %s", tm.Name, p.Type, p.Name)
		}
		if p.Default != nil {
			params = append(params, tools.Optional(p.Name, kind, *p.Default))
		} else {
			params = append(params, tools.Param(p.Name, kind))
		}
	}

	t := &tools.Tool{Name: tm.Name, Doc: tm.Doc, Params: params, Source: module}
	switch strings.ToLower(tm.Kind) {
	case KindSQL, "":
		if len(tm.Sections) > 0 {
			tpls := make([]*template.Template, len(tm.Sections))
			for i, sec := range tm.Sections {
				tpl, err := parseTemplate(fmt.Sprintf("%s#%d", tm.Name, i), sec.SQL)
				if err != nil {
					return nil, err
				}
				tpls[i] = tpl
			}
			t.Handler = s.sectionsHandler(tm, tpls)
			break
		}
		tpl, err := parseTemplate(tm.Name, tm.SQL)
		if err != nil {
			return nil, err
		}
		t.Handler = s.sqlHandler(tm, tpl)
	case KindService:
		if tm.Service == "" {
			return nil, fmt.Errorf("tool %s: service name missing", tm.Name)
		}
		tpl, err := parseTemplate(tm.Name, tm.Body)
		if err != nil {
			return nil, err
		}
		t.Handler = s.serviceHandler(tm, tpl)
	default:
		return nil, fmt.Errorf("tool %s: unknown kind %q", tm.Name, tm.Kind)
	}
	return t, nil
}

var templateFuncs = template.FuncMap{
	// quote renders a SQL string literal.
	"quote": func(v any) string {
		return "'" + strings.ReplaceAll(fmt.Sprint(v), "'", "''") + "'"
	},
	"json": func(v any) (string, error) {
		return json.MarshalString(v)
	},
}

func parseTemplate(name, src string) (*template.Template, error) {
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("tool %s: empty template", name)
	}
	tpl, err := template.New(name).Funcs(templateFuncs).Option("missingkey=zero").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	return tpl, nil
}

func execTemplate(tpl *template.Template, args tools.Args) (string, error) {
	data := make(map[string]any, len(args))
	for k := range args {
		// whole floats would otherwise print as 1e+06
		if _, ok := args[k].(float64); ok {
			data[k] = args.String(k)
			continue
		}
		data[k] = args[k]
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *ManifestSource) sqlHandler(tm ToolManifest, tpl *template.Template) tools.Handler {
	return func(ctx context.Context, args tools.Args) (string, error) {
		sql, err := execTemplate(tpl, args)
		if err != nil {
			return "", fmt.Errorf("render sql: %w", err)
		}
		sql = guard.NormalizeSQL(sql)
		if reason, ok := guard.ValidateSQL(sql); !ok {
			return reason, nil
		}

		rs, err := s.deps.Exec.ExecuteQuery(ctx, sql)
		if err != nil {
			return fmt.Sprintf("❌ Erro ao executar %s: %s", tm.Name, err), nil
		}
		if rs.Len() == 0 {
			if tm.Empty != "" {
				return tm.Empty, nil
			}
			return "A consulta não retornou registros.", nil
		}
		if tm.Title != "" {
			return tm.Title + "\n\n" + render.ResultTable(rs), nil
		}
		return render.CountHeader(rs.Len()) + render.ResultTable(rs), nil
	}
}

func (s *ManifestSource) sectionsHandler(tm ToolManifest, tpls []*template.Template) tools.Handler {
	return func(ctx context.Context, args tools.Args) (string, error) {
		var parts []string
		if tm.Title != "" {
			parts = append(parts, tm.Title)
		}
		for i, tpl := range tpls {
			sec := tm.Sections[i]
			sql, err := execTemplate(tpl, args)
			if err != nil {
				return "", fmt.Errorf("render sql: %w", err)
			}
			sql = guard.NormalizeSQL(sql)
			if reason, ok := guard.ValidateSQL(sql); !ok {
				return reason, nil
			}

			rs, err := s.deps.Exec.ExecuteQuery(ctx, sql)
			if err != nil {
				return fmt.Sprintf("❌ Erro ao executar %s: %s", tm.Name, err), nil
			}
			switch {
			case rs.Len() == 0 && sec.Empty != "":
				parts = append(parts, sec.Empty)
			case sec.Title != "":
				parts = append(parts, sec.Title+"\n"+render.ResultTable(rs))
			default:
				parts = append(parts, render.ResultTable(rs))
			}
		}
		if tm.Footer != "" {
			parts = append(parts, tm.Footer)
		}
		return strings.Join(parts, "\n\n"), nil
	}
}

func (s *ManifestSource) serviceHandler(tm ToolManifest, tpl *template.Template) tools.Handler {
	return func(ctx context.Context, args tools.Args) (string, error) {
		d := s.deps.Guard.Check(guard.ActionService, tm.Service, tm.Name+" -> "+tm.Service)
		if !d.Allowed() {
			return d.Message(), nil
		}

		raw, err := execTemplate(tpl, args)
		if err != nil {
			return "", fmt.Errorf("render body: %w", err)
		}
		var body map[string]any
		if err := json.UnmarshalString(raw, &body); err != nil {
			return "", fmt.Errorf("body of %s is not a JSON object: %w", tm.Name, err)
		}

		out, err := s.deps.Exec.CallService(ctx, tm.Service, body)
		if err != nil {
			return fmt.Sprintf("❌ Erro ao executar serviço `%s`: %s", tm.Service, err), nil
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("✅ Serviço `%s` executado com sucesso:\n\n```json\n%s\n```", tm.Service, data), nil
	}
}
