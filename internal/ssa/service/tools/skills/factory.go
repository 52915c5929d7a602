package skills

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/gateway"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/guard"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools/render"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

const (
	ToolFactoryModule = "tool_factory"

	ProposeTool         = "propose_tool"
	ReviewToolProposal  = "review_tool_proposal"
	PublishToolProposal = "publish_tool_proposal"
	RollbackTool        = "rollback_tool"
	ListToolProposals   = "list_tool_proposals"
	CreateAgentSkill    = "create_agent_skill"

	StatusDraft     = "draft"
	StatusPublished = "published"

	// FactoryDir lives inside the skills directory; the leading underscore
	// keeps it out of manifest loading.
	FactoryDir = "_factory"

	proposalIDLayout = "20060102150405"
	previewLines     = 40
)

// Proposal is the metadata of one generated manifest awaiting review.
type Proposal struct {
	ID            string     `json:"proposal_id"`
	CreatedAt     time.Time  `json:"created_at"`
	Status        string     `json:"status"`
	Description   string     `json:"description"`
	TargetTable   string     `json:"target_table"`
	AgentName     string     `json:"agent_name"`
	SkillFile     string     `json:"skill_filename"`
	ToolName      string     `json:"function_name"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	PublishedPath string     `json:"published_path,omitempty"`
	BackupPath    string     `json:"backup_path,omitempty"`
}

// ToolFactory generates diagnostic skill manifests from a description and
// publishes them into the skills directory through a propose, review,
// publish flow with rollback to the previous version.
func ToolFactory(d Deps) tools.Module {
	m := tools.Module{Name: ToolFactoryModule}
	if d.Dir == "" {
		m.Err = errors.New("skills directory not configured")
		return m
	}
	f := &toolFactory{
		exec:      d.Exec,
		now:       d.Now,
		dir:       d.Dir,
		proposals: filepath.Join(d.Dir, FactoryDir, "proposals"),
		backups:   filepath.Join(d.Dir, FactoryDir, "backups"),
	}
	m.Tools = []*tools.Tool{
		{
			Name:    ProposeTool,
			Doc:     "Propõe uma nova ferramenta de diagnóstico a partir de uma descrição, sem publicar.",
			Params:  []tools.ParamSpec{tools.Param("description", tools.KindString)},
			Handler: f.proposeTool,
		},
		{
			Name:    ReviewToolProposal,
			Doc:     "Revisa uma proposta de ferramenta: metadados, validação de segurança e prévia do manifesto.",
			Params:  []tools.ParamSpec{tools.Param("proposal_id", tools.KindString)},
			Handler: f.review,
		},
		{
			Name:    PublishToolProposal,
			Doc:     "Publica uma proposta no diretório de skills, guardando backup da versão anterior.",
			Params:  []tools.ParamSpec{tools.Param("proposal_id", tools.KindString)},
			Handler: f.publishTool,
		},
		{
			Name:    RollbackTool,
			Doc:     "Restaura a versão anterior de uma skill a partir do backup mais recente.",
			Params:  []tools.ParamSpec{tools.Param("skill_filename", tools.KindString)},
			Handler: f.rollback,
		},
		{
			Name:    ListToolProposals,
			Doc:     "Lista as propostas de ferramentas (all, draft, published).",
			Params:  []tools.ParamSpec{tools.Optional("status", tools.KindString, "all")},
			Handler: f.list,
		},
		{
			Name:    CreateAgentSkill,
			Doc:     "Cria e publica imediatamente uma ferramenta. Prefira o fluxo propose/review/publish.",
			Params:  []tools.ParamSpec{tools.Param("description", tools.KindString)},
			Handler: f.create,
		},
	}
	return m
}

type toolFactory struct {
	exec      gateway.Executor
	now       func() time.Time
	dir       string
	proposals string
	backups   string
}

var (
	wordPattern = regexp.MustCompile(`[\p{L}0-9_]+`)
	idPattern   = regexp.MustCompile(`\b\d{4,}\b`)
	agentChars  = regexp.MustCompile(`[^a-z0-9_]+`)

	productionImpactWords = []string{"MATERIA", "MATÉRIA", "COMPOSI", "COMPOSIÇ"}
)

func descriptionKeywords(description string) []string {
	var out []string
	for _, w := range wordPattern.FindAllString(description, -1) {
		if len([]rune(w)) > 3 {
			out = append(out, strings.ToUpper(w))
		}
	}
	return out
}

func isProductionImpact(description string) bool {
	upper := strings.ToUpper(description)
	for _, w := range productionImpactWords {
		if strings.Contains(upper, w) {
			return true
		}
	}
	return false
}

// targetTable looks the keywords up in the data dictionary, then falls back
// to the product and invoice tables.
func (f *toolFactory) targetTable(ctx context.Context, description string, keywords []string) string {
	clauses := make([]string, 0, 3)
	for _, kw := range keywords[:min(3, len(keywords))] {
		kw = strings.ReplaceAll(kw, "'", "''")
		clauses = append(clauses, fmt.Sprintf("UPPER(DESCRTAB) LIKE '%%%s%%' OR NOMETAB LIKE '%%%s%%'", kw, kw))
	}
	sql := fmt.Sprintf("SELECT NOMETAB, DESCRTAB FROM TDDTAB WHERE (%s) AND ROWNUM <= 5", strings.Join(clauses, " OR "))
	if rs, err := f.exec.ExecuteQuery(ctx, sql); err == nil && rs.Len() > 0 {
		if name := strings.TrimSpace(fmt.Sprint(rs.Rows[0]["NOMETAB"])); name != "" && name != "<nil>" {
			return strings.ToUpper(name)
		}
	} else if err != nil {
		logger.DebugX(ModuleName, "table discovery failed: %v", err)
	}

	upper := strings.ToUpper(description)
	switch {
	case strings.Contains(upper, "PROD"):
		return "TGFPRO"
	case strings.Contains(upper, "NOTA") || strings.Contains(upper, "LANC"):
		return "TGFCAB"
	}
	return ""
}

// buildManifest generates the manifest for a proposal. Product codes quoted
// in the description become the default filter.
func buildManifest(description, table, agent string, ids []string) (*Manifest, string) {
	toolName := "diagnose_" + agent + "_issue"
	module := agent + "_helper"

	if isProductionImpact(description) {
		param := ParamManifest{Name: "produtos", Type: "str"}
		if len(ids) > 0 {
			def := any(strings.Join(ids, ", "))
			param.Default = &def
		}
		return &Manifest{Module: module, Tools: []ToolManifest{{
			Name:   toolName,
			Doc:    "Analisa duplicidade de produtos e seu impacto em fórmulas de produção e estoque. Gerado para: " + description,
			Kind:   KindSQL,
			Params: []ParamManifest{param},
			Title:  "### Relatório de Impacto de Produção e Duplicidade",
			Sections: []SectionManifest{
				{
					Title: "**1. Cadastro dos Produtos:**",
					SQL:   "SELECT CODPROD, DESCRPROD, MARCA, ATIVO FROM TGFPRO WHERE CODPROD IN ({{.produtos}})",
				},
				{
					Title: "**Vínculos em Fórmulas de Produção:**",
					SQL: "SELECT I.CODMATPRIMA AS CODPROD, P.DESCRPROD AS PROD_FINAL, I.QTDMISTURA, I.CODPROD AS COD_PAI " +
						"FROM TGFICP I JOIN TGFPRO P ON I.CODPROD = P.CODPROD WHERE I.CODMATPRIMA IN ({{.produtos}})",
					Empty: "Nenhum vínculo em fórmulas de produção encontrado.",
				},
				{
					Title: "**Posição de Estoque:**",
					SQL:   "SELECT CODPROD, SUM(ESTOQUE - RESERVADO) AS SALDO_DISPONIVEL FROM TGFEST WHERE CODPROD IN ({{.produtos}}) GROUP BY CODPROD",
				},
			},
		}}}, toolName
	}

	tm := ToolManifest{
		Name:  toolName,
		Doc:   fmt.Sprintf("Diagnóstico genérico para %s. Gerado para: %s", table, description),
		Kind:  KindSQL,
		Title: fmt.Sprintf("**Diagnóstico de %s:**", table),
		Empty: fmt.Sprintf("Nenhum registro encontrado em %s.", table),
	}
	if len(ids) > 0 {
		col := "NUNOTA"
		if strings.Contains(table, "PRO") || strings.Contains(table, "EST") {
			col = "CODPROD"
		}
		tm.SQL = fmt.Sprintf("SELECT * FROM %s WHERE %s IN (%s)", table, col, strings.Join(ids, ", "))
	} else {
		def := any(10)
		tm.Params = []ParamManifest{{Name: "limit", Type: "int", Default: &def}}
		tm.SQL = fmt.Sprintf("SELECT * FROM %s WHERE ROWNUM <= {{.limit}}", table)
	}
	return &Manifest{Module: module, Tools: []ToolManifest{tm}}, toolName
}

// vet builds every tool of the manifest and checks each query, rendered
// with the declared defaults, against the read-only SQL policy. Generated
// manifests may only hold SQL tools. It returns "" when the manifest passes.
func vet(man *Manifest) string {
	src := &ManifestSource{deps: Deps{}.complete()}
	for _, tm := range man.Tools {
		if k := strings.ToLower(tm.Kind); k != KindSQL && k != "" {
			return fmt.Sprintf("❌ SEGURANÇA: ferramentas geradas só podem ser do tipo sql (%s é %q).", tm.Name, tm.Kind)
		}
		if _, err := src.build(man.Module, tm); err != nil {
			return "Erro no manifesto gerado: " + err.Error()
		}

		args := tools.Args{}
		for _, p := range tm.Params {
			if p.Default != nil {
				args[p.Name] = *p.Default
			} else {
				args[p.Name] = "0"
			}
		}
		queries := []string{tm.SQL}
		if len(tm.Sections) > 0 {
			queries = queries[:0]
			for _, sec := range tm.Sections {
				queries = append(queries, sec.SQL)
			}
		}
		for _, q := range queries {
			tpl, err := parseTemplate(tm.Name, q)
			if err != nil {
				return "Erro no manifesto gerado: " + err.Error()
			}
			sql, err := execTemplate(tpl, args)
			if err != nil {
				return "Erro no manifesto gerado: " + err.Error()
			}
			if reason, ok := guard.ValidateSQL(guard.NormalizeSQL(sql)); !ok {
				return "❌ SEGURANÇA: " + reason
			}
		}
	}
	return ""
}

func (f *toolFactory) paths(id string) (meta, manifest string) {
	return filepath.Join(f.proposals, id+".json"), filepath.Join(f.proposals, id+".yaml")
}

func (f *toolFactory) ensureDirs() error {
	for _, d := range []string{f.proposals, f.backups} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (f *toolFactory) save(p *Proposal, man *Manifest) error {
	metaPath, manPath := f.paths(p.ID)
	meta, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	body, err := yaml.Marshal(man)
	if err != nil {
		return err
	}
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return err
	}
	return os.WriteFile(manPath, body, 0o644)
}

func (f *toolFactory) load(id string) (*Proposal, *Manifest, []byte, error) {
	id = filepath.Base(strings.TrimSpace(id))
	metaPath, manPath := f.paths(id)
	meta, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, nil, nil, err
	}
	var p Proposal
	if err := json.Unmarshal(meta, &p); err != nil {
		return nil, nil, nil, fmt.Errorf("decode proposal %s: %w", id, err)
	}
	body, err := os.ReadFile(manPath)
	if err != nil {
		return nil, nil, nil, err
	}
	var man Manifest
	if err := yaml.Unmarshal(body, &man); err != nil {
		return nil, nil, nil, fmt.Errorf("decode manifest %s: %w", id, err)
	}
	return &p, &man, body, nil
}

func (f *toolFactory) nextID() string {
	t := f.now()
	for {
		id := t.Format(proposalIDLayout)
		if meta, _ := f.paths(id); !exists(meta) {
			return id
		}
		t = t.Add(time.Second)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (f *toolFactory) proposeTool(ctx context.Context, args tools.Args) (string, error) {
	_, msg, err := f.propose(ctx, args.String("description"))
	return msg, err
}

// propose returns the stored proposal, or nil with the message explaining
// why none was created.
func (f *toolFactory) propose(ctx context.Context, description string) (*Proposal, string, error) {
	keywords := descriptionKeywords(description)
	if len(keywords) == 0 {
		return nil, "⚠️ Descrição muito curta para identificar o propósito da tool.", nil
	}
	table := f.targetTable(ctx, description, keywords)
	if table == "" {
		return nil, "❌ Não identifiquei tabela alvo. Tente mencionar domínio (produto, nota, estoque, financeiro).", nil
	}

	agent := "production_impact"
	if !isProductionImpact(description) {
		agent = strings.Trim(agentChars.ReplaceAllString(strings.ToLower(table), "_"), "_")
	}
	man, toolName := buildManifest(description, table, agent, idPattern.FindAllString(description, -1))
	if reason := vet(man); reason != "" {
		return nil, reason, nil
	}

	if err := f.ensureDirs(); err != nil {
		return nil, "", fmt.Errorf("create factory dirs: %w", err)
	}
	p := &Proposal{
		ID:          f.nextID(),
		CreatedAt:   f.now(),
		Status:      StatusDraft,
		Description: description,
		TargetTable: table,
		AgentName:   agent,
		SkillFile:   agent + "_helper.yaml",
		ToolName:    toolName,
	}
	if err := f.save(p, man); err != nil {
		return nil, "", fmt.Errorf("save proposal: %w", err)
	}
	logger.InfoX(ModuleName, "tool proposal %s created for %s", p.ID, p.SkillFile)

	return p, fmt.Sprintf("✅ Proposta criada: `%s`\n- Arquivo alvo: `%s`\n- Ferramenta: `%s`\n- Tabela foco: `%s`\n\n"+
		"Use `%s('%s')` para revisar e `%s('%s')` para publicar.",
		p.ID, p.SkillFile, p.ToolName, p.TargetTable, ReviewToolProposal, p.ID, PublishToolProposal, p.ID), nil
}

func (f *toolFactory) review(_ context.Context, args tools.Args) (string, error) {
	id := args.String("proposal_id")
	p, man, body, err := f.load(id)
	if err != nil {
		return fmt.Sprintf("❌ Proposta `%s` não encontrada.", id), nil
	}

	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	report := []string{
		fmt.Sprintf("### Revisão da Proposta `%s`", p.ID),
		fmt.Sprintf("- Status: **%s**", p.Status),
		fmt.Sprintf("- Arquivo alvo: `%s`", p.SkillFile),
		fmt.Sprintf("- Ferramenta: `%s`", p.ToolName),
		fmt.Sprintf("- Tabela foco: `%s`", p.TargetTable),
	}
	if reason := vet(man); reason != "" {
		report = append(report, fmt.Sprintf("- Segurança: **REPROVADO** (%s)", reason))
	} else {
		report = append(report, "- Segurança: **OK**")
	}
	report = append(report, "\n#### Prévia do manifesto\n```yaml\n"+strings.Join(lines[:min(previewLines, len(lines))], "\n")+"\n```")
	return strings.Join(report, "\n"), nil
}

func (f *toolFactory) publishTool(_ context.Context, args tools.Args) (string, error) {
	return f.publish(args.String("proposal_id"))
}

func (f *toolFactory) publish(id string) (string, error) {
	p, man, body, err := f.load(id)
	if err != nil {
		return fmt.Sprintf("❌ Proposta `%s` não encontrada.", id), nil
	}
	if reason := vet(man); reason != "" {
		return "❌ Publicação bloqueada por segurança: " + reason, nil
	}
	if err := f.ensureDirs(); err != nil {
		return "", fmt.Errorf("create factory dirs: %w", err)
	}

	target := filepath.Join(f.dir, p.SkillFile)
	backup, err := f.snapshot(p.SkillFile, p.ID)
	if err != nil {
		return "", fmt.Errorf("backup %s: %w", p.SkillFile, err)
	}
	if err := writeManifest(target, body); err != nil {
		return "", fmt.Errorf("publish %s: %w", p.SkillFile, err)
	}

	now := f.now()
	p.Status = StatusPublished
	p.PublishedAt = &now
	p.PublishedPath = target
	p.BackupPath = backup
	if err := f.save(p, man); err != nil {
		return "", fmt.Errorf("update proposal: %w", err)
	}
	logger.InfoX(ModuleName, "tool proposal %s published to %s", p.ID, target)

	msg := fmt.Sprintf("✅ Proposta `%s` publicada em `%s`.\nFerramenta disponível: `%s`.", p.ID, p.SkillFile, p.ToolName)
	if backup != "" {
		msg += fmt.Sprintf("\nBackup criado em `%s`.", backup)
	}
	return msg, nil
}

// writeManifest writes through a dot-prefixed temp file so the skills
// watcher only sees the complete file appear.
func writeManifest(target string, body []byte) error {
	tmp := filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".tmp")
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// snapshot copies the published skill file, if any, into the backups.
func (f *toolFactory) snapshot(skillFile, id string) (string, error) {
	current, err := os.ReadFile(filepath.Join(f.dir, skillFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	backup := filepath.Join(f.backups, fmt.Sprintf("%s.%s.%s.bak", skillFile, f.now().Format("20060102_150405"), id))
	return backup, os.WriteFile(backup, current, 0o644)
}

func (f *toolFactory) latestBackup(skillFile string) string {
	entries, err := os.ReadDir(f.backups)
	if err != nil {
		return ""
	}
	var matches []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), skillFile+".") && strings.HasSuffix(e.Name(), ".bak") {
			matches = append(matches, e.Name())
		}
	}
	if len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return filepath.Join(f.backups, matches[len(matches)-1])
}

func (f *toolFactory) rollback(_ context.Context, args tools.Args) (string, error) {
	skillFile := filepath.Base(strings.TrimSpace(args.String("skill_filename")))
	if !tools.IsManifest(skillFile) {
		skillFile = strings.TrimSuffix(skillFile, filepath.Ext(skillFile)) + ".yaml"
	}

	backup := f.latestBackup(skillFile)
	if backup == "" {
		return fmt.Sprintf("❌ Nenhum backup encontrado para `%s`.", skillFile), nil
	}
	body, err := os.ReadFile(backup)
	if err != nil {
		return "", fmt.Errorf("read backup: %w", err)
	}
	if err := writeManifest(filepath.Join(f.dir, skillFile), body); err != nil {
		return "", fmt.Errorf("restore %s: %w", skillFile, err)
	}
	logger.InfoX(ModuleName, "skill %s rolled back from %s", skillFile, filepath.Base(backup))
	return fmt.Sprintf("✅ Rollback concluído para `%s` usando backup `%s`.", skillFile, filepath.Base(backup)), nil
}

func (f *toolFactory) list(_ context.Context, args tools.Args) (string, error) {
	status := strings.ToLower(strings.TrimSpace(args.String("status")))
	if status == "" {
		status = "all"
	}

	entries, err := os.ReadDir(f.proposals)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read proposals: %w", err)
	}
	var rows []gateway.Row
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		p, _, _, err := f.load(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			logger.DebugX(ModuleName, "skipping proposal %s: %v", e.Name(), err)
			continue
		}
		if status != "all" && p.Status != status {
			continue
		}
		rows = append(rows, gateway.Row{
			"Proposta":   p.ID,
			"Status":     p.Status,
			"Arquivo":    p.SkillFile,
			"Ferramenta": p.ToolName,
			"Criada em":  p.CreatedAt.Format(time.DateTime),
		})
	}
	if len(rows) == 0 {
		return fmt.Sprintf("Nenhuma proposta encontrada para status `%s`.", status), nil
	}
	return fmt.Sprintf("### Propostas (%s)\n\n", status) +
		render.Table([]string{"Proposta", "Status", "Arquivo", "Ferramenta", "Criada em"}, rows), nil
}

func (f *toolFactory) create(ctx context.Context, args tools.Args) (string, error) {
	p, proposed, err := f.propose(ctx, args.String("description"))
	if err != nil || p == nil {
		return proposed, err
	}
	published, err := f.publish(p.ID)
	if err != nil {
		return "", err
	}
	return proposed + "\n\n" + published, nil
}
