package guard

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ActionKind selects which allowlist guards a side-effecting action.
type ActionKind string

const (
	// ActionService is a call to a named remote ERP service.
	ActionService ActionKind = "service"
	// ActionEntity is a save (insert or update) on a named entity.
	ActionEntity ActionKind = "entity"
)

// Environment keys read by EnvSource.
const (
	EnvEnableWrite     = "SSA_ENABLE_WRITE"
	EnvServiceAllow    = "SSA_SERVICE_ALLOWLIST"
	EnvEntityAllowList = "SSA_WRITE_ENTITY_ALLOWLIST"
)

var truthy = map[string]struct{}{"1": {}, "true": {}, "yes": {}, "y": {}, "on": {}}

// Source provides the guard configuration. It is consulted on every check so
// operators can flip writes on or off without a restart.
type Source interface {
	WritesEnabled() bool
	Allowlist(kind ActionKind) []string
}

// EnvSource reads the guard configuration from the process environment.
type EnvSource struct {
	// Lookup defaults to os.Getenv.
	Lookup func(string) string
}

func (s EnvSource) get(key string) string {
	if s.Lookup != nil {
		return s.Lookup(key)
	}
	return os.Getenv(key)
}

func (s EnvSource) WritesEnabled() bool {
	return IsTruthy(s.get(EnvEnableWrite))
}

func (s EnvSource) Allowlist(kind ActionKind) []string {
	return ParseCSV(s.get(AllowlistEnv(kind)))
}

// StaticSource is a fixed configuration, used by tests and by config files.
type StaticSource struct {
	Enabled  bool
	Services []string
	Entities []string
}

func (s StaticSource) WritesEnabled() bool { return s.Enabled }

func (s StaticSource) Allowlist(kind ActionKind) []string {
	switch kind {
	case ActionService:
		return s.Services
	case ActionEntity:
		return s.Entities
	}
	return nil
}

// AllowlistEnv returns the environment key holding the allowlist for kind.
func AllowlistEnv(kind ActionKind) string {
	if kind == ActionService {
		return EnvServiceAllow
	}
	return EnvEntityAllowList
}

// IsTruthy reports whether v is one of 1/true/yes/y/on, case-insensitively.
func IsTruthy(v string) bool {
	_, ok := truthy[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// ParseCSV splits a comma separated list, dropping blanks.
func ParseCSV(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// BlockCode says which of the two gate conditions failed.
type BlockCode int

const (
	NotBlocked BlockCode = iota
	BlockedDisabled
	BlockedEmptyAllowlist
	BlockedNotAllowed
)

// Decision is the outcome of WriteGuard.Check.
type Decision struct {
	Kind      ActionKind
	ID        string
	Action    string
	Code      BlockCode
	Allowlist []string
}

// Allowed reports whether the action may proceed.
func (d Decision) Allowed() bool { return d.Code == NotBlocked }

// Message renders the user-facing text of a blocked decision.
func (d Decision) Message() string {
	env := AllowlistEnv(d.Kind)
	switch d.Code {
	case BlockedDisabled:
		return blockedMessage(d.Action, fmt.Sprintf(
			"Se for realmente necessário, permita itens específicos via `%s` (CSV).", env))
	case BlockedEmptyAllowlist:
		return blockedMessage(d.Action, fmt.Sprintf(
			"Allowlist vazia: defina `%s=ItemA,ItemB` para liberar explicitamente.", env))
	case BlockedNotAllowed:
		noun := "serviço"
		if d.Kind == ActionEntity {
			noun = "entidade"
		}
		return fmt.Sprintf("❌ BLOQUEADO: %s `%s` não está na allowlist.\n\nAllowlist atual (`%s`): %s",
			noun, d.ID, env, strings.Join(d.Allowlist, ", "))
	}
	return ""
}

func blockedMessage(action, hint string) string {
	return fmt.Sprintf("❌ BLOQUEADO: operação de escrita (%s) desabilitada por padrão.\n\n"+
		"Para habilitar, defina `%s=1` e configure uma allowlist apropriada.\n\n%s", action, EnvEnableWrite, hint)
}

// WriteGuard gates side-effecting actions behind a global flag AND a
// per-kind allowlist. An empty allowlist blocks everything.
type WriteGuard struct {
	src Source
}

// NewWriteGuard creates a guard over src; a nil src reads the environment.
func NewWriteGuard(src Source) *WriteGuard {
	if src == nil {
		src = EnvSource{}
	}
	return &WriteGuard{src: src}
}

// Check decides whether action id of the given kind may run. action is a
// short label for the blocked message, e.g. "save_record -> Parceiro".
func (g *WriteGuard) Check(kind ActionKind, id, action string) Decision {
	d := Decision{Kind: kind, ID: id, Action: action}
	if !g.src.WritesEnabled() {
		d.Code = BlockedDisabled
		return d
	}

	allow := g.src.Allowlist(kind)
	if len(allow) == 0 {
		d.Code = BlockedEmptyAllowlist
		return d
	}

	for _, item := range allow {
		if item == id {
			return d
		}
	}

	seen := make(map[string]struct{}, len(allow))
	sorted := make([]string, 0, len(allow))
	for _, item := range allow {
		if _, dup := seen[item]; !dup {
			seen[item] = struct{}{}
			sorted = append(sorted, item)
		}
	}
	sort.Strings(sorted)
	d.Code = BlockedNotAllowed
	d.Allowlist = sorted
	return d
}
