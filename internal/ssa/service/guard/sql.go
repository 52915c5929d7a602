package guard

import (
	"regexp"
	"strings"
)

// Reasons returned by ValidateSQL. Callers surface them verbatim to the model
// and to the user, and the self-correction fingerprints match on ReasonSemicolon.
const (
	ReasonNotSelect = "❌ BLOQUEADO: Apenas queries SELECT (ou WITH...SELECT) são permitidas."
	ReasonSemicolon = "❌ BLOQUEADO: Ponto-e-vírgula detectado. Apenas um statement por vez."
	ReasonComments  = "❌ BLOQUEADO: Comentários SQL não são permitidos."
)

// ForbiddenKeywords are DML/DDL/transaction keywords that are never executed.
var ForbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "TRUNCATE", "ALTER",
	"CREATE", "REPLACE", "MERGE", "GRANT", "REVOKE",
	"EXEC", "EXECUTE", "CALL", "BEGIN", "DECLARE",
	"COMMIT", "ROLLBACK", "SAVEPOINT",
}

var (
	forbiddenPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(ForbiddenKeywords, "|") + `)\b`)
	leadingForbidden = regexp.MustCompile(`(?i)^\s*(` + strings.Join(ForbiddenKeywords, "|") + `)\b`)
	literalPattern   = regexp.MustCompile(`'[^']*'`)
)

// NormalizeSQL trims the statement and drops any trailing semicolons.
func NormalizeSQL(sql string) string {
	cleaned := strings.TrimSpace(sql)
	for strings.HasSuffix(cleaned, ";") {
		cleaned = strings.TrimRightFunc(strings.TrimSuffix(cleaned, ";"), isSpace)
	}
	return cleaned
}

// StripStringLiterals replaces the body of every single-quoted literal with
// an empty literal so that quoted text cannot trigger the later checks.
func StripStringLiterals(sql string) string {
	return literalPattern.ReplaceAllString(sql, "''")
}

// ValidateSQL decides whether sql is a single read-only statement.
// It returns ok=true when the query may run, otherwise the reason it was
// blocked. Checks run in a fixed order and the first failure wins.
func ValidateSQL(sql string) (reason string, ok bool) {
	cleaned := NormalizeSQL(sql)

	upper := strings.ToUpper(cleaned)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return NotSelectReason(cleaned), false
	}

	sanitized := StripStringLiterals(cleaned)
	if strings.Contains(sanitized, ";") {
		return ReasonSemicolon, false
	}

	if strings.Contains(sanitized, "--") || strings.Contains(sanitized, "/*") {
		return ReasonComments, false
	}

	if m := forbiddenPattern.FindStringSubmatch(sanitized); m != nil {
		return ForbiddenReason(m[1]), false
	}

	return "", true
}

// NotSelectReason is ReasonNotSelect, naming the leading keyword of stmt
// when it is deny-listed.
func NotSelectReason(stmt string) string {
	if m := leadingForbidden.FindStringSubmatch(StripStringLiterals(stmt)); m != nil {
		return ReasonNotSelect + " Comando proibido '" + strings.ToUpper(m[1]) + "' detectado."
	}
	return ReasonNotSelect
}

// ForbiddenReason renders the block reason for a deny-listed keyword.
func ForbiddenReason(keyword string) string {
	return "❌ BLOQUEADO: Comando proibido '" + strings.ToUpper(keyword) + "' detectado na query."
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}
