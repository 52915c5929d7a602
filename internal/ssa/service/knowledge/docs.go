package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

const (
	schemaMapFile   = "schema_map.json"
	snippetsPerFile = 3
)

// Docs reads plain documentation files from a directory.
type Docs struct {
	Dir string
}

// DocHit is one file matching a documentation search.
type DocHit struct {
	File     string
	Snippets []string
}

// Search returns, per file containing query (case-insensitive), up to three
// snippets made of the matching line, one line before and two after.
// Unreadable files are skipped.
func (d Docs) Search(query string) ([]DocHit, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.Dir, err)
	}
	q := strings.ToLower(query)

	var hits []DocHit
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(d.Dir, e.Name()))
		if err != nil {
			continue
		}
		content := string(data)
		if !strings.Contains(strings.ToLower(content), q) {
			continue
		}

		lines := strings.Split(content, "\n")
		hit := DocHit{File: e.Name()}
		for i, line := range lines {
			if !strings.Contains(strings.ToLower(line), q) {
				continue
			}
			start := max(0, i-1)
			end := min(len(lines), i+3)
			hit.Snippets = append(hit.Snippets, strings.Join(lines[start:end], "\n"))
			if len(hit.Snippets) >= snippetsPerFile {
				break
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// TableEntry is one row of the schema map.
type TableEntry struct {
	Table       string
	Description string
}

// Tables reads schema_map.json, a table name to description object, sorted
// by table name.
func (d Docs) Tables() ([]TableEntry, error) {
	data, err := os.ReadFile(filepath.Join(d.Dir, schemaMapFile))
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", schemaMapFile, err)
	}
	out := make([]TableEntry, 0, len(m))
	for k, v := range m {
		desc, ok := v.(string)
		if !ok {
			desc = fmt.Sprint(v)
		}
		out = append(out, TableEntry{Table: k, Description: desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })
	return out, nil
}
