package rules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kiosk404/sankhya-agent/pkg/logger"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

const ModuleName = "rules"

// FileStore keeps rules in a JSON document shared with operators, so keys it
// does not know about are written back untouched.
type FileStore struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store backed by path. The file is created on the
// first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

func (s *FileStore) Path() string { return s.path }

// rawDoc holds the top-level keys plus the two rule collections decoded.
type rawDoc struct {
	extra map[string]any
	doc   Document
}

func (s *FileStore) read() (*rawDoc, error) {
	raw := &rawDoc{extra: map[string]any{}}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return raw, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return raw, nil
	}

	if err := json.Unmarshal(data, &raw.extra); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &raw.doc); err != nil {
		return nil, fmt.Errorf("decode rules in %s: %w", s.path, err)
	}
	delete(raw.extra, keyMapping)
	delete(raw.extra, keyProposed)
	return raw, nil
}

// write replaces the file through a temp file and rename.
func (s *FileStore) write(raw *rawDoc) error {
	out := make(map[string]any, len(raw.extra)+2)
	for k, v := range raw.extra {
		out[k] = v
	}
	mapping := raw.doc.MappingRules
	if mapping == nil {
		mapping = []Rule{}
	}
	proposed := raw.doc.ProposedRules
	if proposed == nil {
		proposed = []Rule{}
	}
	out[keyMapping] = mapping
	out[keyProposed] = proposed

	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".business_rules-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Propose(_ context.Context, r Rule) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.read()
	if err != nil {
		return 0, err
	}
	if findRule(raw.doc.ProposedRules, r.ID) >= 0 {
		return AlreadyPending, nil
	}
	if findRule(raw.doc.MappingRules, r.ID) >= 0 {
		return AlreadyActive, nil
	}

	raw.doc.ProposedRules = append(raw.doc.ProposedRules, pending(r, s.now()))
	if err := s.write(raw); err != nil {
		return 0, err
	}
	logger.InfoX(ModuleName, "rule %s proposed", r.ID)
	return Proposed, nil
}

func (s *FileStore) Approve(_ context.Context, id string) (Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.read()
	if err != nil {
		return Rule{}, err
	}
	i := findRule(raw.doc.ProposedRules, id)
	if i < 0 {
		return Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}

	rule := activated(raw.doc.ProposedRules[i], s.now())
	raw.doc.ProposedRules = append(raw.doc.ProposedRules[:i], raw.doc.ProposedRules[i+1:]...)
	raw.doc.MappingRules = append(raw.doc.MappingRules, rule)
	if err := s.write(raw); err != nil {
		return Rule{}, err
	}
	logger.InfoX(ModuleName, "rule %s approved", id)
	return rule, nil
}

func (s *FileStore) List(_ context.Context) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.read()
	if err != nil {
		return Document{}, err
	}
	return raw.doc, nil
}

// Active returns the mapping rules. Rules written by hand carry no status and
// count as active.
func (s *FileStore) Active(ctx context.Context) ([]Rule, error) {
	doc, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Rule, 0, len(doc.MappingRules))
	for _, r := range doc.MappingRules {
		if r.Status == "" {
			r.Status = StatusActive
		}
		out = append(out, r)
	}
	return out, nil
}
