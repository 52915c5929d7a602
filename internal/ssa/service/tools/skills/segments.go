package skills

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Segment groups the companies (CODEMP) reported together.
type Segment struct {
	Name      string
	Companies []int
}

// DefaultSegments is the group structure used when none is configured.
var DefaultSegments = []Segment{
	{Name: "ATACADO", Companies: []int{1, 5, 7}},
	{Name: "INDUSTRIA", Companies: []int{2, 6}},
}

// ParseSegments reads NAME=1+5+7 entries into segments sorted by name.
func ParseSegments(raw map[string]string) ([]Segment, error) {
	out := make([]Segment, 0, len(raw))
	for name, ids := range raw {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" {
			return nil, errors.New("segment without name")
		}
		seg := Segment{Name: name}
		for _, f := range strings.FieldsFunc(ids, func(r rune) bool { return r == '+' || r == ' ' || r == ';' }) {
			n, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("segment %s: invalid company %q", name, f)
			}
			seg.Companies = append(seg.Companies, n)
		}
		if len(seg.Companies) == 0 {
			return nil, fmt.Errorf("segment %s has no companies", name)
		}
		out = append(out, seg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type segments []Segment

// of returns the segment holding company emp.
func (s segments) of(emp int) (Segment, bool) {
	for _, seg := range s {
		for _, c := range seg.Companies {
			if c == emp {
				return seg, true
			}
		}
	}
	return Segment{}, false
}

// label is "ATACADO (1, 5, 7)", or "Empresa 9 (Outras)" outside any segment.
func (s segments) label(emp int) string {
	seg, ok := s.of(emp)
	if !ok {
		return fmt.Sprintf("Empresa %d (Outras)", emp)
	}
	return fmt.Sprintf("%s (%s)", seg.Name, joinInts(seg.Companies, ", "))
}

func (s segments) companies() []int {
	var out []int
	for _, seg := range s {
		out = append(out, seg.Companies...)
	}
	return out
}

func joinInts(ns []int, sep string) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, sep)
}
