package scoring

import (
	_ "embed"
	"os"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"

	"github.com/totegamma/peerreview"
)

//go:embed synonyms.yaml
var defaultSynonymsYAML []byte

// SynonymTable maps a canonical term to its synonyms. All terms are stored
// normalized.
type SynonymTable struct {
	groups map[string]map[string]bool
}

var defaultSynonyms SynonymTable

func init() {
	var err error
	if defaultSynonyms, err = ParseSynonyms(defaultSynonymsYAML); err != nil {
		panic(err)
	}
}

// DefaultSynonyms returns the built-in table.
func DefaultSynonyms() SynonymTable {
	return defaultSynonyms
}

func ParseSynonyms(data []byte) (SynonymTable, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return SynonymTable{}, errors.Wrap(err, "failed to parse synonym table")
	}
	table := SynonymTable{groups: make(map[string]map[string]bool, len(raw))}
	for canonical, synonyms := range raw {
		key := peerreview.NormalizeTerm(canonical)
		if key == "" {
			continue
		}
		set, ok := table.groups[key]
		if !ok {
			set = make(map[string]bool, len(synonyms))
			table.groups[key] = set
		}
		for _, synonym := range synonyms {
			if s := peerreview.NormalizeTerm(synonym); s != "" && s != key {
				set[s] = true
			}
		}
	}
	return table, nil
}

// LoadSynonyms reads a table from path, falling back to the built-in table
// when path is empty.
func LoadSynonyms(path string) (SynonymTable, error) {
	if path == "" {
		return DefaultSynonyms(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return SynonymTable{}, errors.Wrapf(err, "failed to read synonym table %s", path)
	}
	return ParseSynonyms(data)
}

// Related reports whether a and b are linked through the table. The check
// is symmetric.
func (t SynonymTable) Related(a, b string) bool {
	a = peerreview.NormalizeTerm(a)
	b = peerreview.NormalizeTerm(b)
	if a == "" || b == "" {
		return false
	}
	if set, ok := t.groups[a]; ok && set[b] {
		return true
	}
	if set, ok := t.groups[b]; ok && set[a] {
		return true
	}
	return false
}

func (t SynonymTable) Len() int {
	return len(t.groups)
}
