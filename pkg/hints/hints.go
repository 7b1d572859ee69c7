// Package hints provides keyword-to-account mapping hints loaded from a
// YAML file. Hints take priority over mined transaction history when a
// counterparty account has to be guessed for an imported statement line.
package hints

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Hint represents one keyword-to-account rule.
type Hint struct {
	// Keyword is matched case-insensitively as a substring of the
	// transaction description.
	Keyword string `yaml:"keyword"`
	// Account is the counterparty account to book against.
	Account string `yaml:"account"`
}

// hintsFile represents the YAML file layout.
type hintsFile struct {
	Hints []Hint `yaml:"hints"`
}

// Mapper resolves transaction descriptions to counterparty accounts using
// the configured hints.
type Mapper struct {
	hints []Hint
}

// NewMapper creates a new Mapper from a YAML configuration file.
func NewMapper(configPath string) (*Mapper, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read hints file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Mapper from raw YAML content.
func Parse(data []byte) (*Mapper, error) {
	var file hintsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse hints YAML: %w", err)
	}

	hints := make([]Hint, 0, len(file.Hints))
	for _, hint := range file.Hints {
		if strings.TrimSpace(hint.Keyword) == "" || strings.TrimSpace(hint.Account) == "" {
			continue
		}
		hints = append(hints, Hint{
			Keyword: strings.ToLower(strings.TrimSpace(hint.Keyword)),
			Account: strings.TrimSpace(hint.Account),
		})
	}

	// Longer keywords first so the most specific hint wins.
	sort.SliceStable(hints, func(i, j int) bool {
		return len(hints[i].Keyword) > len(hints[j].Keyword)
	})

	return &Mapper{hints: hints}, nil
}

// Empty returns a Mapper with no hints; every lookup misses.
func Empty() *Mapper {
	return &Mapper{}
}

// AccountFor returns the counterparty account for a description, or ""
// when no hint matches.
func (m *Mapper) AccountFor(description string) string {
	needle := strings.ToLower(description)
	for _, hint := range m.hints {
		if strings.Contains(needle, hint.Keyword) {
			return hint.Account
		}
	}
	return ""
}

// Len returns the number of loaded hints.
func (m *Mapper) Len() int {
	return len(m.hints)
}
