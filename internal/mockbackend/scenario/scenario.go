// Package scenario loads canned pipeline content so the mock backend
// can replay realistic, deterministic streams during development.
package scenario

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/worldviewlab/claimgraph/internal/graph"
)

// Claim is one canned derivative claim. A zero Confidence marks the
// claim as failing verification.
type Claim struct {
	Label      string         `yaml:"label"`
	Confidence float64        `yaml:"confidence"`
	Rationale  string         `yaml:"rationale"`
	Similarity float64        `yaml:"similarity"`
	Queries    []string       `yaml:"queries"`
	Sources    []graph.Source `yaml:"sources"`
	Market     *graph.Market  `yaml:"market"`
}

type Entry struct {
	// Match is a case-insensitive substring tested against the worldview.
	Match  string  `yaml:"match"`
	Claims []Claim `yaml:"claims"`
}

type Scenario struct {
	Worldviews []Entry `yaml:"worldviews"`
}

func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	for i, e := range s.Worldviews {
		if strings.TrimSpace(e.Match) == "" {
			return nil, fmt.Errorf("scenario %s: worldviews[%d] missing match", path, i)
		}
	}
	return &s, nil
}

// Find returns the claims of the first entry whose match occurs in the
// worldview, or nil.
func (s *Scenario) Find(worldview string) []Claim {
	if s == nil {
		return nil
	}
	w := strings.ToLower(worldview)
	for _, e := range s.Worldviews {
		if strings.Contains(w, strings.ToLower(e.Match)) {
			return e.Claims
		}
	}
	return nil
}
