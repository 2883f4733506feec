package client

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Bounds mirror what the backend enforces on its side; rejecting early
// saves a round trip.
const (
	minWorldviewLen = 4
	maxWorldviewLen = 2000
	maxK            = 1000
	maxTopN         = 100
)

// BuildRequest starts a graph build from a worldview sentence.
type BuildRequest struct {
	Worldview string  `json:"worldview"`
	K         int     `json:"k"`
	TopN      int     `json:"topN"`
	Threshold float64 `json:"threshold"`
}

// ExpandRequest grows an existing graph from one of its nodes.
type ExpandRequest struct {
	ParentID  string  `json:"parentId"`
	Worldview string  `json:"worldview"`
	ParentHop int     `json:"parentHop"`
	K         int     `json:"k"`
	TopN      int     `json:"topN"`
	Threshold float64 `json:"threshold"`
}

func validateCommon(worldview string, k, topN int, threshold float64) error {
	n := utf8.RuneCountInString(strings.TrimSpace(worldview))
	if n < minWorldviewLen || n > maxWorldviewLen {
		return fmt.Errorf("worldview must be %d-%d characters", minWorldviewLen, maxWorldviewLen)
	}
	if k < 1 || k > maxK {
		return fmt.Errorf("k must be 1-%d", maxK)
	}
	if topN < 1 || topN > maxTopN {
		return fmt.Errorf("topN must be 1-%d", maxTopN)
	}
	if threshold < 0 || threshold > 1 {
		return errors.New("threshold must be in [0,1]")
	}
	return nil
}

func (r BuildRequest) Validate() error {
	return validateCommon(r.Worldview, r.K, r.TopN, r.Threshold)
}

func (r ExpandRequest) Validate() error {
	if strings.TrimSpace(r.ParentID) == "" {
		return errors.New("parentId is required")
	}
	if r.ParentHop < 0 {
		return errors.New("parentHop must be non-negative")
	}
	return validateCommon(r.Worldview, r.K, r.TopN, r.Threshold)
}
