package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	defaultK         = 200
	defaultTopN      = 15
	defaultThreshold = 0.78
)

type GraphStreamRequest struct {
	Worldview string  `json:"worldview"`
	K         int     `json:"k"`
	TopN      int     `json:"topN"`
	Threshold float64 `json:"threshold"`
}

type GraphExpandRequest struct {
	ParentID  string  `json:"parentId"`
	Worldview string  `json:"worldview"`
	ParentHop int     `json:"parentHop"`
	K         int     `json:"k"`
	TopN      int     `json:"topN"`
	Threshold float64 `json:"threshold"`
}

func validateWorldview(worldview string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(worldview))
	if n < 4 || n > 2000 {
		return errors.New("worldview must be 4-2000 characters")
	}
	return nil
}

func (r *GraphStreamRequest) normalize() error {
	if err := validateWorldview(r.Worldview); err != nil {
		return err
	}
	if r.K == 0 {
		r.K = defaultK
	}
	if r.TopN == 0 {
		r.TopN = defaultTopN
	}
	if r.Threshold == 0 {
		r.Threshold = defaultThreshold
	}
	if r.K < 1 || r.K > 1000 {
		return fmt.Errorf("k must be 1-1000")
	}
	if r.TopN < 1 || r.TopN > 100 {
		return fmt.Errorf("topN must be 1-100")
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		return errors.New("threshold must be in [0,1]")
	}
	return nil
}

func (r *GraphExpandRequest) normalize() error {
	if strings.TrimSpace(r.ParentID) == "" {
		return errors.New("parentId is required")
	}
	if r.ParentHop < 0 {
		return errors.New("parentHop must be non-negative")
	}
	base := GraphStreamRequest{Worldview: r.Worldview, K: r.K, TopN: r.TopN, Threshold: r.Threshold}
	if err := base.normalize(); err != nil {
		return err
	}
	r.K, r.TopN, r.Threshold = base.K, base.TopN, base.Threshold
	return nil
}
