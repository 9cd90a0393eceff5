package domain

import "time"

type BucketState string

const (
	BucketEmpty     BucketState = "empty"
	BucketSingle    BucketState = "single"
	BucketRedundant BucketState = "redundant"
)

func StateForCount(count int) BucketState {
	switch {
	case count <= 0:
		return BucketEmpty
	case count == 1:
		return BucketSingle
	default:
		return BucketRedundant
	}
}

// Classification is the derived category and per-dimension filter values of a
// guide. A dimension absent from the map is uncategorized for that guide.
type Classification struct {
	Category   Category            `json:"category"`
	Dimensions map[string][]string `json:"dimensions,omitempty"`
}

func (c Classification) Has(dimension, value string) bool {
	for _, v := range c.Dimensions[dimension] {
		if v == value {
			return true
		}
	}
	return false
}

type BucketRef struct {
	Dimension string `json:"dimension"`
	Value     string `json:"value"`
}

// BucketCoverage is the set of approved guides satisfying one filter value.
type BucketCoverage struct {
	Dimension string      `json:"dimension"`
	Value     string      `json:"value"`
	Label     string      `json:"label"`
	Scope     Category    `json:"scope,omitempty"`
	Count     int         `json:"count"`
	GuideIDs  []string    `json:"guide_ids"`
	State     BucketState `json:"state"`
}

func (b BucketCoverage) Ref() BucketRef {
	return BucketRef{Dimension: b.Dimension, Value: b.Value}
}

type CoverageReport struct {
	GeneratedAt   time.Time           `json:"generated_at"`
	GuidesScanned int                 `json:"guides_scanned"`
	Buckets       []BucketCoverage    `json:"buckets"`
	Uncategorized map[string][]string `json:"uncategorized,omitempty"`
}

func (r CoverageReport) Bucket(dimension, value string) (BucketCoverage, bool) {
	for _, b := range r.Buckets {
		if b.Dimension == dimension && b.Value == value {
			return b, true
		}
	}
	return BucketCoverage{}, false
}

// Gaps lists the empty buckets in configuration order.
func (r CoverageReport) Gaps() []BucketCoverage {
	out := make([]BucketCoverage, 0)
	for _, b := range r.Buckets {
		if b.State == BucketEmpty {
			out = append(out, b)
		}
	}
	return out
}

func (r CoverageReport) Dimension(name string) []BucketCoverage {
	out := make([]BucketCoverage, 0)
	for _, b := range r.Buckets {
		if b.Dimension == name {
			out = append(out, b)
		}
	}
	return out
}

// StateCounts tallies buckets per dimension and state.
func (r CoverageReport) StateCounts() map[string]map[BucketState]int {
	out := make(map[string]map[BucketState]int)
	for _, b := range r.Buckets {
		if out[b.Dimension] == nil {
			out[b.Dimension] = map[BucketState]int{BucketEmpty: 0, BucketSingle: 0, BucketRedundant: 0}
		}
		out[b.Dimension][b.State]++
	}
	return out
}
