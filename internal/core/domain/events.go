package domain

import "time"

type GuideEventType string

const (
	GuideCreated GuideEventType = "guide.created"
	GuideUpdated GuideEventType = "guide.updated"
	GuideDeleted GuideEventType = "guide.deleted"
)

// GuideEvent announces a mutation made by a maintenance pass so downstream
// consumers (search index, the watch command) can refresh.
type GuideEvent struct {
	Type       GuideEventType `json:"type"`
	GuideID    string         `json:"guide_id"`
	Slug       string         `json:"slug,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// PermissionProbe is one step of a row-level-security diagnosis.
type PermissionProbe struct {
	Operation string `json:"operation"`
	Allowed   bool   `json:"allowed"`
	Detail    string `json:"detail,omitempty"`
}

type Diagnosis struct {
	Probes             []PermissionProbe `json:"probes"`
	ApprovedGuides     int               `json:"approved_guides"`
	InvalidImages      []string          `json:"invalid_images,omitempty"`
	DuplicateImages    []string          `json:"duplicate_images,omitempty"`
	UnitMismatches     []string          `json:"unit_mismatches,omitempty"`
	UncategorizedUnits []string          `json:"uncategorized_units,omitempty"`
}
