package domain

// SeedTableGuides is the only table seed manifests may target.
const SeedTableGuides = "guides"

// SeedManifest lists records to insert. Bodies can be inlined or referenced
// by a key in the storage directory.
type SeedManifest struct {
	Table  string      `yaml:"table" json:"table"`
	Guides []SeedGuide `yaml:"guides" json:"guides"`
}

type SeedGuide struct {
	Guide    `yaml:",inline"`
	BodyFile string `yaml:"body_file,omitempty" json:"body_file,omitempty"`
}
