package pipeline

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// FeatureGenerationMode selects between generating features from
// statistics (spec.md 4.3/4.4) and loading pre-placed features from a
// file (spec.md 4.8).
type FeatureGenerationMode string

const (
	ModeGenerate FeatureGenerationMode = "generate"
	ModeLoad     FeatureGenerationMode = "load"
)

// SaveGeometricDescriptions selects how per-feature arrays are retained
// after a run (spec.md 6).
type SaveGeometricDescriptions string

const (
	SaveNone   SaveGeometricDescriptions = "none"
	SaveNew    SaveGeometricDescriptions = "new"
	SaveAppend SaveGeometricDescriptions = "append"
)

// RunConfig is the recognised configuration surface of spec.md 6,
// loadable from YAML with an embedded-defaults fallback, mirroring the
// teacher's config.Config (config/config.go).
type RunConfig struct {
	NX, NY, NZ int        `yaml:"-"` // read from the "extents" sequence by UnmarshalYAML
	Spacing    [3]float64 `yaml:"spacing"`
	Origin     [3]float64 `yaml:"origin"`
	Units      string     `yaml:"units"`

	PeriodicBoundaries bool `yaml:"periodic_boundaries"`
	UseMask            bool `yaml:"use_mask"`

	FeatureGeneration FeatureGenerationMode `yaml:"feature_generation"`
	FeatureFilePath   string                `yaml:"feature_file_path"`

	WriteGoalAttributes bool   `yaml:"write_goal_attributes"`
	GoalAttributesPath  string `yaml:"goal_attributes_csv_path"`

	SaveGeometricDescriptions SaveGeometricDescriptions `yaml:"save_geometric_descriptions"`
	TargetIdentifier          string                    `yaml:"target_identifier"`

	SeedOverride *int64 `yaml:"seed_override"`

	PhaseStatsPath string `yaml:"phase_stats_path"`
}

// UnmarshalYAML decodes every tagged field and then fills NX, NY, NZ from
// the three-element "extents" sequence.
func (c *RunConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain RunConfig
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	var ext struct {
		Extents [3]int `yaml:"extents"`
	}
	if err := value.Decode(&ext); err != nil {
		return err
	}
	*c = RunConfig(p)
	c.NX, c.NY, c.NZ = ext.Extents[0], ext.Extents[1], ext.Extents[2]
	return nil
}

// LoadRunConfig parses a RunConfig from path; an empty path loads the
// embedded defaults, matching the teacher's config.MustInit("") fallback.
func LoadRunConfig(path string) (RunConfig, error) {
	var raw []byte
	if path == "" {
		raw = defaultsYAML
	} else {
		b, err := os.ReadFile(path)
		if err != nil {
			return RunConfig{}, fmt.Errorf("%w: reading %s: %v", ErrIOFailure, path, err)
		}
		raw = b
	}

	var cfg RunConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return RunConfig{}, fmt.Errorf("%w: parsing yaml: %v", ErrIOFailure, err)
	}
	return cfg, nil
}

// Validate preflight-checks geometry per spec.md 7: grid dimensions and
// spacing must be positive before any volume mutation.
func (c RunConfig) Validate() error {
	if c.NX <= 0 || c.NY <= 0 || c.NZ <= 0 {
		return fmt.Errorf("%w: non-positive extents (%d,%d,%d)", ErrGeometryMismatch, c.NX, c.NY, c.NZ)
	}
	if c.Spacing[0] <= 0 || c.Spacing[1] <= 0 || c.Spacing[2] <= 0 {
		return fmt.Errorf("%w: non-positive spacing %v", ErrGeometryMismatch, c.Spacing)
	}
	return nil
}
