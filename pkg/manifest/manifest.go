// Package manifest defines the optional per-run manifest: a YAML or
// JSON file overriding the environment configuration for one job.
package manifest

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/compmat-es/scrunner/pkg/artifacts"
	"github.com/compmat-es/scrunner/pkg/project"
)

// Duration decodes "10s"-style strings from YAML and JSON.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"10s\": %w", err)
	}
	return d.parse(s)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"10s\": %w", err)
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Solver describes the external computation command.
type Solver struct {
	Command string   `yaml:"command" json:"command"`
	Args    []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// Manifest is one run's declarative description. Empty fields fall back
// to environment configuration, then to defaults.
type Manifest struct {
	ProjectID   string `yaml:"project_id,omitempty" json:"project_id,omitempty"`
	ProjectType string `yaml:"project_type,omitempty" json:"project_type,omitempty"`

	Solver Solver `yaml:"solver" json:"solver"`

	Workdir    string `yaml:"workdir,omitempty" json:"workdir,omitempty"`
	OutputPath string `yaml:"output_path,omitempty" json:"output_path,omitempty"`

	PollInterval   Duration `yaml:"poll_interval,omitempty" json:"poll_interval,omitempty"`
	GracePeriod    Duration `yaml:"grace_period,omitempty" json:"grace_period,omitempty"`
	ReportInterval Duration `yaml:"report_interval,omitempty" json:"report_interval,omitempty"`
}

// ApplyDefaults fills optional fields with their standard values.
func (m *Manifest) ApplyDefaults() {
	if m.ProjectType == "" {
		m.ProjectType = string(project.SinglePoint)
	}
	if m.Workdir == "" {
		m.Workdir = "."
	}
	if m.OutputPath == "" {
		m.OutputPath = artifacts.SolverOutput
	}
	if m.PollInterval <= 0 {
		m.PollInterval = Duration(10 * time.Second)
	}
	if m.GracePeriod <= 0 {
		m.GracePeriod = Duration(2 * time.Second)
	}
}

// Type returns the parsed project type. Call Validate first.
func (m *Manifest) Type() project.Type {
	pt, _ := project.Parse(m.ProjectType)
	return pt
}
