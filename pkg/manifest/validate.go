package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/compmat-es/scrunner/pkg/project"
)

// ErrValidationFailed is the sentinel wrapped by ValidationErrors.
var ErrValidationFailed = errors.New("manifest validation failed")

// ValidationError is one structural problem in a manifest.
type ValidationError struct {
	// Field names the problematic field (e.g. "solver.command").
	Field string

	// Message describes the failure.
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one pass so a user
// can fix a manifest in a single round trip.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "manifest validation failed with %d errors:\n", len(e))
	for i, err := range e {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e ValidationErrors) Unwrap() error {
	return ErrValidationFailed
}

// Validate checks the manifest's structure. Call after ApplyDefaults;
// it reports every problem, not just the first.
func (m *Manifest) Validate() error {
	var errs ValidationErrors

	if _, err := project.Parse(m.ProjectType); err != nil {
		errs = append(errs, ValidationError{
			Field:   "project_type",
			Message: fmt.Sprintf("must be one of %v", project.All()),
		})
	}

	if strings.TrimSpace(m.Solver.Command) == "" {
		errs = append(errs, ValidationError{
			Field:   "solver.command",
			Message: "solver command is required",
		})
	}

	if m.PollInterval < 0 {
		errs = append(errs, ValidationError{
			Field:   "poll_interval",
			Message: "must not be negative",
		})
	}
	if m.GracePeriod < 0 {
		errs = append(errs, ValidationError{
			Field:   "grace_period",
			Message: "must not be negative",
		})
	}
	if m.ReportInterval < 0 {
		errs = append(errs, ValidationError{
			Field:   "report_interval",
			Message: "must not be negative",
		})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
