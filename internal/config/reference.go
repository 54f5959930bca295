package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ai-secretary/internal/domain"
	"github.com/spec-kit/ai-secretary/internal/sla"
)

// ReferenceData overrides the built-in staff roster and SLA table.
// Empty sections keep the defaults.
type ReferenceData struct {
	Staff    []domain.StaffMember `yaml:"staff"`
	SLARules []sla.Rule          `yaml:"sla_rules"`
}

// LoadReferenceData reads a YAML reference file. An empty path yields an empty document.
func LoadReferenceData(path string) (*ReferenceData, error) {
	if path == "" {
		return &ReferenceData{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reference data: read %s: %w", path, err)
	}
	return ParseReferenceData(data)
}

// ParseReferenceData unmarshals and validates reference YAML.
func ParseReferenceData(data []byte) (*ReferenceData, error) {
	var ref ReferenceData
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("reference data: parse: %w", err)
	}
	if err := ref.validate(); err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *ReferenceData) validate() error {
	var errs []string
	seen := make(map[string]struct{}, len(r.Staff))
	for i, s := range r.Staff {
		if s.ID == "" {
			errs = append(errs, fmt.Sprintf("staff[%d].id is required", i))
		}
		if _, dup := seen[s.ID]; dup && s.ID != "" {
			errs = append(errs, fmt.Sprintf("staff[%d].id %q is duplicated", i, s.ID))
		}
		seen[s.ID] = struct{}{}
		for _, sp := range s.Specialties {
			if !sp.Valid() {
				errs = append(errs, fmt.Sprintf("staff[%d] has unknown specialty %q", i, sp))
			}
		}
	}
	for i, rule := range r.SLARules {
		if !rule.Priority.Valid() {
			errs = append(errs, fmt.Sprintf("sla_rules[%d].priority %q is invalid", i, rule.Priority))
		}
		if rule.Category != "" && !rule.Category.Valid() {
			errs = append(errs, fmt.Sprintf("sla_rules[%d].category %q is invalid", i, rule.Category))
		}
		if rule.ResponseHours <= 0 || rule.ResolutionHours <= 0 {
			errs = append(errs, fmt.Sprintf("sla_rules[%d] hours must be positive", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("reference data: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
