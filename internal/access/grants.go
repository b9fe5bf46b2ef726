package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chainworks-labs/ipmeta/internal/domain"
)

const GrantSchemaV1 = "ipmeta.grants.v1"

// GrantSpec is the bootstrap file format for seeding the permission
// table at startup.
type GrantSpec struct {
	Schema string  `json:"schema" yaml:"schema"`
	Grants []Grant `json:"grants" yaml:"grants"`
}

type Grant struct {
	Record    string `json:"record" yaml:"record"`
	Principal string `json:"principal" yaml:"principal"`
	Resource  string `json:"resource,omitempty" yaml:"resource,omitempty"`
	Selector  string `json:"selector" yaml:"selector"`
	Level     string `json:"level" yaml:"level"`
}

func ParseGrantSpec(input []byte) (GrantSpec, error) {
	var spec GrantSpec
	if err := yaml.Unmarshal(input, &spec); err != nil {
		return GrantSpec{}, fmt.Errorf("decode grant spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return GrantSpec{}, err
	}
	return spec, nil
}

func (s GrantSpec) Validate() error {
	if strings.TrimSpace(s.Schema) != GrantSchemaV1 {
		return fmt.Errorf("spec.schema must be %q", GrantSchemaV1)
	}
	if len(s.Grants) == 0 {
		return errors.New("spec.grants must be non-empty")
	}
	for i, grant := range s.Grants {
		if _, err := grant.Permission(); err != nil {
			return fmt.Errorf("spec.grants[%d]: %w", i, err)
		}
	}
	return nil
}

// Permission converts one grant entry to its stored form. An empty
// resource means the any-resource wildcard.
func (g Grant) Permission() (domain.Permission, error) {
	id, err := domain.ParseRecordID(g.Record)
	if err != nil {
		return domain.Permission{}, err
	}
	principal, err := domain.ParseAddress(g.Principal)
	if err != nil {
		return domain.Permission{}, fmt.Errorf("principal: %w", err)
	}
	resource := domain.ZeroAddress
	if strings.TrimSpace(g.Resource) != "" {
		resource, err = domain.ParseAddress(g.Resource)
		if err != nil {
			return domain.Permission{}, fmt.Errorf("resource: %w", err)
		}
	}
	level, err := domain.ParsePermissionLevel(g.Level)
	if err != nil {
		return domain.Permission{}, err
	}
	permission := domain.Permission{
		ID:        id,
		Principal: principal,
		Resource:  resource,
		Selector:  strings.TrimSpace(g.Selector),
		Level:     level,
	}
	if err := permission.Validate(); err != nil {
		return domain.Permission{}, err
	}
	return permission, nil
}

// ApplyGrantSpec seeds every entry of a validated spec through the
// controller.
func ApplyGrantSpec(ctx context.Context, controller *Controller, spec GrantSpec) error {
	if controller == nil {
		return errors.New("controller is required")
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	for i, grant := range spec.Grants {
		permission, err := grant.Permission()
		if err != nil {
			return fmt.Errorf("spec.grants[%d]: %w", i, err)
		}
		if err := controller.SetPermission(ctx, permission); err != nil {
			return fmt.Errorf("spec.grants[%d]: %w", i, err)
		}
	}
	return nil
}
