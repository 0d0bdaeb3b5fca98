package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"net/mail"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"activities-api/models"
)

//go:embed catalog.hcl
var defaultCatalog []byte

// Catalog is the set of activities written into an empty database.
type Catalog struct {
	Activities []*CatalogActivity `hcl:"activity,block"`
}

// CatalogActivity is one `activity "<name>" { ... }` block.
type CatalogActivity struct {
	Name            string   `hcl:"name,label"`
	Description     string   `hcl:"description"`
	Schedule        string   `hcl:"schedule"`
	MaxParticipants int      `hcl:"max_participants"`
	Location        *string  `hcl:"location,optional"`
	Duration        *string  `hcl:"duration,optional"`
	Participants    []string `hcl:"participants,optional"`
}

func (ca *CatalogActivity) model() *models.Activity {
	return &models.Activity{
		Name:            ca.Name,
		Description:     ca.Description,
		Schedule:        ca.Schedule,
		MaxParticipants: ca.MaxParticipants,
		Location:        ca.Location,
		Duration:        ca.Duration,
	}
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog, "catalog.hcl")
}

// LoadCatalog reads the catalog at path, or the built-in one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed catalog %s: %w", path, err)
	}
	return ParseCatalog(src, path)
}

// ParseCatalog decodes and validates HCL catalog source. filename is only
// used in diagnostics.
func ParseCatalog(src []byte, filename string) (*Catalog, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse seed catalog %s: %w", filename, diags)
	}

	var c Catalog
	if diags := gohcl.DecodeBody(file.Body, nil, &c); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode seed catalog %s: %w", filename, diags)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid seed catalog %s: %w", filename, err)
	}
	return &c, nil
}

// Validate checks that every activity could actually be stored as written.
func (c *Catalog) Validate() error {
	var errs []error
	names := make(map[string]bool, len(c.Activities))
	for _, a := range c.Activities {
		if a.Name == "" {
			errs = append(errs, errors.New("activity with empty name"))
			continue
		}
		if names[a.Name] {
			errs = append(errs, fmt.Errorf("activity %q: declared more than once", a.Name))
		}
		names[a.Name] = true

		if a.MaxParticipants <= 0 {
			errs = append(errs, fmt.Errorf("activity %q: max_participants must be positive, got %d", a.Name, a.MaxParticipants))
		}
		if len(a.Participants) > a.MaxParticipants {
			errs = append(errs, fmt.Errorf("activity %q: %d participants exceed max_participants %d", a.Name, len(a.Participants), a.MaxParticipants))
		}

		seen := make(map[string]bool, len(a.Participants))
		for _, email := range a.Participants {
			if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
				errs = append(errs, fmt.Errorf("activity %q: invalid participant email %q", a.Name, email))
			}
			if seen[email] {
				errs = append(errs, fmt.Errorf("activity %q: participant %q listed twice", a.Name, email))
			}
			seen[email] = true
		}
	}
	return errors.Join(errs...)
}
