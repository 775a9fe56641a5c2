package notify

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/civicworks/notifyhub/pkg/validator"
)

// Catalog is a declarative set of flows and trigger aliases, typically kept
// in a YAML file next to the service configuration.
type Catalog struct {
	Aliases map[string]string `yaml:"aliases"`
	Flows   []Flow            `yaml:"flows"`
}

// LoadCatalog decodes and validates a YAML catalog.
//
//	aliases:
//	  new_song: song_uploaded
//	flows:
//	  - id: welcome-email
//	    event_type: song_uploaded
//	    recipient_class: artist
//	    channel: email
//	    template_id: upload_confirmation
//	    priority: 10
//	    is_active: true
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalogFile reads a catalog from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	defer f.Close()

	return LoadCatalog(f)
}

// Validate checks every flow and rejects duplicate flow IDs.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Flows))
	var errs []error

	for i, f := range c.Flows {
		if err := f.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("flows[%d]: %w", i, err))
			continue
		}
		if _, dup := seen[f.ID]; dup {
			errs = append(errs, fmt.Errorf("flows[%d]: duplicate id %q", i, f.ID))
			continue
		}
		seen[f.ID] = struct{}{}
	}

	for alias, canonical := range c.Aliases {
		if alias == "" || canonical == "" {
			errs = append(errs, fmt.Errorf("aliases: empty entry %q -> %q", alias, canonical))
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidCatalog}, errs...)...)
	}
	return nil
}

// Validate checks the fields a flow needs to be dispatchable.
func (f Flow) Validate() error {
	return validator.Apply(
		validator.RequiredString("id", f.ID),
		validator.RequiredString("event_type", f.EventType),
		validator.InList("recipient_class", f.RecipientClass, RecipientClasses),
		validator.RequiredString("channel", string(f.Channel)),
		validator.RequiredString("template_id", f.TemplateID),
		validator.NonNegative("delay_minutes", f.DelayMinutes),
	)
}

// Apply loads the catalog flows into store.
func (c *Catalog) Apply(store *MemoryStore) {
	for _, f := range c.Flows {
		store.AddFlow(f)
	}
}

// ResolverOptions returns the options that install the catalog aliases on
// top of DefaultAliases.
func (c *Catalog) ResolverOptions() []ResolverOption {
	if len(c.Aliases) == 0 {
		return nil
	}
	return []ResolverOption{WithExtraAliases(c.Aliases)}
}
