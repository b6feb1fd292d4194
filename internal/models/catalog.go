package models

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk layout of a models file.
type catalogFile struct {
	Default string       `yaml:"default"`
	Models  []Capability `yaml:"models"`
}

type table struct {
	defaultID string
	ordered   []Capability
	index     map[string]Capability
}

func newTable(defaultID string, caps []Capability) (*table, error) {
	t := &table{
		ordered: make([]Capability, 0, len(caps)),
		index:   make(map[string]Capability, len(caps)),
	}
	for _, c := range caps {
		c = c.normalized()
		if c.ModelID == "" {
			return nil, errors.New("model id is required")
		}
		if _, dup := t.index[c.ModelID]; dup {
			return nil, fmt.Errorf("duplicate model id: %s", c.ModelID)
		}
		t.index[c.ModelID] = c
		t.ordered = append(t.ordered, c)
	}
	if len(t.ordered) == 0 {
		return nil, errors.New("model catalog is empty")
	}
	defaultID = strings.TrimSpace(defaultID)
	if _, ok := t.index[defaultID]; !ok {
		defaultID = t.ordered[0].ModelID
	}
	t.defaultID = defaultID
	return t, nil
}

// Catalog is the model capability table. Readers see an immutable snapshot;
// Reload swaps in a new one.
type Catalog struct {
	logger    *slog.Logger
	path      string
	preferred string
	current   atomic.Pointer[table]
}

// NewCatalog builds a catalog from records. preferred names the default model
// and falls back to the first record when it is not in the list.
func NewCatalog(log *slog.Logger, preferred string, caps []Capability) (*Catalog, error) {
	if log == nil {
		log = slog.Default()
	}
	t, err := newTable(preferred, caps)
	if err != nil {
		return nil, err
	}
	c := &Catalog{logger: log.With(slog.String("service", "models")), preferred: preferred}
	c.current.Store(t)
	return c, nil
}

// LoadCatalog reads a YAML models file. An empty path uses the builtin records.
func LoadCatalog(log *slog.Logger, path, preferred string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		if preferred == "" {
			preferred = DefaultModelID
		}
		return NewCatalog(log, preferred, BuiltinCapabilities())
	}
	file, err := readCatalogFile(path)
	if err != nil {
		return nil, err
	}
	initial := preferred
	if initial == "" {
		initial = file.Default
	}
	c, err := NewCatalog(log, initial, file.Models)
	if err != nil {
		return nil, fmt.Errorf("models file %s: %w", path, err)
	}
	c.path = path
	c.preferred = preferred
	return c, nil
}

func readCatalogFile(path string) (catalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return catalogFile{}, fmt.Errorf("read models file: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return catalogFile{}, fmt.Errorf("parse models file: %w", err)
	}
	return file, nil
}

// Reload rereads the models file. A failed reload keeps the previous table.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	file, err := readCatalogFile(c.path)
	if err != nil {
		return err
	}
	preferred := c.preferred
	if preferred == "" {
		preferred = file.Default
	}
	t, err := newTable(preferred, file.Models)
	if err != nil {
		return fmt.Errorf("models file %s: %w", c.path, err)
	}
	c.current.Store(t)
	c.logger.Info("model catalog reloaded", slog.Int("models", len(t.ordered)))
	return nil
}

// Path returns the backing file, or "" for builtin catalogs.
func (c *Catalog) Path() string { return c.path }

// Lookup returns the record for modelID and whether it is known.
func (c *Catalog) Lookup(modelID string) (Capability, bool) {
	capability, ok := c.current.Load().index[strings.TrimSpace(modelID)]
	return capability, ok
}

// Capability returns the record for modelID, or Unknown(modelID).
func (c *Catalog) Capability(modelID string) Capability {
	if capability, ok := c.Lookup(modelID); ok {
		return capability
	}
	return Unknown(modelID)
}

func (c *Catalog) List() []Capability {
	t := c.current.Load()
	out := make([]Capability, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// Multimodal lists the ids of models that accept images.
func (c *Catalog) Multimodal() []string {
	t := c.current.Load()
	ids := make([]string, 0, len(t.ordered))
	for _, m := range t.ordered {
		if m.SupportsImages {
			ids = append(ids, m.ModelID)
		}
	}
	return ids
}

func (c *Catalog) Default() string {
	return c.current.Load().defaultID
}

// Resolve returns modelID when it is known, otherwise the default model.
func (c *Catalog) Resolve(modelID string) string {
	if _, ok := c.Lookup(modelID); ok {
		return strings.TrimSpace(modelID)
	}
	return c.Default()
}
