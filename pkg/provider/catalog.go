package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/srand/jolt/workforce/pkg/protocol"
	"github.com/srand/jolt/workforce/pkg/utils"
	"github.com/srand/jolt/workforce/pkg/workforce"
	"gopkg.in/yaml.v3"
)

// Catalog is the YAML description of the providers served by a host.
//
//	defaults: true
//	providers:
//	  - id: gpu-1
//	    runtime: echo
//	    attributes:
//	      label: gpu
type Catalog struct {
	// Add the attributes of the local node to every provider.
	Defaults  bool    `yaml:"defaults"`
	Providers []Entry `yaml:"providers"`
}

type Entry struct {
	Id         string            `yaml:"id"`
	Runtime    string            `yaml:"runtime"`
	Attributes map[string]string `yaml:"attributes"`
	// Providers are available unless stated otherwise.
	Available *bool `yaml:"available"`
}

func (e Entry) IsAvailable() bool {
	return e.Available == nil || *e.Available
}

func ParseCatalog(data []byte) (*Catalog, error) {
	catalog := &Catalog{}
	if err := yaml.Unmarshal(data, catalog); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrParse, err)
	}
	return catalog, nil
}

// LoadCatalog reads a catalog file, or all .yaml/.yml files of a directory
// merged in lexical order.
func LoadCatalog(fs afero.Fs, path string) (*Catalog, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, err
	}

	files := []string{path}
	if info.IsDir() {
		files = nil
		err = afero.Walk(fs, path, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			ext := strings.ToLower(filepath.Ext(file))
			if !info.IsDir() && (ext == ".yaml" || ext == ".yml") {
				files = append(files, file)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(files)
	}

	merged := &Catalog{}
	for _, file := range files {
		data, err := afero.ReadFile(fs, file)
		if err != nil {
			return nil, err
		}

		catalog, err := ParseCatalog(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}

		merged.Defaults = merged.Defaults || catalog.Defaults
		merged.Providers = append(merged.Providers, catalog.Providers...)
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

func (c *Catalog) Validate() error {
	seen := map[string]bool{}
	for i, entry := range c.Providers {
		if entry.Id == "" {
			return fmt.Errorf("%w: provider #%d has no id", utils.ErrBadRequest, i)
		}
		if seen[entry.Id] {
			return fmt.Errorf("%w: duplicate provider %s", utils.ErrBadRequest, entry.Id)
		}
		seen[entry.Id] = true
	}
	return nil
}

// Attributes returns the full attribute set of an entry.
func (c *Catalog) Attributes(entry Entry) workforce.Attributes {
	if c.Defaults {
		return Merge(DefaultAttributes(), entry.Attributes)
	}
	return workforce.Attributes(entry.Attributes).Clone()
}

// Register adds every provider of the catalog to the registry and marks
// the available ones as such.
func (c *Catalog) Register(r *Registry) error {
	for _, entry := range c.Providers {
		p := workforce.NewWorkerProvider(entry.Id, c.Attributes(entry))
		if err := r.Add(p); err != nil {
			return err
		}
		if entry.IsAvailable() {
			p.HandleMessage(protocol.ProviderMessage{Type: protocol.ProviderAvailable})
		}
	}
	return nil
}

// Runtimes maps provider ids to runtime names.
func (c *Catalog) Runtimes() map[string]string {
	runtimes := map[string]string{}
	for _, entry := range c.Providers {
		runtimes[entry.Id] = entry.Runtime
	}
	return runtimes
}
