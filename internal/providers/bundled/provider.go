package bundled

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/sammcj/goose/internal/infrastructure/logging"
	"github.com/sammcj/goose/internal/shared/types"
)

// Manifest describes the bundled extensions directory.
type Manifest struct {
	Extensions []ManifestEntry `yaml:"extensions" toml:"extensions"`
}

// ManifestEntry is one bundled extension.
type ManifestEntry struct {
	// Name is the extension name resources are served under.
	Name string `yaml:"name" toml:"name"`
	// Dir is the extension's directory, relative to the manifest.
	Dir string `yaml:"dir" toml:"dir"`
	// Allow holds glob patterns of servable resource URIs. Empty means
	// every scanned resource of the extension is servable.
	Allow []string `yaml:"allow" toml:"allow"`
}

type extension struct {
	entry ManifestEntry
	// resources maps resource URI to the HTML file path.
	resources map[string]string
}

// Provider serves bundled extension resources from disk.
type Provider struct {
	root   string
	logger *logging.Logger

	mu         sync.RWMutex
	extensions map[string]*extension
}

// NewProvider loads the manifest under root and indexes each extension's
// HTML resources.
func NewProvider(root string, logger *logging.Logger) (*Provider, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	p := &Provider{
		root:       root,
		logger:     logger.Named("bundled"),
		extensions: make(map[string]*extension),
	}
	if err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

// load parses the manifest and scans extension directories.
func (p *Provider) load() error {
	manifest, err := readManifest(p.root)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, entry := range manifest.Extensions {
		if entry.Name == "" || entry.Dir == "" {
			return fmt.Errorf("manifest entry needs both name and dir")
		}

		resources, err := scanResources(filepath.Join(p.root, entry.Dir), entry.Name)
		if err != nil {
			return fmt.Errorf("failed to scan extension %q: %w", entry.Name, err)
		}

		p.extensions[entry.Name] = &extension{entry: entry, resources: resources}
		p.logger.Info("bundled extension indexed",
			zap.String("extension", entry.Name),
			zap.Int("resources", len(resources)),
		)
	}
	return nil
}

// readManifest finds extensions.yaml or extensions.toml under root.
func readManifest(root string) (*Manifest, error) {
	var manifest Manifest

	if data, err := os.ReadFile(filepath.Join(root, "extensions.yaml")); err == nil {
		if err := yaml.Unmarshal(data, &manifest); err != nil {
			return nil, fmt.Errorf("failed to parse extensions.yaml: %w", err)
		}
		return &manifest, nil
	}
	if data, err := os.ReadFile(filepath.Join(root, "extensions.toml")); err == nil {
		if err := toml.Unmarshal(data, &manifest); err != nil {
			return nil, fmt.Errorf("failed to parse extensions.toml: %w", err)
		}
		return &manifest, nil
	}
	return nil, fmt.Errorf("no extensions manifest under %s", root)
}

// scanResources walks an extension directory collecting .html files. The
// resource URI drops the extension's directory prefix and the .html suffix:
// docs/viewer.html becomes ui://docs/viewer.
func scanResources(dir, name string) (map[string]string, error) {
	resources := make(map[string]string)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = strings.TrimSuffix(filepath.ToSlash(rel), ".html")
		resources["ui://"+name+"/"+rel] = path
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resources, nil
}

// Has reports whether the provider can serve uri for an extension.
func (p *Provider) Has(extensionName, uri string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ext, ok := p.extensions[extensionName]
	if !ok {
		return false
	}
	_, ok = ext.resources[uri]
	return ok && ext.allowed(uri)
}

// Extensions returns the indexed extension names.
func (p *Provider) Extensions() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.extensions))
	for name := range p.extensions {
		names = append(names, name)
	}
	return names
}

// FetchResource serves a bundled HTML resource from disk.
func (p *Provider) FetchResource(_ context.Context, extensionName, uri string) ([]byte, *types.ResourceMeta, error) {
	p.mu.RLock()
	ext, ok := p.extensions[extensionName]
	p.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("unknown bundled extension %q", extensionName)
	}
	if !ext.allowed(uri) {
		return nil, nil, fmt.Errorf("resource %s is not allowed for extension %q", uri, extensionName)
	}

	path, ok := ext.resources[uri]
	if !ok {
		return nil, nil, fmt.Errorf("unknown bundled resource %s", uri)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read bundled resource: %w", err)
	}
	return raw, nil, nil
}

// allowed matches uri against the entry's allow patterns.
func (e *extension) allowed(uri string) bool {
	if len(e.entry.Allow) == 0 {
		return true
	}
	for _, pattern := range e.entry.Allow {
		if ok, err := doublestar.Match(pattern, uri); err == nil && ok {
			return true
		}
	}
	return false
}
