package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads path and every file it includes, earlier includes first, then
// applies defaults for keys the files leave unset and validates the result.
func Load(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

// load is Load that also reports every file that went into the config, in
// merge order. The watcher uses the list to know what to watch.
func load(path string) (*Config, []string, error) {
	layers, err := resolveLayers(path)
	if err != nil {
		return nil, nil, err
	}
	v := viper.New()
	files := make([]string, 0, len(layers))
	for _, l := range layers {
		if err := v.MergeConfigMap(l.settings); err != nil {
			return nil, nil, fmt.Errorf("merging config file failed (%s): %w", l.path, err)
		}
		files = append(files, l.path)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, nil, fmt.Errorf("parsing config failed: %w", err)
	}
	setKeys := make(keySet)
	markSetKeys("", v.AllSettings(), setKeys)
	cfg.applyDefaults(setKeys)
	if err := validate(&cfg); err != nil {
		return nil, nil, err
	}
	return &cfg, files, nil
}

// layer is one config file read once: its settings without the include
// key, and the includes it names.
type layer struct {
	path     string
	settings map[string]any
	includes []string
}

func readLayer(path string) (layer, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return layer{}, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var includes []string
	for _, inc := range v.GetStringSlice("include") {
		if inc = strings.TrimSpace(inc); inc != "" {
			includes = append(includes, inc)
		}
	}
	settings := v.AllSettings()
	delete(settings, "include")
	return layer{path: path, settings: settings, includes: includes}, nil
}

// resolveLayers orders path and its includes depth first, includes before
// the file naming them. A file reached twice is merged once; a file that
// includes itself, directly or not, is an error.
func resolveLayers(path string) ([]layer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	r := &layerResolver{seen: make(map[string]bool), stack: make(map[string]bool)}
	if err := r.visit(abs); err != nil {
		return nil, err
	}
	return r.ordered, nil
}

type layerResolver struct {
	seen    map[string]bool
	stack   map[string]bool
	ordered []layer
}

func (r *layerResolver) visit(path string) error {
	path = filepath.Clean(path)
	if r.stack[path] {
		return fmt.Errorf("include cycle detected: %s", path)
	}
	if r.seen[path] {
		return nil
	}
	l, err := readLayer(path)
	if err != nil {
		return err
	}
	r.stack[path] = true
	for _, inc := range l.includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := r.visit(inc); err != nil {
			return err
		}
	}
	delete(r.stack, path)
	r.seen[path] = true
	r.ordered = append(r.ordered, l)
	return nil
}

// markSetKeys records the dotted path of every leaf in settings. Lists are
// leaves: broker entries are defaulted per entry, not per key.
func markSetKeys(prefix string, node any, dest keySet) {
	m, ok := node.(map[string]any)
	if !ok {
		if prefix != "" {
			dest.mark(prefix)
		}
		return
	}
	for k, v := range m {
		next := strings.ToLower(strings.TrimSpace(k))
		if next == "" {
			continue
		}
		if prefix != "" {
			next = prefix + "." + next
		}
		markSetKeys(next, v, dest)
	}
}
