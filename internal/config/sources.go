package config

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/basti564/LauncherIcons/pkg/secrets"
)

// SourceNames lists every store crawler this binary knows about, in
// run order.
var SourceNames = []string{"pico", "oculus", "viveport", "vivebusiness", "sidequest"}

// Source is one enabled store crawler with its resolved options
// (access tokens and the like).
type Source struct {
	Name    string
	Options map[string]string
}

// LoadSources reads the YAML source list and resolves its secrets.
// An empty path enables every known source with no options. Secrets
// failing to resolve are fatal: a run that silently crawls with a
// missing token produces confusing half-empty catalogs.
func (r *Runtime) LoadSources(ctx context.Context, resolver secrets.Resolver) ([]Source, error) {
	if r.SourcesFile == "" {
		out := make([]Source, 0, len(SourceNames))
		for _, name := range SourceNames {
			out = append(out, Source{Name: name})
		}
		return out, nil
	}

	fp, err := os.Open(r.SourcesFile)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", r.SourcesFile)
	}
	defer func() { _ = fp.Close() }()

	return readSources(ctx, fp, resolver)
}

func readSources(ctx context.Context, rd io.Reader, resolver secrets.Resolver) ([]Source, error) {
	var cfg struct {
		Sources map[string]struct {
			Enabled *bool           `yaml:"enabled"`
			Options secrets.Secrets `yaml:"options"`
		} `yaml:"sources"`
	}

	dec := yaml.NewDecoder(rd)
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding sources file")
	}

	var out []Source
	for _, name := range SourceNames {
		entry, ok := cfg.Sources[name]
		if !ok {
			continue
		}
		if entry.Enabled != nil && !*entry.Enabled {
			continue
		}

		options, err := entry.Options.ResolveAll(ctx, resolver)
		if err != nil {
			return nil, errors.Wrapf(err, "source %s", name)
		}

		out = append(out, Source{Name: name, Options: options})
	}

	for name := range cfg.Sources {
		if !known(name) {
			return nil, errors.Errorf("unknown source %q in sources file", name)
		}
	}

	return out, nil
}

func known(name string) bool {
	for _, n := range SourceNames {
		if n == name {
			return true
		}
	}
	return false
}
