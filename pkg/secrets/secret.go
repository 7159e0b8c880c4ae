// Package secrets resolves sensitive values referenced from the source
// configuration. A plain YAML scalar is used as-is; a node tagged
// !secret is a path handed to the configured Resolver (environment,
// AWS parameter store) at load time.
package secrets

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

type Secrets struct {
	value map[string]yaml.Node
}

func (s *Secrets) UnmarshalYAML(node *yaml.Node) error {
	*s = Secrets{}
	return node.Decode(&s.value)
}

// ResolveAll resolves every key to its final string value.
func (s *Secrets) ResolveAll(ctx context.Context, resolver Resolver) (map[string]string, error) {
	out := make(map[string]string, len(s.value))
	for key := range s.value {
		sec := s.Get(key)
		if sec == nil {
			continue
		}
		v, err := sec.Resolve(ctx, resolver)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}

func (s *Secrets) Get(key string) *Secret {
	v, ok := s.value[key]
	if !ok {
		return nil
	}

	sec := new(Secret)
	if err := v.Decode(sec); err == nil {
		return sec
	}

	return nil
}

type Secret struct {
	Path  string
	Value string
}

func (s *Secret) UnmarshalYAML(node *yaml.Node) error {
	*s = Secret{}

	if node.Tag == "!secret" {
		return node.Decode(&s.Path)
	}

	return node.Decode(&s.Value)
}

func (s Secret) String() string {
	if s.Path == "" {
		return s.Value
	}

	return fmt.Sprintf("!secret %s", s.Path)
}

func (s *Secret) Resolve(ctx context.Context, resolver Resolver) (string, error) {
	var err error

	if s.Path == "" {
		return s.Value, err
	}

	if s.Value == "" {
		s.Value, err = resolver.Resolve(ctx, s.Path)
	}

	return s.Value, err
}
