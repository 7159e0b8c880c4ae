package secrets

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sample = `
options:
  access_token: !secret OCULUS_ACCESS_TOKEN
  device_name: A8110
`

func TestSecretTagResolution(t *testing.T) {
	t.Setenv("OCULUS_ACCESS_TOKEN", "OC|123|")

	var cfg struct {
		Options Secrets `yaml:"options"`
	}
	dec := yaml.NewDecoder(strings.NewReader(sample))
	require.NoError(t, dec.Decode(&cfg))

	token := cfg.Options.Get("access_token")
	require.NotNil(t, token)
	require.Equal(t, "OCULUS_ACCESS_TOKEN", token.Path)

	v, err := token.Resolve(context.Background(), Env())
	require.NoError(t, err)
	require.Equal(t, "OC|123|", v)

	device := cfg.Options.Get("device_name")
	require.NotNil(t, device)
	v, err = device.Resolve(context.Background(), Env())
	require.NoError(t, err)
	require.Equal(t, "A8110", v)
}

func TestChainFallsThrough(t *testing.T) {
	t.Setenv("FALLBACK_TOKEN", "fallback")

	failing := resolverFunc(func(ctx context.Context, path string) (string, error) {
		return "", context.DeadlineExceeded
	})

	v, err := Chain(failing, Env()).Resolve(context.Background(), "FALLBACK_TOKEN")
	require.NoError(t, err)
	require.Equal(t, "fallback", v)
}

func TestChainReportsEveryFailure(t *testing.T) {
	first := resolverFunc(func(ctx context.Context, path string) (string, error) {
		return "", errors.New("vault sealed")
	})
	second := resolverFunc(func(ctx context.Context, path string) (string, error) {
		return "", errors.New("parameter not found")
	})

	_, err := Chain(first, second).Resolve(context.Background(), "ANY")
	require.Error(t, err)
	require.Contains(t, err.Error(), "vault sealed")
	require.Contains(t, err.Error(), "parameter not found")
}

func TestEnvMissingVariable(t *testing.T) {
	_, err := Env().Resolve(context.Background(), "DEFINITELY_NOT_SET_12345")
	require.Error(t, err)
}

type resolverFunc func(ctx context.Context, path string) (string, error)

func (f resolverFunc) Resolve(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}
