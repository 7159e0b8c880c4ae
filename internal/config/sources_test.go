package config

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basti564/LauncherIcons/pkg/secrets"
)

func TestReadSourcesResolvesSecretsAndFlags(t *testing.T) {
	t.Setenv("OCULUS_TOKEN", "OC|42|")

	const doc = `
sources:
  pico:
    enabled: true
  oculus:
    options:
      access_token: !secret OCULUS_TOKEN
  viveport:
    enabled: false
`

	out, err := readSources(context.Background(), strings.NewReader(doc), secrets.Env())
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "pico", out[0].Name)
	require.Equal(t, "oculus", out[1].Name)
	require.Equal(t, "OC|42|", out[1].Options["access_token"])
}

func TestReadSourcesRejectsUnknownSource(t *testing.T) {
	const doc = `
sources:
  steam:
    enabled: true
`

	_, err := readSources(context.Background(), strings.NewReader(doc), secrets.Env())
	require.Error(t, err)
	require.Contains(t, err.Error(), "steam")
}

func TestLoadSourcesDefaultsToAll(t *testing.T) {
	r := &Runtime{}
	out, err := r.LoadSources(context.Background(), secrets.Env())
	require.NoError(t, err)
	require.Len(t, out, len(SourceNames))
}
