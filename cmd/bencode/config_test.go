package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
decode:
  to: yaml
  strict: true
  max_depth: 16
encode:
  canonical: true
stream:
  digest: sha1
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bencode.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	return path
}

func TestApplyConfig_FillsUnsetFlags(t *testing.T) {
	var c common
	fs := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	fs.StringVar(&c.config, "config", "", "")
	to := fs.String("to", "json", "")
	opts := decodeFlags(fs)

	require.NoError(t, fs.Parse([]string{"--config", writeConfig(t)}))
	require.NoError(t, applyConfig(fs, c.config))

	assert.Equal(t, "yaml", *to)
	assert.True(t, opts.Strict)
	assert.Equal(t, 16, opts.MaxDepth)
}

func TestApplyConfig_FlagsWin(t *testing.T) {
	var c common
	fs := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	fs.StringVar(&c.config, "config", "", "")
	to := fs.String("to", "json", "")
	opts := decodeFlags(fs)

	require.NoError(t, fs.Parse([]string{"--config", writeConfig(t), "--to", "cbor", "--max-depth", "3"}))
	require.NoError(t, applyConfig(fs, c.config))

	assert.Equal(t, "cbor", *to)
	assert.Equal(t, 3, opts.MaxDepth)
	assert.True(t, opts.Strict)
}

func TestApplyConfig_IgnoresOtherCommands(t *testing.T) {
	fs := pflag.NewFlagSet("stream", pflag.ContinueOnError)
	digest := fs.String("digest", "none", "")
	require.NoError(t, fs.Parse(nil))
	require.NoError(t, applyConfig(fs, writeConfig(t)))
	assert.Equal(t, "sha1", *digest)
	assert.Nil(t, fs.Lookup("to"))
}

func TestApplyConfig_Errors(t *testing.T) {
	fs := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	fs.Int("max-depth", 512, "")
	assert.NoError(t, applyConfig(fs, ""))
	assert.Error(t, applyConfig(fs, filepath.Join(t.TempDir(), "missing.yaml")))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("decode: [\n"), 0o600))
	assert.Error(t, applyConfig(fs, bad))
}
