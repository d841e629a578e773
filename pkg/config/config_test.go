package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmesh/taskmesh/pkg/allocator"
	"github.com/taskmesh/taskmesh/pkg/types"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dispatchd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_AppliesDefaultsWhenFieldsOmitted(t *testing.T) {
	path := writeConfig(t, "policy: even\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, PolicyEvenLoad, cfg.Policy)
	assert.Equal(t, uint32(4), cfg.DefaultQueueSize)
	assert.Equal(t, 0.05, cfg.TaskExecSeconds)
}

func TestLoad_ParsesBootstrapWorkers(t *testing.T) {
	path := writeConfig(t, `
policy: resources
default_queue_size: 8
bootstrap_workers:
  - resources: {gpu: -1}
    queue_size: 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.BootstrapWorkers, 1)
	assert.Equal(t, uint32(4), cfg.BootstrapWorkers[0].QueueSize)
	assert.Contains(t, cfg.BootstrapWorkers[0].Resources, types.Token("gpu"))
}

func TestLoad_RejectsUnknownPolicy(t *testing.T) {
	path := writeConfig(t, "policy: quantum\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_NewPolicyConstructsMatchingImplementation(t *testing.T) {
	cfg := &Config{Policy: PolicyResourceAware}
	p := cfg.NewPolicy(zerolog.Nop())
	assert.IsType(t, &allocator.ResourceAwarePolicy{}, p)

	cfg.Policy = PolicyEvenLoad
	p = cfg.NewPolicy(zerolog.Nop())
	assert.IsType(t, &allocator.EvenLoadPolicy{}, p)
}
