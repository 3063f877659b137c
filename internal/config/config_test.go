/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tschaefer/pfqlang/internal/registry"
)

const sample = `
log:
  level: debug
compiler:
  max_descriptors: 64
registry:
  symbols:
    - name: sample
      signature: "Word32 -> SkBuff -> Action SkBuff"
loader:
  directory: /var/lib/pfqlang
pipelines:
  - name: web
    group: 1
    expression: "(when is_tcp (forward 1)) >-> kernel"
  - name: dns
    group: 2
    expression: "filter (has_port 53) >-> kernel"
sink:
  level: warn
  syslog:
    timeout: 2s
  stream:
    enable: true
    writer: stdout
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pfqlang.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func initConfigSucceedsIfConfigFileIsAvailable(t *testing.T) {
	viper.Reset()

	err := InitConfig(writeConfig(t, sample))
	assert.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("log.level"))
	assert.Equal(t, 64, viper.GetInt("compiler.max_descriptors"))
	assert.Equal(t, "/var/lib/pfqlang", viper.GetString("loader.directory"))
	assert.Equal(t, true, viper.GetBool("sink.stream.enable"))
	assert.Equal(t, "stdout", viper.GetString("sink.stream.writer"))
}

func initConfigSucceedsIfNoConfigFileIsAvailable(t *testing.T) {
	viper.Reset()

	err := InitConfig("")
	assert.NoError(t, err)
	assert.Equal(t, "info", viper.GetString("log.level"))
}

func initConfigReturnsErrorIfConfigFileIsNotFound(t *testing.T) {
	viper.Reset()

	err := InitConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no such file or directory")
}

func initConfigReturnsErrorIfConfigFileHasInvalidYAML(t *testing.T) {
	content := `
invalid yaml content:
  - this is not valid
    because: indentation is wrong
`
	viper.Reset()

	err := InitConfig(writeConfig(t, content))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func initConfigSucceedsIfEnvironmentVariableOverridesSettings(t *testing.T) {
	viper.Reset()

	t.Setenv("PFQLANG_SINK_STREAM_WRITER", "discard")
	t.Setenv("PFQLANG_LOG_LEVEL", "warn")

	err := InitConfig(writeConfig(t, sample))
	assert.NoError(t, err)

	assert.Equal(t, "discard", viper.GetString("sink.stream.writer"))
	assert.Equal(t, "warn", viper.GetString("log.level"))

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "discard", c.Sink.Stream.Writer)
	assert.Equal(t, "warn", c.Log.Level)
}

func TestConfig(t *testing.T) {
	t.Run("config.InitConfig succeeds if config file is available", initConfigSucceedsIfConfigFileIsAvailable)
	t.Run("config.InitConfig succeeds if no config file is available", initConfigSucceedsIfNoConfigFileIsAvailable)
	t.Run("config.InitConfig returns error if config file is not found", initConfigReturnsErrorIfConfigFileIsNotFound)
	t.Run("config.InitConfig returns error if config file has invalid YAML", initConfigReturnsErrorIfConfigFileHasInvalidYAML)
	t.Run("config.InitConfig succeeds if environment variable overrides settings", initConfigSucceedsIfEnvironmentVariableOverridesSettings)
}

func loadDecodesConfig(t *testing.T) {
	viper.Reset()
	require.NoError(t, InitConfig(writeConfig(t, sample)))

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Log{Level: "debug", Format: "json"}, c.Log)
	assert.Equal(t, Compiler{MaxDescriptors: 64, Workers: 4, CacheSize: 128}, c.Compiler)
	assert.Equal(t, []registry.Entry{{Name: "sample", Signature: "Word32 -> SkBuff -> Action SkBuff"}}, c.Registry.Symbols)
	assert.Equal(t, "/var/lib/pfqlang", c.Loader.Directory)
	assert.Equal(t, []Pipeline{
		{Name: "web", Group: 1, Expression: "(when is_tcp (forward 1)) >-> kernel"},
		{Name: "dns", Group: 2, Expression: "filter (has_port 53) >-> kernel"},
	}, c.Pipelines)
	assert.True(t, c.Sink.Stream.Enable)
	assert.Equal(t, "json", c.Sink.Stream.Format)
	assert.Equal(t, "warn", c.Sink.Level)
	assert.Equal(t, 2*time.Second, c.Sink.Syslog.Timeout)
	assert.Equal(t, "udp://localhost:514", c.Sink.Syslog.Address)
}

func loadRejectsInvalidPipelines(t *testing.T) {
	content := `
pipelines:
  - name: web
    expression: kernel
  - name: web
    expression: drop
  - name: ../etc
    expression: drop
  - name: empty
    expression: "  "
  - name: negative
    group: -1
    expression: drop
`
	viper.Reset()
	require.NoError(t, InitConfig(writeConfig(t, content)))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `pipeline "web": defined more than once`)
	assert.Contains(t, err.Error(), `invalid pipeline name "../etc"`)
	assert.Contains(t, err.Error(), `pipeline "empty": empty expression`)
	assert.Contains(t, err.Error(), `pipeline "negative": negative group -1`)
}

func watchConfigDeliversChanges(t *testing.T) {
	viper.Reset()
	path := writeConfig(t, sample)
	require.NoError(t, InitConfig(path))

	changes := make(chan *Config, 4)
	WatchConfig(func(c *Config) {
		select {
		case changes <- c:
		default:
		}
	})

	updated := `
pipelines:
  - name: web
    group: 3
    expression: drop
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if len(c.Pipelines) == 1 && c.Pipelines[0].Group == 3 {
				return
			}
		case <-timeout:
			t.Fatal("no configuration change delivered")
		}
	}
}

func TestLoad(t *testing.T) {
	t.Run("config.Load decodes config", loadDecodesConfig)
	t.Run("config.Load rejects invalid pipelines", loadRejectsInvalidPipelines)
	t.Run("config.WatchConfig delivers changes", watchConfigDeliversChanges)
}
