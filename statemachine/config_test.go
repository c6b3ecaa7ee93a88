package statemachine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		want    *Config
		wantErr error
	}{
		{
			name: "full document",
			yaml: `
name: checkout
handlerTimeout: 250ms
logTransitions: true
tracing: false
metrics: false
`,
			want: &Config{
				Name:           "checkout",
				HandlerTimeout: 250 * time.Millisecond,
				LogTransitions: true,
			},
		},
		{
			name: "defaults for missing fields",
			yaml: `name: wizard`,
			want: &Config{Name: "wizard", Tracing: true, Metrics: true},
		},
		{
			name:    "empty name",
			yaml:    `name: ""`,
			wantErr: ErrConfigNameRequired,
		},
		{
			name:    "negative timeout",
			yaml:    `handlerTimeout: -1s`,
			wantErr: ErrNegativeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			config, err := LoadConfigFromBytes([]byte(tt.yaml))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.ErrorIs(t, err, ErrConfiguration)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, config)
		})
	}
}

func TestLoadConfigFromBytes_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := LoadConfigFromBytes([]byte("name: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "machine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: from-file\n"), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", config.Name)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadConfigFromEnv(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	t.Setenv("WIZARD_NAME", "wizard")
	t.Setenv("WIZARD_HANDLER_TIMEOUT", "2s")
	t.Setenv("WIZARD_LOG_TRANSITIONS", "true")
	t.Setenv("WIZARD_METRICS", "false")

	config, err := LoadConfigFromEnv("wizard")
	require.NoError(t, err)

	assert.Equal(t, &Config{
		Name:           "wizard",
		HandlerTimeout: 2 * time.Second,
		LogTransitions: true,
		Tracing:        true,
		Metrics:        false,
	}, config)
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	t.Setenv("BROKEN_TRACING", "sometimes")

	_, err := LoadConfigFromEnv("broken")
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "BROKEN_TRACING")
}
