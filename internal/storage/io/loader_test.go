package io

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/dlsync/internal/model"
)

func TestConfigYAMLRepository_GetConfig(t *testing.T) {
	tests := map[string]struct {
		fs     fstest.MapFS
		path   string
		expCfg model.ClientConfig
		expErr bool
		errMsg string
	}{
		"Full config should load successfully": {
			fs: fstest.MapFS{
				"dlsync.yaml": &fstest.MapFile{
					Data: []byte(`backend:
  url: http://127.0.0.1:8080/api
  timeout: 5s
  retry:
    count: 2
    wait: 250ms
poll_interval: 2s
journal:
  path: /tmp/journal.db
watch:
  listen: 127.0.0.1:9090
  allowed_origins:
    - http://localhost:3000
`),
				},
			},
			path: "dlsync.yaml",
			expCfg: model.ClientConfig{
				BackendURL:       "http://127.0.0.1:8080/api",
				BackendTimeout:   5 * time.Second,
				BackendRetries:   2,
				BackendRetryWait: 250 * time.Millisecond,
				PollInterval:     2 * time.Second,
				JournalPath:      "/tmp/journal.db",
				Listen:           "127.0.0.1:9090",
				AllowedOrigins:   []string{"http://localhost:3000"},
			},
		},
		"Disabled journal should load successfully": {
			fs: fstest.MapFS{
				"dlsync.yaml": &fstest.MapFile{
					Data: []byte(`journal:
  disabled: true
`),
				},
			},
			path:   "dlsync.yaml",
			expCfg: model.ClientConfig{JournalDisabled: true},
		},
		"Empty config should load successfully": {
			fs: fstest.MapFS{
				"empty.yaml": &fstest.MapFile{
					Data: []byte(`---
`),
				},
			},
			path:   "empty.yaml",
			expCfg: model.ClientConfig{},
		},
		"Missing file should return error": {
			fs:     fstest.MapFS{},
			path:   "nonexistent.yaml",
			expErr: true,
			errMsg: "reading config file",
		},
		"Invalid YAML should return error": {
			fs: fstest.MapFS{
				"invalid.yaml": &fstest.MapFile{
					Data: []byte(`invalid: yaml: content: {}`),
				},
			},
			path:   "invalid.yaml",
			expErr: true,
			errMsg: "parsing YAML",
		},
		"Non HTTP backend URL should return error": {
			fs: fstest.MapFS{
				"dlsync.yaml": &fstest.MapFile{
					Data: []byte(`backend:
  url: ftp://example.com
`),
				},
			},
			path:   "dlsync.yaml",
			expErr: true,
			errMsg: "backend url must be an http or https URL",
		},
		"Invalid duration should return error": {
			fs: fstest.MapFS{
				"dlsync.yaml": &fstest.MapFile{
					Data: []byte(`poll_interval: often
`),
				},
			},
			path:   "dlsync.yaml",
			expErr: true,
			errMsg: "poll interval",
		},
		"Negative duration should return error": {
			fs: fstest.MapFS{
				"dlsync.yaml": &fstest.MapFile{
					Data: []byte(`backend:
  timeout: -1s
`),
				},
			},
			path:   "dlsync.yaml",
			expErr: true,
			errMsg: "backend timeout",
		},
		"Negative retry count should return error": {
			fs: fstest.MapFS{
				"dlsync.yaml": &fstest.MapFile{
					Data: []byte(`backend:
  retry:
    count: -1
`),
				},
			},
			path:   "dlsync.yaml",
			expErr: true,
			errMsg: "backend retry count",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			repo := NewConfigYAMLRepository(tc.fs)
			cfg, err := repo.GetConfig(context.Background(), tc.path)

			if tc.expErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expCfg, cfg)
		})
	}
}

func TestConfigYAMLRepository_GetConfig_ContextCancellation(t *testing.T) {
	fs := fstest.MapFS{
		"test.yaml": &fstest.MapFile{
			Data: []byte(`poll_interval: 1s
`),
		},
	}

	repo := NewConfigYAMLRepository(fs)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.GetConfig(ctx, "test.yaml")
	require.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}
