package logrus_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/slok/dlsync/internal/log"
	loglogrus "github.com/slok/dlsync/internal/log/logrus"
)

func newTestLogger(buf *bytes.Buffer) log.Logger {
	l := logrus.New()
	l.Out = buf
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.JSONFormatter{DisableTimestamp: true})
	return loglogrus.NewLogrus(logrus.NewEntry(l))
}

func TestLogrusWithValues(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.WithValues(log.Kv{"svc": "test"}).Infof("hello %s", "world")

	out := buf.String()
	assert.Contains(t, out, `"msg":"hello world"`)
	assert.Contains(t, out, `"svc":"test"`)
	assert.Contains(t, out, `"level":"info"`)
}

func TestLogrusWithCtxValues(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	ctx := logger.SetValuesOnCtx(context.Background(), log.Kv{"task-id": "t1"})
	ctx = logger.SetValuesOnCtx(ctx, log.Kv{"op": "retry"})
	logger.WithCtxValues(ctx).Debugf("debug")

	out := buf.String()
	assert.Contains(t, out, `"task-id":"t1"`)
	assert.Contains(t, out, `"op":"retry"`)
	assert.Contains(t, out, `"level":"debug"`)
}

func TestNoopLogger(t *testing.T) {
	ctx := context.Background()
	logger := log.Noop.WithValues(log.Kv{"a": 1})

	assert.Equal(t, ctx, logger.SetValuesOnCtx(ctx, log.Kv{"b": 2}))
	assert.Empty(t, log.ValuesFromCtx(ctx))
}
