package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGormLoggerWritesThroughZap(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	newGormLogger(zap.New(core), false).Error(context.Background(), "relation %q does not exist", "orders")
	newGormLogger(zap.New(core), false).Info(context.Background(), "hidden outside debug")
	newGormLogger(zap.New(core), true).Info(context.Background(), "visible in debug")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, `relation "orders" does not exist`, entries[0].Message)
		assert.Equal(t, "gorm", entries[0].LoggerName)
		assert.Equal(t, "visible in debug", entries[1].Message)
	}
}

func TestEnsureDatabaseSkipsKeywordDSN(t *testing.T) {
	assert.NoError(t, ensureDatabase("host=localhost user=app dbname=shop"))
	assert.NoError(t, ensureDatabase("postgres://app@localhost:5432"))
}
