package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetplan/internal/config"
	"budgetplan/internal/core"
	"budgetplan/internal/identity"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "/tmp/budget.db",
		AMQPURL:      "amqp://localhost/",
		AMQPExchange: "budgetplan",
		AMQPQueue:    "budget_events",
	}

	got, err := FromAppConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, got.Type)
	assert.Equal(t, "/tmp/budget.db", got.SQLiteDBPath)
	assert.Equal(t, "budget_events", got.AMQPQueue)

	_, err = FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"postgres with url", Config{Type: PostgresBackend, DatabaseURL: "postgres://localhost/db"}, false},
		{"unknown", Config{Type: "excel"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "error = %v", err)
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	assert.Equal(t, []string{"memory", "sqlite", "postgres"}, GetBackendTypeStrings())
}

func TestCreateMemoryBackend(t *testing.T) {
	result, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	require.NotNil(t, result.Storage)
	assert.Nil(t, result.Events)
	assert.Nil(t, result.Ping)
	assert.Nil(t, result.Cleanup)
}

func TestCreateSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "budget.db")

	result, err := NewFactory(nil).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	require.NotNil(t, result.Cleanup)
	defer result.Cleanup()

	require.NoError(t, result.Ping(ctx))

	user := identity.User("alice")
	require.NoError(t, result.Storage.SavePlan(ctx, user, core.DefaultFinancialData()))
	plan, err := result.Storage.LoadPlan(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, core.DefaultFinancialData().Incomes, plan.Incomes)

	users, err := result.Storage.ListUsers(ctx)
	require.NoError(t, err)
	assert.Contains(t, users, user)
}
