package sqlite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/hjyangBig2/lighter/pkg/session/adapter/database/config"
	gormadapter "github.com/hjyangBig2/lighter/pkg/session/adapter/database/gorm"
	"github.com/hjyangBig2/lighter/pkg/session/adapter/database/gorm/sqlite"
)

func TestDialectorRequiresPath(t *testing.T) {
	factory, err := gormadapter.GetDialectorFactory("sqlite")
	require.NoError(t, err)

	_, err = factory(dbconfig.DatabaseConfig{Type: "sqlite"})
	assert.EqualError(t, err, "SQLite database path cannot be empty")

	dialector, err := factory(dbconfig.DatabaseConfig{Type: "sqlite", Database: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", dialector.Name())
	assert.Equal(t, ":memory:", sqlite.ConnectionString(dbconfig.DatabaseConfig{Database: ":memory:"}))
}
