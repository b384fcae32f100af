package mysql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dbconfig "github.com/hjyangBig2/lighter/pkg/session/adapter/database/config"
	"github.com/hjyangBig2/lighter/pkg/session/adapter/database/gorm/mysql"
	"github.com/hjyangBig2/lighter/pkg/session/core/config"
)

func TestConnectionString(t *testing.T) {
	dsn := mysql.ConnectionString(dbconfig.DatabaseConfig{
		Host:     "db.internal",
		Port:     3306,
		Database: "lighter",
		User:     "lighter",
		Password: "s3cret",
	})
	assert.Equal(t, "lighter:s3cret@tcp(db.internal:3306)/lighter?charset=utf8mb4&parseTime=True&loc=Local", dsn)
}

func TestNewProvider(t *testing.T) {
	assert.Equal(t, "mysql", mysql.NewProvider(config.NewConfig()).Type())
}
