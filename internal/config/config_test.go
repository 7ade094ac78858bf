package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfigDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     "3306",
		User:     "shop",
		Password: "secret",
		DBName:   "shopcore",
	}

	assert.Equal(t,
		"shop:secret@tcp(db.internal:3306)/shopcore?charset=utf8mb4&parseTime=True&loc=Local",
		d.DSN(),
	)
}

func TestLoadDatabaseConfigPoolDefaults(t *testing.T) {
	d := loadDatabaseConfig("dev")

	assert.Equal(t, 10, d.MaxIdleConns)
	assert.Equal(t, 100, d.MaxOpenConns)
	assert.Equal(t, 60, d.ConnMaxLifetimeMins)
}

func TestLoadDatabaseConfigPoolOverrides(t *testing.T) {
	t.Setenv("DB_MAX_IDLE_CONNS", "4")
	t.Setenv("DB_MAX_OPEN_CONNS", "25")
	t.Setenv("DB_CONN_MAX_LIFETIME_MINS", "15")

	d := loadDatabaseConfig("dev")

	assert.Equal(t, 4, d.MaxIdleConns)
	assert.Equal(t, 25, d.MaxOpenConns)
	assert.Equal(t, 15, d.ConnMaxLifetimeMins)
}
