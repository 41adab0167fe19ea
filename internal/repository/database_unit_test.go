package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{
		Host:     "db",
		Port:     "5432",
		User:     "pickem",
		Password: "p@ss/word",
		Database: "pickem",
		SSLMode:  "require",
	}
	assert.Equal(t, "postgres://pickem:p%40ss%2Fword@db:5432/pickem?sslmode=require", cfg.DSN())

	cfg.URL = "postgres://u:p@host/db"
	assert.Equal(t, "postgres://u:p@host/db", cfg.DSN())
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/db?sslmode=disable", migrateURL("postgres://u:p@h:5432/db?sslmode=disable"))
	assert.Equal(t, "pgx5://u@h/db", migrateURL("postgresql://u@h/db"))
	assert.Equal(t, "pgx5://u@h/db", migrateURL("pgx5://u@h/db"))
}
