package database

import (
	"context"
	"testing"

	"bakingai/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestConnString(t *testing.T) {
	cfg := config.Database{Host: "db", Port: "5432", User: "baker", Password: "s3cret", Name: "bakingai", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=baker password=s3cret dbname=bakingai sslmode=disable", ConnString(cfg))
}

func TestConnect_MissingConfig(t *testing.T) {
	_, err := Connect(context.Background(), config.Database{Host: "db"})
	assert.ErrorContains(t, err, "missing required database configuration")
}
