package api

import (
	"net/http"
	"testing"

	"github.com/jordankell/go-messenger/internal/config"
	"github.com/jordankell/go-messenger/internal/database"
	"github.com/jordankell/go-messenger/internal/server"
	"github.com/jordankell/go-messenger/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewApp(t *testing.T) {
	mux := http.NewServeMux()
	logger := testutil.TestLogger(t)
	cs := &server.ChatServer{}
	db := &database.MockRepository{}
	cfg := &config.Config{
		ServerAddr:     "localhost:8000",
		DatabaseDSN:    "dsn",
		SigningKey:     []byte("secret"),
		AllowedOrigins: []string{"http://localhost:3000"},
	}

	app := NewApp(mux, logger, cs, db, cfg)

	assert.NotNil(t, app, "expected app to be initialized")
	assert.NotNil(t, app.mux, "expected mux to be initialized")
	assert.NotNil(t, app.generateId, "expected id generator to be set")
	assert.Equal(t, app.log, logger, "expected logger to be set")
	assert.Equal(t, app.db, db, "expected db to be set")
	assert.Equal(t, app.cs, cs, "expected chat server to be set")
	assert.Equal(t, app.signingKey, cfg.SigningKey, "expected signing key to be set")
	assert.Equal(t, app.allowedOrigins, cfg.AllowedOrigins, "expected allowed origins to be set")
	assert.Equal(t, app.mux.Addr, cfg.ServerAddr, "expected server address to match config")
}
