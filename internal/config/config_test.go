package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestClientConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PROJECTMATE_HOME", dir)
	t.Setenv("PROJECTMATE_SERVER", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.ServerURL != DefaultServerURL || cfg.LoggedIn() {
		t.Fatalf("defaults = %+v", cfg)
	}

	cfg.Token = "tok"
	cfg.UserID = "u1"
	cfg.CurrentProject = "p1"
	if err := cfg.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}

	t.Setenv("PROJECTMATE_SERVER", "http://api.example.com")
	loaded, err := Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Token != "tok" || loaded.CurrentProject != "p1" || loaded.ServerURL != "http://api.example.com" {
		t.Fatalf("loaded = %+v", loaded)
	}

	loaded.ClearSession()
	if loaded.LoggedIn() || loaded.UserID != "" {
		t.Fatalf("session not cleared: %+v", loaded)
	}
}

func TestLoadServerLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	yamlConfig := `
addr: ":9000"
driver: postgres
dsn: postgres://localhost/projectmate
jwt_secret: file-secret-0123456789
invitation_ttl: 48h
rate_limit: 5
`
	if err := os.WriteFile(path, []byte(yamlConfig), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PROJECTMATE_JWT_SECRET", "env-secret-0123456789")
	t.Setenv("PROJECTMATE_SWEEP_INTERVAL", "1m")

	cfg, err := LoadServer(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.Driver != "postgres" || cfg.RateLimit != 5 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.InvitationTTL != 48*time.Hour {
		t.Fatalf("invitation ttl = %v", cfg.InvitationTTL)
	}
	if cfg.JWTSecret != "env-secret-0123456789" || cfg.SweepInterval != time.Minute {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.TokenTTL != 7*24*time.Hour || cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestServerValidate(t *testing.T) {
	valid := DefaultServer()
	valid.JWTSecret = "0123456789abcdef"

	tests := []struct {
		name   string
		mutate func(*Server)
		ok     bool
	}{
		{name: "sqlite defaults", mutate: func(*Server) {}, ok: true},
		{name: "short secret", mutate: func(c *Server) { c.JWTSecret = "short" }},
		{name: "unknown driver", mutate: func(c *Server) { c.Driver = "redis" }},
		{name: "postgres without dsn", mutate: func(c *Server) { c.Driver = "postgres" }},
		{name: "mongo without dsn", mutate: func(c *Server) { c.Driver = "mongo" }},
		{name: "mongo with dsn", mutate: func(c *Server) { c.Driver = "mongo"; c.DSN = "mongodb://localhost" }, ok: true},
		{name: "mongo without transactions", mutate: func(c *Server) {
			c.Driver = "mongo"
			c.DSN = "mongodb://localhost"
			c.MongoTransactions = false
		}},
		{name: "auth limit without window", mutate: func(c *Server) { c.AuthWindow = 0 }},
		{name: "auth limit disabled", mutate: func(c *Server) { c.AuthAttempts = 0; c.AuthWindow = 0 }, ok: true},
		{name: "zero invitation ttl", mutate: func(c *Server) { c.InvitationTTL = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
