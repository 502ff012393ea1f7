package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"go.ngs.io/rasterwin/internal/domain"
)

// clearEnv blanks every variable Load reads so the host environment does not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "RASTER_CATALOG", "RASTER_WORKERS", "DEFAULT_RESAMPLING",
		"LOG_LEVEL", "LOG_DEVELOPMENT", "LOG_FILE", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.CatalogPath != "./rasters.yaml" {
		t.Errorf("CatalogPath = %q", cfg.CatalogPath)
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d, want %d", cfg.Workers, runtime.NumCPU())
	}
	if cfg.DefaultResampling != domain.Average {
		t.Errorf("DefaultResampling = %v, want average", cfg.DefaultResampling)
	}
	if cfg.LogLevel != "info" || cfg.LogDevelopment || cfg.LogFile != "" {
		t.Errorf("unexpected log settings: %+v", cfg)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Errorf("CORSAllowedOrigins = %v, want nil", cfg.CORSAllowedOrigins)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("RASTER_CATALOG", "/etc/rasters.yaml")
	t.Setenv("RASTER_WORKERS", "3")
	t.Setenv("DEFAULT_RESAMPLING", "Bilinear")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_DEVELOPMENT", "yes")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "3000" || cfg.CatalogPath != "/etc/rasters.yaml" || cfg.Workers != 3 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.DefaultResampling != domain.Bilinear {
		t.Errorf("DefaultResampling = %v, want bilinear", cfg.DefaultResampling)
	}
	if cfg.LogLevel != "debug" || !cfg.LogDevelopment {
		t.Errorf("log settings = %q, %v", cfg.LogLevel, cfg.LogDevelopment)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("CORSAllowedOrigins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
	for i := range want {
		if cfg.CORSAllowedOrigins[i] != want[i] {
			t.Errorf("origin %d = %q, want %q", i, cfg.CORSAllowedOrigins[i], want[i])
		}
	}
}

func TestFromEnvInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		code string
	}{
		{"port not a number", "PORT", "http", ErrCodeInvalidPort},
		{"port out of range", "PORT", "70000", ErrCodeInvalidPort},
		{"zero workers", "RASTER_WORKERS", "0", ErrCodeInvalidWorkers},
		{"workers not a number", "RASTER_WORKERS", "many", ErrCodeInvalidWorkers},
		{"unknown resampling", "DEFAULT_RESAMPLING", "sharpest", ErrCodeInvalidResample},
		{"unknown log level", "LOG_LEVEL", "verbose", ErrCodeInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := FromEnv()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if cfgErr.Code != tt.code {
				t.Errorf("Code = %s, want %s", cfgErr.Code, tt.code)
			}
			if cfgErr.Action == "" {
				t.Error("expected an action")
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("RASTER_WORKERS")
	os.Unsetenv("PORT")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("RASTER_WORKERS=5\nPORT=9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("RASTER_WORKERS")
		os.Unsetenv("PORT")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 5 || cfg.Port != "9090" {
		t.Errorf("Workers = %d, Port = %s; want 5, 9090", cfg.Workers, cfg.Port)
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("a missing .env file should be ignored: %v", err)
	}
}

func TestValidateCatalog(t *testing.T) {
	cfg := &Config{CatalogPath: filepath.Join(t.TempDir(), "none.yaml")}

	var cfgErr *ConfigError
	if err := cfg.Validate(); !errors.As(err, &cfgErr) || cfgErr.Code != ErrCodeMissingCatalog {
		t.Fatalf("expected %s, got %v", ErrCodeMissingCatalog, err)
	}

	path := filepath.Join(t.TempDir(), "rasters.yaml")
	if err := os.WriteFile(path, []byte("rasters: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.CatalogPath = path
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
