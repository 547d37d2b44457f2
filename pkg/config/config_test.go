package config

import (
	"testing"
)

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "marketbay",
		Password: "secret",
		Database: "marketbay_inventory",
		SSLMode:  "require",
	}

	want := "host=db.internal port=5432 user=marketbay password=secret dbname=marketbay_inventory sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %v, want %v", got, want)
	}
}

func TestDatabaseConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      DatabaseConfig
		environment string
		wantErr     bool
	}{
		{
			name:        "development allows localhost",
			config:      DatabaseConfig{Host: "localhost"},
			environment: "development",
			wantErr:     false,
		},
		{
			name:        "production rejects localhost",
			config:      DatabaseConfig{Host: "localhost"},
			environment: "production",
			wantErr:     true,
		},
		{
			name:        "production rejects empty host",
			config:      DatabaseConfig{Host: ""},
			environment: "production",
			wantErr:     true,
		},
		{
			name:        "production accepts real host",
			config:      DatabaseConfig{Host: "prod-db.aws.com"},
			environment: "production",
			wantErr:     false,
		},
		{
			name:        "staging rejects localhost",
			config:      DatabaseConfig{Host: "localhost"},
			environment: "staging",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate(tt.environment)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("inventory-service")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8084 {
		t.Errorf("Server.Port = %v, want 8084", cfg.Server.Port)
	}
	if cfg.Reservation.Store != "memory" {
		t.Errorf("Reservation.Store = %v, want memory", cfg.Reservation.Store)
	}
	if cfg.Forecast.LookbackDays != 90 {
		t.Errorf("Forecast.LookbackDays = %v, want 90", cfg.Forecast.LookbackDays)
	}
	if cfg.Forecast.SafetyStockMultiplier != 1.5 {
		t.Errorf("Forecast.SafetyStockMultiplier = %v, want 1.5", cfg.Forecast.SafetyStockMultiplier)
	}
	if cfg.Forecast.OverstockMultiplier != 3.0 {
		t.Errorf("Forecast.OverstockMultiplier = %v, want 3.0", cfg.Forecast.OverstockMultiplier)
	}
	if cfg.Forecast.OrderBufferMultiplier != 1.2 {
		t.Errorf("Forecast.OrderBufferMultiplier = %v, want 1.2", cfg.Forecast.OrderBufferMultiplier)
	}
}
