package backend

import (
	"fmt"
	"time"

	"invoicer/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		PostgresDSN:      appConfig.Database.DSN(),
		ConnectAttempts:  5,
		ConnectRetryWait: 2 * time.Second,

		SupabaseURL:  appConfig.SupabaseURL,
		SupabaseKey:  appConfig.SupabaseKey,
		SupabaseUser: appConfig.SupabaseUser,

		Seed: true,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.PostgresDSN == "" {
			return fmt.Errorf("database DSN is required for postgres backend")
		}
	case SupabaseBackend:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required for supabase backend")
		}
	case MemoryBackend:
		// Nothing to check.
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend, SupabaseBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}
