package driven

import "context"

// SettingsStore defines the driven port for persisted user preferences.
type SettingsStore interface {
	// Get returns ("", nil) when the key is unset.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
