package postgres

import (
	"context"
	"fmt"
)

func (r *settingsRepository) Get(ctx context.Context, key string) (string, error) {
	query := `
		SELECT setting_value
		FROM system_settings
		WHERE setting_key = $1
	`
	var value string
	if err := r.q(ctx).GetContext(ctx, &value, query, key); err != nil {
		return "", mapError(fmt.Errorf("failed to get setting %q: %w", key, err), "setting")
	}
	return value, nil
}
