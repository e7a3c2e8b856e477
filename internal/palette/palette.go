package palette

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BerylCAtieno/ikigai-coach/internal/apperr"
	"github.com/BerylCAtieno/ikigai-coach/internal/kvstore"
	"github.com/BerylCAtieno/ikigai-coach/internal/models"
	"github.com/lucasb-eyer/go-colorful"
)

// StorageKey holds the JSON-encoded ColorAssignment.
const StorageKey = "ikigaiColors"

// Load returns the persisted palette, or the defaults when nothing usable is
// stored. Unknown fields and invalid colors in the stored document are
// dropped.
func Load(ctx context.Context, store kvstore.Store) (models.ColorAssignment, error) {
	raw, err := store.Get(ctx, StorageKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return models.DefaultColors(), nil
	}
	if err != nil {
		return models.DefaultColors(), fmt.Errorf("load palette: %w", err)
	}

	var stored map[string]string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return models.DefaultColors(), nil
	}

	out := models.DefaultColors()
	for k, v := range stored {
		f := models.Field(k)
		if !f.IsCore() {
			continue
		}
		if hex, err := Normalize(v); err == nil {
			out[f] = hex
		}
	}
	return out, nil
}

// Set validates and persists a single field's color, returning the updated
// palette.
func Set(ctx context.Context, store kvstore.Store, field models.Field, color string) (models.ColorAssignment, error) {
	return SetMany(ctx, store, map[models.Field]string{field: color})
}

// SetMany validates every entry before writing the palette once. One bad
// entry rejects the whole batch.
func SetMany(ctx context.Context, store kvstore.Store, colors map[models.Field]string) (models.ColorAssignment, error) {
	normalized := make(map[models.Field]string, len(colors))
	for field, color := range colors {
		if !field.IsCore() {
			return nil, apperr.InvalidInput(fmt.Sprintf("%q is not a core field", field))
		}
		hex, err := Normalize(color)
		if err != nil {
			return nil, apperr.InvalidInput(fmt.Sprintf("invalid color %q for %s", color, field))
		}
		normalized[field] = hex
	}

	current, err := Load(ctx, store)
	if err != nil {
		return nil, err
	}
	if len(normalized) == 0 {
		return current, nil
	}
	for field, hex := range normalized {
		current[field] = hex
	}

	data, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("marshal palette: %w", err)
	}
	if err := store.Set(ctx, StorageKey, string(data)); err != nil {
		return nil, fmt.Errorf("save palette: %w", err)
	}
	return current, nil
}

// Reset removes the stored palette.
func Reset(ctx context.Context, store kvstore.Store) error {
	return store.Delete(ctx, StorageKey)
}

// Normalize parses any hex color form ("#abc", "#aabbcc") into "#rrggbb".
func Normalize(color string) (string, error) {
	c, err := colorful.Hex(color)
	if err != nil {
		return "", err
	}
	return c.Hex(), nil
}
