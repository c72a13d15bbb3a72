package database

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UpdateVersioned overwrites the row with the given id only if its version
// still equals expected. row must already carry the bumped version. It
// reports whether the write won.
func UpdateVersioned(ctx context.Context, db *gorm.DB, row any, id string, expected int) (bool, error) {
	res := db.WithContext(ctx).
		Model(row).
		Where("id = ? AND version = ?", id, expected).
		Select("*").
		Updates(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Exists reports whether a row of model with id exists.
func Exists(ctx context.Context, db *gorm.DB, model any, id string) (bool, error) {
	var n int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ToJSON encodes v for a JSON column.
func ToJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode json column: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// FromJSON decodes a JSON column into v. Empty columns leave v untouched.
func FromJSON(raw datatypes.JSON, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode json column: %w", err)
	}
	return nil
}
