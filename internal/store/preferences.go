package store

import (
	"context"
	"log/slog"

	"memochat-backend/internal/database"

	"gorm.io/gorm/clause"
)

const (
	prefKeyModel     = "model"
	prefKeyTheme     = "theme"
	prefKeyAutoSpeak = "auto_speak"
)

// Preferences are the three scalar settings that survive restarts. They are
// loaded and saved as a unit so no other code touches the key/value rows.
type Preferences struct {
	Model     string
	Theme     string
	AutoSpeak bool
}

func DefaultPreferences(model string) Preferences {
	return Preferences{Model: model, Theme: "dark", AutoSpeak: false}
}

func (s *Store) LoadPreferences(ctx context.Context, defaults Preferences) Preferences {
	var rows []database.Preference
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		slog.Error("error loading preferences, using defaults", "error", err)
		return defaults
	}

	prefs := defaults
	for _, row := range rows {
		switch row.Key {
		case prefKeyModel:
			prefs.Model = row.Value
		case prefKeyTheme:
			prefs.Theme = row.Value
		case prefKeyAutoSpeak:
			prefs.AutoSpeak = row.Value == "true"
		}
	}
	return prefs
}

func (s *Store) SavePreferences(ctx context.Context, prefs Preferences) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	autoSpeak := "false"
	if prefs.AutoSpeak {
		autoSpeak = "true"
	}

	rows := []database.Preference{
		{Key: prefKeyModel, Value: prefs.Model},
		{Key: prefKeyTheme, Value: prefs.Theme},
		{Key: prefKeyAutoSpeak, Value: autoSpeak},
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&rows).Error
}
