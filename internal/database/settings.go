package database

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bryan-buckman/newsreader/internal/model"
)

// GetStringSet reads a set-valued setting stored one value per line.
// A missing key is an empty set.
func GetStringSet(s Store, key string) ([]string, error) {
	val, err := s.GetSetting(key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sortedSet(strings.Split(val, "\n")), nil
}

// SetStringSet replaces a set-valued setting.
func SetStringSet(s Store, key string, values []string) error {
	return s.SetSetting(key, strings.Join(sortedSet(values), "\n"))
}

// AddToStringSet adds value to a set-valued setting.
func AddToStringSet(s Store, key, value string) error {
	current, err := GetStringSet(s, key)
	if err != nil {
		return err
	}
	return SetStringSet(s, key, append(current, value))
}

// GetRefreshInterval returns the configured sync interval, defaulting to 30 minutes.
func GetRefreshInterval(s Store) (model.RefreshInterval, error) {
	val, err := s.GetSetting(model.SettingRefreshInterval)
	if errors.Is(err, ErrNotFound) || val == "" {
		return model.DefaultRefresh, nil
	}
	if err != nil {
		return model.DefaultRefresh, err
	}
	return model.RefreshInterval(val), nil
}

// GetLastSync returns when the last sync pass completed; zero if never.
func GetLastSync(s Store) (time.Time, error) {
	val, err := s.GetSetting(model.SettingLastSync)
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, nil
	}
	return fromMillis(ms), nil
}

// SetLastSync records a completed sync pass.
func SetLastSync(s Store, t time.Time) error {
	return s.SetSetting(model.SettingLastSync, strconv.FormatInt(toMillis(t), 10))
}
