package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"finance/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultRegistrationEnabled applies when no value has been stored yet.
const DefaultRegistrationEnabled = true

// SettingsStore persists the registration flag. Writes are last-write-wins.
type SettingsStore interface {
	RegistrationEnabled(ctx context.Context) (bool, error)
	SetRegistrationEnabled(ctx context.Context, enabled bool) error
}

// DBSettingsStore keeps the flag as a row of the settings table.
type DBSettingsStore struct {
	db *gorm.DB
}

func NewDBSettingsStore(db *gorm.DB) *DBSettingsStore {
	return &DBSettingsStore{db: db}
}

func (s *DBSettingsStore) RegistrationEnabled(ctx context.Context) (bool, error) {
	var setting models.Setting
	err := s.db.WithContext(ctx).Where("key = ?", models.RegistrationEnabledKey).Take(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DefaultRegistrationEnabled, nil
	}
	if err != nil {
		return false, fmt.Errorf("read setting: %w", err)
	}
	enabled, err := strconv.ParseBool(setting.Value)
	if err != nil {
		return false, fmt.Errorf("parse setting %q: %w", setting.Value, err)
	}
	return enabled, nil
}

func (s *DBSettingsStore) SetRegistrationEnabled(ctx context.Context, enabled bool) error {
	setting := models.Setting{
		Key:       models.RegistrationEnabledKey,
		Value:     strconv.FormatBool(enabled),
		UpdatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("write setting: %w", err)
	}
	return nil
}

type settingsFile struct {
	RegistrationEnabled bool `json:"registration_enabled"`
}

// FileSettingsStore keeps the flag in a JSON file. Writers in this process are
// serialised and the file is replaced atomically; separate processes sharing
// the file still race and the last rename wins.
type FileSettingsStore struct {
	path string
	mu   sync.Mutex
}

func NewFileSettingsStore(path string) *FileSettingsStore {
	return &FileSettingsStore{path: path}
}

func (s *FileSettingsStore) RegistrationEnabled(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileSettingsStore) SetRegistrationEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(settingsFile{RegistrationEnabled: enabled})
}

func (s *FileSettingsStore) read() (bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultRegistrationEnabled, nil
	}
	if err != nil {
		return false, fmt.Errorf("read settings file: %w", err)
	}

	var f settingsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return false, fmt.Errorf("decode settings file: %w", err)
	}
	return f.RegistrationEnabled, nil
}

func (s *FileSettingsStore) write(f settingsFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp settings file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}

const redisRegistrationKey = "settings:" + models.RegistrationEnabledKey

// RedisSettingsStore shares the flag between instances through a redis key.
type RedisSettingsStore struct {
	rdb redis.Cmdable
}

func NewRedisSettingsStore(rdb redis.Cmdable) *RedisSettingsStore {
	return &RedisSettingsStore{rdb: rdb}
}

func (s *RedisSettingsStore) RegistrationEnabled(ctx context.Context) (bool, error) {
	val, err := s.rdb.Get(ctx, redisRegistrationKey).Result()
	if errors.Is(err, redis.Nil) {
		return DefaultRegistrationEnabled, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", redisRegistrationKey, err)
	}
	enabled, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("parse setting %q: %w", val, err)
	}
	return enabled, nil
}

func (s *RedisSettingsStore) SetRegistrationEnabled(ctx context.Context, enabled bool) error {
	if err := s.rdb.Set(ctx, redisRegistrationKey, strconv.FormatBool(enabled), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", redisRegistrationKey, err)
	}
	return nil
}
