package config

import (
	"path/filepath"
	"time"
)

const (
	recordStoreURLVar  = "RECORD_STORE_URL"
	recordStoreFileVar = "RECORD_STORE_FILE"
)

type RecordStoreConfig interface {
	GetRecordStoreURL() string
	GetRecordStoreFile() string
	GetRequestTimeout() time.Duration
}

type RecordStore struct{}

var _ RecordStoreConfig = RecordStore{}

// GetRecordStoreURL is the base URL collections are resolved against
func (RecordStore) GetRecordStoreURL() string {
	return GetEnv(recordStoreURLVar, "http://localhost:3011")
}

func (RecordStore) GetRecordStoreFile() string {
	return GetEnv(recordStoreFileVar, filepath.Join(EnvVars{}.GetDataFolder(), "db.json"))
}

func (RecordStore) GetRequestTimeout() time.Duration {
	return 10 * time.Second
}
