package backend

import (
	"fmt"

	"cattlevalue/internal/herd/memory"
	"cattlevalue/internal/log"
	"cattlevalue/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentStorage),
	}
}

// Create implements Factory.Create
func (f *DefaultFactory) Create(config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLite:
		return f.createSQLiteBackend(config)
	case Memory:
		return f.createMemoryBackend(config), nil
	default:
		return nil, fmt.Errorf("unsupported herd backend: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", config.SQLiteDBPath, err)
	}

	f.logger.Info("SQLite herd storage ready",
		"db_path", config.SQLiteDBPath,
		"schema_version", repo.SchemaVersion())

	return &Result{Type: SQLite, Herd: repo, SQLite: repo}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) *Result {
	f.logger.Info("In-memory herd storage ready", "seed_file", config.SeedFile)
	return &Result{Type: Memory, Herd: memory.NewFromFile(config.SeedFile)}
}
