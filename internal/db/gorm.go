package db

import (
	"fmt"
	"log"

	"unstructured-rag/internal/config"
	"unstructured-rag/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormDB wraps the GORM database instance
type GormDB struct {
	*gorm.DB
}

// NewGorm initializes the database connection, enables pgvector and
// migrates the schema. The chunk table name comes from configuration so
// multiple collections can share one database.
func NewGorm(cfg *config.Config) (*GormDB, error) {
	dsn := cfg.DatabaseURL()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Enable pgvector extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	if err := db.AutoMigrate(&models.Document{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := db.Table(cfg.VectorCollection).AutoMigrate(&models.Chunk{}); err != nil {
		return nil, fmt.Errorf("failed to migrate chunk table: %w", err)
	}

	// Vector index for cosine search; GORM has no native support for
	// pgvector index types, so this stays raw SQL.
	indexSQL := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_embedding
		ON %s USING ivfflat (embedding vector_cosine_ops)
	`, cfg.VectorCollection, cfg.VectorCollection)
	if err := db.Exec(indexSQL).Error; err != nil {
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}

	log.Println("✓ Database connected and migrated successfully")

	return &GormDB{db}, nil
}

// Close closes the database connection
func (db *GormDB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
