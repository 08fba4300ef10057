package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Connect opens the GORM pool and verifies it with a bounded ping.
// TranslateError is on so driver errors surface as gorm sentinels the
// repositories can branch on.
func Connect(ctx context.Context, databaseURL string, maxConns int32) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql pool: %w", err)
	}
	tunePool(sqlDB, maxConns)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	slog.Default().InfoContext(ctx, "postgres pool ready",
		"module", "postgres",
		"layer", "adapter",
		"operation", "connect",
		"outcome", "success",
		"max_conns", maxConns,
	)
	return db, nil
}

func tunePool(sqlDB interface {
	SetMaxOpenConns(int)
	SetMaxIdleConns(int)
	SetConnMaxIdleTime(time.Duration)
	SetConnMaxLifetime(time.Duration)
}, maxConns int32) {
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(int(maxConns))
		sqlDB.SetMaxIdleConns(int(maxConns) / 2)
	}
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)
}

// RunMigrations applies the embedded SQL files in lexical order, each in
// its own transaction. Files are idempotent (IF NOT EXISTS), so reapplying
// the set on boot is safe without a schema-version table.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}

	for _, name := range names {
		raw, err := migrationFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Exec(string(raw)).Error
		})
		if err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	slog.Default().InfoContext(ctx, "migrations applied",
		"module", "postgres",
		"layer", "adapter",
		"operation", "migrate",
		"outcome", "success",
		"file_count", len(names),
	)
	return nil
}
