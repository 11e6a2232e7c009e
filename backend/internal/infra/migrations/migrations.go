// Package migrations 内嵌两种数据库的表结构，并通过 goose 执行迁移。
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed mysql/*.sql sqlite/*.sql
var embedded embed.FS

// Dialect 指定迁移使用的数据库方言。
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// FS 返回某个方言的迁移文件，根目录即方言目录。
func FS(d Dialect) (fs.FS, error) {
	switch d {
	case MySQL, SQLite:
		return fs.Sub(embedded, string(d))
	default:
		return nil, fmt.Errorf("unknown migration dialect %q", d)
	}
}

// NewProvider 基于 db 创建对应方言的 goose provider。
func NewProvider(db *sql.DB, d Dialect) (*goose.Provider, error) {
	fsys, err := FS(d)
	if err != nil {
		return nil, err
	}

	gooseDialect := goose.DialectMySQL
	if d == SQLite {
		gooseDialect = goose.DialectSQLite3
	}
	provider, err := goose.NewProvider(gooseDialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("create goose provider: %w", err)
	}
	return provider, nil
}

// Up 执行全部未应用的迁移，返回执行数量。
func Up(ctx context.Context, db *sql.DB, d Dialect) (int, error) {
	provider, err := NewProvider(db, d)
	if err != nil {
		return 0, err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("apply %s migrations: %w", d, err)
	}
	return len(results), nil
}
