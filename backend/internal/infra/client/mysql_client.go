/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 17:16:56
 * @FilePath: \mood-diary\backend\internal\infra\client\mysql_client.go
 * @LastEditTime: 2025-11-01 14:26:09
 */
package client

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"mood-diary/backend/internal/config"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// BuildMySQLDSN 生成日记数据库的连接串。
func BuildMySQLDSN(cfg config.MySQLSettings, loc *time.Location) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("mysql host is required")
	}
	if cfg.User == "" {
		return "", fmt.Errorf("mysql user is required")
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("mysql database is required")
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	if loc == nil {
		loc = time.Local
	}

	dsn := mysql.NewConfig()
	dsn.User = cfg.User
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	dsn.DBName = cfg.Database
	dsn.ParseTime = true
	dsn.Loc = loc
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN(), nil
}

// NewGORMMySQL 打开 MySQL 连接池并 Ping，唯一键冲突以 gorm.ErrDuplicatedKey 返回。
func NewGORMMySQL(cfg config.MySQLSettings, loc *time.Location) (*gorm.DB, error) {
	dsn, err := BuildMySQLDSN(cfg, loc)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(gormmysql.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetConnMaxLifetime(60 * time.Minute)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}
