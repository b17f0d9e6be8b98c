package db

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	gmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"price_optimizer/internal/feature/pricing/adapters"
)

// 対応しているドライバです。
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// retryInterval は接続試行の間隔です。
const retryInterval = 3 * time.Second

// Config はデータベース接続設定です。
type Config struct {
	Driver        string // mysql (デフォルト)、postgres、sqlite
	User          string
	Password      string
	Name          string // データベース名。sqlite ではファイルパス
	Host          string
	Port          string
	InstanceName  string // Cloud SQL インスタンス。mysql では Host/Port より優先
	RunMigrations bool
}

// LoadConfigFromEnv は環境変数からデータベース設定を読み込みます。
func LoadConfigFromEnv() Config {
	return Config{
		Driver:        os.Getenv("DB_DRIVER"),
		User:          os.Getenv("DB_USER"),
		Password:      os.Getenv("DB_PASSWORD"),
		Name:          os.Getenv("DB_NAME"),
		Host:          os.Getenv("DB_HOST"),
		Port:          os.Getenv("DB_PORT"),
		InstanceName:  os.Getenv("INSTANCE_CONNECTION_NAME"),
		RunMigrations: os.Getenv("RUN_MIGRATIONS") == "true",
	}
}

// BuildDSN はドライバごとの接続文字列を返します。
func BuildDSN(cfg Config) string {
	switch cfg.Driver {
	case DriverPostgres:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port)
	case DriverSQLite:
		if cfg.Name == "" {
			return "price_optimizer.db"
		}
		return cfg.Name
	}
	if cfg.InstanceName != "" {
		return fmt.Sprintf("%s:%s@unix(/cloudsql/%s)/%s?charset=utf8mb4&parseTime=true&loc=Local",
			cfg.User, cfg.Password, cfg.InstanceName, cfg.Name)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=Local",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
}

// Opener は DSN から gorm の接続を開きます。
type Opener func(dsn string) (*gorm.DB, error)

// OpenerFor はドライバに対応する Opener を返します。
func OpenerFor(driver string) (Opener, error) {
	switch driver {
	case "", DriverMySQL:
		return func(dsn string) (*gorm.DB, error) { return gorm.Open(gmysql.Open(dsn), &gorm.Config{}) }, nil
	case DriverPostgres:
		return func(dsn string) (*gorm.DB, error) { return gorm.Open(postgres.Open(dsn), &gorm.Config{}) }, nil
	case DriverSQLite:
		return func(dsn string) (*gorm.DB, error) { return gorm.Open(sqlite.Open(dsn), &gorm.Config{}) }, nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
}

// ConnectWithRetry は成功するか timeout が経過するまで opener を呼び出します。
func ConnectWithRetry(dsn string, timeout time.Duration, opener Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().Add(retryInterval).After(deadline) {
			return nil, fmt.Errorf("DB connect failed after %v: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying", "error", err)
		time.Sleep(retryInterval)
	}
}

// OpenDB はリトライ付きで接続し、有効ならマイグレーションを実行します。
func OpenDB(cfg Config) (*gorm.DB, error) {
	opener, err := OpenerFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	db, err := ConnectWithRetry(BuildDSN(cfg), 60*time.Second, opener)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations || cfg.Driver == DriverSQLite {
		if err := adapters.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return db, nil
}
