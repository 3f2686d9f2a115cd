package config

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"bitbucket.org/mmdatafocus/menu_recon/utils"
)

// SourceDSN builds the MySQL DSN for the source catalog.
func SourceDSN(c DatabaseConfig) string {
	mc := gomysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	mc.DBName = c.Name
	mc.ParseTime = true

	// Cloud SQL: when the host is "/cloudsql/<CONNECTION_NAME>",
	// connect through the Unix socket provided by the Auth Proxy.
	if strings.HasPrefix(c.Host, "/cloudsql/") {
		mc.Net = "unix"
		mc.Addr = c.Host
	}
	return mc.FormatDSN()
}

// TargetDSN builds the PostgreSQL keyword/value DSN for the target catalog.
func TargetDSN(c DatabaseConfig) string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pgQuote(c.Host), c.Port, pgQuote(c.User), pgQuote(c.Password), pgQuote(c.Name), sslMode)
}

// pgQuote single-quotes a keyword/value DSN value when it would otherwise break parsing.
func pgQuote(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\\t") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// OpenSourceDB connects to the source MySQL catalog.
func OpenSourceDB(ctx context.Context, c DatabaseConfig, pool PoolConfig, logg *logrus.Logger) (*gorm.DB, error) {
	dsn := SourceDSN(c)
	return connectWithRetry(ctx, "source", func() gorm.Dialector { return mysql.Open(dsn) }, pool, logg)
}

// OpenTargetDB connects to the target PostgreSQL catalog.
func OpenTargetDB(ctx context.Context, c DatabaseConfig, pool PoolConfig, logg *logrus.Logger) (*gorm.DB, error) {
	dsn := TargetDSN(c)
	return connectWithRetry(ctx, "target", func() gorm.Dialector { return postgres.Open(dsn) }, pool, logg)
}

// CloseDB closes the pool behind a gorm handle. Nil handles are ignored.
func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func connectWithRetry(ctx context.Context, name string, dialector func() gorm.Dialector, pool PoolConfig, logg *logrus.Logger) (*gorm.DB, error) {
	attempts := pool.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err := gorm.Open(dialector(), initConfig(logg))
		if err == nil {
			tunePool(db, pool)
			if pluginErr := db.Use(otelgorm.NewPlugin(otelgorm.WithDBName(name))); pluginErr != nil {
				logg.WithField("database", name).Warnf("db connected but failed to install otelgorm plugin: %v", pluginErr)
			}
			logg.WithFields(logrus.Fields{"database": name, "attempt": attempt}).Info("connected to database")
			return db, nil
		}
		// gorm.Open leaves the pool open when the initial ping fails.
		_ = CloseDB(db)
		lastErr = err
		if attempt == attempts {
			break
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logg.WithFields(logrus.Fields{"database": name, "attempt": attempt}).
			Warnf("failed to connect database: %v; retrying in %s", err, sleep)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: connect %s database: %w", utils.ErrorConnection, name, ctx.Err())
		case <-time.After(sleep):
		}
	}
	return nil, fmt.Errorf("%w: connect %s database after %d attempts: %w", utils.ErrorConnection, name, attempts, lastErr)
}

func tunePool(db *gorm.DB, pool PoolConfig) {
	sqlDB, err := db.DB()
	if err != nil || sqlDB == nil {
		return
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
}

func initConfig(logg *logrus.Logger) *gorm.Config {
	return &gorm.Config{
		Logger:         WriteGormLog(logg),
		NamingStrategy: initNamingStrategy(),
	}
}

// initLog routes gorm's SQL log through the run logger.
func initLog(logg *logrus.Logger) logger.Interface {
	return logger.New(
		logg,
		logger.Config{
			Colorful:                  false,
			LogLevel:                  logger.Error,
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
		},
	)
}

func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}

// WriteGormLog logs every statement to the file named by GORM_LOG, when set.
func WriteGormLog(logg *logrus.Logger) logger.Interface {
	logFile := os.Getenv("GORM_LOG")
	if logFile == "" {
		return initLog(logg)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logg.Warnf("cannot open GORM_LOG %s: %v", logFile, err)
		return initLog(logg)
	}
	return logger.New(log.New(f, "\r\n", log.LstdFlags), logger.Config{
		Colorful:      false,
		LogLevel:      logger.Info,
		SlowThreshold: time.Second,
	})
}
