// Package integration runs the repositories and sync flows against a real
// PostgreSQL started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/erp/storesync/internal/infrastructure/config"
	"github.com/erp/storesync/internal/infrastructure/migration"
)

const (
	testDBName     = "storesync_test"
	testDBUser     = "postgres"
	testDBPassword = "storesync"
)

var (
	// Shared container for all tests in the package
	sharedContainer   *tcpostgres.PostgresContainer
	sharedContainerMu sync.Mutex
	sharedConfig      config.DatabaseConfig
)

// TestDB is a migrated database plus the settings needed to reach it
type TestDB struct {
	DB     *gorm.DB
	SqlDB  *sql.DB
	Config config.DatabaseConfig
	t      *testing.T
}

// NewTestDB returns a connection to the shared container with every table
// truncated. The container is started and migrated on first use.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := sharedDatabase(t)
	db, sqlDB := connectToDatabase(t, cfg.DSN())

	tdb := &TestDB{DB: db, SqlDB: sqlDB, Config: cfg, t: t}
	tdb.CleanTables()
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return tdb
}

func sharedDatabase(t *testing.T) config.DatabaseConfig {
	t.Helper()

	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		return sharedConfig
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(testDBName),
		tcpostgres.WithUsername(testDBUser),
		tcpostgres.WithPassword(testDBPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            testDBUser,
		Password:        testDBPassword,
		DBName:          testDBName,
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5,
		ConnMaxIdleTime: 1,
	}

	_, sqlDB := connectToDatabase(t, cfg.DSN())
	runMigrations(t, sqlDB)
	_ = sqlDB.Close()

	sharedContainer = container
	sharedConfig = cfg
	return cfg
}

// CleanTables truncates every table except the migration bookkeeping
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename != 'schema_migrations'
	`).Scan(&tables).Error
	require.NoError(tdb.t, err, "Failed to get table names")

	for _, table := range tables {
		err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error
		require.NoError(tdb.t, err, "Failed to truncate %s", table)
	}
}

// SeedCatalogItem inserts a sellable stock item
func (tdb *TestDB) SeedCatalogItem(code, name string, price, stock int64) {
	tdb.t.Helper()

	err := tdb.DB.Exec(`
		INSERT INTO catalog_items (code, name, description, standard_price, stock_qty, is_sales_item, is_stock_item, modified_at)
		VALUES (?, ?, ?, ?, ?, TRUE, TRUE, ?)
	`, code, name, "<p>"+name+"</p>", decimal.NewFromInt(price), decimal.NewFromInt(stock), time.Now()).Error
	require.NoError(tdb.t, err, "Failed to seed catalog item")
}

// CatalogSyncFields reads the write-back columns of a catalog item
func (tdb *TestDB) CatalogSyncFields(code string) (remoteID, status string) {
	tdb.t.Helper()

	var row struct {
		StorefrontRemoteID   sql.NullString
		StorefrontSyncStatus sql.NullString
	}
	err := tdb.DB.Raw(`
		SELECT storefront_remote_id, storefront_sync_status
		FROM catalog_items WHERE code = ?
	`, code).Scan(&row).Error
	require.NoError(tdb.t, err)
	return row.StorefrontRemoteID.String, row.StorefrontSyncStatus.String
}

// Count returns the number of rows in table matching where
func (tdb *TestDB) Count(table, where string, args ...any) int64 {
	tdb.t.Helper()

	var n int64
	err := tdb.DB.Table(table).Where(where, args...).Count(&n).Error
	require.NoError(tdb.t, err)
	return n
}

func connectToDatabase(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), gormConfig)
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return db, sqlDB
}

// runMigrations applies the migrations embedded in the binary
func runMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	m, err := migration.New(sqlDB, "", zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")

	version, dirty, err := m.Version()
	require.NoError(t, err)
	require.False(t, dirty)
	require.NotZero(t, version)
}

// CleanupSharedContainer terminates the shared container. TestMain calls it.
func CleanupSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = sharedContainer.Terminate(ctx)
		sharedContainer = nil
	}
}
