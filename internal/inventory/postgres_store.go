package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// PostgresStore reads stock levels from the catalog's products table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cred *Credentials) (*PostgresStore, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	log.WithField("host", cred.Host).Info("connected to postgres")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(s.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (s *PostgresStore) GetStock(ctx context.Context, productIDs []string) ([]StockInfo, error) {
	if len(productIDs) == 0 {
		return []StockInfo{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, stock_quantity, reserved_quantity, track_inventory
		FROM products
		WHERE id = ANY($1)`, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query stock: %w", err)
	}
	defer rows.Close()

	result := make([]StockInfo, 0, len(productIDs))
	for rows.Next() {
		var info StockInfo
		if err := rows.Scan(&info.ProductID, &info.Name, &info.Total, &info.Reserved, &info.TrackInventory); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		result = append(result, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stock: %w", err)
	}

	return result, nil
}

// SetStock creates or replaces a product's stock row.
func (s *PostgresStore) SetStock(ctx context.Context, info StockInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, stock_quantity, reserved_quantity, track_inventory, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			stock_quantity = EXCLUDED.stock_quantity,
			reserved_quantity = EXCLUDED.reserved_quantity,
			track_inventory = EXCLUDED.track_inventory,
			updated_at = NOW()`,
		info.ProductID, info.Name, info.Total, info.Reserved, info.TrackInventory)
	if err != nil {
		return fmt.Errorf("failed to set stock: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
