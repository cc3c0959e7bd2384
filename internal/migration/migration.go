package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/smallbiznis/revenueshare/internal/attribution/directory"
	attributiondomain "github.com/smallbiznis/revenueshare/internal/attribution/domain"
	payoutdomain "github.com/smallbiznis/revenueshare/internal/payout/domain"
	pricingdomain "github.com/smallbiznis/revenueshare/internal/pricing/domain"
	sharedomain "github.com/smallbiznis/revenueshare/internal/revenueshare/domain"
	transactiondomain "github.com/smallbiznis/revenueshare/internal/transaction/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded postgres migrations. The schema carries
// the constraints the services rely on, including the partial unique index
// that allows a single open payout per provider and month.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every table owned or read by the service, in dependency order.
func Models() []any {
	return []any{
		&pricingdomain.PricingSnapshot{},
		&directory.ProviderDatasetApproval{},
		&directory.PurchaseRowContribution{},
		&attributiondomain.Attribution{},
		&attributiondomain.AttributionWeight{},
		&transactiondomain.Transaction{},
		&sharedomain.RevenueShare{},
		&payoutdomain.Payout{},
		&payoutdomain.PayoutStatusChange{},
		&payoutdomain.PayoutGenerationRun{},
	}
}

// AutoMigrate builds the schema from the gorm models. It is used for the
// sqlite and mysql dialects, which the SQL migrations do not target.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
