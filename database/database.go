package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store is the local mirror of directory-derived facts. All writes are
// single-row upserts or deletes keyed on the entity's unique name; no
// multi-row transactions are needed across entities.
type Store struct {
	dsn    string
	Pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewStore(dsn string, logger *zap.Logger) *Store {
	return &Store{dsn: dsn, logger: logger}
}

// Connect runs pending migrations and opens the connection pool.
func (db *Store) Connect(ctx context.Context) error {
	if err := RunMigrations(db.dsn); err != nil {
		return fmt.Errorf("mirror migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, db.dsn)
	if err != nil {
		return fmt.Errorf("connect to mirror: %w", err)
	}
	db.Pool = pool
	return nil
}

func (db *Store) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

func (db *Store) UpsertUser(ctx context.Context, record UserRecord) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO users (
			username, display_name, email, start_date, is_enabled, last_logon,
			team, job_title, department, seniority, manager, pwd_last_set,
			bad_pwd_count, is_admin, pwd_never_expires, risk_score, risk_factors,
			synced_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW())
		ON CONFLICT (username) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			start_date = EXCLUDED.start_date,
			is_enabled = EXCLUDED.is_enabled,
			last_logon = EXCLUDED.last_logon,
			team = EXCLUDED.team,
			job_title = EXCLUDED.job_title,
			department = EXCLUDED.department,
			seniority = EXCLUDED.seniority,
			manager = EXCLUDED.manager,
			pwd_last_set = EXCLUDED.pwd_last_set,
			bad_pwd_count = EXCLUDED.bad_pwd_count,
			is_admin = EXCLUDED.is_admin,
			pwd_never_expires = EXCLUDED.pwd_never_expires,
			risk_score = EXCLUDED.risk_score,
			risk_factors = EXCLUDED.risk_factors,
			synced_at = NOW()
	`,
		record.Username, record.DisplayName, record.Email, record.StartDate,
		record.IsEnabled, record.LastLogon, record.Team, record.JobTitle,
		record.Department, record.Seniority, record.Manager, record.PwdLastSet,
		record.BadPwdCount, record.IsAdmin, record.PwdNeverExpires,
		record.RiskScore, record.RiskFactors,
	)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", record.Username, err)
	}
	return nil
}

func (db *Store) UpsertComputer(ctx context.Context, record ComputerRecord) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO computers (hostname, os_name, os_version, created_at, last_logon, is_active, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (hostname) DO UPDATE SET
			os_name = EXCLUDED.os_name,
			os_version = EXCLUDED.os_version,
			created_at = EXCLUDED.created_at,
			last_logon = EXCLUDED.last_logon,
			is_active = EXCLUDED.is_active,
			synced_at = NOW()
	`,
		record.Hostname, record.OSName, record.OSVersion, record.CreatedAt,
		record.LastLogon, record.IsActive,
	)
	if err != nil {
		return fmt.Errorf("upsert computer %s: %w", record.Hostname, err)
	}
	return nil
}

func (db *Store) UpsertDisabledUser(ctx context.Context, record DisabledUserRecord) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO disabled_users (username, display_name, description, department, when_changed, synced_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (username) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			description = EXCLUDED.description,
			department = EXCLUDED.department,
			when_changed = EXCLUDED.when_changed,
			synced_at = NOW()
	`,
		record.Username, record.DisplayName, record.Description,
		record.Department, record.WhenChanged,
	)
	if err != nil {
		return fmt.Errorf("upsert disabled user %s: %w", record.Username, err)
	}
	return nil
}

func (db *Store) DeleteUser(ctx context.Context, username string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}
	return nil
}

func (db *Store) DeleteComputer(ctx context.Context, hostname string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM computers WHERE hostname = $1`, hostname)
	if err != nil {
		return fmt.Errorf("delete computer %s: %w", hostname, err)
	}
	return nil
}

func (db *Store) DeleteDisabledUser(ctx context.Context, username string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM disabled_users WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("delete disabled user %s: %w", username, err)
	}
	return nil
}

// PruneUsers removes mirror rows for users no longer present in the scan.
// An empty scan prunes nothing: it more likely means a failed fetch than an
// empty directory.
func (db *Store) PruneUsers(ctx context.Context, seen []string) (int64, error) {
	if len(seen) == 0 {
		return 0, nil
	}
	tag, err := db.Pool.Exec(ctx, `DELETE FROM users WHERE username != ALL($1)`, seen)
	if err != nil {
		return 0, fmt.Errorf("prune users: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (db *Store) PruneComputers(ctx context.Context, seen []string) (int64, error) {
	if len(seen) == 0 {
		return 0, nil
	}
	tag, err := db.Pool.Exec(ctx, `DELETE FROM computers WHERE hostname != ALL($1)`, seen)
	if err != nil {
		return 0, fmt.Errorf("prune computers: %w", err)
	}
	return tag.RowsAffected(), nil
}
