package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

func ConnectPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// Migrate aplica o schema (idempotente: CREATE ... IF NOT EXISTS)
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// SeedAccount é uma conta criada no provisionamento inicial
type SeedAccount struct {
	Name    string
	Balance string // decimal com 2 casas
}

// DefaultAccounts são as contas de demonstração do ambiente local
var DefaultAccounts = []SeedAccount{
	{"Adam", "8941.00"},
	{"Victor", "4424.00"},
	{"Melanie", "2334.00"},
	{"Piers", "7654.00"},
	{"Richard", "5447.00"},
	{"Ryan", "7803.00"},
	{"Frank", "7424.00"},
	{"Andrea", "5269.00"},
	{"Nicola", "7860.00"},
	{"Alan", "1744.00"},
}

// Seed insere as contas somente quando a tabela accounts está vazia.
// Retorna quantas contas foram criadas.
func Seed(ctx context.Context, db *sql.DB, accounts []SeedAccount) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var count int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	if count != 0 {
		return 0, nil
	}

	for _, a := range accounts {
		if _, err = tx.ExecContext(ctx, `INSERT INTO accounts(name, balance) VALUES($1,$2)`, a.Name, a.Balance); err != nil {
			return 0, fmt.Errorf("insert account %s: %w", a.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return len(accounts), nil
}
