package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Postgres implementa o ledger (contas + apostas) em banco Postgres
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Códigos SQLSTATE que indicam que a transação perdeu a disputa e foi abortada
const (
	codeSerializationFailure pq.ErrorCode = "40001"
	codeDeadlockDetected     pq.ErrorCode = "40P01"
)

// bestWagerPerAccountSQL seleciona, por conta, a aposta vencedora de maior payout
// sem GROUP BY: estágio A mantém os empates no topo, estágio B fica com o menor id.
const bestWagerPerAccountSQL = `
	WITH highest_wins AS (
		SELECT a.* FROM wagers a
		WHERE a.won = TRUE
		  AND NOT EXISTS (
			SELECT 1 FROM wagers b
			WHERE b.account_id = a.account_id AND b.won = TRUE AND b.payout > a.payout)
	),
	dedup_highest AS (
		SELECT h.* FROM highest_wins h
		WHERE NOT EXISTS (
			SELECT 1 FROM highest_wins o
			WHERE o.account_id = h.account_id AND o.id < h.id)
	)
	SELECT id, account_id, stake, win_probability, payout, won, created_at
	FROM dedup_highest
	ORDER BY payout DESC, id ASC
	LIMIT $1`

// Ping verifica a conexão com o banco
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// GetAccount retorna a conta pelo id
func (p *Postgres) GetAccount(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := p.db.QueryRowContext(ctx, `SELECT id, name, balance, created_at FROM accounts WHERE id=$1`, id).
		Scan(&a.ID, &a.Name, &a.Balance, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return a, err
}

// ListAccounts retorna todas as contas ordenadas por id
func (p *Postgres) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name, balance, created_at FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Account{}
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Balance, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetWager retorna a aposta pelo id
func (p *Postgres) GetWager(ctx context.Context, id int64) (Wager, error) {
	var w Wager
	err := p.db.QueryRowContext(ctx, `
		SELECT id, account_id, stake, win_probability, payout, won, created_at
		FROM wagers WHERE id=$1`, id).
		Scan(&w.ID, &w.AccountID, &w.Stake, &w.WinProbability, &w.Payout, &w.Won, &w.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Wager{}, ErrWagerNotFound
	}
	return w, err
}

// Settle executa o read-modify-write de uma aposta em uma transação SERIALIZABLE.
// A linha da conta fica bloqueada (FOR UPDATE) até o commit; novo saldo e aposta
// são gravados juntos ou nada é gravado.
func (p *Postgres) Settle(ctx context.Context, accountID int64, fn SettleFunc) (Wager, error) {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return Wager{}, mapTxErr(ctx, err)
	}
	defer tx.Rollback()

	var acc Account
	err = tx.QueryRowContext(ctx, `SELECT id, name, balance, created_at FROM accounts WHERE id=$1 FOR UPDATE`, accountID).
		Scan(&acc.ID, &acc.Name, &acc.Balance, &acc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Wager{}, ErrAccountNotFound
	}
	if err != nil {
		return Wager{}, mapTxErr(ctx, err)
	}

	st, err := fn(acc)
	if err != nil {
		return Wager{}, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE accounts SET balance=$1, updated_at=NOW() WHERE id=$2`, st.Balance, acc.ID); err != nil {
		return Wager{}, mapTxErr(ctx, err)
	}

	w := st.Wager
	w.AccountID = acc.ID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO wagers(account_id, stake, win_probability, payout, won)
		VALUES($1,$2,$3,$4,$5)
		RETURNING id, created_at`,
		w.AccountID, w.Stake, w.WinProbability, w.Payout, w.Won).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return Wager{}, mapTxErr(ctx, err)
	}

	if err = tx.Commit(); err != nil {
		return Wager{}, mapTxErr(ctx, err)
	}
	return w, nil
}

// BestWagerPerAccount roda a consulta do leaderboard em snapshot consistente (somente leitura)
func (p *Postgres) BestWagerPerAccount(ctx context.Context, limit int) ([]Wager, error) {
	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, bestWagerPerAccountSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("best wager query: %w", err)
	}
	defer rows.Close()

	out := []Wager{}
	for rows.Next() {
		var w Wager
		if err := rows.Scan(&w.ID, &w.AccountID, &w.Stake, &w.WinProbability, &w.Payout, &w.Won, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, tx.Commit()
}

// mapTxErr traduz falhas de serialização/deadlock para ErrConflict e preserva
// cancelamento/timeout do contexto
func mapTxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("transaction aborted: %w", ctxErr)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Message)
		}
	}
	return err
}
