package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/lborres/reel"
	"github.com/lborres/reel/adapters/internal/sqlutil"
)

const accountColumns = `id, name, email, password_hash, avatar, verified, verification_code, reset_code, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*reel.Account, error) {
	acc := &reel.Account{}
	var createdAt, updatedAt int64
	err := row.Scan(
		&acc.ID, &acc.Name, &acc.Email, &acc.PasswordHash, &acc.Avatar,
		&acc.Verified, &acc.VerificationCode, &acc.ResetCode,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	acc.CreatedAt = fromMillis(createdAt)
	acc.UpdatedAt = fromMillis(updatedAt)
	return acc, nil
}

func (a *Adapter) CreateAccount(ctx context.Context, acc *reel.Account, staleBefore time.Time) error {
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	acc.Email = reel.NormalizeEmail(acc.Email)
	now := millis(a.now())

	err := a.tx(ctx, func(tx *sql.Tx) error {
		// a fresh unverified holder stays and trips the unique index below
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM accounts WHERE email = ? AND NOT verified AND created_at < ?`,
			acc.Email, millis(staleBefore),
		); err != nil {
			return classify(err)
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (id, name, email, password_hash, avatar, verified, verification_code, reset_code, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			acc.ID, acc.Name, acc.Email, acc.PasswordHash, text(acc.Avatar),
			acc.Verified, text(acc.VerificationCode), text(acc.ResetCode), now, now,
		)
		if err != nil {
			if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE) {
				return errors.Join(reel.ErrEmailTaken, err)
			}
			return classify(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	acc.CreatedAt = fromMillis(now)
	acc.UpdatedAt = acc.CreatedAt
	return nil
}

func (a *Adapter) GetAccountByID(ctx context.Context, id string) (*reel.Account, error) {
	return a.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

func (a *Adapter) GetAccountByEmail(ctx context.Context, email string) (*reel.Account, error) {
	return a.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, reel.NormalizeEmail(email))
}

func (a *Adapter) GetAccountByVerificationCode(ctx context.Context, digest string) (*reel.Account, error) {
	return a.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE verification_code = ?`, digest)
}

func (a *Adapter) GetAccountByResetCode(ctx context.Context, digest string) (*reel.Account, error) {
	return a.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE reset_code = ?`, digest)
}

func (a *Adapter) getAccount(ctx context.Context, q, arg string) (*reel.Account, error) {
	acc, err := scanAccount(a.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reel.ErrAccountNotFound
		}
		return nil, fmt.Errorf("query account: %w", classify(err))
	}
	return acc, nil
}

func (a *Adapter) UpdateAccount(ctx context.Context, id string, patch reel.AccountPatch) (*reel.Account, error) {
	q, args, ok := sqlutil.AccountUpdate(sqlutil.SQLite, id, patch, millis(a.now()), accountColumns)
	if !ok {
		return a.GetAccountByID(ctx, id)
	}

	a.writeLock.Lock()
	defer a.writeLock.Unlock()

	acc, err := scanAccount(a.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reel.ErrAccountNotFound
		}
		return nil, fmt.Errorf("update account: %w", classify(err))
	}
	return acc, nil
}

func (a *Adapter) DeleteAccount(ctx context.Context, id string) error {
	res, err := a.exec(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reel.ErrAccountNotFound
	}
	return nil
}
