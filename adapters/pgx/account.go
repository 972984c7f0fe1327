package pgx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lborres/reel"
	"github.com/lborres/reel/adapters/internal/sqlutil"
)

const accountColumns = `id, name, email, password_hash, avatar, verified, verification_code, reset_code, created_at, updated_at`

func scanAccount(row pgx.Row) (*reel.Account, error) {
	acc := &reel.Account{}
	err := row.Scan(
		&acc.ID, &acc.Name, &acc.Email, &acc.PasswordHash, &acc.Avatar,
		&acc.Verified, &acc.VerificationCode, &acc.ResetCode,
		&acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// CreateAccount inserts acc. A stale unverified holder of the email is
// removed in the same transaction; concurrent inserts meet at the unique
// constraint and all but one yield ErrEmailTaken.
func (a *Adapter) CreateAccount(ctx context.Context, acc *reel.Account, staleBefore time.Time) error {
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	acc.Email = reel.NormalizeEmail(acc.Email)
	now := time.Now().UTC()

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return classify(err)
	}
	defer rollback(ctx, tx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM accounts WHERE email = $1 AND NOT verified AND created_at < $2`,
		acc.Email, staleBefore,
	); err != nil {
		return classify(err)
	}

	q := `INSERT INTO accounts (id, name, email, password_hash, avatar, verified, verification_code, reset_code, created_at, updated_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	      RETURNING created_at, updated_at`
	err = tx.QueryRow(ctx, q,
		acc.ID, acc.Name, acc.Email, acc.PasswordHash, acc.Avatar,
		acc.Verified, acc.VerificationCode, acc.ResetCode, now,
	).Scan(&acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if pgErr, ok := pgError(err); ok && pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == "accounts_email_key" {
			return reel.ErrEmailTaken
		}
		return classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		if pgErr, ok := pgError(err); ok && pgErr.Code == codeUniqueViolation {
			return reel.ErrEmailTaken
		}
		return classify(err)
	}
	return nil
}

func (a *Adapter) GetAccountByID(ctx context.Context, id string) (*reel.Account, error) {
	return a.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (a *Adapter) GetAccountByEmail(ctx context.Context, email string) (*reel.Account, error) {
	return a.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, reel.NormalizeEmail(email))
}

func (a *Adapter) GetAccountByVerificationCode(ctx context.Context, digest string) (*reel.Account, error) {
	return a.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE verification_code = $1`, digest)
}

func (a *Adapter) GetAccountByResetCode(ctx context.Context, digest string) (*reel.Account, error) {
	return a.getAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE reset_code = $1`, digest)
}

func (a *Adapter) getAccount(ctx context.Context, q string, arg string) (*reel.Account, error) {
	acc, err := scanAccount(a.pool.QueryRow(ctx, q, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, reel.ErrAccountNotFound
		}
		return nil, classify(err)
	}
	return acc, nil
}

func (a *Adapter) UpdateAccount(ctx context.Context, id string, patch reel.AccountPatch) (*reel.Account, error) {
	q, args, ok := sqlutil.AccountUpdate(sqlutil.Postgres, id, patch, time.Now().UTC(), accountColumns)
	if !ok {
		return a.GetAccountByID(ctx, id)
	}

	acc, err := scanAccount(a.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, reel.ErrAccountNotFound
		}
		return nil, classify(err)
	}
	return acc, nil
}

func (a *Adapter) DeleteAccount(ctx context.Context, id string) error {
	tag, err := a.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete account %s: %w", id, reel.ErrAccountNotFound)
	}
	return nil
}
