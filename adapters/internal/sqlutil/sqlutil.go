// Package sqlutil holds query-building helpers shared by the SQL adapters.
package sqlutil

import (
	"strconv"
	"strings"

	"github.com/lborres/reel/core"
)

type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// Args accumulates positional arguments and renders their placeholders
type Args struct {
	dialect Dialect
	values  []any
}

func NewArgs(d Dialect) *Args {
	return &Args{dialect: d}
}

// Add appends v and returns the placeholder that refers to it
func (a *Args) Add(v any) string {
	a.values = append(a.values, v)
	if a.dialect == Postgres {
		return "$" + strconv.Itoa(len(a.values))
	}
	return "?"
}

func (a *Args) Values() []any {
	return a.values
}

// Nullable maps an empty string to SQL NULL
func Nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// AccountUpdate renders an UPDATE for patch. It returns ok=false when the
// patch changes nothing.
func AccountUpdate(d Dialect, id string, patch core.AccountPatch, updatedAt any, returning string) (query string, args []any, ok bool) {
	a := NewArgs(d)
	var sets []string

	set := func(col string, v any) {
		sets = append(sets, col+" = "+a.Add(v))
	}
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Avatar != nil {
		set("avatar", Nullable(*patch.Avatar))
	}
	if patch.PasswordHash != nil {
		set("password_hash", *patch.PasswordHash)
	}
	if patch.Verified != nil {
		set("verified", *patch.Verified)
	}
	if patch.VerificationCode != nil {
		set("verification_code", Nullable(*patch.VerificationCode))
	}
	if patch.ResetCode != nil {
		set("reset_code", Nullable(*patch.ResetCode))
	}
	if len(sets) == 0 {
		return "", nil, false
	}
	set("updated_at", updatedAt)

	where := []string{"id = " + a.Add(id)}
	if patch.IfVerificationCode != nil {
		where = append(where, "verification_code = "+a.Add(*patch.IfVerificationCode))
	}
	if patch.IfResetCode != nil {
		where = append(where, "reset_code = "+a.Add(*patch.IfResetCode))
	}

	query = "UPDATE accounts SET " + strings.Join(sets, ", ") +
		" WHERE " + strings.Join(where, " AND ") +
		" RETURNING " + returning
	return query, a.Values(), true
}

// LikePattern escapes LIKE wildcards in s and wraps it for a substring match.
// Pair it with ESCAPE '\'.
func LikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
