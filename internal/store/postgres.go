package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"admin-mirror/internal/models"
)

// pgSource implements Source against one Postgres table. The configured field
// projection maps one-to-one onto column names; id and updated_at are always
// fetched so the watermark and keying stay correct regardless of projection.
type pgSource[T Record] struct {
	pool    *pgxpool.Pool
	table   string
	newRec  func() T
	dest    func(rec T, column string) any
	account string // column holding the owning account id, "" if none
}

func NewPostgresAccounts(pool *pgxpool.Pool) Source[*models.Account] {
	return &pgSource[*models.Account]{
		pool:   pool,
		table:  "accounts",
		newRec: func() *models.Account { return &models.Account{} },
		dest:   accountDest,
	}
}

func NewPostgresOrigins(pool *pgxpool.Pool) Source[*models.Origin] {
	return &pgSource[*models.Origin]{
		pool:   pool,
		table:  "origins",
		newRec: func() *models.Origin { return &models.Origin{} },
		dest:   originDest,
	}
}

func NewPostgresAuths(pool *pgxpool.Pool) Source[*models.Auth] {
	return &pgSource[*models.Auth]{
		pool:    pool,
		table:   "auths",
		newRec:  func() *models.Auth { return &models.Auth{} },
		dest:    authDest,
		account: "account",
	}
}

func NewPostgresPonies(pool *pgxpool.Pool) Source[*models.Pony] {
	return &pgSource[*models.Pony]{
		pool:    pool,
		table:   "ponies",
		newRec:  func() *models.Pony { return &models.Pony{} },
		dest:    ponyDest,
		account: "account",
	}
}

func NewPostgresEvents(pool *pgxpool.Pool) Source[*models.Event] {
	return &pgSource[*models.Event]{
		pool:   pool,
		table:  "events",
		newRec: func() *models.Event { return &models.Event{} },
		dest:   eventDest,
	}
}

func (s *pgSource[T]) UpdatedSince(ctx context.Context, since time.Time, fields []string) ([]T, error) {
	cols := s.projection(fields)
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE updated_at > $1 ORDER BY updated_at ASC`,
		strings.Join(cols, ", "), s.table,
	)
	return s.query(ctx, cols, query, since)
}

func (s *pgSource[T]) Find(ctx context.Context, filter Filter, fields []string) ([]T, error) {
	cols := s.projection(fields)
	query := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(cols, ", "), s.table)

	var where []string
	var args []any
	if filter.Account != "" && s.account != "" {
		args = append(args, filter.Account)
		where = append(where, fmt.Sprintf("%s = $%d", s.account, len(args)))
	}
	if len(filter.IDs) > 0 {
		args = append(args, filter.IDs)
		where = append(where, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return s.query(ctx, cols, query, args...)
}

func (s *pgSource[T]) DeleteOne(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table), id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", s.table, id, err)
	}
	return nil
}

func (s *pgSource[T]) query(ctx context.Context, cols []string, query string, args ...any) ([]T, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		rec := s.newRec()
		dests := make([]any, len(cols))
		for i, col := range cols {
			d := s.dest(rec, col)
			if d == nil {
				return nil, fmt.Errorf("unknown column %q for %s", col, s.table)
			}
			dests[i] = d
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.table, err)
	}
	return out, nil
}

func (s *pgSource[T]) projection(fields []string) []string {
	cols := []string{"id", "updated_at"}
	for _, f := range fields {
		if !slices.Contains(cols, f) {
			cols = append(cols, f)
		}
	}
	return cols
}

func accountDest(a *models.Account, col string) any {
	switch col {
	case "id":
		return &a.ID
	case "name":
		return &a.Name
	case "created_at":
		return &a.CreatedAt
	case "updated_at":
		return &a.UpdatedAt
	case "last_visit":
		return &a.LastVisit
	case "birth_date":
		return &a.BirthDate
	case "emails":
		return &a.Emails
	case "ignores_count":
		return &a.IgnoresCount
	case "counters":
		return &a.Counters
	case "mute_until":
		return &a.MuteUntil
	case "shadow_until":
		return &a.ShadowUntil
	case "ban_until":
		return &a.BanUntil
	case "flags":
		return &a.Flags
	case "roles":
		return &a.Roles
	case "character_count":
		return &a.CharacterCount
	case "supporter_cents":
		return &a.SupporterCents
	case "last_browser_id":
		return &a.LastBrowserID
	case "note":
		return &a.Note
	case "alert":
		return &a.Alert
	case "origins":
		return &a.Origins
	}
	return nil
}

func originDest(o *models.Origin, col string) any {
	switch col {
	case "id":
		return &o.ID
	case "country":
		return &o.Country
	case "flags":
		return &o.Flags
	case "updated_at":
		return &o.UpdatedAt
	}
	return nil
}

func authDest(a *models.Auth, col string) any {
	switch col {
	case "id":
		return &a.ID
	case "account":
		return &a.Account
	case "provider":
		return &a.Provider
	case "name":
		return &a.Name
	case "url":
		return &a.URL
	case "disabled":
		return &a.Disabled
	case "banned":
		return &a.Banned
	case "pledged":
		return &a.Pledged
	case "last_used":
		return &a.LastUsed
	case "updated_at":
		return &a.UpdatedAt
	}
	return nil
}

func ponyDest(p *models.Pony, col string) any {
	switch col {
	case "id":
		return &p.ID
	case "account":
		return &p.Account
	case "name":
		return &p.Name
	case "flags":
		return &p.Flags
	case "last_used":
		return &p.LastUsed
	case "created_at":
		return &p.CreatedAt
	case "updated_at":
		return &p.UpdatedAt
	}
	return nil
}

func eventDest(e *models.Event, col string) any {
	switch col {
	case "id":
		return &e.ID
	case "created_at":
		return &e.CreatedAt
	case "updated_at":
		return &e.UpdatedAt
	case "message":
		return &e.Message
	case "description":
		return &e.Desc
	case "account":
		return &e.Account
	case "pony":
		return &e.Pony
	case "origin":
		return &e.Origin
	}
	return nil
}
