package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// assign copies vals into Scan destinations.
func assign(dest []any, vals []any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan: %d dest, %d values", len(dest), len(vals))
	}
	for i, v := range vals {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int:
			*d = v.(int)
		case *[]byte:
			*d = []byte(v.(string))
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported dest %T", dest[i])
		}
	}
	return nil
}

// rowStub implements pgx.Row
type rowStub struct {
	vals []any
	err  error
}

func (r rowStub) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.vals)
}

// rowsStub implements pgx.Rows over a fixed result set.
type rowsStub struct {
	rows [][]any
	i    int
	err  error
}

func (r *rowsStub) Close()                                       {}
func (r *rowsStub) Err() error                                   { return r.err }
func (r *rowsStub) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *rowsStub) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *rowsStub) Next() bool {
	if r.i >= len(r.rows) {
		return false
	}
	r.i++
	return true
}
func (r *rowsStub) Scan(dest ...any) error { return assign(dest, r.rows[r.i-1]) }
func (r *rowsStub) Values() ([]any, error) { return r.rows[r.i-1], nil }
func (r *rowsStub) RawValues() [][]byte    { return nil }
func (r *rowsStub) Conn() *pgx.Conn        { return nil }

type captured struct {
	sql  string
	args []any
}

// poolStub implements postgres.PgxPool. Each QueryRow call pops the next row.
type poolStub struct {
	execTag  pgconn.CommandTag
	execErr  error
	rows     []rowStub
	query    *rowsStub
	queryErr error
	calls    []captured
}

func (p *poolStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.calls = append(p.calls, captured{sql, args})
	return p.execTag, p.execErr
}

func (p *poolStub) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	p.calls = append(p.calls, captured{sql, args})
	if len(p.rows) == 0 {
		return rowStub{err: errors.New("no row configured")}
	}
	r := p.rows[0]
	p.rows = p.rows[1:]
	return r
}

func (p *poolStub) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.calls = append(p.calls, captured{sql, args})
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	if p.query == nil {
		return &rowsStub{}, nil
	}
	return p.query, nil
}

func (p *poolStub) lastCall() captured { return p.calls[len(p.calls)-1] }

func tag(s string) pgconn.CommandTag { return pgconn.NewCommandTag(s) }
