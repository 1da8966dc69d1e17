package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sadopc/smartvault/internal/adapter"
)

// Account is the top-level owner of users and documents.
type Account struct {
	ID   int64
	Name string
}

// User belongs to exactly one account in generated data.
type User struct {
	ID          int64
	FirstName   string
	LastName    string
	DateOfBirth time.Time
	AccountID   int64
	Username    string
	Password    string
}

// Document records metadata about a file on disk, not its content.
type Document struct {
	ID        int64
	Name      string
	FilePath  string
	Length    int64
	AccountID int64
}

// Counts is the row count of each generated table.
type Counts struct {
	Accounts  int64
	Users     int64
	Documents int64
}

const (
	insertAccountSQL  = `INSERT INTO Account (Id, Name) VALUES (?, ?)`
	insertUserSQL     = `INSERT INTO "User" (Id, FirstName, LastName, DateOfBirth, AccountId, Username, Password) VALUES (?, ?, ?, ?, ?, ?, ?)`
	insertDocumentSQL = `INSERT INTO Document (Id, Name, FilePath, Length, AccountId) VALUES (?, ?, ?, ?, ?)`
)

// InsertAccount writes one account row.
func InsertAccount(ctx context.Context, q adapter.Querier, a Account) error {
	if _, err := q.ExecContext(ctx, insertAccountSQL, a.ID, a.Name); err != nil {
		return fmt.Errorf("insert account %d: %w", a.ID, err)
	}
	return nil
}

// InsertUser writes one user row. DateOfBirth is stored as YYYY-MM-DD.
func InsertUser(ctx context.Context, q adapter.Querier, u User) error {
	_, err := q.ExecContext(ctx, insertUserSQL,
		u.ID,
		u.FirstName,
		u.LastName,
		u.DateOfBirth.Format(time.DateOnly),
		u.AccountID,
		u.Username,
		u.Password,
	)
	if err != nil {
		return fmt.Errorf("insert user %d: %w", u.ID, err)
	}
	return nil
}

// DocumentWriter inserts documents through one prepared statement.
type DocumentWriter struct {
	stmt *sql.Stmt
}

// PrepareDocuments prepares the document insert on q, normally a *sql.Tx.
func PrepareDocuments(ctx context.Context, q adapter.Querier) (*DocumentWriter, error) {
	stmt, err := q.PrepareContext(ctx, insertDocumentSQL)
	if err != nil {
		return nil, fmt.Errorf("prepare document insert: %w", err)
	}
	return &DocumentWriter{stmt: stmt}, nil
}

// Insert writes one document row.
func (w *DocumentWriter) Insert(ctx context.Context, d Document) error {
	if _, err := w.stmt.ExecContext(ctx, d.ID, d.Name, d.FilePath, d.Length, d.AccountID); err != nil {
		return fmt.Errorf("insert document %d: %w", d.ID, err)
	}
	return nil
}

// Close releases the prepared statement.
func (w *DocumentWriter) Close() error {
	return w.stmt.Close()
}

// DocumentPaths returns the file paths of an account's documents in Id
// order. The order is what makes positional sampling reproducible.
func (s *Store) DocumentPaths(ctx context.Context, accountID string) ([]string, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT FilePath FROM Document WHERE AccountId = ? ORDER BY Id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("document paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("document paths scan: %w", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("document paths rows: %w", err)
	}
	return paths, nil
}

// EachDocumentPath streams every document's file path, in Id order, to fn.
// Iteration stops at the first error fn returns. The result set stays open
// while fn runs, so fn must not issue statements against s.
func (s *Store) EachDocumentPath(ctx context.Context, fn func(path string) error) error {
	rows, err := s.QueryContext(ctx, `SELECT FilePath FROM Document ORDER BY Id`)
	if err != nil {
		return fmt.Errorf("all document paths: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return fmt.Errorf("all document paths scan: %w", err)
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("all document paths rows: %w", err)
	}
	return nil
}

// Counts returns the number of accounts, users and documents.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	for _, q := range []struct {
		sql  string
		dest *int64
	}{
		{`SELECT COUNT(*) FROM Account`, &c.Accounts},
		{`SELECT COUNT(*) FROM "User"`, &c.Users},
		{`SELECT COUNT(*) FROM Document`, &c.Documents},
	} {
		if err := s.QueryRowContext(ctx, q.sql).Scan(q.dest); err != nil {
			return Counts{}, fmt.Errorf("count: %w", err)
		}
	}
	return c, nil
}
