package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/query"
	"expensetracker/internal/storage"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// deleteChunk bounds the number of ids bound into a single IN list.
const deleteChunk = 500

const expenseColumns = "id, owner_id, amount, category, payment_method, created_at, updated_at"

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

var _ storage.Store = (*Repository)(nil)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn(dbPath)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// dsn adds a busy timeout so concurrent writers wait instead of failing.
func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath
	}
	return dbPath + "?_pragma=busy_timeout(5000)"
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return core.NewStoreError("ping", r.db.PingContext(ctx))
}

func (r *Repository) stamp(e core.Expense) core.Expense {
	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	return e
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertExpense(ctx context.Context, x execer, e core.Expense) error {
	_, err := x.ExecContext(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.Amount, e.Category, string(e.PaymentMethod),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	return err
}

// Insert implements storage.ExpenseRepository
func (r *Repository) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e = r.stamp(e)
	if err := insertExpense(ctx, r.db, e); err != nil {
		return core.Expense{}, core.NewStoreError("insert expense", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"owner_id", e.OwnerID,
		"amount", e.Amount,
		"category", e.Category)

	return e, nil
}

// InsertMany implements storage.ExpenseRepository. The batch runs in one
// transaction, so either every record is returned or none.
func (r *Repository) InsertMany(ctx context.Context, es []core.Expense) ([]core.Expense, error) {
	if len(es) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, core.NewStoreError("begin insert many", err)
	}
	defer tx.Rollback()

	stored := make([]core.Expense, 0, len(es))
	for _, e := range es {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		e = r.stamp(e)
		if err := insertExpense(ctx, tx, e); err != nil {
			return nil, core.NewStoreError("insert many", err)
		}
		stored = append(stored, e)
	}
	if err := tx.Commit(); err != nil {
		return nil, core.NewStoreError("commit insert many", err)
	}
	return stored, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e                core.Expense
		method           string
		created, updated string
	)
	if err := s.Scan(&e.ID, &e.OwnerID, &e.Amount, &e.Category, &method, &created, &updated); err != nil {
		return core.Expense{}, err
	}
	e.PaymentMethod = core.PaymentMethod(method)
	var err error
	if e.CreatedAt, err = parseTime(created); err != nil {
		return core.Expense{}, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// Find implements storage.ExpenseRepository
func (r *Repository) Find(ctx context.Context, q query.Query) ([]core.Expense, error) {
	where, args, err := compileWhere(q.Filter)
	if err != nil {
		return nil, core.NewStoreError("find expenses", err)
	}
	order, err := compileOrder(q.Sort)
	if err != nil {
		return nil, core.NewStoreError("find expenses", err)
	}

	stmt := `SELECT ` + expenseColumns + ` FROM expenses WHERE ` + where + ` ORDER BY ` + order
	if q.Page.Paginated() {
		stmt += ` LIMIT ? OFFSET ?`
		args = append(args, q.Page.Limit, q.Page.Offset())
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, core.NewStoreError("find expenses", err)
	}
	defer rows.Close()

	out := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, core.NewStoreError("scan expense", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStoreError("find expenses", err)
	}
	return out, nil
}

// Get implements storage.ExpenseRepository
func (r *Repository) Get(ctx context.Context, ownerID, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND owner_id = ?`, id, ownerID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, storage.NotFound(id)
	}
	if err != nil {
		return core.Expense{}, core.NewStoreError("get expense", err)
	}
	return e, nil
}

// Update implements storage.ExpenseRepository
func (r *Repository) Update(ctx context.Context, ownerID, id string, c core.ExpenseChanges, at time.Time) (core.Expense, error) {
	var (
		sets []string
		args []any
	)
	if c.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, *c.Amount)
	}
	if c.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *c.Category)
	}
	if c.PaymentMethod != nil {
		sets = append(sets, "payment_method = ?")
		args = append(args, string(*c.PaymentMethod))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(at), id, ownerID)

	row := r.db.QueryRowContext(ctx,
		`UPDATE expenses SET `+strings.Join(sets, ", ")+
			` WHERE id = ? AND owner_id = ? RETURNING `+expenseColumns, args...)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, storage.NotFound(id)
	}
	if err != nil {
		return core.Expense{}, core.NewStoreError("update expense", err)
	}
	return e, nil
}

// Delete implements storage.ExpenseRepository
func (r *Repository) Delete(ctx context.Context, ownerID, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return 0, core.NewStoreError("delete expense", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, core.NewStoreError("delete expense", err)
	}
	return n, nil
}

// DeleteMany implements storage.ExpenseRepository. Chunks are deleted one
// after another; on failure the result covers the chunks already removed.
func (r *Repository) DeleteMany(ctx context.Context, ownerID string, ids []string) ([]string, error) {
	deleted := make([]string, 0, len(ids))
	for start := 0; start < len(ids); start += deleteChunk {
		end := min(start+deleteChunk, len(ids))
		chunk := ids[start:end]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, ownerID)
		for _, id := range chunk {
			args = append(args, id)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(chunk)), ", ")

		removed, err := r.deleteReturning(ctx,
			`DELETE FROM expenses WHERE owner_id = ? AND id IN (`+placeholders+`) RETURNING id`, args...)
		deleted = append(deleted, removed...)
		if err != nil {
			return deleted, core.NewStoreError("delete many", err)
		}
	}
	return deleted, nil
}

func (r *Repository) deleteReturning(ctx context.Context, stmt string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MonthlyTotals implements storage.ExpenseAggregator
func (r *Repository) MonthlyTotals(ctx context.Context, ownerID string) ([]core.MonthlyTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT CAST(substr(created_at, 1, 4) AS INTEGER) AS year,
		       CAST(substr(created_at, 6, 2) AS INTEGER) AS month,
		       SUM(amount) AS total
		FROM expenses
		WHERE owner_id = ?
		GROUP BY year, month
		ORDER BY year ASC, month ASC`, ownerID)
	if err != nil {
		return nil, core.NewStoreError("monthly totals", err)
	}
	defer rows.Close()

	out := make([]core.MonthlyTotal, 0)
	for rows.Next() {
		var t core.MonthlyTotal
		if err := rows.Scan(&t.Year, &t.Month, &t.TotalExpenses); err != nil {
			return nil, core.NewStoreError("scan monthly total", err)
		}
		t.TotalExpenses = core.RoundTotal(t.TotalExpenses)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStoreError("monthly totals", err)
	}
	return out, nil
}

// CategoryTotals implements storage.ExpenseAggregator
func (r *Repository) CategoryTotals(ctx context.Context, ownerID string) ([]core.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount) AS total
		FROM expenses
		WHERE owner_id = ?
		GROUP BY category
		ORDER BY total DESC, category ASC`, ownerID)
	if err != nil {
		return nil, core.NewStoreError("category totals", err)
	}
	defer rows.Close()

	out := make([]core.CategoryTotal, 0)
	for rows.Next() {
		var t core.CategoryTotal
		if err := rows.Scan(&t.Category, &t.TotalExpenses); err != nil {
			return nil, core.NewStoreError("scan category total", err)
		}
		t.TotalExpenses = core.RoundTotal(t.TotalExpenses)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStoreError("category totals", err)
	}
	return out, nil
}

// CreateUser implements storage.UserRepository
func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.ID = uuid.NewString()
	u.Email = core.NormalizeEmail(u.Email)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, username, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Username, u.PasswordHash, string(u.Role), formatTime(u.CreatedAt))
	if isUniqueViolation(err) {
		return core.User{}, core.ErrConflict
	}
	if err != nil {
		return core.User{}, core.NewStoreError("create user", err)
	}
	return u, nil
}

// GetUserByEmail implements storage.UserRepository
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var (
		u       core.User
		role    string
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, role, created_at FROM users WHERE email = ?`,
		core.NormalizeEmail(email)).Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &role, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, &core.NotFoundError{Resource: "user"}
	}
	if err != nil {
		return core.User{}, core.NewStoreError("get user", err)
	}
	u.Role = core.Role(role)
	if u.CreatedAt, err = parseTime(created); err != nil {
		return core.User{}, core.NewStoreError("get user", err)
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
