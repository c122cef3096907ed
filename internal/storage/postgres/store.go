// Package postgres is the gorm backed PostgreSQL store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/query"
	"expensetracker/internal/storage"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	insertBatch = 200
	deleteChunk = 1000
)

var columns = map[query.Field]string{
	query.FieldID:            "id",
	query.FieldOwner:         "owner_id",
	query.FieldAmount:        "amount",
	query.FieldCategory:      "category",
	query.FieldPaymentMethod: "payment_method",
	query.FieldCreatedAt:     "created_at",
	query.FieldUpdatedAt:     "updated_at",
}

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

// Open connects to dsn, optionally running AutoMigrate for both tables.
func Open(dsn string, autoMigrate bool) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	if strings.Contains(dsn, "localhost") && !strings.Contains(dsn, "sslmode=") {
		if strings.Contains(dsn, "?") {
			dsn += "&sslmode=disable"
		} else if strings.Contains(dsn, "://") {
			dsn += "?sslmode=disable"
		}
	}

	gLogger := logger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	now := func() time.Time { return time.Now().UTC() }
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gLogger,
		NowFunc:        now,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if autoMigrate {
		if err := db.AutoMigrate(&expenseRow{}, &userRow{}); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	slog.Info("Connected to PostgreSQL", "auto_migrate", autoMigrate)
	return &Store{db: db, now: now}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return core.NewStoreError("ping", err)
	}
	return core.NewStoreError("ping", sqlDB.PingContext(ctx))
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// filterScope turns a filter into a gorm scope.
func filterScope(f query.Filter) (func(*gorm.DB) *gorm.DB, error) {
	clauses := f.Clauses()
	if len(clauses) == 0 {
		return nil, errors.New("empty filter")
	}
	for _, c := range clauses {
		if _, ok := columns[c.Field]; !ok {
			return nil, fmt.Errorf("unsupported filter field %q", c.Field)
		}
	}
	return func(tx *gorm.DB) *gorm.DB {
		for _, c := range clauses {
			col := columns[c.Field]
			switch c.Op {
			case query.OpEq:
				tx = tx.Where(col+" = ?", c.Value)
			case query.OpRange:
				if c.From != nil {
					tx = tx.Where(col+" >= ?", c.From.UTC())
				}
				if c.To != nil {
					tx = tx.Where(col+" <= ?", c.To.UTC())
				}
			}
		}
		return tx
	}, nil
}

// orderClause renders ORDER BY with id as the final tie breaker.
func orderClause(s query.Sort) (string, error) {
	keys := make([]string, 0, len(s)+1)
	for _, k := range s {
		col, ok := columns[k.Field]
		if !ok {
			return "", fmt.Errorf("unsupported sort field %q", k.Field)
		}
		if k.Desc {
			col += " DESC"
		}
		keys = append(keys, col)
	}
	return strings.Join(append(keys, "id"), ", "), nil
}

func (s *Store) stamp(e core.Expense) expenseRow {
	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = e.CreatedAt
	}
	return toRow(e)
}

func (s *Store) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	row := s.stamp(e)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return core.Expense{}, core.NewStoreError("insert expense", err)
	}
	return row.toExpense(), nil
}

// InsertMany writes all batches in one transaction: either every record is
// returned or none.
func (s *Store) InsertMany(ctx context.Context, es []core.Expense) ([]core.Expense, error) {
	if len(es) == 0 {
		return nil, nil
	}
	rows := make([]expenseRow, 0, len(es))
	for _, e := range es {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		rows = append(rows, s.stamp(e))
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&rows, insertBatch).Error; err != nil {
		return nil, core.NewStoreError("insert many", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toExpense())
	}
	return out, nil
}

func (s *Store) Find(ctx context.Context, q query.Query) ([]core.Expense, error) {
	scope, err := filterScope(q.Filter)
	if err != nil {
		return nil, core.NewStoreError("find expenses", err)
	}
	order, err := orderClause(q.Sort)
	if err != nil {
		return nil, core.NewStoreError("find expenses", err)
	}

	tx := s.db.WithContext(ctx).Model(&expenseRow{}).Scopes(scope).Order(order)
	if q.Page.Paginated() {
		tx = tx.Offset(q.Page.Offset()).Limit(q.Page.Limit)
	}

	var rows []expenseRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, core.NewStoreError("find expenses", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toExpense())
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, ownerID, id string) (core.Expense, error) {
	var row expenseRow
	err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Expense{}, storage.NotFound(id)
	}
	if err != nil {
		return core.Expense{}, core.NewStoreError("get expense", err)
	}
	return row.toExpense(), nil
}

func (s *Store) Update(ctx context.Context, ownerID, id string, c core.ExpenseChanges, at time.Time) (core.Expense, error) {
	updates := map[string]any{"updated_at": at.UTC()}
	if c.Amount != nil {
		updates["amount"] = *c.Amount
	}
	if c.Category != nil {
		updates["category"] = *c.Category
	}
	if c.PaymentMethod != nil {
		updates["payment_method"] = string(*c.PaymentMethod)
	}

	var row expenseRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&expenseRow{}).Where("id = ? AND owner_id = ?", id, ownerID).Updates(updates)
		if res.Error != nil {
			return core.NewStoreError("update expense", res.Error)
		}
		if res.RowsAffected == 0 {
			return storage.NotFound(id)
		}
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			return core.NewStoreError("reload expense", err)
		}
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}
	return row.toExpense(), nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) (int64, error) {
	res := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&expenseRow{})
	if res.Error != nil {
		return 0, core.NewStoreError("delete expense", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteMany removes chunk by chunk and collects the ids each DELETE returns.
func (s *Store) DeleteMany(ctx context.Context, ownerID string, ids []string) ([]string, error) {
	deleted := make([]string, 0, len(ids))
	for start := 0; start < len(ids); start += deleteChunk {
		chunk := ids[start:min(start+deleteChunk, len(ids))]
		var removed []expenseRow
		res := s.db.WithContext(ctx).
			Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
			Where("owner_id = ? AND id IN ?", ownerID, chunk).
			Delete(&removed)
		if res.Error != nil {
			return deleted, core.NewStoreError("delete many", res.Error)
		}
		for _, r := range removed {
			deleted = append(deleted, r.ID)
		}
	}
	return deleted, nil
}

func (s *Store) MonthlyTotals(ctx context.Context, ownerID string) ([]core.MonthlyTotal, error) {
	var rows []struct {
		Year          int
		Month         int
		TotalExpenses float64
	}
	err := s.db.WithContext(ctx).Model(&expenseRow{}).
		Select(`CAST(EXTRACT(YEAR FROM created_at AT TIME ZONE 'UTC') AS INTEGER) AS year,
			CAST(EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC') AS INTEGER) AS month,
			SUM(amount) AS total_expenses`).
		Where("owner_id = ?", ownerID).
		Group("year, month").
		Order("year, month").
		Scan(&rows).Error
	if err != nil {
		return nil, core.NewStoreError("monthly totals", err)
	}

	out := make([]core.MonthlyTotal, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.MonthlyTotal{Year: r.Year, Month: r.Month, TotalExpenses: core.RoundTotal(r.TotalExpenses)})
	}
	return out, nil
}

func (s *Store) CategoryTotals(ctx context.Context, ownerID string) ([]core.CategoryTotal, error) {
	var rows []struct {
		Category      string
		TotalExpenses float64
	}
	err := s.db.WithContext(ctx).Model(&expenseRow{}).
		Select("category, SUM(amount) AS total_expenses").
		Where("owner_id = ?", ownerID).
		Group("category").
		Order("total_expenses DESC, category").
		Scan(&rows).Error
	if err != nil {
		return nil, core.NewStoreError("category totals", err)
	}

	out := make([]core.CategoryTotal, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.CategoryTotal{Category: r.Category, TotalExpenses: core.RoundTotal(r.TotalExpenses)})
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	row := userRow{
		ID:           uuid.NewString(),
		Email:        core.NormalizeEmail(u.Email),
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt.UTC(),
	}
	if u.CreatedAt.IsZero() {
		row.CreatedAt = s.now()
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return core.User{}, core.ErrConflict
	}
	if err != nil {
		return core.User{}, core.NewStoreError("create user", err)
	}
	return row.toUser(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("email = ?", core.NormalizeEmail(email)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.User{}, &core.NotFoundError{Resource: "user"}
	}
	if err != nil {
		return core.User{}, core.NewStoreError("get user", err)
	}
	return row.toUser(), nil
}
