// Package storage provides the SQLite persistence layer.
package storage

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

	"conti/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser inserts a user and fills in its generated ID.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u *core.User) error {
	var mobile any
	if u.Mobile != "" {
		mobile = u.Mobile
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (name, email, mobile) VALUES (?, ?, ?)",
		u.Name, u.Email, mobile,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (*core.User, error) {
	u := &core.User{}
	var mobile sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, mobile FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Name, &u.Email, &mobile)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Mobile = mobile.String
	return u, nil
}

// CreateGroup inserts a group and its member links in one transaction.
func (r *SQLiteRepository) CreateGroup(ctx context.Context, g *core.Group) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO groups (name) VALUES (?)", g.Name)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	g.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("group id: %w", err)
	}

	for _, userID := range g.MemberIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, user_id) VALUES (?, ?)",
			g.ID, userID,
		); err != nil {
			return fmt.Errorf("insert group member %d: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit group: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetGroup(ctx context.Context, id int64) (*core.Group, error) {
	g := &core.Group{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name FROM groups WHERE id = ?", id,
	).Scan(&g.ID, &g.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT user_id FROM group_members WHERE group_id = ? ORDER BY user_id", id,
	)
	if err != nil {
		return nil, fmt.Errorf("get group members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		g.MemberIDs = append(g.MemberIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group members: %w", err)
	}
	return g, nil
}

// AddGroupMembers links additional users to an existing group.
func (r *SQLiteRepository) AddGroupMembers(ctx context.Context, groupID int64, userIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, userID := range userIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)",
			groupID, userID,
		); err != nil {
			return fmt.Errorf("insert group member %d: %w", userID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit members: %w", err)
	}
	return nil
}

// CreateExpense persists an expense together with its splits atomically.
// The expense ID and split ExpenseIDs are filled in on success.
// Percentage is stored only for PERCENTAGE expenses, NULL otherwise.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e *core.Expense, splits []core.Split) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO expenses (group_id, payer_id, amount_cents, description, split_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.GroupID, e.PayerID, e.Amount.Cents, e.Description, string(e.SplitType), e.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("expense id: %w", err)
	}

	for i := range splits {
		splits[i].ExpenseID = e.ID
		var percentage any
		if e.SplitType == core.SplitPercentage {
			percentage = splits[i].Percentage
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO expense_splits (expense_id, user_id, amount_cents, percentage)
			 VALUES (?, ?, ?, ?)`,
			e.ID, splits[i].UserID, splits[i].Amount.Cents, percentage,
		); err != nil {
			return fmt.Errorf("insert split for user %d: %w", splits[i].UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"group_id", e.GroupID,
		"payer_id", e.PayerID,
		"amount_cents", e.Amount.Cents,
		"split_type", e.SplitType,
		"splits", len(splits))

	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (*core.Expense, error) {
	e := &core.Expense{}
	var createdAt int64
	var splitType string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, group_id, payer_id, amount_cents, description, split_type, created_at
		 FROM expenses WHERE id = ?`, id,
	).Scan(&e.ID, &e.GroupID, &e.PayerID, &e.Amount.Cents, &e.Description, &splitType, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	e.SplitType = core.SplitType(splitType)
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	return e, nil
}

// ListGroupExpenses returns a group's expenses in creation order.
func (r *SQLiteRepository) ListGroupExpenses(ctx context.Context, groupID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, group_id, payer_id, amount_cents, description, split_type, created_at
		 FROM expenses WHERE group_id = ? ORDER BY id`, groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list group expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var createdAt int64
		var splitType string
		if err := rows.Scan(&e.ID, &e.GroupID, &e.PayerID, &e.Amount.Cents,
			&e.Description, &splitType, &createdAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.SplitType = core.SplitType(splitType)
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// ListSplitsForExpenses returns every split referencing the given
// expense ids, ordered by row id (insertion order).
func (r *SQLiteRepository) ListSplitsForExpenses(ctx context.Context, expenseIDs []int64) ([]core.Split, error) {
	if len(expenseIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(expenseIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(expenseIDs))
	for i, id := range expenseIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT expense_id, user_id, amount_cents, percentage
		 FROM expense_splits WHERE expense_id IN (`+placeholders+`) ORDER BY id`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list splits: %w", err)
	}
	defer rows.Close()

	var splits []core.Split
	for rows.Next() {
		var s core.Split
		var percentage sql.NullFloat64
		if err := rows.Scan(&s.ExpenseID, &s.UserID, &s.Amount.Cents, &percentage); err != nil {
			return nil, fmt.Errorf("scan split: %w", err)
		}
		s.Percentage = percentage.Float64
		splits = append(splits, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate splits: %w", err)
	}
	return splits, nil
}

// ListExpenseSplits returns the splits of a single expense.
func (r *SQLiteRepository) ListExpenseSplits(ctx context.Context, expenseID int64) ([]core.Split, error) {
	return r.ListSplitsForExpenses(ctx, []int64{expenseID})
}
