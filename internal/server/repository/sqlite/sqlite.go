package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/KreatechIT/mrs-sub000/internal/server/models"
	"github.com/KreatechIT/mrs-sub000/internal/server/repository"
)

type Repository struct {
	db *sql.DB
}

func New(dsn string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS admins (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT UNIQUE NOT NULL,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT UNIQUE NOT NULL,
			username TEXT NOT NULL,
			tier TEXT NOT NULL DEFAULT 'bronze',
			current_points INTEGER NOT NULL DEFAULT 0,
			login_code TEXT UNIQUE NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS spin_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT UNIQUE NOT NULL,
			reward_name TEXT NOT NULL,
			probability REAL NOT NULL,
			unlimited INTEGER NOT NULL DEFAULT 0,
			quantity INTEGER NOT NULL DEFAULT 0,
			image TEXT NOT NULL DEFAULT '',
			archived INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS spin_sequences (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid TEXT UNIQUE NOT NULL,
			item_order INTEGER NOT NULL,
			item_uuid TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY(item_uuid) REFERENCES spin_items(uuid)
		);
		CREATE TABLE IF NOT EXISTS refresh_tokens (
			token TEXT PRIMARY KEY,
			subject_uuid TEXT NOT NULL,
			role TEXT NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS spin_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			member_uuid TEXT NOT NULL,
			item_uuid TEXT NOT NULL,
			reward_name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
	`); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error { return r.db.Close() }

// Admins

func (r *Repository) CreateAdmin(ctx context.Context, username, passwordHash string) (models.Admin, error) {
	now := time.Now().UTC()
	a := models.Admin{UUID: uuid.NewString(), Username: username, PasswordHash: passwordHash, CreatedAt: now}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO admins(uuid,username,password_hash,created_at) VALUES(?,?,?,?)`,
		a.UUID, a.Username, a.PasswordHash, now)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Admin{}, repository.ErrDuplicate
		}
		return models.Admin{}, err
	}
	a.ID, _ = res.LastInsertId()
	return a, nil
}

func (r *Repository) GetAdminByUsername(ctx context.Context, username string) (models.Admin, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id,uuid,username,password_hash,created_at FROM admins WHERE username = ?`, username)
	var a models.Admin
	if err := row.Scan(&a.ID, &a.UUID, &a.Username, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Admin{}, repository.ErrNotFound
		}
		return models.Admin{}, err
	}
	return a, nil
}

// Members

func (r *Repository) CreateMember(ctx context.Context, m models.Member) (models.Member, error) {
	if m.UUID == "" {
		m.UUID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO members(uuid,username,tier,current_points,login_code,created_at) VALUES(?,?,?,?,?,?)`,
		m.UUID, m.Username, m.Tier, m.CurrentPoints, m.LoginCode, m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Member{}, repository.ErrDuplicate
		}
		return models.Member{}, err
	}
	m.ID, _ = res.LastInsertId()
	return m, nil
}

func (r *Repository) ListMembers(ctx context.Context) ([]models.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id,uuid,username,tier,current_points,login_code,created_at FROM members ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.UUID, &m.Username, &m.Tier, &m.CurrentPoints, &m.LoginCode, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) GetMemberByUUID(ctx context.Context, id string) (models.Member, error) {
	return r.getMember(ctx, `uuid = ?`, id)
}

func (r *Repository) GetMemberByLoginCode(ctx context.Context, code string) (models.Member, error) {
	return r.getMember(ctx, `login_code = ?`, code)
}

func (r *Repository) getMember(ctx context.Context, where string, arg any) (models.Member, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id,uuid,username,tier,current_points,login_code,created_at FROM members WHERE `+where, arg)
	var m models.Member
	if err := row.Scan(&m.ID, &m.UUID, &m.Username, &m.Tier, &m.CurrentPoints, &m.LoginCode, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Member{}, repository.ErrNotFound
		}
		return models.Member{}, err
	}
	return m, nil
}

// Spin items

func (r *Repository) CreateItem(ctx context.Context, it models.SpinItem) (models.SpinItem, error) {
	if it.UUID == "" {
		it.UUID = uuid.NewString()
	}
	now := time.Now().UTC()
	it.CreatedAt, it.UpdatedAt = now, now
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO spin_items(uuid,reward_name,probability,unlimited,quantity,image,archived,created_at,updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		it.UUID, it.RewardName, it.Probability, it.Unlimited, it.Quantity, it.Image, it.Archived, now, now)
	if err != nil {
		return models.SpinItem{}, err
	}
	it.ID, _ = res.LastInsertId()
	return it, nil
}

func (r *Repository) ListItems(ctx context.Context, includeArchived bool) ([]models.SpinItem, error) {
	q := `SELECT id,uuid,reward_name,probability,unlimited,quantity,image,archived,created_at,updated_at FROM spin_items`
	if !includeArchived {
		q += ` WHERE archived = 0`
	}
	q += ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.SpinItem
	for rows.Next() {
		var it models.SpinItem
		if err := rows.Scan(&it.ID, &it.UUID, &it.RewardName, &it.Probability, &it.Unlimited,
			&it.Quantity, &it.Image, &it.Archived, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repository) GetItem(ctx context.Context, id string) (models.SpinItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id,uuid,reward_name,probability,unlimited,quantity,image,archived,created_at,updated_at
		 FROM spin_items WHERE uuid = ?`, id)
	var it models.SpinItem
	if err := row.Scan(&it.ID, &it.UUID, &it.RewardName, &it.Probability, &it.Unlimited,
		&it.Quantity, &it.Image, &it.Archived, &it.CreatedAt, &it.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SpinItem{}, repository.ErrNotFound
		}
		return models.SpinItem{}, err
	}
	return it, nil
}

func (r *Repository) UpdateItem(ctx context.Context, it models.SpinItem) (models.SpinItem, error) {
	it.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE spin_items SET reward_name=?, probability=?, unlimited=?, quantity=?, image=?, updated_at=?
		 WHERE uuid = ?`,
		it.RewardName, it.Probability, it.Unlimited, it.Quantity, it.Image, it.UpdatedAt, it.UUID)
	if err != nil {
		return models.SpinItem{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.SpinItem{}, repository.ErrNotFound
	}
	return r.GetItem(ctx, it.UUID)
}

func (r *Repository) DeleteItem(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM spin_sequences WHERE item_uuid = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM spin_items WHERE uuid = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return tx.Commit()
}

func (r *Repository) SetItemArchived(ctx context.Context, id string, archived bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE spin_items SET archived=?, updated_at=? WHERE uuid = ?`,
		archived, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DecrementQuantity takes one unit of stock, failing when none is left. The
// WHERE clause makes the check and the decrement a single atomic statement.
func (r *Repository) DecrementQuantity(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE spin_items SET quantity = quantity - 1, updated_at = ?
		 WHERE uuid = ? AND unlimited = 0 AND quantity > 0`,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrOutOfStock
	}
	return nil
}

// Spin sequences

func (r *Repository) CreateSequence(ctx context.Context, itemUUID string) (models.SpinSequence, error) {
	if _, err := r.GetItem(ctx, itemUUID); err != nil {
		return models.SpinSequence{}, err
	}
	now := time.Now().UTC()
	s := models.SpinSequence{UUID: uuid.NewString(), ItemUUID: itemUUID, CreatedAt: now}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO spin_sequences(uuid,item_order,item_uuid,created_at)
		 VALUES(?, (SELECT COALESCE(MAX(item_order),-1)+1 FROM spin_sequences), ?, ?)`,
		s.UUID, itemUUID, now)
	if err != nil {
		return models.SpinSequence{}, err
	}
	s.ID, _ = res.LastInsertId()
	row := r.db.QueryRowContext(ctx, `SELECT item_order FROM spin_sequences WHERE uuid = ?`, s.UUID)
	if err := row.Scan(&s.ItemOrder); err != nil {
		return models.SpinSequence{}, err
	}
	return s, nil
}

func (r *Repository) ListSequences(ctx context.Context) ([]models.SpinSequence, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id,uuid,item_order,item_uuid,created_at FROM spin_sequences ORDER BY item_order`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.SpinSequence
	for rows.Next() {
		var s models.SpinSequence
		if err := rows.Scan(&s.ID, &s.UUID, &s.ItemOrder, &s.ItemUUID, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteSequence(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM spin_sequences WHERE uuid = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ReorderSequences applies a whole batch of order changes in one
// transaction; a batch naming an unknown sequence rolls back entirely.
func (r *Repository) ReorderSequences(ctx context.Context, orders map[string]int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	// Park the batch at negative orders first so the unique positions can be
	// swapped without colliding mid-update.
	for seqUUID := range orders {
		res, err := tx.ExecContext(ctx,
			`UPDATE spin_sequences SET item_order = -1 - item_order WHERE uuid = ?`, seqUUID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("sequence %s: %w", seqUUID, repository.ErrNotFound)
		}
	}
	for seqUUID, order := range orders {
		if _, err := tx.ExecContext(ctx,
			`UPDATE spin_sequences SET item_order = ? WHERE uuid = ?`, order, seqUUID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Refresh tokens

func (r *Repository) CreateRefreshToken(ctx context.Context, subjectUUID, role, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens(token,subject_uuid,role,expires_at,created_at) VALUES(?,?,?,?,?)`,
		token, subjectUUID, role, expiresAt, time.Now().UTC())
	return err
}

func (r *Repository) GetRefreshToken(ctx context.Context, token string) (subjectUUID, role string, expiresAt time.Time, err error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT subject_uuid, role, expires_at FROM refresh_tokens WHERE token = ?`, token)
	if err = row.Scan(&subjectUUID, &role, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = repository.ErrNotFound
		}
		return "", "", time.Time{}, err
	}
	return subjectUUID, role, expiresAt, nil
}

func (r *Repository) DeleteRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, token)
	return err
}

// Spin history

func (r *Repository) RecordSpin(ctx context.Context, rec models.SpinRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO spin_history(member_uuid,item_uuid,reward_name,created_at) VALUES(?,?,?,?)`,
		rec.MemberUUID, rec.ItemUUID, rec.RewardName, time.Now().UTC())
	return err
}

func (r *Repository) ListSpinHistory(ctx context.Context, memberUUID string, limit int) ([]models.SpinRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id,member_uuid,item_uuid,reward_name,created_at FROM spin_history
		 WHERE member_uuid = ? ORDER BY id DESC LIMIT ?`, memberUUID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.SpinRecord
	for rows.Next() {
		var rec models.SpinRecord
		if err := rows.Scan(&rec.ID, &rec.MemberUUID, &rec.ItemUUID, &rec.RewardName, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
