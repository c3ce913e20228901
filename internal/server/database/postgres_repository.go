package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const folderColumns = `id::text, name, type, max_file_limit, created_at, updated_at`

const fileColumns = `id::text, folder_id::text, name, description, type, size, checksum,
	url, public_id, status, reserved_at, COALESCE(uploaded_at, reserved_at)`

// PostgresRepository implements Repository on PostgreSQL.
type PostgresRepository struct {
	db *DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanFolder(row scanner) (*Folder, error) {
	f := &Folder{}
	err := row.Scan(&f.ID, &f.Name, &f.Type, &f.MaxFileLimit, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func scanFile(row scanner) (*File, error) {
	f := &File{}
	var status string
	err := row.Scan(
		&f.ID,
		&f.FolderID,
		&f.Name,
		&f.Description,
		&f.Type,
		&f.Size,
		&f.Checksum,
		&f.URL,
		&f.PublicID,
		&status,
		&f.ReservedAt,
		&f.UploadedAt,
	)
	f.Status = FileStatus(status)
	return f, err
}

func collectFiles(rows pgx.Rows) ([]*File, error) {
	defer rows.Close()

	files := []*File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func folderExists(ctx context.Context, q querier, id string) error {
	var exists bool
	if err := q.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM folders WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up folder: %w", err)
	}
	if !exists {
		return ErrFolderNotFound
	}
	return nil
}

// CreateFolder inserts a new folder. The UNIQUE constraint on name decides
// races between concurrent creates.
func (r *PostgresRepository) CreateFolder(ctx context.Context, folder *Folder) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO folders (id, name, type, max_file_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		folder.ID,
		folder.Name,
		folder.Type,
		folder.MaxFileLimit,
		folder.CreatedAt,
		folder.UpdatedAt,
	)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return ErrFolderNameTaken
		}
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

// GetFolder retrieves a folder by its ID.
func (r *PostgresRepository) GetFolder(ctx context.Context, id string) (*Folder, error) {
	row := r.db.Pool.QueryRow(ctx, "SELECT "+folderColumns+" FROM folders WHERE id = $1", id)
	folder, err := scanFolder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return folder, nil
}

// ListFolders returns all folders in creation order.
func (r *PostgresRepository) ListFolders(ctx context.Context) ([]*Folder, error) {
	rows, err := r.db.Pool.Query(ctx, "SELECT "+folderColumns+" FROM folders ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	folders := []*Folder{}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// UpdateFolder applies the non-nil fields of patch.
func (r *PostgresRepository) UpdateFolder(ctx context.Context, id string, patch FolderPatch) (*Folder, error) {
	row := r.db.Pool.QueryRow(ctx, `
		UPDATE folders SET
			name = COALESCE($2, name),
			max_file_limit = COALESCE($3, max_file_limit),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+folderColumns,
		id, patch.Name, patch.MaxFileLimit,
	)
	folder, err := scanFolder(row)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrFolderNotFound
		case pgErrorCode(err) == pgUniqueViolation:
			return nil, ErrFolderNameTaken
		}
		return nil, fmt.Errorf("failed to update folder: %w", err)
	}
	return folder, nil
}

// DeleteFolder removes a folder. The files foreign key refuses the delete
// while the folder still owns rows, pending reservations included.
func (r *PostgresRepository) DeleteFolder(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM folders WHERE id = $1", id)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return ErrFolderNotEmpty
		}
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFolderNotFound
	}
	return nil
}

// ReserveFile locks the folder row, counts its files and inserts a pending
// row if the limit allows it.
func (r *PostgresRepository) ReserveFile(ctx context.Context, file *File) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin reservation: %w", err)
	}
	defer tx.Rollback(ctx)

	var limit int
	err = tx.QueryRow(ctx,
		"SELECT max_file_limit FROM folders WHERE id = $1 FOR UPDATE", file.FolderID,
	).Scan(&limit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrFolderNotFound
		}
		return fmt.Errorf("failed to lock folder: %w", err)
	}

	var count int
	if err := tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM files WHERE folder_id = $1", file.FolderID,
	).Scan(&count); err != nil {
		return fmt.Errorf("failed to count files: %w", err)
	}
	if count >= limit {
		return ErrFolderFull
	}

	file.Status = FileStatusPending
	err = tx.QueryRow(ctx, `
		INSERT INTO files (id, folder_id, name, description, type, size, checksum, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING reserved_at
	`,
		file.ID,
		file.FolderID,
		file.Name,
		file.Description,
		file.Type,
		file.Size,
		file.Checksum,
		string(file.Status),
	).Scan(&file.ReservedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}
	return nil
}

// CommitFile turns a pending reservation into a visible file.
func (r *PostgresRepository) CommitFile(ctx context.Context, file *File) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE files SET
			url = $3,
			public_id = $4,
			checksum = $5,
			uploaded_at = $6,
			status = 'committed'
		WHERE id = $1 AND folder_id = $2 AND status = 'pending'
	`,
		file.ID,
		file.FolderID,
		file.URL,
		file.PublicID,
		file.Checksum,
		file.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to commit file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	file.Status = FileStatusCommitted
	return nil
}

// ReleaseFile drops a pending reservation.
func (r *PostgresRepository) ReleaseFile(ctx context.Context, folderID, fileID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		"DELETE FROM files WHERE id = $1 AND folder_id = $2 AND status = 'pending'",
		fileID, folderID,
	)
	if err != nil {
		return fmt.Errorf("failed to release reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

// ListFiles returns the committed files of a folder in upload order.
func (r *PostgresRepository) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	if err := folderExists(ctx, r.db.Pool, folderID); err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.Query(ctx,
		"SELECT "+fileColumns+" FROM files WHERE folder_id = $1 AND status = 'committed' ORDER BY seq",
		folderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	return collectFiles(rows)
}

// ListFilesByType returns committed files across all folders with the exact MIME type.
func (r *PostgresRepository) ListFilesByType(ctx context.Context, mimeType string) ([]*File, error) {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT "+fileColumns+" FROM files WHERE type = $1 AND status = 'committed' ORDER BY seq",
		mimeType,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query files by type: %w", err)
	}
	return collectFiles(rows)
}

// UpdateFileDescription sets the description of a committed file.
func (r *PostgresRepository) UpdateFileDescription(ctx context.Context, folderID, fileID, description string) (*File, error) {
	if err := folderExists(ctx, r.db.Pool, folderID); err != nil {
		return nil, err
	}

	row := r.db.Pool.QueryRow(ctx, `
		UPDATE files SET description = $3
		WHERE id = $1 AND folder_id = $2 AND status = 'committed'
		RETURNING `+fileColumns,
		fileID, folderID, description,
	)
	file, err := scanFile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to update file description: %w", err)
	}
	return file, nil
}

// DeleteFile removes a committed file and returns the deleted record.
func (r *PostgresRepository) DeleteFile(ctx context.Context, folderID, fileID string) (*File, error) {
	if err := folderExists(ctx, r.db.Pool, folderID); err != nil {
		return nil, err
	}

	row := r.db.Pool.QueryRow(ctx, `
		DELETE FROM files
		WHERE id = $1 AND folder_id = $2 AND status = 'committed'
		RETURNING `+fileColumns,
		fileID, folderID,
	)
	file, err := scanFile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to delete file: %w", err)
	}
	return file, nil
}

// ReleaseStaleReservations deletes pending rows reserved before the cutoff
// and returns them.
func (r *PostgresRepository) ReleaseStaleReservations(ctx context.Context, before time.Time) ([]*File, error) {
	rows, err := r.db.Pool.Query(ctx,
		"DELETE FROM files WHERE status = 'pending' AND reserved_at < $1 RETURNING "+fileColumns,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to release stale reservations: %w", err)
	}
	return collectFiles(rows)
}

// AddTombstone records a blob whose deletion failed.
func (r *PostgresRepository) AddTombstone(ctx context.Context, publicID, reason string) error {
	_, err := r.db.Pool.Exec(ctx,
		"INSERT INTO blob_tombstones (public_id, attempts, last_error) VALUES ($1, 1, $2)",
		publicID, reason,
	)
	if err != nil {
		return fmt.Errorf("failed to add tombstone: %w", err)
	}
	return nil
}

// ListTombstones returns the oldest tombstones first.
func (r *PostgresRepository) ListTombstones(ctx context.Context, limit int) ([]*Tombstone, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, public_id, attempts, last_error, created_at
		FROM blob_tombstones ORDER BY id LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tombstones: %w", err)
	}
	defer rows.Close()

	tombstones := []*Tombstone{}
	for rows.Next() {
		t := &Tombstone{}
		if err := rows.Scan(&t.ID, &t.PublicID, &t.Attempts, &t.LastError, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tombstone: %w", err)
		}
		tombstones = append(tombstones, t)
	}
	return tombstones, rows.Err()
}

// RecordTombstoneAttempt bumps the attempt counter after another failed delete.
func (r *PostgresRepository) RecordTombstoneAttempt(ctx context.Context, id int64, reason string) error {
	_, err := r.db.Pool.Exec(ctx,
		"UPDATE blob_tombstones SET attempts = attempts + 1, last_error = $2 WHERE id = $1",
		id, reason,
	)
	if err != nil {
		return fmt.Errorf("failed to record tombstone attempt: %w", err)
	}
	return nil
}

// DeleteTombstone removes a tombstone once its blob is gone.
func (r *PostgresRepository) DeleteTombstone(ctx context.Context, id int64) error {
	if _, err := r.db.Pool.Exec(ctx, "DELETE FROM blob_tombstones WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete tombstone: %w", err)
	}
	return nil
}

// HealthCheck verifies the database connection is alive.
func (r *PostgresRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
