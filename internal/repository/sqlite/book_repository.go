package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookshelf/internal/domain"
	"bookshelf/internal/repository"
)

const createBooksTable = `
CREATE TABLE IF NOT EXISTS books (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	caption TEXT NOT NULL,
	image TEXT NOT NULL DEFAULT '',
	rating INTEGER NOT NULL,
	owner_id TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_books_owner ON books(owner_id);
CREATE INDEX IF NOT EXISTS idx_books_created_at ON books(created_at);
`

type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) repository.BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createBooksTable); err != nil {
		return fmt.Errorf("create books table: %w", err)
	}
	return nil
}

func (r *BookRepository) Create(ctx context.Context, book *domain.Book) error {
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO books (id, title, caption, image, rating, owner_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID,
		book.Title,
		book.Caption,
		book.Image,
		book.Rating,
		book.OwnerID,
		book.CreatedAt,
		book.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (r *BookRepository) Get(ctx context.Context, id string) (*domain.Book, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, caption, image, rating, owner_id, created_at, updated_at
FROM books
WHERE id = ?`,
		id,
	)

	var book domain.Book
	if err := scanBook(row.Scan, &book); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("book: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan book: %w", err)
	}
	return &book, nil
}

func (r *BookRepository) List(ctx context.Context, offset, limit int) ([]domain.Book, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, caption, image, rating, owner_id, created_at, updated_at
FROM books
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	return collectBooks(rows)
}

func (r *BookRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Book, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, caption, image, rating, owner_id, created_at, updated_at
FROM books
WHERE owner_id = ?
ORDER BY created_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list books by owner: %w", err)
	}
	defer rows.Close()

	return collectBooks(rows)
}

func (r *BookRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return count, nil
}

func (r *BookRepository) Update(ctx context.Context, book *domain.Book) error {
	book.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
UPDATE books
SET title = ?, caption = ?, image = ?, rating = ?, updated_at = ?
WHERE id = ?`,
		book.Title,
		book.Caption,
		book.Image,
		book.Rating,
		book.UpdatedAt,
		book.ID,
	)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update book rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("book: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *BookRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete book rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("book: %w", repository.ErrNotFound)
	}
	return nil
}

func scanBook(scan func(dest ...any) error, book *domain.Book) error {
	return scan(
		&book.ID,
		&book.Title,
		&book.Caption,
		&book.Image,
		&book.Rating,
		&book.OwnerID,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
}

func collectBooks(rows *sql.Rows) ([]domain.Book, error) {
	var books []domain.Book
	for rows.Next() {
		var book domain.Book
		if err := scanBook(rows.Scan, &book); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}
