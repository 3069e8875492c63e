package repository

import (
	"context"

	"bookshelf/internal/domain"
)

// BookRepository defines persistence operations for Book entities.
// List pages over all books sorted by creation time descending; ListByOwner
// returns one owner's books in the same order.
type BookRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, book *domain.Book) error
	Get(ctx context.Context, id string) (*domain.Book, error)
	List(ctx context.Context, offset, limit int) ([]domain.Book, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Book, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, book *domain.Book) error
	Delete(ctx context.Context, id string) error
}
