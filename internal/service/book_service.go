package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bookshelf/internal/domain"
	"bookshelf/internal/identity"
	"bookshelf/internal/repository"
	"bookshelf/internal/storage"
)

// ErrForbidden is returned when a user touches a book they do not own.
var ErrForbidden = errors.New("not the book owner")

const (
	defaultPage  = 1
	defaultLimit = 5
	maxLimit     = 100

	// enrichConcurrency caps the identity lookups in flight for one page so
	// large pages cannot stampede the identity service.
	enrichConcurrency = 8
)

// CreateBookInput carries the fields of a new book. Image is a base64 data
// URI; the stored record carries the uploaded URL instead.
type CreateBookInput struct {
	Title   string
	Caption string
	Rating  int
	Image   string
}

// UpdateBookInput mirrors CreateBookInput for edits. An empty Image keeps
// the current one; a data URI replaces it.
type UpdateBookInput struct {
	Title   string
	Caption string
	Rating  int
	Image   string
}

// BookPage is one enriched listing page.
type BookPage struct {
	Books       []domain.EnrichedBook
	CurrentPage int
	TotalBooks  int64
	TotalPages  int64
}

// BookService coordinates book operations: CRUD with ownership checks,
// cover image hosting, and owner enrichment of listings.
type BookService interface {
	CreateBook(ctx context.Context, ownerID string, in CreateBookInput) (*domain.Book, error)
	ListBooks(ctx context.Context, page, limit int) (*BookPage, error)
	ListOwnBooks(ctx context.Context, ownerID string) ([]domain.Book, error)
	UpdateBook(ctx context.Context, requesterID, bookID string, in UpdateBookInput) (*domain.Book, error)
	DeleteBook(ctx context.Context, requesterID, bookID string) error
}

type bookService struct {
	books    repository.BookRepository
	resolver identity.Resolver
	images   storage.ImageStore
	logger   *logrus.Logger
}

func NewBookService(books repository.BookRepository, resolver identity.Resolver, images storage.ImageStore, logger *logrus.Logger) BookService {
	return &bookService{
		books:    books,
		resolver: resolver,
		images:   images,
		logger:   logger,
	}
}

func (s *bookService) CreateBook(ctx context.Context, ownerID string, in CreateBookInput) (*domain.Book, error) {
	if err := validateBookFields(in.Title, in.Caption, in.Rating, in.Image); err != nil {
		return nil, err
	}

	// validate everything before the blob store is touched
	img, err := storage.ParseDataURI(in.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	id := uuid.NewString()
	imageURL, err := s.images.Upload(ctx, id+img.Ext(), img.ContentType, img.Data)
	if err != nil {
		return nil, fmt.Errorf("upload cover image: %w", err)
	}

	book := &domain.Book{
		ID:      id,
		Title:   in.Title,
		Caption: in.Caption,
		Image:   imageURL,
		Rating:  in.Rating,
		OwnerID: ownerID,
	}
	if err := s.books.Create(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *bookService) ListBooks(ctx context.Context, page, limit int) (*BookPage, error) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}

	books, err := s.books.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.books.Count(ctx)
	if err != nil {
		return nil, err
	}

	enriched, err := s.enrich(ctx, books)
	if err != nil {
		return nil, err
	}

	return &BookPage{
		Books:       enriched,
		CurrentPage: page,
		TotalBooks:  total,
		TotalPages:  int64(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// enrich resolves every book's owner concurrently, preserving input order.
// A failed lookup degrades that one book to the placeholder owner; a page
// never fails because the identity service is down or an owner is gone.
func (s *bookService) enrich(ctx context.Context, books []domain.Book) ([]domain.EnrichedBook, error) {
	enriched := make([]domain.EnrichedBook, len(books))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i := range books {
		g.Go(func() error {
			book := books[i]
			owner, err := s.resolver.Resolve(gctx, book.OwnerID)
			if err != nil {
				if s.logger != nil {
					s.logger.Warnf("enrich book %s: owner %s unresolved: %v", book.ID, book.OwnerID, err)
				}
				owner = domain.PlaceholderProfile()
			}
			enriched[i] = domain.EnrichedBook{Book: book, Owner: owner}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return enriched, nil
}

func (s *bookService) ListOwnBooks(ctx context.Context, ownerID string) ([]domain.Book, error) {
	return s.books.ListByOwner(ctx, ownerID)
}

func (s *bookService) UpdateBook(ctx context.Context, requesterID, bookID string, in UpdateBookInput) (*domain.Book, error) {
	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.OwnerID != requesterID {
		return nil, ErrForbidden
	}
	if err := validateBookFields(in.Title, in.Caption, in.Rating, "-"); err != nil {
		return nil, err
	}

	if storage.IsDataURI(in.Image) {
		img, err := storage.ParseDataURI(in.Image)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		imageURL, err := s.images.Upload(ctx, book.ID+img.Ext(), img.ContentType, img.Data)
		if err != nil {
			return nil, fmt.Errorf("upload cover image: %w", err)
		}
		book.Image = imageURL
	}

	book.Title = in.Title
	book.Caption = in.Caption
	book.Rating = in.Rating

	if err := s.books.Update(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *bookService) DeleteBook(ctx context.Context, requesterID, bookID string) error {
	book, err := s.books.Get(ctx, bookID)
	if err != nil {
		return err
	}
	if book.OwnerID != requesterID {
		return ErrForbidden
	}

	// image cleanup is best effort; the record is the source of truth
	if book.Image != "" {
		if err := s.images.Delete(ctx, book.Image); err != nil && s.logger != nil {
			s.logger.Warnf("delete cover image for book %s: %v", book.ID, err)
		}
	}

	return s.books.Delete(ctx, bookID)
}

func validateBookFields(title, caption string, rating int, image string) error {
	if title == "" || caption == "" || image == "" {
		return fmt.Errorf("%w: all fields are required", ErrValidation)
	}
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	return nil
}
