package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bookshelf/internal/domain"
	"bookshelf/internal/repository"
	"bookshelf/internal/repository/sqlite"
)

// --- fakes ---

type fakeResolver struct {
	calls     atomic.Int64
	resolveFn func(ctx context.Context, userID string) (*domain.UserProfile, error)
}

func (f *fakeResolver) Resolve(ctx context.Context, userID string) (*domain.UserProfile, error) {
	f.calls.Add(1)
	if f.resolveFn != nil {
		return f.resolveFn(ctx, userID)
	}
	return &domain.UserProfile{ID: userID, Username: "user-" + userID}, nil
}

type fakeImageStore struct {
	uploads   atomic.Int64
	deletes   atomic.Int64
	uploadErr error
	deleteErr error
}

func (f *fakeImageStore) Upload(_ context.Context, key, _ string, _ []byte) (string, error) {
	f.uploads.Add(1)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "https://img.example/" + key, nil
}

func (f *fakeImageStore) Delete(_ context.Context, _ string) error {
	f.deletes.Add(1)
	return f.deleteErr
}

// --- helpers ---

const testDataURI = "data:image/png;base64,aW1hZ2UtYnl0ZXM="

func setupBookService(t *testing.T, resolver *fakeResolver, images *fakeImageStore) (BookService, repository.BookRepository) {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := sqlite.NewBookRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return NewBookService(repo, resolver, images, nil), repo
}

func seedBook(t *testing.T, repo repository.BookRepository, id, ownerID string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &domain.Book{
		ID:      id,
		Title:   "Title " + id,
		Caption: "caption",
		Image:   "https://img.example/" + id + ".png",
		Rating:  4,
		OwnerID: ownerID,
	}))
	// createdAt has second resolution in comparisons; keep inserts ordered
	time.Sleep(2 * time.Millisecond)
}

// --- create ---

func TestCreateBookUploadsImageAndStoresURL(t *testing.T) {
	images := &fakeImageStore{}
	svc, repo := setupBookService(t, &fakeResolver{}, images)

	book, err := svc.CreateBook(context.Background(), "owner-1", CreateBookInput{
		Title:   "Dune",
		Caption: "spice",
		Rating:  5,
		Image:   testDataURI,
	})
	require.NoError(t, err)
	require.Equal(t, "owner-1", book.OwnerID)
	require.Contains(t, book.Image, "https://img.example/")
	require.EqualValues(t, 1, images.uploads.Load())

	stored, err := repo.Get(context.Background(), book.ID)
	require.NoError(t, err)
	require.Equal(t, book.Image, stored.Image)
}

func TestCreateBookValidatesBeforeAnySideEffect(t *testing.T) {
	images := &fakeImageStore{}
	svc, repo := setupBookService(t, &fakeResolver{}, images)
	ctx := context.Background()

	cases := []CreateBookInput{
		{Caption: "c", Rating: 3, Image: testDataURI},            // no title
		{Title: "t", Rating: 3, Image: testDataURI},              // no caption
		{Title: "t", Caption: "c", Rating: 3},                    // no image
		{Title: "t", Caption: "c", Rating: 0, Image: testDataURI},
		{Title: "t", Caption: "c", Rating: 6, Image: testDataURI},
		{Title: "t", Caption: "c", Rating: 3, Image: "not-a-data-uri"},
	}
	for i, in := range cases {
		_, err := svc.CreateBook(ctx, "owner-1", in)
		require.ErrorIs(t, err, ErrValidation, "case %d", i)
	}

	require.EqualValues(t, 0, images.uploads.Load())
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, count)
}

// --- listing + enrichment ---

func TestListBooksEnrichesOwners(t *testing.T) {
	resolver := &fakeResolver{}
	svc, repo := setupBookService(t, resolver, &fakeImageStore{})
	seedBook(t, repo, "b-1", "u-1")
	seedBook(t, repo, "b-2", "u-2")

	page, err := svc.ListBooks(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Books, 2)
	for _, b := range page.Books {
		require.NotNil(t, b.Owner)
		require.Equal(t, "user-"+b.OwnerID, b.Owner.Username)
	}
	require.EqualValues(t, 2, page.TotalBooks)
	require.EqualValues(t, 1, page.TotalPages)
}

func TestListBooksPreservesOrderUnderSlowAndFailedLookups(t *testing.T) {
	// u2 resolves slowest, u3 does not exist; output order must still be
	// newest-first insertion order with a placeholder for u3.
	resolver := &fakeResolver{
		resolveFn: func(ctx context.Context, userID string) (*domain.UserProfile, error) {
			switch userID {
			case "u2":
				time.Sleep(80 * time.Millisecond)
			case "u3":
				return nil, fmt.Errorf("user not found")
			}
			return &domain.UserProfile{ID: userID, Username: "user-" + userID}, nil
		},
	}
	svc, repo := setupBookService(t, resolver, &fakeImageStore{})
	seedBook(t, repo, "A", "u1")
	seedBook(t, repo, "B", "u2")
	seedBook(t, repo, "C", "u3")

	page, err := svc.ListBooks(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Books, 3)

	require.Equal(t, "C", page.Books[0].ID)
	require.Equal(t, "Unknown User", page.Books[0].Owner.Username)
	require.Equal(t, "", page.Books[0].Owner.ProfileImage)

	require.Equal(t, "B", page.Books[1].ID)
	require.Equal(t, "user-u2", page.Books[1].Owner.Username)

	require.Equal(t, "A", page.Books[2].ID)
	require.Equal(t, "user-u1", page.Books[2].Owner.Username)
}

func TestListBooksSurvivesIdentityOutage(t *testing.T) {
	resolver := &fakeResolver{
		resolveFn: func(ctx context.Context, userID string) (*domain.UserProfile, error) {
			return nil, fmt.Errorf("identity service unavailable")
		},
	}
	svc, repo := setupBookService(t, resolver, &fakeImageStore{})
	for i := 0; i < 3; i++ {
		seedBook(t, repo, fmt.Sprintf("b-%d", i), "u-1")
	}

	page, err := svc.ListBooks(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Books, 3)
	require.EqualValues(t, 3, page.TotalBooks)
	for _, b := range page.Books {
		require.Equal(t, "Unknown User", b.Owner.Username)
	}
}

func TestListBooksPaginationWindow(t *testing.T) {
	svc, repo := setupBookService(t, &fakeResolver{}, &fakeImageStore{})
	for i := 1; i <= 12; i++ {
		seedBook(t, repo, fmt.Sprintf("book-%02d", i), "u-1")
	}

	page, err := svc.ListBooks(context.Background(), 2, 5)
	require.NoError(t, err)
	require.Len(t, page.Books, 5)
	require.Equal(t, 2, page.CurrentPage)
	require.EqualValues(t, 12, page.TotalBooks)
	require.EqualValues(t, 3, page.TotalPages)
	// descending creation time: page 2 holds records 6 through 10
	require.Equal(t, "book-07", page.Books[0].ID)
	require.Equal(t, "book-03", page.Books[4].ID)
}

func TestListBooksDefaultsInvalidPagination(t *testing.T) {
	svc, repo := setupBookService(t, &fakeResolver{}, &fakeImageStore{})
	for i := 1; i <= 7; i++ {
		seedBook(t, repo, fmt.Sprintf("book-%02d", i), "u-1")
	}

	page, err := svc.ListBooks(context.Background(), -3, 0)
	require.NoError(t, err)
	require.Equal(t, 1, page.CurrentPage)
	require.Len(t, page.Books, 5)
	require.EqualValues(t, 2, page.TotalPages)
}

// --- ownership ---

func TestUpdateBookForbiddenForNonOwner(t *testing.T) {
	svc, repo := setupBookService(t, &fakeResolver{}, &fakeImageStore{})
	seedBook(t, repo, "b-1", "owner-1")

	_, err := svc.UpdateBook(context.Background(), "intruder", "b-1", UpdateBookInput{
		Title: "stolen", Caption: "c", Rating: 1,
	})
	require.ErrorIs(t, err, ErrForbidden)

	unchanged, err := repo.Get(context.Background(), "b-1")
	require.NoError(t, err)
	require.Equal(t, "Title b-1", unchanged.Title)
}

func TestUpdateBookByOwner(t *testing.T) {
	svc, repo := setupBookService(t, &fakeResolver{}, &fakeImageStore{})
	seedBook(t, repo, "b-1", "owner-1")

	updated, err := svc.UpdateBook(context.Background(), "owner-1", "b-1", UpdateBookInput{
		Title: "Second Edition", Caption: "revised", Rating: 3,
	})
	require.NoError(t, err)
	require.Equal(t, "Second Edition", updated.Title)
	// no new image submitted, the old URL stays
	require.Equal(t, "https://img.example/b-1.png", updated.Image)
}

func TestUpdateBookReplacesImageFromDataURI(t *testing.T) {
	images := &fakeImageStore{}
	svc, repo := setupBookService(t, &fakeResolver{}, images)
	seedBook(t, repo, "b-1", "owner-1")

	updated, err := svc.UpdateBook(context.Background(), "owner-1", "b-1", UpdateBookInput{
		Title: "t", Caption: "c", Rating: 4, Image: testDataURI,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, images.uploads.Load())
	require.Equal(t, "https://img.example/b-1.png", updated.Image)
}

func TestUpdateBookMissing(t *testing.T) {
	svc, _ := setupBookService(t, &fakeResolver{}, &fakeImageStore{})

	_, err := svc.UpdateBook(context.Background(), "owner-1", "ghost", UpdateBookInput{
		Title: "t", Caption: "c", Rating: 4,
	})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteBookForbiddenForNonOwner(t *testing.T) {
	images := &fakeImageStore{}
	svc, repo := setupBookService(t, &fakeResolver{}, images)
	seedBook(t, repo, "b-1", "owner-1")

	require.ErrorIs(t, svc.DeleteBook(context.Background(), "intruder", "b-1"), ErrForbidden)
	require.EqualValues(t, 0, images.deletes.Load())

	_, err := repo.Get(context.Background(), "b-1")
	require.NoError(t, err)
}

func TestDeleteBookRemovesImageAndRecord(t *testing.T) {
	images := &fakeImageStore{}
	svc, repo := setupBookService(t, &fakeResolver{}, images)
	seedBook(t, repo, "b-1", "owner-1")

	require.NoError(t, svc.DeleteBook(context.Background(), "owner-1", "b-1"))
	require.EqualValues(t, 1, images.deletes.Load())

	_, err := repo.Get(context.Background(), "b-1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteBookToleratesImageDeleteFailure(t *testing.T) {
	images := &fakeImageStore{deleteErr: fmt.Errorf("bucket gone")}
	svc, repo := setupBookService(t, &fakeResolver{}, images)
	seedBook(t, repo, "b-1", "owner-1")

	require.NoError(t, svc.DeleteBook(context.Background(), "owner-1", "b-1"))
	_, err := repo.Get(context.Background(), "b-1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
