package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bookshelf/internal/domain"
	"bookshelf/internal/identity"
	"bookshelf/internal/repository"
	"bookshelf/internal/service"
	"bookshelf/internal/token"
)

// BookHandler wires the book service routes. Every route except health runs
// behind the auth gate.
type BookHandler struct {
	books    service.BookService
	codec    *token.Codec
	resolver identity.Resolver
	logger   *logrus.Logger
}

func NewBookHandler(books service.BookService, codec *token.Codec, resolver identity.Resolver, logger *logrus.Logger) *BookHandler {
	return &BookHandler{
		books:    books,
		codec:    codec,
		resolver: resolver,
		logger:   logger,
	}
}

func (h *BookHandler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})

	api := router.Group("/api", AuthRequired(h.codec, h.resolver, h.logger))
	{
		api.POST("/books", h.createBook)
		api.GET("/books", h.listBooks)
		api.GET("/books/mine", h.listOwnBooks)
		api.PUT("/books/:id", h.updateBook)
		api.DELETE("/books/:id", h.deleteBook)
	}
}

type bookRequest struct {
	Title   string `json:"title"`
	Caption string `json:"caption"`
	Rating  int    `json:"rating"`
	Image   string `json:"image"`
}

type bookResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Caption   string `json:"caption"`
	Image     string `json:"image"`
	Rating    int    `json:"rating"`
	OwnerID   string `json:"userId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type enrichedBookResponse struct {
	bookResponse
	Owner *domain.UserProfile `json:"user"`
}

type bookPageResponse struct {
	Books       []enrichedBookResponse `json:"books"`
	CurrentPage int                    `json:"currentPage"`
	TotalBooks  int64                  `json:"totalBooks"`
	TotalPages  int64                  `json:"totalPages"`
}

func bookToResponse(book domain.Book) bookResponse {
	return bookResponse{
		ID:        book.ID,
		Title:     book.Title,
		Caption:   book.Caption,
		Image:     book.Image,
		Rating:    book.Rating,
		OwnerID:   book.OwnerID,
		CreatedAt: book.CreatedAt.Format(time.RFC3339),
		UpdatedAt: book.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *BookHandler) createBook(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		rejectUnauthenticated(c)
		return
	}

	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	book, err := h.books.CreateBook(c.Request.Context(), user.ID, service.CreateBookInput{
		Title:   req.Title,
		Caption: req.Caption,
		Rating:  req.Rating,
		Image:   req.Image,
	})
	if err != nil {
		h.respondBookError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bookToResponse(*book))
}

func (h *BookHandler) listBooks(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 0 // service applies the default
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "5"))
	if err != nil {
		limit = 0
	}

	result, err := h.books.ListBooks(c.Request.Context(), page, limit)
	if err != nil {
		h.respondBookError(c, err)
		return
	}

	books := make([]enrichedBookResponse, len(result.Books))
	for i, b := range result.Books {
		books[i] = enrichedBookResponse{
			bookResponse: bookToResponse(b.Book),
			Owner:        b.Owner,
		}
	}

	c.JSON(http.StatusOK, bookPageResponse{
		Books:       books,
		CurrentPage: result.CurrentPage,
		TotalBooks:  result.TotalBooks,
		TotalPages:  result.TotalPages,
	})
}

func (h *BookHandler) listOwnBooks(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		rejectUnauthenticated(c)
		return
	}

	books, err := h.books.ListOwnBooks(c.Request.Context(), user.ID)
	if err != nil {
		h.respondBookError(c, err)
		return
	}

	resp := make([]bookResponse, len(books))
	for i := range books {
		resp[i] = bookToResponse(books[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookHandler) updateBook(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		rejectUnauthenticated(c)
		return
	}

	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	book, err := h.books.UpdateBook(c.Request.Context(), user.ID, c.Param("id"), service.UpdateBookInput{
		Title:   req.Title,
		Caption: req.Caption,
		Rating:  req.Rating,
		Image:   req.Image,
	})
	if err != nil {
		h.respondBookError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookToResponse(*book))
}

func (h *BookHandler) deleteBook(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		rejectUnauthenticated(c)
		return
	}

	if err := h.books.DeleteBook(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		h.respondBookError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "book deleted successfully"})
}

func (h *BookHandler) respondBookError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized to modify this book"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
	default:
		h.logger.Errorf("book request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
