// Package catalogservice keeps the book listings and the single-copy
// reservations taken while a checkout is in flight.
package catalogservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
)

// ErrReserved is returned when a listing is already held by another checkout.
var ErrReserved = errors.New("book is reserved by another checkout")

type Catalog struct {
	mu           sync.Mutex
	books        map[string]*domain.Book
	reservations map[string]string // book id -> holder
	nowFn        func() time.Time
}

func NewCatalog(books ...domain.Book) *Catalog {
	c := &Catalog{
		books:        make(map[string]*domain.Book, len(books)),
		reservations: make(map[string]string),
		nowFn:        func() time.Time { return time.Now().UTC() },
	}
	for i := range books {
		b := books[i]
		c.books[b.ID] = &b
	}
	return c
}

func (c *Catalog) GetBook(_ context.Context, id string) (*domain.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.books[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *b
	return &out, nil
}

// AddBook validates and stores a new listing owned by sellerID.
func (c *Catalog) AddBook(ctx context.Context, sellerID string, b domain.Book) (*domain.Book, error) {
	b.Title = strings.TrimSpace(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	switch {
	case sellerID == "":
		return nil, fmt.Errorf("seller is required: %w", domain.ErrInvalidInput)
	case b.Title == "" || b.Author == "":
		return nil, fmt.Errorf("title and author are required: %w", domain.ErrInvalidInput)
	case !b.IsDonation && b.Price <= 0:
		return nil, fmt.Errorf("price must be positive: %w", domain.ErrInvalidInput)
	case !b.DeliveryOption.Valid():
		return nil, fmt.Errorf("delivery option %q: %w", b.DeliveryOption, domain.ErrInvalidInput)
	case !b.PaymentMethod.Valid():
		return nil, fmt.Errorf("payment method %q: %w", b.PaymentMethod, domain.ErrInvalidInput)
	}
	cond, ok := domain.ParseCondition(string(b.Condition))
	if !ok {
		return nil, fmt.Errorf("condition %q: %w", b.Condition, domain.ErrInvalidInput)
	}
	b.Condition = cond
	if b.IsDonation {
		b.Price = 0
	}
	b.ID = uuid.NewString()
	b.SellerID = sellerID
	b.CreatedAt = c.nowFn()

	c.mu.Lock()
	c.books[b.ID] = &b
	c.mu.Unlock()

	slog.InfoContext(ctx, "book listed", "book_id", b.ID, "seller_id", sellerID, "donation", b.IsDonation)
	out := b
	return &out, nil
}

// Reserve takes the listing for holder. Reserving again with the same holder
// is a no-op.
func (c *Catalog) Reserve(ctx context.Context, bookID, holder string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.books[bookID]; !ok {
		return fmt.Errorf("book %q: %w", bookID, domain.ErrNotFound)
	}
	if current, held := c.reservations[bookID]; held {
		if current == holder {
			return nil
		}
		slog.WarnContext(ctx, "book already reserved", "book_id", bookID, "holder", current)
		return fmt.Errorf("book %q: %w", bookID, ErrReserved)
	}
	c.reservations[bookID] = holder
	slog.InfoContext(ctx, "book reserved", "book_id", bookID, "holder", holder)
	return nil
}

// Release drops holder's reservation. Releasing a reservation that does not
// exist, or belongs to someone else, does nothing.
func (c *Catalog) Release(ctx context.Context, bookID, holder string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if current, held := c.reservations[bookID]; !held || current != holder {
		slog.WarnContext(ctx, "no reservation to release", "book_id", bookID, "holder", holder)
		return nil
	}
	delete(c.reservations, bookID)
	slog.InfoContext(ctx, "book released", "book_id", bookID, "holder", holder)
	return nil
}

// Reserved reports who holds bookID, if anyone.
func (c *Catalog) Reserved(bookID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.reservations[bookID]
	return h, ok
}
