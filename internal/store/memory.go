package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rajivgeraev/bookstore-api/internal/models"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps everything in-process. Used for local runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]models.User
	books    map[uuid.UUID]models.Book
	orders   map[uuid.UUID]models.Order
	telegram map[int64]uuid.UUID // telegram id -> user id
	now      func() time.Time
}

// NewMemoryStore initializes an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uuid.UUID]models.User),
		books:    make(map[uuid.UUID]models.Book),
		orders:   make(map[uuid.UUID]models.Order),
		telegram: make(map[int64]uuid.UUID),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source used for timestamps
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// SaveUser stores or replaces a user record
func (m *MemoryStore) SaveUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	normalizeLists(&u)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	u.Favourites = slices.Clone(u.Favourites)
	u.Cart = slices.Clone(u.Cart)
	u.Orders = slices.Clone(u.Orders)
	m.users[u.ID] = u
	if u.TelegramID != 0 {
		m.telegram[u.TelegramID] = u.ID
	}
}

// SaveBook stores or replaces a book record
func (m *MemoryStore) SaveBook(b models.Book) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[b.ID] = b
}

// SaveOrder stores or replaces an order record without touching the owner
func (m *MemoryStore) SaveOrder(o models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.Book, o.User = nil, nil
	m.orders[o.ID] = o
}

// OrderCount returns the number of stored orders
func (m *MemoryStore) OrderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

// copyUser returns a copy whose slices do not alias the stored record
func copyUser(u models.User) *models.User {
	u.Favourites = slices.Clone(u.Favourites)
	u.Cart = slices.Clone(u.Cart)
	u.Orders = slices.Clone(u.Orders)
	normalizeLists(&u)
	return &u
}

func (m *MemoryStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return copyUser(u), nil
}

func (m *MemoryStore) AddFavourite(_ context.Context, userID, bookID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if slices.Contains(u.Favourites, bookID) {
		return false, nil
	}
	u.Favourites = append(u.Favourites, bookID)
	u.UpdatedAt = m.now()
	m.users[userID] = u
	return true, nil
}

func (m *MemoryStore) RemoveFavourite(_ context.Context, userID, bookID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	u.Favourites = slices.DeleteFunc(u.Favourites, func(id uuid.UUID) bool { return id == bookID })
	u.UpdatedAt = m.now()
	m.users[userID] = u
	return nil
}

func (m *MemoryStore) ListFavouriteBooks(_ context.Context, userID uuid.UUID) ([]models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	books := make([]models.Book, 0, len(u.Favourites))
	for _, id := range u.Favourites {
		if b, ok := m.books[id]; ok {
			books = append(books, b)
		}
	}
	return books, nil
}

func (m *MemoryStore) UpsertTelegramUser(_ context.Context, p models.TelegramProfile) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var u models.User
	if id, ok := m.telegram[p.TelegramID]; ok {
		u = m.users[id]
	} else {
		u = models.User{ID: uuid.New(), TelegramID: p.TelegramID, Role: models.RoleUser, CreatedAt: now}
		normalizeLists(&u)
		m.telegram[p.TelegramID] = u.ID
	}
	u.Username = p.Username
	u.FirstName = p.FirstName
	u.LastName = p.LastName
	u.AvatarURL = p.PhotoURL
	u.UpdatedAt = now
	m.users[u.ID] = u
	return copyUser(u), nil
}

func (m *MemoryStore) PlaceOrderItem(_ context.Context, userID, bookID uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if _, ok := m.books[bookID]; !ok {
		return nil, fmt.Errorf("book %s: %w", bookID, ErrNotFound)
	}

	now := m.now()
	order := models.Order{
		ID:        uuid.New(),
		UserID:    userID,
		BookID:    bookID,
		Status:    models.StatusOrderPlaced,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.orders[order.ID] = order

	u.Orders = append(u.Orders, order.ID)
	u.Cart = slices.DeleteFunc(u.Cart, func(id uuid.UUID) bool { return id == bookID })
	u.UpdatedAt = now
	m.users[userID] = u

	return &order, nil
}

func (m *MemoryStore) ListUserOrders(_ context.Context, userID uuid.UUID) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	orders := make([]models.Order, 0, len(u.Orders))
	for _, id := range u.Orders {
		o, ok := m.orders[id]
		if !ok {
			continue
		}
		if b, ok := m.books[o.BookID]; ok {
			o.Book = &b
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (m *MemoryStore) ListAllOrders(_ context.Context) ([]models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	orders := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if b, ok := m.books[o.BookID]; ok {
			o.Book = &b
		}
		if u, ok := m.users[o.UserID]; ok {
			o.User = copyUser(u)
		}
		orders = append(orders, o)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID.String() > orders[j].ID.String()
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (m *MemoryStore) UpdateOrderStatus(_ context.Context, orderID uuid.UUID, status string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return false, nil
	}
	o.Status = status
	o.UpdatedAt = m.now()
	m.orders[orderID] = o
	return true, nil
}
