package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rajivgeraev/bookstore-api/internal/models"
)

// foreign_key_violation
const pgForeignKeyViolation = "23503"

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store on top of a pgx pool.
// users.favourites, users.cart and users.orders are uuid[] columns updated with
// array_append / array_remove in single statements.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store using the given pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func userColumns(alias string) string {
	cols := []string{"id", "telegram_id", "username", "first_name", "last_name", "avatar_url",
		"role", "favourites", "cart", "orders", "created_at", "updated_at"}
	return prefixColumns(alias, cols)
}

func bookColumns(alias string) string {
	cols := []string{"id", "url", "title", "author", "price", "description", "language",
		"created_at", "updated_at"}
	return prefixColumns(alias, cols)
}

func orderColumns(alias string) string {
	cols := []string{"id", "user_id", "book_id", "status", "created_at", "updated_at"}
	return prefixColumns(alias, cols)
}

func prefixColumns(alias string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}

// userDest returns scan targets for userColumns and a finisher that converts nullable fields
func userDest(user *models.User) ([]any, func()) {
	var telegramID pgtype.Int8
	dest := []any{
		&user.ID, &telegramID, &user.Username, &user.FirstName, &user.LastName, &user.AvatarURL,
		&user.Role, &user.Favourites, &user.Cart, &user.Orders, &user.CreatedAt, &user.UpdatedAt,
	}
	return dest, func() {
		if telegramID.Valid {
			user.TelegramID = telegramID.Int64
		}
		normalizeLists(user)
	}
}

func bookDest(book *models.Book) []any {
	return []any{
		&book.ID, &book.URL, &book.Title, &book.Author, &book.Price, &book.Description,
		&book.Language, &book.CreatedAt, &book.UpdatedAt,
	}
}

func orderDest(order *models.Order) []any {
	return []any{
		&order.ID, &order.UserID, &order.BookID, &order.Status, &order.CreatedAt, &order.UpdatedAt,
	}
}

func normalizeLists(user *models.User) {
	if user.Favourites == nil {
		user.Favourites = []uuid.UUID{}
	}
	if user.Cart == nil {
		user.Cart = []uuid.UUID{}
	}
	if user.Orders == nil {
		user.Orders = []uuid.UUID{}
	}
}

// GetUser loads a user by id
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	dest, finish := userDest(&user)

	err := s.pool.QueryRow(ctx, `SELECT `+userColumns("u")+` FROM users u WHERE u.id = $1`, id).Scan(dest...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	finish()

	return &user, nil
}

func (s *PostgresStore) userExists(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddFavourite appends bookID unless it is already present
func (s *PostgresStore) AddFavourite(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET favourites = array_append(favourites, $2::uuid), updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND $2::uuid <> ALL(favourites)
	`, userID, bookID)
	if err != nil {
		return false, fmt.Errorf("add favourite: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Either the user is missing or the book is already there
	if err := s.userExists(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}

// RemoveFavourite pulls bookID from favourites
func (s *PostgresStore) RemoveFavourite(ctx context.Context, userID, bookID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET favourites = array_remove(favourites, $2::uuid), updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, userID, bookID)
	if err != nil {
		return fmt.Errorf("remove favourite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return nil
}

// ListFavouriteBooks joins favourites with books keeping the array order
func (s *PostgresStore) ListFavouriteBooks(ctx context.Context, userID uuid.UUID) ([]models.Book, error) {
	if err := s.userExists(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+bookColumns("b")+`
		FROM users u
		CROSS JOIN LATERAL unnest(u.favourites) WITH ORDINALITY AS f(book_id, pos)
		JOIN books b ON b.id = f.book_id
		WHERE u.id = $1
		ORDER BY f.pos
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favourites: %w", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		var book models.Book
		if err := rows.Scan(bookDest(&book)...); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list favourites: %w", err)
	}

	return books, nil
}

// UpsertTelegramUser creates the user on first login and refreshes the profile afterwards
func (s *PostgresStore) UpsertTelegramUser(ctx context.Context, profile models.TelegramProfile) (*models.User, error) {
	var user models.User
	dest, finish := userDest(&user)

	err := s.pool.QueryRow(ctx, `
		INSERT INTO users AS u (telegram_id, username, first_name, last_name, avatar_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = CURRENT_TIMESTAMP
		RETURNING `+userColumns("u"),
		profile.TelegramID, profile.Username, profile.FirstName, profile.LastName, profile.PhotoURL,
	).Scan(dest...)
	if err != nil {
		return nil, fmt.Errorf("upsert telegram user: %w", err)
	}
	finish()

	return &user, nil
}

// PlaceOrderItem runs the three order steps in one transaction
func (s *PostgresStore) PlaceOrderItem(ctx context.Context, userID, bookID uuid.UUID) (*models.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order := models.Order{ID: uuid.New(), UserID: userID, BookID: bookID}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (id, user_id, book_id)
		VALUES ($1, $2, $3)
		RETURNING status, created_at, updated_at
	`, order.ID, userID, bookID).Scan(&order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			if pgErr.ConstraintName == "orders_user_id_fkey" {
				return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
			}
			return nil, fmt.Errorf("book %s: %w", bookID, ErrNotFound)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE users
		SET orders = array_append(orders, $2::uuid),
			cart = array_remove(cart, $3::uuid),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, userID, order.ID, bookID)
	if err != nil {
		return nil, fmt.Errorf("link order to user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}

	return &order, nil
}

// ListUserOrders joins the user's orders array with orders and books keeping the array order
func (s *PostgresStore) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	if err := s.userExists(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns("o")+`, `+bookColumns("b")+`
		FROM users u
		CROSS JOIN LATERAL unnest(u.orders) WITH ORDINALITY AS uo(order_id, pos)
		JOIN orders o ON o.id = uo.order_id
		JOIN books b ON b.id = o.book_id
		WHERE u.id = $1
		ORDER BY uo.pos
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		var book models.Book
		dest := append(orderDest(&order), bookDest(&book)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		order.Book = &book
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}

	return orders, nil
}

// ListAllOrders returns every order newest first
func (s *PostgresStore) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns("o")+`, `+bookColumns("b")+`, `+userColumns("u")+`
		FROM orders o
		JOIN books b ON b.id = o.book_id
		JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		var book models.Book
		var user models.User
		userTargets, finish := userDest(&user)
		dest := append(orderDest(&order), bookDest(&book)...)
		dest = append(dest, userTargets...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		finish()
		order.Book = &book
		order.User = &user
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return orders, nil
}

// UpdateOrderStatus overwrites the order status
func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1
	`, orderID, status)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
