package service_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/linemk/ekicker-shop/internal/domain/models"
	"github.com/linemk/ekicker-shop/internal/lib/payment"
	"github.com/linemk/ekicker-shop/internal/service"
	"github.com/linemk/ekicker-shop/internal/storage"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

// discardLogger — логгер для тестов, вывод никуда не пишется
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUserRepo — in-memory реализация storage.UserStorage
type fakeUserRepo struct {
	users  map[string]*models.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User), nextID: 1}
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	user.ID = f.nextID
	f.nextID++
	f.users[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

// fakeProductRepo — in-memory реализация storage.ProductStorage
type fakeProductRepo struct {
	products map[int64]*models.Product
	updated  *models.Product
}

func newFakeProductRepo(products ...*models.Product) *fakeProductRepo {
	repo := &fakeProductRepo{products: make(map[int64]*models.Product)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (f *fakeProductRepo) ListProducts(_ context.Context, _ string) ([]*models.Product, error) {
	var out []*models.Product
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProductRepo) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) CreateProduct(_ context.Context, p *models.Product) (*models.Product, error) {
	p.ID = int64(len(f.products) + 1)
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeProductRepo) UpdateProduct(_ context.Context, p *models.Product) error {
	if _, ok := f.products[p.ID]; !ok {
		return storage.ErrProductNotFound
	}
	f.products[p.ID] = p
	f.updated = p
	return nil
}

func (f *fakeProductRepo) DeleteProduct(_ context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return storage.ErrProductNotFound
	}
	delete(f.products, id)
	return nil
}

// fakeCartRepo — in-memory реализация storage.CartStorage,
// транзакционные методы игнорируют tx
type fakeCartRepo struct {
	items  []*models.CartItem
	nextID int64
}

func newFakeCartRepo(items ...*models.CartItem) *fakeCartRepo {
	repo := &fakeCartRepo{nextID: 100}
	repo.items = append(repo.items, items...)
	return repo
}

func (f *fakeCartRepo) GetItemsByUserID(_ context.Context, userID int64) ([]*models.CartItem, error) {
	var out []*models.CartItem
	for _, item := range f.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeCartRepo) GetItemsByUserIDTx(ctx context.Context, _ *sql.Tx, userID int64) ([]*models.CartItem, error) {
	return f.GetItemsByUserID(ctx, userID)
}

func (f *fakeCartRepo) CreateItem(_ context.Context, item *models.CartItem) (*models.CartItem, error) {
	for _, existing := range f.items {
		if existing.UserID == item.UserID && existing.ProductID == item.ProductID {
			return nil, storage.ErrAlreadyInCart
		}
	}
	item.ID = f.nextID
	f.nextID++
	f.items = append(f.items, item)
	return item, nil
}

func (f *fakeCartRepo) CreateItemTx(ctx context.Context, _ *sql.Tx, item *models.CartItem) error {
	_, err := f.CreateItem(ctx, item)
	return err
}

func (f *fakeCartRepo) LockItemByIDTx(_ context.Context, _ *sql.Tx, userID, itemID int64) (*models.CartItem, error) {
	for _, item := range f.items {
		if item.ID == itemID && item.UserID == userID {
			copied := *item
			return &copied, nil
		}
	}
	return nil, storage.ErrCartItemNotFound
}

func (f *fakeCartRepo) UpdateQuantityTx(_ context.Context, _ *sql.Tx, itemID int64, quantity int) error {
	for _, item := range f.items {
		if item.ID == itemID {
			item.Quantity = quantity
			return nil
		}
	}
	return storage.ErrCartItemNotFound
}

func (f *fakeCartRepo) DeleteItem(_ context.Context, userID, itemID int64) error {
	for i, item := range f.items {
		if item.ID == itemID && item.UserID == userID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return storage.ErrCartItemNotFound
}

func (f *fakeCartRepo) DeleteAllByUserIDTx(_ context.Context, _ *sql.Tx, userID int64) error {
	var rest []*models.CartItem
	for _, item := range f.items {
		if item.UserID != userID {
			rest = append(rest, item)
		}
	}
	f.items = rest
	return nil
}

// fakeWishlistRepo — in-memory реализация storage.WishlistStorage
type fakeWishlistRepo struct {
	items  []*models.WishlistItem
	nextID int64
}

func newFakeWishlistRepo(items ...*models.WishlistItem) *fakeWishlistRepo {
	repo := &fakeWishlistRepo{nextID: 200}
	repo.items = append(repo.items, items...)
	return repo
}

func (f *fakeWishlistRepo) GetItemsByUserID(_ context.Context, userID int64) ([]*models.WishlistItem, error) {
	var out []*models.WishlistItem
	for _, item := range f.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeWishlistRepo) CreateItem(_ context.Context, item *models.WishlistItem) (*models.WishlistItem, error) {
	for _, existing := range f.items {
		if existing.UserID == item.UserID && existing.ProductID == item.ProductID {
			return nil, storage.ErrAlreadyInWishlist
		}
	}
	item.ID = f.nextID
	f.nextID++
	f.items = append(f.items, item)
	return item, nil
}

func (f *fakeWishlistRepo) DeleteItem(_ context.Context, userID, itemID int64) error {
	for i, item := range f.items {
		if item.ID == itemID && item.UserID == userID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return storage.ErrWishlistItemNotFound
}

func (f *fakeWishlistRepo) LockItemByIDTx(_ context.Context, _ *sql.Tx, userID, itemID int64) (*models.WishlistItem, error) {
	for _, item := range f.items {
		if item.ID == itemID && item.UserID == userID {
			copied := *item
			return &copied, nil
		}
	}
	return nil, storage.ErrWishlistItemNotFound
}

func (f *fakeWishlistRepo) DeleteItemTx(_ context.Context, _ *sql.Tx, itemID int64) error {
	for i, item := range f.items {
		if item.ID == itemID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return storage.ErrWishlistItemNotFound
}

// fakeOrderRepo — in-memory реализация storage.OrderStorage
type fakeOrderRepo struct {
	orders    []*models.Order
	nextID    int64
	createErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{nextID: 1}
}

func (f *fakeOrderRepo) CreateOrderTx(_ context.Context, _ *sql.Tx, order *models.Order) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	id := f.nextID
	f.nextID++
	stored := *order
	stored.ID = id
	f.orders = append(f.orders, &stored)
	return id, nil
}

func (f *fakeOrderRepo) GetOrdersByUserID(_ context.Context, userID int64) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) GetOrderByID(_ context.Context, userID, orderID int64) (*models.Order, error) {
	for _, o := range f.orders {
		if o.ID == orderID && o.UserID == userID {
			return o, nil
		}
	}
	return nil, storage.ErrOrderNotFound
}

// fakeGateway — платежный шлюз без сети: запоминает сумму, подпись
// считается верной только для заранее известного значения
type fakeGateway struct {
	createdAmount int64
	createErr     error
}

func (f *fakeGateway) CreateOrder(amountCents int64, receipt string) (*payment.PaymentOrder, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createdAmount = amountCents
	return &payment.PaymentOrder{ID: "order_test_1", AmountCents: amountCents, Currency: "INR", KeyID: "rzp_test_key"}, nil
}

func (f *fakeGateway) VerifySignature(orderID, paymentID, signature string) error {
	if signature != "valid-signature" {
		return payment.ErrInvalidSignature
	}
	return nil
}

// fakeFileStore — объектное хранилище без сети
type fakeFileStore struct {
	uploadErr    error
	lastFolder   string
	lastFilename string
}

func (f *fakeFileStore) Upload(_ context.Context, folder, filename, _ string, _ io.Reader) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.lastFolder = folder
	f.lastFilename = filename
	return "https://e-kicker.s3.ap-south-1.amazonaws.com/" + folder + "/" + filename, nil
}

// txDB возвращает sqlmock-базу с ожиданием одной успешной транзакции
func txDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestLogin_NewUserIsRegistered(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	userRepo := newFakeUserRepo()
	authService := service.NewAuthService(discardLogger(), userRepo, time.Hour)

	token, err := authService.Login(context.Background(), "new@example.com", "password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, token, "Expected a JWT token for a freshly created user")

	// Пользователь создан с ролью customer, пароль сохранен как bcrypt-хэш
	user, err := userRepo.GetUserByEmail(context.Background(), "new@example.com")
	assert.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword(user.PassHash, []byte("password123")))
}

func TestLogin_ExistingUserSuccess(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	passHash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	assert.NoError(t, err)

	userRepo := newFakeUserRepo()
	userRepo.users["known@example.com"] = &models.User{ID: 1, Email: "known@example.com", PassHash: passHash, Role: models.RoleCustomer}

	authService := service.NewAuthService(discardLogger(), userRepo, time.Hour)

	token, err := authService.Login(context.Background(), "known@example.com", "password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	passHash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	assert.NoError(t, err)

	userRepo := newFakeUserRepo()
	userRepo.users["known@example.com"] = &models.User{ID: 1, Email: "known@example.com", PassHash: passHash, Role: models.RoleCustomer}

	authService := service.NewAuthService(discardLogger(), userRepo, time.Hour)

	token, err := authService.Login(context.Background(), "known@example.com", "wrong-password")
	assert.Error(t, err, "Expected error for wrong password")
	assert.Empty(t, token)
	assert.ErrorContains(t, err, "invalid credentials")
}

func TestCartAddItem_DenormalizesProduct(t *testing.T) {
	productRepo := newFakeProductRepo(&models.Product{ID: 2, Name: "t-shirt", PriceCents: 8000, Image: "shirt.png"})
	cartRepo := newFakeCartRepo()
	db, _ := txDB(t)

	cartService := service.NewCartService(discardLogger(), db, cartRepo, productRepo)

	item, err := cartService.AddItem(context.Background(), 1, 2)
	assert.NoError(t, err)
	assert.Equal(t, "t-shirt", item.Name)
	assert.Equal(t, int64(8000), item.PriceCents)
	assert.Equal(t, "shirt.png", item.Image)
	assert.Equal(t, 1, item.Quantity, "New cart item always starts with quantity 1")
}

func TestCartAddItem_DuplicateRejected(t *testing.T) {
	productRepo := newFakeProductRepo(&models.Product{ID: 2, Name: "t-shirt", PriceCents: 8000})
	cartRepo := newFakeCartRepo(&models.CartItem{ID: 100, UserID: 1, ProductID: 2, Name: "t-shirt", PriceCents: 8000, Quantity: 1})
	db, _ := txDB(t)

	cartService := service.NewCartService(discardLogger(), db, cartRepo, productRepo)

	item, err := cartService.AddItem(context.Background(), 1, 2)
	assert.ErrorIs(t, err, service.ErrAlreadyInCart)
	assert.Nil(t, item)
	assert.Len(t, cartRepo.items, 1, "Duplicate add must not create a second row")
}

func TestCartUpdateQuantity_AppliesDelta(t *testing.T) {
	cartRepo := newFakeCartRepo(&models.CartItem{ID: 100, UserID: 1, ProductID: 2, Quantity: 2})
	db, mock := txDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	cartService := service.NewCartService(discardLogger(), db, cartRepo, newFakeProductRepo())

	item, err := cartService.UpdateQuantity(context.Background(), 1, 100, 3)
	assert.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartUpdateQuantity_ClampsAtOne(t *testing.T) {
	cartRepo := newFakeCartRepo(&models.CartItem{ID: 100, UserID: 1, ProductID: 2, Quantity: 1})
	db, mock := txDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	cartService := service.NewCartService(discardLogger(), db, cartRepo, newFakeProductRepo())

	// Уменьшение ниже единицы не удаляет позицию, а оставляет количество 1
	item, err := cartService.UpdateQuantity(context.Background(), 1, 100, -5)
	assert.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartUpdateQuantity_NotFound(t *testing.T) {
	cartRepo := newFakeCartRepo()
	db, mock := txDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	cartService := service.NewCartService(discardLogger(), db, cartRepo, newFakeProductRepo())

	_, err := cartService.UpdateQuantity(context.Background(), 1, 100, 1)
	assert.ErrorIs(t, err, service.ErrCartItemNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartList_TotalIsSumOfPriceTimesQuantity(t *testing.T) {
	cartRepo := newFakeCartRepo(
		&models.CartItem{ID: 100, UserID: 1, ProductID: 1, PriceCents: 1000, Quantity: 2},
		&models.CartItem{ID: 101, UserID: 1, ProductID: 2, PriceCents: 500, Quantity: 1},
		&models.CartItem{ID: 102, UserID: 9, ProductID: 3, PriceCents: 99999, Quantity: 7},
	)
	db, _ := txDB(t)

	cartService := service.NewCartService(discardLogger(), db, cartRepo, newFakeProductRepo())

	cart, err := cartService.List(context.Background(), 1)
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 2, "Foreign user's items must not leak into the cart")
	assert.Equal(t, int64(2500), cart.TotalCents)
}

func TestWishlistMoveToCart_Success(t *testing.T) {
	wishlistRepo := newFakeWishlistRepo(&models.WishlistItem{ID: 200, UserID: 1, ProductID: 2, Name: "t-shirt", PriceCents: 8000, Image: "shirt.png"})
	cartRepo := newFakeCartRepo()
	db, mock := txDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	wishlistService := service.NewWishlistService(discardLogger(), db, wishlistRepo, cartRepo, newFakeProductRepo())

	item, err := wishlistService.MoveToCart(context.Background(), 1, 200)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), item.ProductID)
	assert.Equal(t, 1, item.Quantity)

	// Позиция ушла из избранного и появилась в корзине
	assert.Empty(t, wishlistRepo.items)
	assert.Len(t, cartRepo.items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistMoveToCart_AlreadyInCart(t *testing.T) {
	wishlistRepo := newFakeWishlistRepo(&models.WishlistItem{ID: 200, UserID: 1, ProductID: 2, Name: "t-shirt", PriceCents: 8000})
	cartRepo := newFakeCartRepo(&models.CartItem{ID: 100, UserID: 1, ProductID: 2, Quantity: 1})
	db, mock := txDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	wishlistService := service.NewWishlistService(discardLogger(), db, wishlistRepo, cartRepo, newFakeProductRepo())

	_, err := wishlistService.MoveToCart(context.Background(), 1, 200)
	assert.ErrorIs(t, err, service.ErrAlreadyInCart)

	// Перенос не состоялся — позиция осталась в избранном
	assert.Len(t, wishlistRepo.items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistMoveToCart_NotFound(t *testing.T) {
	wishlistRepo := newFakeWishlistRepo()
	db, mock := txDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	wishlistService := service.NewWishlistService(discardLogger(), db, wishlistRepo, newFakeCartRepo(), newFakeProductRepo())

	_, err := wishlistService.MoveToCart(context.Background(), 1, 404)
	assert.ErrorIs(t, err, service.ErrWishlistItemNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistAdd_DuplicateRejected(t *testing.T) {
	productRepo := newFakeProductRepo(&models.Product{ID: 2, Name: "t-shirt", PriceCents: 8000})
	wishlistRepo := newFakeWishlistRepo(&models.WishlistItem{ID: 200, UserID: 1, ProductID: 2})
	db, _ := txDB(t)

	wishlistService := service.NewWishlistService(discardLogger(), db, wishlistRepo, newFakeCartRepo(), productRepo)

	_, err := wishlistService.Add(context.Background(), 1, 2)
	assert.ErrorIs(t, err, service.ErrAlreadyInWishlist)
	assert.Len(t, wishlistRepo.items, 1)
}

var errBoom = errors.New("boom")
