package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dulcehogar/shop/internal/domain/models"
	"github.com/dulcehogar/shop/internal/payment"
	"github.com/dulcehogar/shop/internal/storage"
	"github.com/lib/pq"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// fakeUserRepo keeps users keyed by email.
type fakeUserRepo struct {
	users map[string]*models.User
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = int64(len(f.users) + 1)
	f.users[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

// fakeProductRepo keeps products keyed by id. onLock fires before a row
// lock is handed out, letting tests interleave a competing workflow;
// lockStock overrides the stock the lock reports without touching the row.
type fakeProductRepo struct {
	products  map[int64]*models.Product
	onLock    func(id int64)
	lockStock map[int64]int
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[int64]*models.Product)}
}

func (f *fakeProductRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) ListProducts(ctx context.Context, filter storage.ProductFilter) ([]*models.Product, error) {
	var out []*models.Product
	for _, p := range f.products {
		if filter.OnlyActive && !p.Active {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeProductRepo) SaveProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p.ID == 0 {
		p.ID = int64(len(f.products) + 1)
	}
	cp := *p
	f.products[p.ID] = &cp
	return p, nil
}

func (f *fakeProductRepo) SetProductActive(ctx context.Context, id int64, active bool) error {
	p, ok := f.products[id]
	if !ok {
		return storage.ErrProductNotFound
	}
	p.Active = active
	return nil
}

func (f *fakeProductRepo) LockProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	if f.onLock != nil {
		f.onLock(id)
	}
	p, err := f.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if stock, ok := f.lockStock[id]; ok {
		p.Stock = stock
	}
	return p, nil
}

func (f *fakeProductRepo) DecrementStockTx(ctx context.Context, tx *sql.Tx, id int64, qty int) error {
	p, ok := f.products[id]
	if !ok {
		return storage.ErrProductNotFound
	}
	if p.Stock < qty {
		return storage.ErrNotEnoughStock
	}
	p.Stock -= qty
	return nil
}

func (f *fakeProductRepo) DeactivateIfOutOfStockTx(ctx context.Context, tx *sql.Tx, id int64) error {
	p, ok := f.products[id]
	if !ok {
		return storage.ErrProductNotFound
	}
	if p.Stock == 0 {
		p.Active = false
	}
	return nil
}

// fakeCartRepo keeps cart items keyed by user id. onGetItemsTx fires
// before in-transaction reads so tests can interleave a competing workflow.
type fakeCartRepo struct {
	items        map[int64][]*models.CartItem
	onGetItemsTx func()
}

var _ storage.CartStorage = (*fakeCartRepo)(nil)

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{items: make(map[int64][]*models.CartItem)}
}

func (f *fakeCartRepo) GetCartItems(ctx context.Context, userID int64) ([]*models.CartItem, error) {
	return f.items[userID], nil
}

func (f *fakeCartRepo) GetCartItemsTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartItem, error) {
	if f.onGetItemsTx != nil {
		f.onGetItemsTx()
	}
	return f.items[userID], nil
}

func (f *fakeCartRepo) UpsertCartItem(ctx context.Context, userID, productID int64, qty int) (int, error) {
	for _, item := range f.items[userID] {
		if item.ProductID == productID {
			item.Quantity += qty
			return item.Quantity, nil
		}
	}
	f.items[userID] = append(f.items[userID], &models.CartItem{
		ID:        int64(len(f.items[userID]) + 1),
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
	})
	return qty, nil
}

func (f *fakeCartRepo) DeleteCartItem(ctx context.Context, userID, productID int64) error {
	items := f.items[userID]
	for i, item := range items {
		if item.ProductID == productID {
			f.items[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return storage.ErrCartItemNotFound
}

func (f *fakeCartRepo) ClearCart(ctx context.Context, userID int64) error {
	delete(f.items, userID)
	return nil
}

func (f *fakeCartRepo) ClearCartTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	delete(f.items, userID)
	return nil
}

// fakeOrderRepo keeps orders keyed by payment session id. Setting
// conflictOnInsert simulates a concurrent confirmation winning the insert
// race: the insert fails with 23505 and the existing order becomes visible.
type fakeOrderRepo struct {
	orders           map[string]*models.Order
	nextID           int64
	conflictOnInsert *models.Order
	conflictVisible  bool
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*models.Order), nextID: 1}
}

func (f *fakeOrderRepo) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (*models.Order, error) {
	if f.conflictOnInsert != nil {
		f.conflictVisible = true
		return nil, &pq.Error{Code: "23505", Constraint: "orders_payment_session_id_key"}
	}
	if _, exists := f.orders[order.PaymentSessionID]; exists {
		return nil, &pq.Error{Code: "23505", Constraint: "orders_payment_session_id_key"}
	}
	order.ID = f.nextID
	f.nextID++
	order.CreatedAt = time.Now()
	cp := *order
	f.orders[order.PaymentSessionID] = &cp
	return order, nil
}

func (f *fakeOrderRepo) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	item.ID = int64(len(f.orders))
	return nil
}

func (f *fakeOrderRepo) GetOrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	if f.conflictOnInsert != nil {
		if !f.conflictVisible {
			return nil, storage.ErrOrderNotFound
		}
		return f.conflictOnInsert, nil
	}
	order, ok := f.orders[sessionID]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) GetSalesSummary(ctx context.Context, since time.Time) (*storage.SalesSummary, error) {
	summary := &storage.SalesSummary{}
	for _, o := range f.orders {
		summary.OrderCount++
		summary.RevenueCents += o.TotalCents
	}
	return summary, nil
}

// fakeAddressRepo keeps addresses keyed by id.
type fakeAddressRepo struct {
	addresses map[int64]*models.Address
}

var _ storage.AddressStorage = (*fakeAddressRepo)(nil)

func newFakeAddressRepo() *fakeAddressRepo {
	return &fakeAddressRepo{addresses: make(map[int64]*models.Address)}
}

func (f *fakeAddressRepo) GetAddressesByUserID(ctx context.Context, userID int64) ([]*models.Address, error) {
	var out []*models.Address
	for _, a := range f.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAddressRepo) GetAddressByID(ctx context.Context, userID, addressID int64) (*models.Address, error) {
	a, ok := f.addresses[addressID]
	if !ok || a.UserID != userID {
		return nil, storage.ErrAddressNotFound
	}
	return a, nil
}

func (f *fakeAddressRepo) CreateAddress(ctx context.Context, addr *models.Address) (*models.Address, error) {
	addr.ID = int64(len(f.addresses) + 1)
	f.addresses[addr.ID] = addr
	return addr, nil
}

func (f *fakeAddressRepo) DeleteAddress(ctx context.Context, userID, addressID int64) error {
	a, ok := f.addresses[addressID]
	if !ok || a.UserID != userID {
		return storage.ErrAddressNotFound
	}
	delete(f.addresses, addressID)
	return nil
}

// fakeProvider reports a fixed session status.
type fakeProvider struct {
	status     string
	createErr  error
	statusErr  error
	created    []payment.SessionItem
	sessionSeq int
}

var _ payment.Provider = (*fakeProvider)(nil)

func (f *fakeProvider) CreateSession(ctx context.Context, items []payment.SessionItem, successURL string) (*payment.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = items
	f.sessionSeq++
	id := fmt.Sprintf("cs_fake_%d", f.sessionSeq)
	return &payment.Session{ID: id, CheckoutURL: "https://pay.example.com/" + id}, nil
}

func (f *fakeProvider) GetSessionStatus(ctx context.Context, sessionID string) (string, error) {
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.status, nil
}

// fakePublisher records published events.
type fakePublisher struct {
	events []any
	err    error
}

func (f *fakePublisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

// fakeCache is an in-memory cache.Cache.
type fakeCache struct {
	values map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.values[key] = fmt.Sprintf("%v", value)
	return nil
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeCache) GenerateKey(operation, key string) string {
	return "shop:" + operation + ":" + key
}
