// Package service is the storefront's operation facade. It validates
// requests, keeps one store per session in memory and publishes domain
// events after state changes.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/broadcast"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/store"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/validator"
)

const (
	defaultIdleTimeout = 30 * time.Minute
	maxQuantity        = 9999
)

// ProductLookup supplies catalog fields for products added without them.
type ProductLookup interface {
	Product(ctx context.Context, id domain.ProductID) (domain.Product, error)
}

// Option configures a StorefrontService.
type Option func(*StorefrontService)

// WithCatalog enables payload enrichment from a product catalog.
func WithCatalog(c ProductLookup) Option {
	return func(s *StorefrontService) { s.catalog = c }
}

// WithBroadcast announces persisted slots through n and routes remote
// changes from r into open sessions.
func WithBroadcast(n broadcast.Notifier, r Registrar) Option {
	return func(s *StorefrontService) {
		s.reg.notifier = n
		s.reg.registrar = r
	}
}

// WithIdleTimeout sets how long an unused session stays in memory.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *StorefrontService) { s.reg.idleTimeout = d }
}

// StorefrontService is the shared handle to every session's cart and
// wishlist.
type StorefrontService struct {
	reg     *registry
	events  event.Publisher
	catalog ProductLookup
	logger  *slog.Logger
}

// NewStorefrontService creates a service persisting to repo.
func NewStorefrontService(repo repository.SlotRepository, events event.Publisher, logger *slog.Logger, opts ...Option) *StorefrontService {
	s := &StorefrontService{
		reg: &registry{
			repo:        repo,
			notifier:    broadcast.NopNotifier{},
			registrar:   nopRegistrar{},
			logger:      logger,
			idleTimeout: defaultIdleTimeout,
			now:         time.Now,
			sessions:    make(map[string]*session),
		},
		events: events,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Inputs and views ---

// AddToCartInput is a request to add a product to the cart. A zero
// Quantity means 1.
type AddToCartInput struct {
	ProductID    domain.ProductID `json:"product_id" validate:"required,notblank,max=128"`
	SelectedSize *string          `json:"selected_size" validate:"omitempty,max=50"`
	Quantity     int              `json:"quantity"`
	ProductFields
}

// AddToWishlistInput is a request to save a product.
type AddToWishlistInput struct {
	ProductID    domain.ProductID `json:"product_id" validate:"required,notblank,max=128"`
	SelectedSize *string          `json:"selected_size" validate:"omitempty,max=50"`
	ProductFields
}

// ProductFields are the display fields a caller may send with an add.
type ProductFields struct {
	Name       string          `json:"name" validate:"max=500"`
	Price      decimal.Decimal `json:"price"`
	Image      string          `json:"image" validate:"max=2048"`
	Category   string          `json:"category" validate:"max=200"`
	Rating     float64         `json:"rating" validate:"gte=0,lte=5"`
	Sizes      []string        `json:"sizes" validate:"max=50,dive,max=50"`
	InStock    *bool           `json:"in_stock"`
	Attributes map[string]any  `json:"attributes"`
}

func (f ProductFields) product() domain.Product {
	return domain.Product{
		Name:       f.Name,
		Price:      f.Price,
		Image:      f.Image,
		Category:   f.Category,
		Rating:     f.Rating,
		Sizes:      f.Sizes,
		InStock:    f.InStock,
		Attributes: f.Attributes,
	}
}

// CartView is the cart with its derived totals.
type CartView struct {
	Items      []domain.CartLineItem `json:"items"`
	ItemCount  int                   `json:"item_count"`
	TotalPrice string                `json:"total_price"`
}

func newCartView(c domain.Cart) CartView {
	items := c.Items
	if items == nil {
		items = []domain.CartLineItem{}
	}
	return CartView{
		Items:      items,
		ItemCount:  c.ItemCount(),
		TotalPrice: c.FormattedTotal(),
	}
}

// WishlistView is the whole wishlist.
type WishlistView struct {
	Items []domain.WishlistEntry `json:"items"`
	Count int                    `json:"count"`
}

func newWishlistView(w domain.Wishlist) WishlistView {
	items := w.Entries
	if items == nil {
		items = []domain.WishlistEntry{}
	}
	return WishlistView{Items: items, Count: len(items)}
}

// --- Cart ---

// Cart returns the session's cart.
func (s *StorefrontService) Cart(ctx context.Context, sessionID string) (CartView, error) {
	var cart domain.Cart
	err := s.withStore(ctx, sessionID, func(st *store.Store) { cart = st.Cart() })
	if err != nil {
		return CartView{}, err
	}
	return newCartView(cart), nil
}

// AddToCart merges the product into the cart.
func (s *StorefrontService) AddToCart(ctx context.Context, sessionID string, in AddToCartInput) (CartView, error) {
	if err := requireSession(sessionID); err != nil {
		return CartView{}, err
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 {
		return CartView{}, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if in.Quantity > maxQuantity {
		return CartView{}, apperrors.InvalidInput("quantity is too large")
	}
	if err := validator.Validate(in); err != nil {
		return CartView{}, err
	}
	if in.Price.IsNegative() {
		return CartView{}, apperrors.InvalidInput("price must not be negative")
	}

	item := domain.CartLineItem{
		ProductID:    in.ProductID,
		SelectedSize: in.SelectedSize,
		Quantity:     in.Quantity,
		Product:      s.enrich(ctx, in.ProductID, in.product()),
	}
	return s.mutateCart(ctx, sessionID, func(c *domain.Cart) bool { return c.Add(item) })
}

// RemoveFromCart drops the line for (productID, size).
func (s *StorefrontService) RemoveFromCart(ctx context.Context, sessionID string, productID domain.ProductID, size *string) (CartView, error) {
	if err := requireProduct(sessionID, productID); err != nil {
		return CartView{}, err
	}
	return s.mutateCart(ctx, sessionID, func(c *domain.Cart) bool { return c.Remove(productID, size) })
}

// UpdateCartQuantity adds delta to the line for (productID, size). A line
// that drops to zero is removed; a zero delta changes nothing.
func (s *StorefrontService) UpdateCartQuantity(ctx context.Context, sessionID string, productID domain.ProductID, size *string, delta int) (CartView, error) {
	if err := requireProduct(sessionID, productID); err != nil {
		return CartView{}, err
	}
	if delta > maxQuantity || delta < -maxQuantity {
		return CartView{}, apperrors.InvalidInput("delta is too large")
	}
	return s.mutateCart(ctx, sessionID, func(c *domain.Cart) bool {
		return c.UpdateQuantity(productID, size, delta)
	})
}

// ClearCart empties the cart.
func (s *StorefrontService) ClearCart(ctx context.Context, sessionID string) (CartView, error) {
	if err := requireSession(sessionID); err != nil {
		return CartView{}, err
	}

	var (
		changed bool
		cart    domain.Cart
		version uint64
	)
	err := s.withStore(ctx, sessionID, func(st *store.Store) {
		changed, cart, version = st.EditCart(func(c *domain.Cart) bool { return c.Clear() })
	})
	if err != nil {
		return CartView{}, err
	}
	if changed {
		s.report(ctx, "cart.cleared", sessionID, s.events.PublishCartCleared(ctx, sessionID, version))
	}
	return newCartView(cart), nil
}

// mutateCart applies fn and reports the cart exactly as fn left it, so
// concurrent requests on one session never see each other's result.
func (s *StorefrontService) mutateCart(ctx context.Context, sessionID string, fn func(*domain.Cart) bool) (CartView, error) {
	var (
		changed bool
		cart    domain.Cart
		version uint64
	)
	err := s.withStore(ctx, sessionID, func(st *store.Store) {
		changed, cart, version = st.EditCart(fn)
	})
	if err != nil {
		return CartView{}, err
	}
	if changed {
		s.report(ctx, "cart.updated", sessionID, s.events.PublishCartUpdated(ctx, sessionID, cart, version))
	}
	return newCartView(cart), nil
}

// --- Wishlist ---

// Wishlist returns one page of the session's wishlist.
func (s *StorefrontService) Wishlist(ctx context.Context, sessionID string, page pagination.Params) (pagination.Result[domain.WishlistEntry], error) {
	var wl domain.Wishlist
	err := s.withStore(ctx, sessionID, func(st *store.Store) { wl = st.Wishlist() })
	if err != nil {
		return pagination.Result[domain.WishlistEntry]{}, err
	}
	return pagination.Paginate(wl.Entries, page), nil
}

// AddToWishlist saves the product unless it is already saved.
func (s *StorefrontService) AddToWishlist(ctx context.Context, sessionID string, in AddToWishlistInput) (WishlistView, bool, error) {
	if err := requireSession(sessionID); err != nil {
		return WishlistView{}, false, err
	}
	if err := validator.Validate(in); err != nil {
		return WishlistView{}, false, err
	}
	if in.Price.IsNegative() {
		return WishlistView{}, false, apperrors.InvalidInput("price must not be negative")
	}

	entry := domain.WishlistEntry{
		ProductID:    in.ProductID,
		SelectedSize: in.SelectedSize,
		Product:      s.enrich(ctx, in.ProductID, in.product()),
	}
	return s.mutateWishlist(ctx, sessionID, func(w *domain.Wishlist) bool { return w.Add(entry) })
}

// RemoveFromWishlist drops the product from the wishlist.
func (s *StorefrontService) RemoveFromWishlist(ctx context.Context, sessionID string, productID domain.ProductID) (WishlistView, bool, error) {
	if err := requireProduct(sessionID, productID); err != nil {
		return WishlistView{}, false, err
	}
	return s.mutateWishlist(ctx, sessionID, func(w *domain.Wishlist) bool { return w.Remove(productID) })
}

// UpdateWishlistItemSize sets the size preference of a saved product. A nil
// size clears it; an unsaved product is left alone.
func (s *StorefrontService) UpdateWishlistItemSize(ctx context.Context, sessionID string, productID domain.ProductID, size *string) (WishlistView, bool, error) {
	if err := requireProduct(sessionID, productID); err != nil {
		return WishlistView{}, false, err
	}
	if size != nil && len(*size) > 50 {
		return WishlistView{}, false, apperrors.InvalidInput("size is too long")
	}
	return s.mutateWishlist(ctx, sessionID, func(w *domain.Wishlist) bool {
		return w.SetSize(productID, size)
	})
}

// IsInWishlist reports whether the product is saved.
func (s *StorefrontService) IsInWishlist(ctx context.Context, sessionID string, productID domain.ProductID) (bool, error) {
	if err := requireProduct(sessionID, productID); err != nil {
		return false, err
	}
	var exists bool
	err := s.withStore(ctx, sessionID, func(st *store.Store) { exists = st.IsInWishlist(productID) })
	return exists, err
}

func (s *StorefrontService) mutateWishlist(ctx context.Context, sessionID string, fn func(*domain.Wishlist) bool) (WishlistView, bool, error) {
	var (
		changed bool
		wl      domain.Wishlist
		version uint64
	)
	err := s.withStore(ctx, sessionID, func(st *store.Store) {
		changed, wl, version = st.EditWishlist(fn)
	})
	if err != nil {
		return WishlistView{}, false, err
	}
	if changed {
		s.report(ctx, "wishlist.updated", sessionID, s.events.PublishWishlistUpdated(ctx, sessionID, wl, version))
	}
	return newWishlistView(wl), changed, nil
}

// --- Lifecycle ---

// RunEvictor drops idle sessions until ctx is canceled, checking every
// quarter of the idle timeout.
func (s *StorefrontService) RunEvictor(ctx context.Context) {
	interval := s.reg.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	s.reg.runEvictor(ctx, interval)
}

// Close flushes every open session to the repository.
func (s *StorefrontService) Close(ctx context.Context) {
	s.reg.closeAll(ctx)
}

// OpenSessions is the number of sessions held in memory.
func (s *StorefrontService) OpenSessions() int {
	return s.reg.size()
}

// --- helpers ---

func (s *StorefrontService) withStore(ctx context.Context, sessionID string, fn func(*store.Store)) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	sess, err := s.reg.acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer sess.mu.RUnlock()

	fn(sess.store)
	return nil
}

// enrich fills missing display fields from the catalog when the caller sent
// no name. Catalog failures keep the caller's payload.
func (s *StorefrontService) enrich(ctx context.Context, id domain.ProductID, p domain.Product) domain.Product {
	if s.catalog == nil || p.Name != "" {
		return p
	}

	found, err := s.catalog.Product(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "catalog lookup failed, keeping caller payload",
			slog.String("product_id", string(id)),
			slog.String("error", err.Error()),
		)
		return p
	}

	p.Name = found.Name
	if p.Price.IsZero() {
		p.Price = found.Price
	}
	if p.Image == "" {
		p.Image = found.Image
	}
	if p.Category == "" {
		p.Category = found.Category
	}
	if p.Rating == 0 {
		p.Rating = found.Rating
	}
	if len(p.Sizes) == 0 {
		p.Sizes = found.Sizes
	}
	if p.InStock == nil {
		p.InStock = found.InStock
	}
	return p
}

// report logs a failed event publish. Events never fail an operation.
func (s *StorefrontService) report(ctx context.Context, eventType, sessionID string, err error) {
	if err == nil {
		return
	}
	s.logger.ErrorContext(ctx, "failed to publish "+eventType+" event",
		slog.String("session_id", sessionID),
		slog.String("error", err.Error()),
	)
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return apperrors.InvalidInput("session id is required")
	}
	return nil
}

func requireProduct(sessionID string, productID domain.ProductID) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	if strings.TrimSpace(string(productID)) == "" {
		return apperrors.InvalidInput("product id is required")
	}
	return nil
}
