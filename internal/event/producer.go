package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topics for storefront domain events.
var (
	TopicCartUpdated     = pkgkafka.Topic("cart", "updated")
	TopicCartCleared     = pkgkafka.Topic("cart", "cleared")
	TopicWishlistUpdated = pkgkafka.Topic("wishlist", "updated")
)

// Aggregate types.
const (
	AggregateTypeCart     = "cart"
	AggregateTypeWishlist = "wishlist"
)

// SourceStorefrontService identifies events published by this service.
const SourceStorefrontService = "storefront-service"

// MetadataOrigin is the envelope metadata key naming the publishing instance.
const MetadataOrigin = "origin"

// CartUpdatedData is the payload of a cart.updated event.
// StateVersion grows with every change to the session's cart; consumers
// drop events older than the last one they applied.
type CartUpdatedData struct {
	SessionID    string         `json:"session_id"`
	StateVersion uint64         `json:"state_version"`
	Items        []CartItemData `json:"items"`
	ItemCount    int            `json:"item_count"`
	TotalPrice   string         `json:"total_price"`
}

// CartItemData is one line of a cart event.
type CartItemData struct {
	ProductID    string          `json:"product_id"`
	SelectedSize *string         `json:"selected_size,omitempty"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
}

// CartClearedData is the payload of a cart.cleared event.
type CartClearedData struct {
	SessionID    string `json:"session_id"`
	StateVersion uint64 `json:"state_version"`
}

// WishlistUpdatedData is the payload of a wishlist.updated event.
type WishlistUpdatedData struct {
	SessionID    string   `json:"session_id"`
	StateVersion uint64   `json:"state_version"`
	ProductIDs   []string `json:"product_ids"`
}

// Publisher announces cart and wishlist changes. version is the slot's state
// version after the change.
type Publisher interface {
	PublishCartUpdated(ctx context.Context, sessionID string, cart domain.Cart, version uint64) error
	PublishCartCleared(ctx context.Context, sessionID string, version uint64) error
	PublishWishlistUpdated(ctx context.Context, sessionID string, wishlist domain.Wishlist, version uint64) error
}

// NopPublisher discards events. It is used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) PublishCartUpdated(context.Context, string, domain.Cart, uint64) error { return nil }
func (NopPublisher) PublishCartCleared(context.Context, string, uint64) error { return nil }
func (NopPublisher) PublishWishlistUpdated(context.Context, string, domain.Wishlist, uint64) error { return nil }

type eventPublisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  eventPublisher
	origin string
	logger *slog.Logger
}

var _ Publisher = (*Producer)(nil)

// NewProducer creates an event producer on top of a Kafka producer. origin
// identifies this instance in every envelope's metadata.
func NewProducer(kafka *pkgkafka.Producer, origin string, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, origin: origin, logger: logger}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, sessionID string, cart domain.Cart, version uint64) error {
	items := make([]CartItemData, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = CartItemData{
			ProductID:    string(item.ProductID),
			SelectedSize: item.SelectedSize,
			Name:         item.Name,
			Price:        item.Price,
			Quantity:     item.Quantity,
		}
	}

	data := CartUpdatedData{
		SessionID:    sessionID,
		StateVersion: version,
		Items:        items,
		ItemCount:    cart.ItemCount(),
		TotalPrice:   cart.FormattedTotal(),
	}

	if err := p.publish(ctx, TopicCartUpdated, sessionID, AggregateTypeCart, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("session_id", sessionID),
		slog.Int("item_count", data.ItemCount),
		slog.Uint64("state_version", version),
	)
	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID string, version uint64) error {
	return p.publish(ctx, TopicCartCleared, sessionID, AggregateTypeCart,
		CartClearedData{SessionID: sessionID, StateVersion: version})
}

// PublishWishlistUpdated publishes a wishlist.updated event.
func (p *Producer) PublishWishlistUpdated(ctx context.Context, sessionID string, wishlist domain.Wishlist, version uint64) error {
	ids := make([]string, len(wishlist.Entries))
	for i, e := range wishlist.Entries {
		ids[i] = string(e.ProductID)
	}
	return p.publish(ctx, TopicWishlistUpdated, sessionID, AggregateTypeWishlist,
		WishlistUpdatedData{SessionID: sessionID, StateVersion: version, ProductIDs: ids})
}

func (p *Producer) publish(ctx context.Context, topic, sessionID, aggregateType string, data any) error {
	evt, err := pkgkafka.NewEvent(topic, sessionID, aggregateType, SourceStorefrontService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	if p.origin != "" {
		evt.WithMetadata(MetadataOrigin, p.origin)
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}
