package stream

import (
	"encoding/json"

	"predict_go/internal/domain"
)

// Wire protocol frames. Outbound subscribes are batched per channel.
const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	frameBook        = "book"
	framePriceChange = "price_change"

	ChannelBook  = "book"
	ChannelPrice = "price"
	ChannelUser  = "user"
)

type subscribeFrame struct {
	Type     string   `json:"type"`
	Channel  string   `json:"channel,omitempty"`
	AssetIDs []string `json:"assets_ids"`
}

type inboundFrame struct {
	Type    string          `json:"type"`
	AssetID string          `json:"asset_id"`
	Market  string          `json:"market,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// bookPayload is the body of a "book" frame. Bids and asks may be absent;
// the decoded OrderBook defaults to empty sides and a synthesized timestamp.
type bookPayload struct {
	Bids      []domain.OrderBookEntry `json:"bids"`
	Asks      []domain.OrderBookEntry `json:"asks"`
	Timestamp string                  `json:"timestamp"`
}

type pricePayload struct {
	Price string `json:"price"`
}
