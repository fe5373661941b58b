package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rl1809/gomarket-cart/internal/core/domain"
)

var ErrMalformedSnapshot = errors.New("malformed cart snapshot")

type cartItemRecord struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	ImageURL string      `json:"imageUrl"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
}

// JSONCodec encodes a cart as a JSON array of item records. Prices are written as
// JSON numbers with their exact decimal representation.
type JSONCodec struct{}

func NewJSONCodec() JSONCodec {
	return JSONCodec{}
}

func (JSONCodec) Encode(cart domain.Cart) (string, error) {
	records := make([]cartItemRecord, 0, len(cart))
	for _, item := range cart {
		records = append(records, cartItemRecord{
			ID:       item.ID,
			Title:    item.Title,
			ImageURL: item.ImageURL,
			Price:    json.Number(item.Price.String()),
			Quantity: item.Quantity,
		})
	}

	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode cart: %w", err)
	}
	return string(data), nil
}

// Decode treats an empty or null payload as an empty cart.
func (JSONCodec) Decode(raw string) (domain.Cart, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return domain.Cart{}, nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var records []cartItemRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	cart := make(domain.Cart, 0, len(records))
	for _, r := range records {
		price := decimal.Zero
		if r.Price != "" {
			p, err := decimal.NewFromString(r.Price.String())
			if err != nil {
				return nil, fmt.Errorf("%w: price of %q: %v", ErrMalformedSnapshot, r.ID, err)
			}
			price = p
		}
		cart = append(cart, domain.CartItem{
			Product: domain.Product{
				ID:       r.ID,
				Title:    r.Title,
				ImageURL: r.ImageURL,
				Price:    price,
			},
			Quantity: r.Quantity,
		})
	}
	return cart, nil
}
