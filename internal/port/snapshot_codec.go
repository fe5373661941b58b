package port

import "github.com/rl1809/gomarket-cart/internal/core/domain"

type SnapshotCodec interface {
	Encode(cart domain.Cart) (string, error)
	Decode(raw string) (domain.Cart, error)
}
