package cashcardrepo

import "math"

type Property string

const (
	PropertyID     Property = "id"
	PropertyAmount Property = "amount"
)

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Order is a single sort key.
type Order struct {
	Property  Property
	Direction Direction
}

// DefaultOrder is applied when a page carries no sort keys.
var DefaultOrder = Order{Property: PropertyAmount, Direction: Asc}

// Page is a validated, bounded page request. Number is zero-based; Size is > 0.
// Stores can rely on Number/Size being in range; construction and validation live
// in the application layer.
type Page struct {
	Number int
	Size   int
	Sort   []Order
}

// Orders returns the effective ordering for the page: the requested sort keys (or
// DefaultOrder), followed by id ascending as a tie-breaker unless id is already a key.
func (p Page) Orders() []Order {
	out := make([]Order, 0, len(p.Sort)+1)
	if len(p.Sort) == 0 {
		out = append(out, DefaultOrder)
	} else {
		out = append(out, p.Sort...)
	}
	for _, o := range out {
		if o.Property == PropertyID {
			return out
		}
	}
	return append(out, Order{Property: PropertyID, Direction: Asc})
}

// Offset returns the number of records to skip, saturating instead of overflowing.
func (p Page) Offset() int64 {
	if p.Number <= 0 || p.Size <= 0 {
		return 0
	}
	if int64(p.Number) > math.MaxInt64/int64(p.Size) {
		return math.MaxInt64
	}
	return int64(p.Number) * int64(p.Size)
}
