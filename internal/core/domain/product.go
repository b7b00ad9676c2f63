package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// Storage bounds of a product. Prices carry at most PriceScale decimal
// places and stay below MaxPrice; stock fits a signed 32-bit column.
const (
	PriceScale  = 4
	MaxQuantity = math.MaxInt32
)

var MaxPrice = decimal.New(1, 15)

type Category struct {
	ID          int64
	Name        string
	Description string
}

// Product is a catalog entry. Quantity is the on-hand stock and is only
// changed through the inventory accessors, never by a catalog update.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int
	CategoryID  *int64
}
