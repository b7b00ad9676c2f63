package orderpb

type LineItem struct {
	ProductId int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

func (x *LineItem) GetProductId() int64 {
	if x != nil {
		return x.ProductId
	}
	return 0
}

func (x *LineItem) GetQuantity() int32 {
	if x != nil {
		return x.Quantity
	}
	return 0
}

type PlaceOrderRequest struct {
	RequestId string      `json:"request_id,omitempty"`
	Lines     []*LineItem `json:"lines"`
}

func (x *PlaceOrderRequest) GetRequestId() string {
	if x != nil {
		return x.RequestId
	}
	return ""
}

func (x *PlaceOrderRequest) GetLines() []*LineItem {
	if x != nil {
		return x.Lines
	}
	return nil
}

type GetOrderRequest struct {
	Id int64 `json:"id"`
}

func (x *GetOrderRequest) GetId() int64 {
	if x != nil {
		return x.Id
	}
	return 0
}

// OrderLine carries money as decimal strings.
type OrderLine struct {
	Id        int64  `json:"id"`
	ProductId int64  `json:"product_id"`
	Quantity  int32  `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

// Order carries PlacedAt as RFC 3339 with nanoseconds and Total as a
// decimal string.
type Order struct {
	Id       int64        `json:"id"`
	PlacedAt string       `json:"placed_at"`
	Total    string       `json:"total"`
	Lines    []*OrderLine `json:"lines"`
}

func (x *Order) GetId() int64 {
	if x != nil {
		return x.Id
	}
	return 0
}

func (x *Order) GetTotal() string {
	if x != nil {
		return x.Total
	}
	return ""
}

func (x *Order) GetLines() []*OrderLine {
	if x != nil {
		return x.Lines
	}
	return nil
}
