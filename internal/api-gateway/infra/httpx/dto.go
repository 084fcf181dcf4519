package httpx

import "time"

type CreateOrderRequest struct {
	BookID string `json:"book_id"`
}

type ShipOrderRequest struct {
	TrackingNumber string `json:"tracking_number"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type ResolveDisputeRequest struct {
	Outcome string `json:"outcome"`
}

type OrderResponse struct {
	ID               string     `json:"id"`
	BookID           string     `json:"book_id"`
	BuyerID          string     `json:"buyer_id"`
	SellerID         string     `json:"seller_id"`
	PaymentMethod    string     `json:"payment_method"`
	Donation         bool       `json:"is_donation"`
	Price            int64      `json:"price"`
	TotalAmount      int64      `json:"total_amount"`
	ShippingFee      int64      `json:"shipping_fee"`
	PlatformFee      int64      `json:"platform_fee"`
	DonationAmount   int64      `json:"donation_amount"`
	Status           string     `json:"status"`
	TrackingNumber   string     `json:"tracking_number,omitempty"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	CancelReason     string     `json:"cancel_reason,omitempty"`
	Resolution       string     `json:"resolution,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	DisputeDeadline  *time.Time `json:"dispute_deadline,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Version          int        `json:"version"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
}

type AccountResponse struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	IsBusiness         bool      `json:"is_business"`
	IsVerified         bool      `json:"is_verified"`
	City               string    `json:"city,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	WalletBalance      int64     `json:"wallet_balance"`
	FreeBooksThisMonth int       `json:"free_books_this_month"`
}

type BookRequest struct {
	Title          string `json:"title"`
	Author         string `json:"author"`
	Description    string `json:"description"`
	Condition      string `json:"condition"`
	Price          int64  `json:"price"`
	IsDonation     bool   `json:"is_donation"`
	DeliveryOption string `json:"delivery_option"`
	PaymentMethod  string `json:"payment_method"`
	City           string `json:"city"`
	Category       string `json:"category"`
}

type BookResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Author         string    `json:"author"`
	Description    string    `json:"description,omitempty"`
	Condition      string    `json:"condition"`
	Price          int64     `json:"price"`
	IsDonation     bool      `json:"is_donation"`
	DeliveryOption string    `json:"delivery_option"`
	PaymentMethod  string    `json:"payment_method"`
	City           string    `json:"city,omitempty"`
	SellerID       string    `json:"seller_id"`
	Category       string    `json:"category,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type CheckoutResponse struct {
	SagaID string        `json:"saga_id"`
	Order  OrderResponse `json:"order"`
}

type SagaResponse struct {
	SagaID      string    `json:"saga_id"`
	Status      string    `json:"status"`
	CurrentStep string    `json:"current_step"`
	Errors      string    `json:"errors,omitempty"`
	TraceID     string    `json:"trace_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	SagaID  string `json:"saga_id,omitempty"`
}
