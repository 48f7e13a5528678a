package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        int64           `json:"id"`
	Code      string          `json:"product_code"`
	Name      string          `json:"name"`
	Category  string          `json:"category,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Sale is the durable record of one settled checkout. It is append-only:
// nothing in the system updates a sale after RecordSale commits it.
type Sale struct {
	ID            int64           `json:"id"`
	SaleDate      time.Time       `json:"sale_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	Items         []SaleItem      `json:"items,omitempty"`
}

// SaleItem snapshots a cart line at settlement time, so later price or name
// edits in the catalog do not rewrite history.
type SaleItem struct {
	ID          int64           `json:"id"`
	SaleID      int64           `json:"sale_id"`
	ProductCode string          `json:"product_code"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	Permissions
}

// Permissions maps a role to the dashboard surfaces it may open.
type Permissions struct {
	TotalIncomeAccess       bool `json:"total_income_access"`
	ProductManagementAccess bool `json:"product_management_access"`
	BillingAccess           bool `json:"billing_access"`
	LogoutAccess            bool `json:"logout_access"`
}

const (
	UserStatusOnline  = "online"
	UserStatusOffline = "offline"
)

const (
	PaymentCash   = "Cash"
	PaymentCard   = "Card"
	PaymentWeChat = "WeChat"
	PaymentAlipay = "Alipay"
)

func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentCash, PaymentCard, PaymentWeChat, PaymentAlipay:
		return true
	}
	return false
}
