package models

import (
	"time"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"          json:"id"`
	Token     string `gorm:"unique;not null"     json:"token"`
	UserID    uint   `gorm:"index;not null"      json:"user_id"`
	ExpiresAt int64  `gorm:"not null"            json:"expires_at"`
	Revoked   bool   `gorm:"default:false"       json:"revoked"`
}

type Profile struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	ShopName  string    `json:"shop_name"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Category struct {
	ID        uint      `gorm:"primaryKey"      json:"id"`
	UserID    uint      `gorm:"index;not null"  json:"user_id"`
	Name      string    `gorm:"not null"        json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is a grain lot on the broker's price list. DalaliType is either
// "%" or "Per Quintal"; order snapshots normalize it to "%" / "Q".
type Item struct {
	ID               uint      `gorm:"primaryKey"                 json:"id"`
	UserID           uint      `gorm:"index;not null"             json:"user_id"`
	CategoryID       uint      `gorm:"index;not null"             json:"category_id"`
	Name             string    `gorm:"not null"                   json:"name"`
	Price            float64   `gorm:"not null;check:price >= 0"  json:"price"`
	Weight           float64   `gorm:"not null;check:weight >= 0" json:"weight"`
	DalaliType       string    `gorm:"not null"                   json:"dalali_type"`
	BuyerDalaliRate  float64   `gorm:"not null"                   json:"buyer_dalali_rate"`
	SellerDalaliRate float64   `gorm:"not null"                   json:"seller_dalali_rate"`
	ImageURL         *string   `json:"image_url"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CartItem.Price is an optional per-negotiation override; nil means the
// item's canonical price applies at read time.
type CartItem struct {
	ID        uint      `gorm:"primaryKey"                  json:"id"`
	UserID    uint      `gorm:"index;not null"              json:"user_id"`
	ItemID    uint      `gorm:"not null"                    json:"item_id"`
	Quantity  uint      `gorm:"default:1;check:quantity>0"  json:"quantity"`
	Price     *float64  `json:"price"`
	Item      Item      `gorm:"foreignKey:ItemID"           json:"item"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	StakeholderBuyer  = "buyer"
	StakeholderSeller = "seller"
)

type Stakeholder struct {
	ID        uint      `gorm:"primaryKey"     json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Type      string    `gorm:"not null"       json:"type"`
	Name      string    `gorm:"not null"       json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is immutable after creation except for BillPaid and full deletion.
type Order struct {
	ID              uint      `gorm:"primaryKey"     json:"id"`
	UserID          uint      `gorm:"index;not null" json:"user_id"`
	BuyerID         uint      `gorm:"index;not null" json:"buyer_id"`
	SellerID        uint      `gorm:"index;not null" json:"seller_id"`
	OrderDate       time.Time `gorm:"not null"       json:"order_date"`
	Note            string    `json:"note"`
	BuyerDalali     float64   `gorm:"not null"       json:"buyer_dalali"`
	SellerDalali    float64   `gorm:"not null"       json:"seller_dalali"`
	DalaliAmount    float64   `gorm:"not null"       json:"dalali_amount"`
	TotalBillAmount float64   `gorm:"not null"       json:"total_bill_amount"`
	BillPaid        bool      `gorm:"default:false"  json:"bill_paid"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// OrderItem freezes a cart line at checkout. Historical commission
// recomputation must read these fields, never the live Item row.
type OrderItem struct {
	ID               uint      `gorm:"primaryKey"                  json:"id"`
	OrderID          uint      `gorm:"index;not null"              json:"order_id"`
	ItemID           uint      `gorm:"not null"                    json:"item_id"`
	Price            float64   `gorm:"not null;check:price >= 0"   json:"price"`
	Weight           float64   `gorm:"not null;check:weight >= 0"  json:"weight"`
	Quantity         uint      `gorm:"not null"                    json:"quantity"`
	DalaliType       string    `gorm:"not null"                    json:"dalali_type"`
	BuyerDalaliRate  float64   `gorm:"not null"                    json:"buyer_dalali_rate"`
	SellerDalaliRate float64   `gorm:"not null"                    json:"seller_dalali_rate"`
	CreatedAt        time.Time `json:"created_at"`
}
