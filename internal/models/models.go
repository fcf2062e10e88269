package models

import "time"

type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	PhoneNo    string `json:"phone_no"`
	Address    string `json:"address"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	FirstLogin bool   `json:"first_login"`
}

type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Category    string  `json:"category"`
	ProductType string  `json:"product_type"`
	ImageURL    string  `json:"image_url,omitempty"`
}

// ProductSummary is the slice of a product a cart or wishlist row needs.
type ProductSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"image_url,omitempty"`
}

type CartLine struct {
	ID       string         `json:"id"`
	Product  ProductSummary `json:"product"`
	Quantity int            `json:"quantity"`
}

type Receipt struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Total         float64   `json:"total"`
	Courier       string    `json:"courier"`
	PaymentMethod string    `json:"payment_method"`
	Created       time.Time `json:"created"`
}

// PurchasedProduct is a product snapshot inside a past order, with the
// quantity that was bought.
type PurchasedProduct struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"image_url,omitempty"`
	Quantity int     `json:"quantity"`
}

type Purchase struct {
	Receipt
	Products []PurchasedProduct `json:"products"`
}

type WishlistItem struct {
	ID      string         `json:"id"`
	Product ProductSummary `json:"product"`
}

type Comment struct {
	UserName string `json:"user_name"`
	Comment  string `json:"comment"`
}
