package mappers

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
)

func BookToProto(b *domain.Book) (*structpb.Struct, error) {
	if b == nil {
		return nil, nil
	}
	return structpb.NewStruct(map[string]any{
		"id":              b.ID,
		"title":           b.Title,
		"author":          b.Author,
		"description":     b.Description,
		"condition":       string(b.Condition),
		"price":           b.Price,
		"is_donation":     b.IsDonation,
		"delivery_option": string(b.DeliveryOption),
		"payment_method":  string(b.PaymentMethod),
		"city":            b.City,
		"seller_id":       b.SellerID,
		"category":        b.Category,
		"created_at":      formatTime(b.CreatedAt),
	})
}

func BookFromProto(s *structpb.Struct) (*domain.Book, error) {
	if s == nil {
		return nil, fmt.Errorf("mappers: empty book")
	}
	r := reader{s: s}
	b := &domain.Book{
		ID:             r.str("id"),
		Title:          r.str("title"),
		Author:         r.str("author"),
		Description:    r.str("description"),
		Condition:      domain.Condition(r.str("condition")),
		Price:          r.int("price"),
		IsDonation:     r.boolean("is_donation"),
		DeliveryOption: domain.DeliveryOption(r.str("delivery_option")),
		PaymentMethod:  domain.PaymentMethod(r.str("payment_method")),
		City:           r.str("city"),
		SellerID:       r.str("seller_id"),
		Category:       r.str("category"),
		CreatedAt:      r.time("created_at"),
	}
	return b, r.err
}

func UserToProto(u *domain.User) (*structpb.Struct, error) {
	if u == nil {
		return nil, nil
	}
	return structpb.NewStruct(map[string]any{
		"id":                    u.ID,
		"email":                 u.Email,
		"name":                  u.Name,
		"is_business":           u.IsBusiness,
		"is_verified":           u.IsVerified,
		"city":                  u.City,
		"created_at":            formatTime(u.CreatedAt),
		"wallet_balance":        u.WalletBalance,
		"free_books_this_month": u.FreeBooksThisMonth,
	})
}

func UserFromProto(s *structpb.Struct) (*domain.User, error) {
	if s == nil {
		return nil, fmt.Errorf("mappers: empty user")
	}
	r := reader{s: s}
	u := &domain.User{
		ID:                 r.str("id"),
		Email:              r.str("email"),
		Name:               r.str("name"),
		IsBusiness:         r.boolean("is_business"),
		IsVerified:         r.boolean("is_verified"),
		City:               r.str("city"),
		CreatedAt:          r.time("created_at"),
		WalletBalance:      r.int("wallet_balance"),
		FreeBooksThisMonth: int(r.int("free_books_this_month")),
	}
	return u, r.err
}
