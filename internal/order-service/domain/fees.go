package domain

import "github.com/shopspring/decimal"

// MailShippingFee is charged whenever the listing can be sent by post.
const MailShippingFee int64 = 350

var platformFeeRate = decimal.RequireFromString("0.10")

// PlatformFee is the platform commission on a book price, rounded half away from zero.
func PlatformFee(price int64) int64 {
	return decimal.NewFromInt(price).Mul(platformFeeRate).Round(0).IntPart()
}

// ShippingFee is zero only for personal-pickup-only listings.
func ShippingFee(option DeliveryOption) int64 {
	if option == DeliveryPersonal {
		return 0
	}
	return MailShippingFee
}

type Fees struct {
	Price       int64
	ShippingFee int64
	PlatformFee int64
	Total       int64
}

// QuoteFees computes the order money fields for a listing.
func QuoteFees(b *Book) Fees {
	price := b.EffectivePrice()
	shipping := ShippingFee(b.DeliveryOption)
	return Fees{
		Price:       price,
		ShippingFee: shipping,
		PlatformFee: PlatformFee(price),
		Total:       price + shipping,
	}
}
