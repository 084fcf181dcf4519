package domain

import "time"

type User struct {
	ID                 string
	Email              string
	Name               string
	IsBusiness         bool
	IsVerified         bool
	City               string
	CreatedAt          time.Time
	WalletBalance      int64
	FreeBooksThisMonth int
}

// MonthlyDonationLimit caps the donation listings a buyer may claim per calendar month.
const MonthlyDonationLimit = 2
