package domain

import (
	"strings"
	"time"
)

type Condition string

const (
	ConditionNew        Condition = "new"
	ConditionLikeNew    Condition = "like-new"
	ConditionExcellent  Condition = "excellent"
	ConditionGood       Condition = "good"
	ConditionAcceptable Condition = "acceptable"
)

// conditionAliases maps the Serbian listing codes onto canonical conditions.
var conditionAliases = map[string]Condition{
	"novo":         ConditionNew,
	"kao-novo":     ConditionLikeNew,
	"odlicno":      ConditionExcellent,
	"dobro":        ConditionGood,
	"prihvatljivo": ConditionAcceptable,
}

// ParseCondition accepts canonical names and Serbian aliases.
func ParseCondition(s string) (Condition, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch c := Condition(s); c {
	case ConditionNew, ConditionLikeNew, ConditionExcellent, ConditionGood, ConditionAcceptable:
		return c, true
	}
	c, ok := conditionAliases[s]
	return c, ok
}

type DeliveryOption string

const (
	DeliveryPost     DeliveryOption = "post"
	DeliveryPersonal DeliveryOption = "personal"
	DeliveryBoth     DeliveryOption = "both"
)

func (d DeliveryOption) Valid() bool {
	return d == DeliveryPost || d == DeliveryPersonal || d == DeliveryBoth
}

type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentCard || p == PaymentCash
}

type Book struct {
	ID             string
	Title          string
	Author         string
	Description    string
	Condition      Condition
	Price          int64
	IsDonation     bool
	DeliveryOption DeliveryOption
	PaymentMethod  PaymentMethod
	City           string
	SellerID       string
	Category       string
	CreatedAt      time.Time
}

// EffectivePrice is the amount charged for the book itself; donations are free.
func (b *Book) EffectivePrice() int64 {
	if b.IsDonation {
		return 0
	}
	return b.Price
}
