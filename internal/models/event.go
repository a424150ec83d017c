package models

import (
	"time"

	"tero-backend/internal/billing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const DefaultShift = "noche"

// Event is a banquet booking. Total is derived from the charge columns on
// every save and is the figure every balance is computed against.
type Event struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Date       time.Time  `gorm:"type:date;not null;index" json:"date"`
	Client     string     `gorm:"size:150;not null" json:"client"`
	Phone      string     `gorm:"size:50" json:"phone"`
	Shift      string     `gorm:"size:20;not null" json:"shift"`
	StartTime  string     `gorm:"size:5" json:"start_time"`
	EndTime    string     `gorm:"size:5" json:"end_time"`
	Seller     string     `gorm:"size:100;index" json:"seller"`
	EventType  string     `gorm:"size:100" json:"event_type"`
	Hall       string     `gorm:"size:100" json:"hall"`
	MenuID     *uint      `gorm:"index" json:"menu_id"`
	Menu       *EventMenu `gorm:"foreignKey:MenuID;constraint:OnDelete:SET NULL" json:"-"`
	MenuDetail string     `gorm:"type:jsonb" json:"menu_detail"`
	AV         bool       `gorm:"not null" json:"av"`
	DJ         bool       `gorm:"not null" json:"dj"`
	PremiumAV  bool       `gorm:"not null" json:"premium_av"`
	Other      string     `gorm:"size:500" json:"other"`

	Adults     int             `gorm:"not null" json:"adults"`
	AdultPrice decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"adult_price"`
	Minors     int             `gorm:"not null" json:"minors"`
	MinorPrice decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"minor_price"`

	Extra1Description string          `gorm:"size:150" json:"extra1_description"`
	Extra1Value       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"extra1_value"`
	Extra1Type        string          `gorm:"size:20;not null" json:"extra1_type"`
	Extra2Description string          `gorm:"size:150" json:"extra2_description"`
	Extra2Value       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"extra2_value"`
	Extra2Type        string          `gorm:"size:20;not null" json:"extra2_type"`
	Extra3Description string          `gorm:"size:150" json:"extra3_description"`
	Extra3Value       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"extra3_value"`
	Extra3Type        string          `gorm:"size:20;not null" json:"extra3_type"`

	Total     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total"`
	Confirmed bool            `gorm:"not null;index" json:"confirmed"`

	Payments  []EventPayment `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (e *Event) Charges() billing.Charges {
	return billing.Charges{
		Adults:     e.Adults,
		Minors:     e.Minors,
		AdultPrice: e.AdultPrice,
		MinorPrice: e.MinorPrice,
		Extras: []billing.ExtraCharge{
			{Description: e.Extra1Description, Value: e.Extra1Value, Type: billing.ChargeType(e.Extra1Type)},
			{Description: e.Extra2Description, Value: e.Extra2Value, Type: billing.ChargeType(e.Extra2Type)},
			{Description: e.Extra3Description, Value: e.Extra3Value, Type: billing.ChargeType(e.Extra3Type)},
		},
	}
}

// SetExtras writes up to three extras into the fixed columns, clearing the rest.
func (e *Event) SetExtras(extras []billing.ExtraCharge) error {
	if len(extras) > billing.MaxExtras {
		return billing.ErrTooManyExtras
	}
	slots := make([]billing.ExtraCharge, billing.MaxExtras)
	copy(slots, extras)
	for i := range slots {
		if slots[i].Type == "" {
			slots[i].Type = billing.ChargeFlat
		}
	}
	e.Extra1Description, e.Extra1Value, e.Extra1Type = slots[0].Description, slots[0].Value, string(slots[0].Type)
	e.Extra2Description, e.Extra2Value, e.Extra2Type = slots[1].Description, slots[1].Value, string(slots[1].Type)
	e.Extra3Description, e.Extra3Value, e.Extra3Type = slots[2].Description, slots[2].Value, string(slots[2].Type)
	return nil
}

// BeforeSave validates the charges and overwrites Total.
func (e *Event) BeforeSave(tx *gorm.DB) error {
	if e.Shift == "" {
		e.Shift = DefaultShift
	}
	if e.MenuDetail == "" {
		e.MenuDetail = "null"
	}
	charges := e.Charges()
	if err := charges.Validate(); err != nil {
		return err
	}
	e.Total = charges.Total()
	return nil
}

type EventPayment struct {
	ID        uint                    `gorm:"primaryKey" json:"id"`
	EventID   uint                    `gorm:"index;not null" json:"event_id"`
	Date      time.Time               `gorm:"type:date;not null;index" json:"date"`
	Amount    decimal.Decimal         `gorm:"type:numeric(14,2);not null" json:"amount"`
	Category  billing.PaymentCategory `gorm:"size:20;not null" json:"category"`
	Notes     string                  `gorm:"size:500" json:"notes"`
	CreatedAt time.Time               `json:"created_at"`
}

func (p *EventPayment) BeforeCreate(tx *gorm.DB) error {
	return billing.ValidatePayment(p.Billing())
}

func (p *EventPayment) Billing() billing.Payment {
	return billing.Payment{Amount: p.Amount, Category: p.Category, Date: p.Date}
}

// EventMenu is a reusable banquet menu template. Categories and Extras are JSON documents.
type EventMenu struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:150;not null" json:"name"`
	Kind       string    `gorm:"size:50;not null" json:"kind"`
	Categories string    `gorm:"type:jsonb;not null" json:"categories"`
	Extras     string    `gorm:"type:jsonb;not null" json:"extras"`
	Active     bool      `gorm:"not null;index" json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}
