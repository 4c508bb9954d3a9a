package user

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// User is the account row. Created on the first ADD_USER event and fully
// overwritten by later ones; never hard-deleted.
type User struct {
	UserID       int64          `json:"user_id" db:"user_id"`
	Username     string         `json:"username" db:"username"`
	FirstName    string         `json:"first_name" db:"first_name"`
	CameFrom     string         `json:"camefrom" db:"camefrom"`
	Language     string         `json:"language" db:"language"`
	Fluency      int            `json:"fluency" db:"fluency"`
	Topics       pq.StringArray `json:"topics" db:"topics"`
	LangCode     string         `json:"lang_code" db:"lang_code"`
	IsActive     bool           `json:"is_active" db:"is_active"`
	Blocked      bool           `json:"blocked" db:"blocked"`
	LastNotified time.Time      `json:"last_notified" db:"last_notified"`
}

// Profile is one-to-one with User. Nickname is globally unique.
type Profile struct {
	UserID   int64    `json:"user_id" db:"user_id"`
	Nickname string   `json:"nickname" db:"nickname"`
	Email    string   `json:"email" db:"email"`
	Birthday Birthday `json:"birthday" db:"birthday"`
	Gender   string   `json:"gender" db:"gender"`
	Intro    string   `json:"intro" db:"intro"`
	Dating   bool     `json:"dating" db:"dating"`
	Status   string   `json:"status" db:"status"`
}

const DefaultStatus = "rookie"

// Birthday accepts the date formats clients actually send.
type Birthday struct {
	time.Time
}

var birthdayLayouts = []string{
	"02-01-2006",
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02.01.2006",
	"2006.01.02",
}

func (b *Birthday) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	for _, layout := range birthdayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			b.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date format: %s", s)
}

func (b Birthday) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.Format("2006-01-02") + `"`), nil
}

func (b Birthday) Value() (driver.Value, error) {
	return b.Time, nil
}

func (b *Birthday) Scan(src any) error {
	t, ok := src.(time.Time)
	if !ok {
		return fmt.Errorf("scanning birthday: unexpected type %T", src)
	}
	b.Time = t
	return nil
}

// Location is one-to-one with User; upserted by ADD_LOCATION.
type Location struct {
	UserID    int64   `json:"user_id" db:"user_id"`
	Latitude  *string `json:"latitude" db:"latitude"`
	Longitude *string `json:"longitude" db:"longitude"`
	City      *string `json:"city" db:"city"`
	Country   *string `json:"country" db:"country"`
	Timezone  *string `json:"tzone" db:"timezone"`
}

// Payment is a subscription record. New users get a trial row.
type Payment struct {
	ID       uuid.UUID `json:"id" db:"id"`
	UserID   int64     `json:"user_id" db:"user_id"`
	Amount   float64   `json:"amount" db:"amount"`
	Period   string    `json:"period" db:"period"`
	Trial    bool      `json:"trial" db:"trial"`
	IsActive bool      `json:"is_active" db:"is_active"`
	Until    time.Time `json:"until" db:"until"`
	Currency string    `json:"currency" db:"currency"`
}

const (
	trialAmount   = 199.00
	trialCurrency = "RUB"
	trialPeriod   = "trial"
	trialWindow   = 72 * time.Hour
)

// NewTrialPayment builds the default trial window for a freshly created user.
func NewTrialPayment(userID int64) Payment {
	return Payment{
		UserID:   userID,
		Amount:   trialAmount,
		Period:   trialPeriod,
		Trial:    true,
		IsActive: true,
		Until:    time.Now().Add(trialWindow),
		Currency: trialCurrency,
	}
}

// Info is the joined user+profile read used by the all-info lookup.
type Info struct {
	User
	Nickname *string    `json:"nickname" db:"nickname"`
	Email    *string    `json:"email" db:"email"`
	Birthday *time.Time `json:"birthday" db:"birthday"`
	Dating   *bool      `json:"dating" db:"dating"`
	Gender   *string    `json:"gender" db:"gender"`
	Intro    *string    `json:"intro" db:"intro"`
	Status   *string    `json:"status" db:"status"`
}

// NotificationTarget is one row of the notification sweep.
type NotificationTarget struct {
	UserID       int64     `db:"user_id"`
	LastNotified time.Time `db:"last_notified"`
}
