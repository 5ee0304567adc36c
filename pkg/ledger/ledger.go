// Package ledger defines the reconciliation state: clients, payments and
// the pure rules deciding what each (client, month, year) cell shows.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agentstation/concilia/pkg/errors"
)

// Origin tags where a payment record came from.
type Origin string

const (
	// OriginManual marks a payment entered or confirmed by a person.
	OriginManual Origin = "manual"
	// OriginAutomated marks a payment produced by document extraction.
	OriginAutomated Origin = "automated"
)

// Valid reports whether o is a known origin.
func (o Origin) Valid() bool {
	return o == OriginManual || o == OriginAutomated
}

// YearMonth is a calendar month, written as "YYYY-MM".
type YearMonth struct {
	Year  int
	Month int
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, errors.NewValidationError("billingStart", s, "expected YYYY-MM")
	}
	return YearMonth{Year: t.Year(), Month: int(t.Month())}, nil
}

// MustYearMonth is like ParseYearMonth but panics on malformed input.
func MustYearMonth(s string) YearMonth {
	ym, err := ParseYearMonth(s)
	if err != nil {
		panic(err)
	}
	return ym
}

// String formats ym as "YYYY-MM".
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// Before reports whether (year, month) falls strictly before ym.
func (ym YearMonth) Before(month, year int) bool {
	return year < ym.Year || (year == ym.Year && month < ym.Month)
}

// IsZero reports whether ym is unset.
func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}

// MarshalText implements encoding.TextMarshaler.
func (ym YearMonth) MarshalText() ([]byte, error) {
	return []byte(ym.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (ym *YearMonth) UnmarshalText(b []byte) error {
	parsed, err := ParseYearMonth(string(b))
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}

// DateLayout is the wire layout of payment dates.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day.
type Date struct {
	t time.Time
}

// NewDate truncates t to its calendar date.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses "YYYY-MM-DD". Longer timestamps are cut to their date part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, errors.NewValidationError("paidOn", s, "expected YYYY-MM-DD")
	}
	return Date{t: t}, nil
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return d.t
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Equal reports whether both dates name the same day.
func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

// String formats d as "YYYY-MM-DD", or "" when unset.
func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Client is a billed customer.
type Client struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	BillingStart YearMonth `json:"billing_start" yaml:"billing_start"`
}

// Cell identifies one billing period of one client.
type Cell struct {
	ClientID string `json:"client_id"`
	Month    int    `json:"month"`
	Year     int    `json:"year"`
}

// String formats the cell as "client/MM/YYYY".
func (c Cell) String() string {
	return fmt.Sprintf("%s/%02d/%04d", c.ClientID, c.Month, c.Year)
}

// Validate checks the month range.
func (c Cell) Validate() error {
	if c.ClientID == "" {
		return errors.NewValidationError("client_id", c.ClientID, "required")
	}
	if c.Month < 1 || c.Month > 12 {
		return errors.NewValidationError("month", c.Month, "must be between 1 and 12")
	}
	if c.Year < 1 {
		return errors.NewValidationError("year", c.Year, "must be positive")
	}
	return nil
}

// Payment records that a client paid for a month. At most one payment
// exists per Cell.
type Payment struct {
	ClientID string          `json:"client_id" yaml:"client_id"`
	Month    int             `json:"month" yaml:"month"`
	Year     int             `json:"year" yaml:"year"`
	Amount   decimal.Decimal `json:"amount" yaml:"amount"`
	PaidOn   Date            `json:"paid_on" yaml:"paid_on"`
	Origin   Origin          `json:"origin" yaml:"origin"`
}

// Cell returns the payment's composite identity.
func (p Payment) Cell() Cell {
	return Cell{ClientID: p.ClientID, Month: p.Month, Year: p.Year}
}

// Matches reports whether p belongs to cell.
func (p Payment) Matches(cell Cell) bool {
	return p.ClientID == cell.ClientID && p.Month == cell.Month && p.Year == cell.Year
}

// State is the full reconciliation state.
type State struct {
	Clients  []Client  `json:"clients"`
	Payments []Payment `json:"payments"`
}

// Clone returns a copy whose slices can be mutated freely.
func (s State) Clone() State {
	out := State{
		Clients:  make([]Client, len(s.Clients)),
		Payments: make([]Payment, len(s.Payments)),
	}
	copy(out.Clients, s.Clients)
	copy(out.Payments, s.Payments)
	return out
}

// FindClient returns the client with the given ID.
func (s State) FindClient(id string) (Client, bool) {
	for _, c := range s.Clients {
		if c.ID == id {
			return c, true
		}
	}
	return Client{}, false
}

// FindPayment returns the index of the payment for cell, or -1.
func (s State) FindPayment(cell Cell) int {
	return findPayment(s.Payments, cell)
}

func findPayment(payments []Payment, cell Cell) int {
	for i, p := range payments {
		if p.Matches(cell) {
			return i
		}
	}
	return -1
}
