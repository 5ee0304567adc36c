package extract

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/ledger"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// RawPayment is a payment as returned by the extraction service.
type RawPayment struct {
	ClientID string  `json:"clienteId" validate:"required"`
	Month    int     `json:"mes" validate:"min=1,max=12"`
	Year     int     `json:"ano" validate:"min=2000,max=2100"`
	Amount   float64 `json:"valor" validate:"gte=0"`
	PaidOn   string  `json:"dataPagamento" validate:"omitempty,datetime=2006-01-02"`
}

// RawClient is a new client suggested by the extraction service.
type RawClient struct {
	ID           string `json:"id" validate:"required"`
	Name         string `json:"nome" validate:"required"`
	BillingStart string `json:"inicioCobranca" validate:"required,datetime=2006-01"`
}

// RawResult is the response document of the extraction service.
type RawResult struct {
	Payments   []RawPayment `json:"pagamentos"`
	NewClients []RawClient  `json:"novosClientes"`
}

// Rejected is a raw record that failed validation.
type Rejected struct {
	Index  int    `json:"index"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// Convert validates raw records and converts the valid ones. Invalid
// records are dropped and reported in the second return value.
func Convert(raw RawResult) (*Result, []Rejected) {
	out := &Result{
		Payments:   make([]ledger.Payment, 0, len(raw.Payments)),
		NewClients: make([]ledger.Client, 0, len(raw.NewClients)),
	}
	var rejected []Rejected

	for i, rp := range raw.Payments {
		p, err := rp.ToPayment()
		if err != nil {
			rejected = append(rejected, Rejected{Index: i, Kind: "payment", Reason: err.Error()})
			continue
		}
		out.Payments = append(out.Payments, p)
	}
	for i, rc := range raw.NewClients {
		c, err := rc.ToClient()
		if err != nil {
			rejected = append(rejected, Rejected{Index: i, Kind: "client", Reason: err.Error()})
			continue
		}
		out.NewClients = append(out.NewClients, c)
	}
	return out, rejected
}

// ToPayment validates rp and converts it. Origin is left for the caller to tag.
func (rp RawPayment) ToPayment() (ledger.Payment, error) {
	if err := validate.Struct(rp); err != nil {
		return ledger.Payment{}, validationError(err)
	}
	paidOn, err := ledger.ParseDate(rp.PaidOn)
	if err != nil {
		return ledger.Payment{}, err
	}
	return ledger.Payment{
		ClientID: rp.ClientID,
		Month:    rp.Month,
		Year:     rp.Year,
		Amount:   decimal.NewFromFloat(rp.Amount).Round(2),
		PaidOn:   paidOn,
	}, nil
}

// ToClient validates rc and converts it.
func (rc RawClient) ToClient() (ledger.Client, error) {
	if err := validate.Struct(rc); err != nil {
		return ledger.Client{}, validationError(err)
	}
	start, err := ledger.ParseYearMonth(rc.BillingStart)
	if err != nil {
		return ledger.Client{}, err
	}
	return ledger.Client{ID: rc.ID, Name: rc.Name, BillingStart: start}, nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return errors.NewValidationError(fe.Field(), fe.Value(), fmt.Sprintf("failed %q check", fe.Tag()))
	}
	return errors.WrapValidation("", err)
}
