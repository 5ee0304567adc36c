package store

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/agentstation/concilia/pkg/errors"
	"github.com/agentstation/concilia/pkg/ledger"
)

// The persisted document keeps the field names and origin values of the
// first release of the ledger, so existing blobs keep loading.

type persistedState struct {
	Clients  []persistedClient  `json:"clientes"`
	Payments []persistedPayment `json:"pagamentos"`
}

type persistedClient struct {
	ID           string `json:"id"`
	Name         string `json:"nome"`
	BillingStart string `json:"inicioCobranca"`
}

type persistedPayment struct {
	ClientID string      `json:"clienteId"`
	Month    int         `json:"mes"`
	Year     int         `json:"ano"`
	PaidOn   string      `json:"dataPagamento"`
	Amount   json.Number `json:"valor"`
	Origin   string      `json:"origem"`
}

const persistedAutomated = "ia"

// Encode serializes state in the persisted format.
func Encode(state ledger.State) ([]byte, error) {
	doc := persistedState{
		Clients:  make([]persistedClient, 0, len(state.Clients)),
		Payments: make([]persistedPayment, 0, len(state.Payments)),
	}
	for _, c := range state.Clients {
		doc.Clients = append(doc.Clients, persistedClient{
			ID:           c.ID,
			Name:         c.Name,
			BillingStart: c.BillingStart.String(),
		})
	}
	for _, p := range state.Payments {
		doc.Payments = append(doc.Payments, persistedPayment{
			ClientID: p.ClientID,
			Month:    p.Month,
			Year:     p.Year,
			PaidOn:   p.PaidOn.String(),
			Amount:   json.Number(p.Amount.String()),
			Origin:   encodeOrigin(p.Origin),
		})
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	return data, nil
}

// Issue is a field of an otherwise valid document that could not be
// parsed and was decoded as its zero value.
type Issue struct {
	Record string
	Field  string
	Value  string
}

// Decode parses the persisted format. Malformed dates, billing starts and
// amounts inside an otherwise valid document are kept as zero values and
// reported as issues.
func Decode(data []byte) (ledger.State, []Issue, error) {
	var doc persistedState
	if err := json.Unmarshal(data, &doc); err != nil {
		return ledger.State{}, nil, errors.WrapParse("json", "", err)
	}

	var issues []Issue
	state := ledger.State{
		Clients:  make([]ledger.Client, 0, len(doc.Clients)),
		Payments: make([]ledger.Payment, 0, len(doc.Payments)),
	}
	for _, c := range doc.Clients {
		start, err := ledger.ParseYearMonth(c.BillingStart)
		if err != nil {
			issues = append(issues, Issue{Record: "client " + c.ID, Field: "inicioCobranca", Value: c.BillingStart})
		}
		state.Clients = append(state.Clients, ledger.Client{
			ID:           c.ID,
			Name:         c.Name,
			BillingStart: start,
		})
	}
	for _, p := range doc.Payments {
		cell := ledger.Cell{ClientID: p.ClientID, Month: p.Month, Year: p.Year}.String()
		paidOn, err := ledger.ParseDate(p.PaidOn)
		if err != nil {
			issues = append(issues, Issue{Record: "payment " + cell, Field: "dataPagamento", Value: p.PaidOn})
		}
		amount := decimal.Zero
		if p.Amount != "" {
			if d, err := decimal.NewFromString(p.Amount.String()); err == nil {
				amount = d
			} else {
				issues = append(issues, Issue{Record: "payment " + cell, Field: "valor", Value: p.Amount.String()})
			}
		}
		state.Payments = append(state.Payments, ledger.Payment{
			ClientID: p.ClientID,
			Month:    p.Month,
			Year:     p.Year,
			Amount:   amount,
			PaidOn:   paidOn,
			Origin:   decodeOrigin(p.Origin),
		})
	}
	return state, issues, nil
}

func encodeOrigin(o ledger.Origin) string {
	if o == ledger.OriginAutomated {
		return persistedAutomated
	}
	return string(o)
}

func decodeOrigin(s string) ledger.Origin {
	if s == persistedAutomated {
		return ledger.OriginAutomated
	}
	return ledger.Origin(s)
}
