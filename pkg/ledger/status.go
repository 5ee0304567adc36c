package ledger

// Status is what a cell shows.
type Status string

const (
	// StatusLocked is a cell before the client's billing start.
	StatusLocked Status = "locked"
	// StatusPaidManual is a cell with a manual payment.
	StatusPaidManual Status = "paid_manual"
	// StatusPaidAutomated is a cell with an extracted payment.
	StatusPaidAutomated Status = "paid_automated"
	// StatusPending is an eligible cell without a payment.
	StatusPending Status = "pending"
)

// Paid reports whether the status carries a payment.
func (s Status) Paid() bool {
	return s == StatusPaidManual || s == StatusPaidAutomated
}

// ResolveStatus maps a cell to its status. It expects at most one payment
// per cell in payments and uses the first match.
func ResolveStatus(client Client, month, year int, payments []Payment) Status {
	if !IsEligible(client, month, year) {
		return StatusLocked
	}
	i := findPayment(payments, Cell{ClientID: client.ID, Month: month, Year: year})
	if i < 0 {
		return StatusPending
	}
	if payments[i].Origin == OriginManual {
		return StatusPaidManual
	}
	return StatusPaidAutomated
}

// Row is one client's statuses for the twelve months of a year.
type Row struct {
	Client   Client    `json:"client"`
	Statuses []Status  `json:"statuses"`
	Payments []Payment `json:"payments,omitempty"`
}

// Grid is the status of every cell of a year.
type Grid struct {
	Year int   `json:"year"`
	Rows []Row `json:"rows"`
}

// BuildGrid resolves the status of all twelve months of year for every client.
func BuildGrid(state State, year int) Grid {
	byClient := make(map[string][]Payment)
	for _, p := range state.Payments {
		if p.Year == year {
			byClient[p.ClientID] = append(byClient[p.ClientID], p)
		}
	}

	grid := Grid{Year: year, Rows: make([]Row, 0, len(state.Clients))}
	for _, c := range state.Clients {
		row := Row{Client: c, Statuses: make([]Status, 12), Payments: byClient[c.ID]}
		for m := 1; m <= 12; m++ {
			row.Statuses[m-1] = ResolveStatus(c, m, year, row.Payments)
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid
}

// Counts tallies the statuses of the grid.
func (g Grid) Counts() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, r := range g.Rows {
		for _, s := range r.Statuses {
			counts[s]++
		}
	}
	return counts
}
