package ledger

// IsEligible reports whether a payment may exist for (month, year): the
// period must not fall before the client's billing start.
func IsEligible(client Client, month, year int) bool {
	return !client.BillingStart.Before(month, year)
}
