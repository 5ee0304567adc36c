package reconcile

import "github.com/agentstation/concilia/pkg/ledger"

// Authority ranks payment origins. Higher authority wins a conflict.
type Authority int

const (
	AuthorityUnknown   Authority = 0
	AuthorityAutomated Authority = 1
	AuthorityManual    Authority = 2
)

// AuthorityOf returns the authority of an origin.
func AuthorityOf(o ledger.Origin) Authority {
	switch o {
	case ledger.OriginManual:
		return AuthorityManual
	case ledger.OriginAutomated:
		return AuthorityAutomated
	default:
		return AuthorityUnknown
	}
}

// Replaceable reports whether an imported payment may overwrite existing.
// Only manual records are protected.
func Replaceable(existing ledger.Payment) bool {
	return AuthorityOf(existing.Origin) < AuthorityManual
}
