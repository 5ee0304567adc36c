// Package reconcile implements the two state transitions of the ledger:
// the manual toggle of one cell and the merge of an import batch.
//
// Both functions are pure: they take a loaded state and return a new one
// plus a record of what changed. Loading and saving is the caller's job.
//
// Precedence between origins is fixed. A manual payment is never replaced
// by an import; an automated payment is replaced by any newer import and
// becomes manual when a person toggles it.
package reconcile
