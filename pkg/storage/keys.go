package storage

import "fmt"

// Key schema:
//
//	acc:<accountID>      → Account
//	led:<seq, 20 digits> → LedgerEntry
//	pos:<accountID>      → []Position (the whole open-set)
//
// Sequences are zero-padded so lexicographic order is numeric order.
const (
	prefixAccount  = "acc:"
	prefixLedger   = "led:"
	prefixPosition = "pos:"
)

func accountKey(id string) []byte {
	return []byte(prefixAccount + id)
}

func ledgerKey(seq int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixLedger, seq))
}

func positionKey(accountID string) []byte {
	return []byte(prefixPosition + accountID)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
