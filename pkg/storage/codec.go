package storage

import (
	"encoding/json"

	"github.com/uhyunpark/cardbank/pkg/bank"
)

func encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func decode(b []byte, v any) error {
	return json.Unmarshal(b, v)
}

func decodeAccount(b []byte) (*bank.Account, error) {
	var acc bank.Account
	if err := decode(b, &acc); err != nil {
		return nil, err
	}
	if acc.Connections == nil {
		acc.Connections = make(map[string][]bank.Connection)
	}
	if acc.Transactions == nil {
		acc.Transactions = make(map[int64]int64)
	}
	return &acc, nil
}

// clone deep-copies v through the codec so callers never share state with
// the in-memory store.
func clone[T any](v *T) (*T, error) {
	b, err := encode(v)
	if err != nil {
		return nil, err
	}
	var out T
	if err := decode(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
