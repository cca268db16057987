package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
)

const (
	// txAttempts bounds retries when two checkouts or replays contend on the same document.
	txAttempts = 5
	txTimeout  = 15 * time.Second
)

// TxFunc runs inside a Firestore transaction. Firestore may call it again on contention,
// so it must only touch state through tx.
type TxFunc = func(ctx context.Context, tx *firestore.Transaction) error

// RunTransaction runs fn on client, capping the transaction at txTimeout unless ctx
// already ends sooner.
func RunTransaction(ctx context.Context, client *firestore.Client, fn TxFunc) error {
	if client == nil || fn == nil {
		return WrapError("transaction", errors.New("firestore: transaction needs a client and a function"))
	}
	if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) > txTimeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, txTimeout)
		defer cancel()
	}
	return WrapError("transaction", client.RunTransaction(ctx, fn, firestore.MaxAttempts(txAttempts)))
}
