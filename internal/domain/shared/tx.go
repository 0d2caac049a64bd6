package shared

import "context"

// TxManager runs a function inside one database transaction. Repository
// calls made with the context passed to fn join that transaction; when fn
// returns an error everything rolls back. Outside a TxManager each
// repository call manages its own transaction.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
