// reqid переносит идентификатор запроса (X-Request-Id) через context.Context.
package reqid

import "context"

type ctxKey struct{}

// Into кладёт id запроса в контекст.
func Into(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From возвращает id запроса или пустую строку.
func From(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
