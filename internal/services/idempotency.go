package services

import "context"

// TasksCollection names the task collection in idempotency keys. The HTTP
// layer narrows it per caller before it reaches a store.
const TasksCollection = "tarefas"

// IdempotencyStore records the response produced for a client-supplied
// idempotency key so retries can be answered without repeating the write.
//
// Save is an upsert on (collection, key). There is no compare-and-set: two
// requests racing on a fresh key may both perform the write.
type IdempotencyStore interface {
	Find(ctx context.Context, collection, key string) (body []byte, found bool, err error)
	Save(ctx context.Context, collection, key string, body []byte) error
}
