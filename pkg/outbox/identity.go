package outbox

import (
	"github.com/google/uuid"

	"github.com/forecourtlabs/forecourt-backend/pkg/enums"
)

// opNamespace seeds deterministic operation identifiers. Deriving the id
// from the logical mutation (collection + document + op type) means a retry
// of the same enqueue produces the same id, and the remote store can treat
// repeated deliveries of one id as a no-op.
var opNamespace = uuid.MustParse("6ba7b812-9dad-11d1-80b4-00c04fd430c8")

// OperationID derives the idempotent identifier for a logical mutation.
func OperationID(collection enums.SyncCollection, documentID uuid.UUID, opType enums.SyncOperationType) uuid.UUID {
	seed := string(collection) + "|" + documentID.String() + "|" + string(opType)
	return uuid.NewSHA1(opNamespace, []byte(seed))
}
