package corectx

import "github.com/google/uuid"

// ID uniquely identifies a Context for the lifetime of the process. The
// teacher's DI container has no notion of node identity since it has no
// tree; corectx's tree needs one for log correlation and metrics labels.
// Grounded on 2lar-b2's pervasive use of github.com/google/uuid for entity
// identity.
type ID = uuid.UUID

func newContextID() ID {
	return uuid.New()
}
