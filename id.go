package tribunal

import "github.com/xraph/tribunal/id"

// ID is the primary identifier type for all Tribunal entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
