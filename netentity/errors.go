package netentity

import "github.com/rotisserie/eris"

var (
	// ErrTemplateNotRegistered is returned when a spawn names a template the
	// catalog does not know. The host cannot render an unknown entity type.
	ErrTemplateNotRegistered = eris.New("template not registered")

	// ErrDuplicateTemplate is returned when two templates share an id.
	ErrDuplicateTemplate = eris.New("template already registered")

	// ErrDuplicateComponentIndex is returned when more than one custom
	// component claims the same index within a template.
	ErrDuplicateComponentIndex = eris.New("more than one custom component registered for index")

	// ErrReservedComponentIndex is returned for a custom component index that
	// is negative or collides with the position or rotation key.
	ErrReservedComponentIndex = eris.New("custom component index is reserved")

	// ErrPersistentNotImplemented is returned for a first-sync of a persistent
	// entity the registry has not seen. Buffering such updates until the host
	// spawns the entity is not implemented.
	ErrPersistentNotImplemented = eris.New("first sync for unknown persistent entity is not implemented")

	// ErrStaleUpdate is returned for a snapshot older than the record's
	// lastOwnerTime.
	ErrStaleUpdate = eris.New("update older than last owner time")

	// ErrOwnerMismatch is returned for a snapshot from a client that does not
	// own the entity. Ownership transfer is not supported.
	ErrOwnerMismatch = eris.New("update owner does not match entity owner")

	// ErrEntityExists is returned when a record id is already registered.
	ErrEntityExists = eris.New("entity already registered")
)
