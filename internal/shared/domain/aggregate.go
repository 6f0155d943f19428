package domain

// AggregateRoot is an entity that records the domain events raised since
// it was loaded, for the application layer to publish after persisting.
type AggregateRoot interface {
	Entity
	DomainEvents() []DomainEvent
	AddDomainEvent(event DomainEvent)
	ClearDomainEvents()
}

// BaseAggregateRoot adds the uncommitted-event buffer to BaseEntity.
type BaseAggregateRoot struct {
	BaseEntity
	domainEvents []DomainEvent
}

// NewBaseAggregateRoot returns a fresh aggregate root.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity()}
}

// RehydrateBaseAggregateRoot rebuilds an aggregate root from persisted
// state. Rehydration never replays events, so the buffer starts empty.
func RehydrateBaseAggregateRoot(entity BaseEntity) BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: entity}
}

// DomainEvents returns the events raised since load, oldest first.
func (a *BaseAggregateRoot) DomainEvents() []DomainEvent {
	return a.domainEvents
}

// AddDomainEvent appends an event to the uncommitted buffer.
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// ClearDomainEvents empties the buffer, called after publishing.
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}
