package domain

// RoutingKey is the message-group discriminator selecting the event variant
// a message body encodes.
type RoutingKey string

const (
	RoutingKeyStoreCreate     RoutingKey = "store-create-event"
	RoutingKeyStoreUpdate     RoutingKey = "store-update-event"
	RoutingKeyStoreDeactivate RoutingKey = "store-deactivate-event"
)

// IsValid returns true if the routing key names a known event.
func (k RoutingKey) IsValid() bool {
	switch k {
	case RoutingKeyStoreCreate, RoutingKeyStoreUpdate, RoutingKeyStoreDeactivate:
		return true
	}
	return false
}

// StoreEvent is a decoded store lifecycle event. The set of implementations
// is closed: only the variants in this package satisfy it.
type StoreEvent interface {
	// StoreID is the upstream id of the store the event targets.
	StoreID() string

	// RoutingKey is the message group the event travels on.
	RoutingKey() RoutingKey

	isStoreEvent()
}

// StoreCreated announces a new store.
type StoreCreated struct {
	ID              string  `json:"id"`
	DisplaySequence int64   `json:"s_id"`
	Name            string  `json:"name"`
	Alias           *string `json:"alias"`
	CompanyID       string  `json:"company_id"`
}

// StoreUpdated renames a store or changes its alias.
type StoreUpdated struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Alias *string `json:"alias"`
}

// StoreDeactivated switches a store off.
type StoreDeactivated struct {
	ID string `json:"id"`
}

func (e *StoreCreated) StoreID() string     { return e.ID }
func (e *StoreUpdated) StoreID() string     { return e.ID }
func (e *StoreDeactivated) StoreID() string { return e.ID }

func (e *StoreCreated) RoutingKey() RoutingKey     { return RoutingKeyStoreCreate }
func (e *StoreUpdated) RoutingKey() RoutingKey     { return RoutingKeyStoreUpdate }
func (e *StoreDeactivated) RoutingKey() RoutingKey { return RoutingKeyStoreDeactivate }

func (*StoreCreated) isStoreEvent()     {}
func (*StoreUpdated) isStoreEvent()     {}
func (*StoreDeactivated) isStoreEvent() {}

// ToStore builds the row a create event inserts.
func (e *StoreCreated) ToStore() *Store {
	return &Store{
		ID:              e.ID,
		DisplaySequence: e.DisplaySequence,
		Name:            e.Name,
		Alias:           e.Alias,
		CompanyID:       e.CompanyID,
	}
}
