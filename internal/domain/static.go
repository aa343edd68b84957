package domain

import "errors"

// StaticType tags the category a static lookup entry belongs to.
type StaticType string

const (
	StaticTypeQueueStatus StaticType = "Queue_Status"
	StaticTypeQueueType   StaticType = "Queue_Type"
)

// Well-known static keys seeded at startup.
const (
	QueueStatusOpen   = "Open"
	QueueStatusClosed = "Closed"

	QueueTypeVirtual  = "Virtual"
	QueueTypePhysical = "Physical"
)

// StaticEntry is one row of the static lookup table enumerating valid
// values for queue types and statuses.
type StaticEntry struct {
	Key   string     `json:"key"`
	Value string     `json:"value"`
	Type  StaticType `json:"type"`
}

// ErrStaticEntryNotFound is returned when a static key does not exist.
var ErrStaticEntryNotFound = errors.New("static entry not found")

// DefaultStaticEntries returns the lookup values seeded on every startup.
func DefaultStaticEntries() []StaticEntry {
	return []StaticEntry{
		{Key: QueueStatusOpen, Value: QueueStatusOpen, Type: StaticTypeQueueStatus},
		{Key: QueueStatusClosed, Value: QueueStatusClosed, Type: StaticTypeQueueStatus},
		{Key: QueueTypeVirtual, Value: QueueTypeVirtual, Type: StaticTypeQueueType},
		{Key: QueueTypePhysical, Value: QueueTypePhysical, Type: StaticTypeQueueType},
	}
}
