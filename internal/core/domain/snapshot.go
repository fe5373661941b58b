package domain

// Snapshot is the complete cart scheduled for one durable write.
type Snapshot struct {
	Key     string
	Version int64 // strictly increasing per store
	Items   Cart
}
