package history

import "time"

// RecentLimit is the size of the recent-window query.
const RecentLimit = 10

// Record is a single persisted history entry.
// The JSON and BSON field name for ID is "_id", matching the wire format the
// dashboard client already consumes.
type Record struct {
	ID        string    `json:"_id" bson:"_id"`
	Host      string    `json:"host" bson:"host"`
	Topic     string    `json:"topic" bson:"topic"`
	Message   string    `json:"message" bson:"message"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Draft carries the caller-supplied fields of a record before insertion.
// CreatedAt is still in its external string representation.
type Draft struct {
	Host      string `json:"host"`
	Topic     string `json:"topic"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// NewRecord parses the draft's timestamp and builds the record that a backend
// will persist under id. Host, topic and message are copied verbatim.
//
// Returns a CodeValidation error if CreatedAt cannot be parsed.
func NewRecord(id string, d Draft) (Record, error) {
	createdAt, err := ParseTimestamp(d.CreatedAt)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:        id,
		Host:      d.Host,
		Topic:     d.Topic,
		Message:   d.Message,
		CreatedAt: createdAt,
	}, nil
}

// Less reports whether a precedes b in list order, i.e. whether a is
// "more recent". Used by backends that sort in memory and by tests.
func Less(a, b Record) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
