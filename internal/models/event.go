package models

// Event operations published on the transactions topic.
const (
	OperationCreated = "transaction.created"
	OperationUpdated = "transaction.updated"
	OperationDeleted = "transaction.deleted"
)

// TransactionEvent describes a change to the transaction collection.
type TransactionEvent struct {
	EventID       string       `json:"event_id"`              // EventID is a unique identifier for the event.
	Timestamp     int64        `json:"timestamp"`             // Timestamp is the Unix time (in seconds) of the change.
	Operation     string       `json:"operation"`             // Operation is one of the Operation* constants.
	TransactionID string       `json:"transaction_id"`        // TransactionID identifies the changed transaction.
	Transaction   *Transaction `json:"transaction,omitempty"` // Transaction is the state after the change; nil on delete.
}
