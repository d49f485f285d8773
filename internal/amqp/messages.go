package amqp

import (
	"encoding/json"
	"time"
)

// Sync actions carried by InvoiceSyncMessage.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionStatus  = "status"
)

// InvoiceSyncMessage asks the worker to export one invoice to Google Sheets.
// It carries only the ID; the worker loads the current invoice from storage.
type InvoiceSyncMessage struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewInvoiceSyncMessage(id, action string) *InvoiceSyncMessage {
	return &InvoiceSyncMessage{
		ID:        id,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func (m *InvoiceSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func InvoiceSyncMessageFromJSON(data []byte) (*InvoiceSyncMessage, error) {
	var msg InvoiceSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReminderMessage announces an unpaid invoice close to or past its due date.
type ReminderMessage struct {
	InvoiceID    string    `json:"invoice_id"`
	Number       string    `json:"number"`
	CustomerName string    `json:"customer_name"`
	DueDate      string    `json:"due_date"`
	DaysLeft     int       `json:"days_left"`
	Total        string    `json:"total"`
	Timestamp    time.Time `json:"timestamp"`
}

func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
