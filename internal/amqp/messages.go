package amqp

import (
	"encoding/json"
	"time"
)

// Event types carried on the expense queue.
const (
	EventExpenseCreated       = "created"
	EventExpenseStatusChanged = "status_changed"
)

// ExpenseEventMessage notifies the worker that an expense was created or
// transitioned. The worker fetches the full expense from storage when it
// needs more than this.
type ExpenseEventMessage struct {
	Type       string    `json:"type"`
	ExpenseID  string    `json:"expense_id"`
	RoomID     string    `json:"room_id"`
	Status     string    `json:"status"`
	ApproverID string    `json:"approver_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewExpenseEventMessage(eventType, expenseID, roomID, status, approverID string) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		Type:       eventType,
		ExpenseID:  expenseID,
		RoomID:     roomID,
		Status:     status,
		ApproverID: approverID,
		Timestamp:  time.Now(),
	}
}

func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
