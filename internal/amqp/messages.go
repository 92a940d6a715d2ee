package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseCreatedMessage notifies the export worker that a new expense
// landed. It carries only identifiers; the worker fetches the full
// expense and its splits from the database.
type ExpenseCreatedMessage struct {
	ExpenseID int64     `json:"expense_id"`
	GroupID   int64     `json:"group_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseCreatedMessage(expenseID, groupID int64) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		ExpenseID: expenseID,
		GroupID:   groupID,
		Version:   1,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseCreatedMessageFromJSON(data []byte) (*ExpenseCreatedMessage, error) {
	var msg ExpenseCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
