package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

type EventType string

const (
	EventPlanSaved          EventType = "plan.saved"
	EventReportSaved        EventType = "report.saved"
	EventReportDeleted      EventType = "report.deleted"
	EventWithdrawalsChanged EventType = "withdrawals.changed"
	EventSettingsSaved      EventType = "settings.saved"
)

var ErrInvalidEvent = errors.New("invalid budget event")

// BudgetEvent is a lightweight change notification. The worker reloads the
// user's data from storage, so only the coordinates travel on the wire.
type BudgetEvent struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	Year      int       `json:"year,omitempty"`
	Month     int       `json:"month,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBudgetEvent(t EventType, userID string, year, month int) *BudgetEvent {
	return &BudgetEvent{
		Type:      t,
		UserID:    userID,
		Year:      year,
		Month:     month,
		Timestamp: time.Now(),
	}
}

func (e *BudgetEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// BudgetEventFromJSON decodes and checks an event body.
func BudgetEventFromJSON(data []byte) (*BudgetEvent, error) {
	var e BudgetEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.UserID == "" || e.Type == "" {
		return nil, ErrInvalidEvent
	}
	return &e, nil
}

// IsReportEvent reports whether the event concerns one month's report.
func (e *BudgetEvent) IsReportEvent() bool {
	return e.Type == EventReportSaved || e.Type == EventReportDeleted
}
