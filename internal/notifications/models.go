package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NotificationType names the customer-facing queue message
type NotificationType string

const (
	NotificationTypeQueueConfirmation NotificationType = "QUEUE_CONFIRMATION"
	NotificationTypeQueueUpdate       NotificationType = "QUEUE_UPDATE"
	NotificationTypeTableReady        NotificationType = "TABLE_READY"
	NotificationTypeQueueCancellation NotificationType = "QUEUE_CANCELLATION"
)

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "LOW"
	NotificationPriorityMedium NotificationPriority = "MEDIUM"
	NotificationPriorityHigh   NotificationPriority = "HIGH"
)

// QueueNotification is the message the delivery service consumes from Kafka
type QueueNotification struct {
	ID       uuid.UUID            `json:"id"`
	Type     NotificationType     `json:"type"`
	Priority NotificationPriority `json:"priority"`

	// Recipient
	EntryID      uuid.UUID `json:"entry_id"`
	OutletID     uuid.UUID `json:"outlet_id"`
	CustomerName string    `json:"customer_name"`
	Phone        string    `json:"phone,omitempty"`

	// Queue state at send time
	Code                 string   `json:"code"`
	PartySize            int      `json:"party_size"`
	Position             int      `json:"position"`
	EstimatedWaitMinutes int      `json:"estimated_wait_minutes"`
	Tables               []string `json:"tables,omitempty"`
	Reason               string   `json:"reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type NotificationBuilder struct {
	notification *QueueNotification
}

func NewNotificationBuilder() *NotificationBuilder {
	return &NotificationBuilder{
		notification: &QueueNotification{
			ID:        uuid.New(),
			CreatedAt: time.Now().UTC(),
		},
	}
}

func (nb *NotificationBuilder) WithType(notType NotificationType) *NotificationBuilder {
	nb.notification.Type = notType
	nb.notification.Priority = GetDefaultPriority(notType)
	return nb
}

// WithEntry copies the recipient and queue state of an entry
func (nb *NotificationBuilder) WithEntry(entryID, outletID uuid.UUID, name, phone, code string, partySize, position, estimate int) *NotificationBuilder {
	n := nb.notification
	n.EntryID, n.OutletID = entryID, outletID
	n.CustomerName, n.Phone = name, phone
	n.Code, n.PartySize = code, partySize
	n.Position, n.EstimatedWaitMinutes = position, estimate
	return nb
}

func (nb *NotificationBuilder) WithTables(tables []string) *NotificationBuilder {
	nb.notification.Tables = tables
	return nb
}

func (nb *NotificationBuilder) WithReason(reason string) *NotificationBuilder {
	nb.notification.Reason = reason
	return nb
}

func (nb *NotificationBuilder) Build() *QueueNotification {
	return nb.notification
}

func GetDefaultPriority(notType NotificationType) NotificationPriority {
	switch notType {
	case NotificationTypeTableReady:
		return NotificationPriorityHigh
	case NotificationTypeQueueUpdate:
		return NotificationPriorityLow
	default:
		return NotificationPriorityMedium
	}
}

// GetPartitionKey keeps every message of one party on one partition, in order
func (n *QueueNotification) GetPartitionKey() string {
	return n.EntryID.String()
}

func (n *QueueNotification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}
