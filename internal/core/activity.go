package core

import "time"

// ActivityKind names a user action recorded in the activity log.
type ActivityKind string

const (
	ActivityLogin             ActivityKind = "login"
	ActivityLogout            ActivityKind = "logout"
	ActivityRegister          ActivityKind = "register"
	ActivityTransactionCreate ActivityKind = "transaction.create"
	ActivityTransactionUpdate ActivityKind = "transaction.update"
	ActivityTransactionDelete ActivityKind = "transaction.delete"
	ActivityBudgetCreate      ActivityKind = "budget.create"
	ActivityCategoryCreate    ActivityKind = "category.create"
)

var activityLabels = map[ActivityKind]string{
	ActivityLogin:             "Signed in",
	ActivityLogout:            "Signed out",
	ActivityRegister:          "Created account",
	ActivityTransactionCreate: "Added transaction",
	ActivityTransactionUpdate: "Edited transaction",
	ActivityTransactionDelete: "Deleted transaction",
	ActivityBudgetCreate:      "Added budget",
	ActivityCategoryCreate:    "Added category",
}

// Label is the human readable form of the kind.
func (k ActivityKind) Label() string {
	if l, ok := activityLabels[k]; ok {
		return l
	}
	return string(k)
}

// ActivityEvent is one entry of the activity log. ID is a UUID assigned when
// the event is created so that redelivered messages are stored once.
type ActivityEvent struct {
	ID         string       `json:"id"`
	Kind       ActivityKind `json:"kind"`
	UserID     int64        `json:"user_id"`
	Username   string       `json:"username"`
	ResourceID int64        `json:"resource_id,omitempty"`
	Summary    string       `json:"summary,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}
