package dto

// CreateReminderRequest is the JSON body for adding a custom reminder to an
// event.
type CreateReminderRequest struct {
	MinutesBefore int `json:"minutes_before" validate:"gte=0"`
}
