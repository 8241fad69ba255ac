package entity

import "errors"

var (
	// Event errors
	ErrEventNotFound    = errors.New("event not found")
	ErrInvalidTimeRange = errors.New("end time must be after start time")

	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Push subscription errors
	ErrSubscriptionNotFound = errors.New("push subscription not found")
	ErrNoSubscriptions      = errors.New("user has no push subscriptions")

	// Reminder errors
	ErrUnknownReminderKind  = errors.New("unknown reminder kind")
	ErrDeliveryFailed       = errors.New("reminder delivery failed")
	ErrStoreUnavailable     = errors.New("reminder store unavailable")
	ErrChannelNotApplicable = errors.New("delivery channel not applicable for recipient")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized access")
)
