package domain

import "errors"

var (
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrTimeoutNotFound      = errors.New("timeout not found")
	ErrConfigNotFound       = errors.New("config not found")
	ErrTokenNotFound        = errors.New("token not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)
