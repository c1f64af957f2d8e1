package app

import "errors"

var (
	ErrEmptyMessages        = errors.New("messages are required")
	ErrEmptyQuery           = errors.New("query is required")
	ErrConversationNotFound = errors.New("conversation not found")
)
