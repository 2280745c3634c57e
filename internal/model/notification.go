package model

import "github.com/google/uuid"

// NotificationMessage is one locale variant of a notification.
type NotificationMessage struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// NotificationIntent is handed to the external delivery channel. Locale is the
// recipient's preferred variant; Messages carries all rendered variants.
type NotificationIntent struct {
	RecipientUserID uuid.UUID                      `json:"recipient_user_id"`
	TemplateKey     string                         `json:"template_key"`
	Locale          string                         `json:"locale"`
	Messages        map[string]NotificationMessage `json:"messages"`
	Metadata        JSONMap                        `json:"metadata"`
}
