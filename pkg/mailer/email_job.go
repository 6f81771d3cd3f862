package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for notification
// email. Reset-token mail is sent synchronously and never goes through the
// queue, because its delivery outcome must reach the caller.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "profile_updated", "welcome"
	Data     map[string]any `json:"data,omitempty"`
}
