package mailer

// EmailJob is a fully rendered message waiting for delivery.
// It is the JSON payload put on the RabbitMQ queue and the unit handled by Pool workers.
// HTML is optional; Text is always set.
type EmailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}
