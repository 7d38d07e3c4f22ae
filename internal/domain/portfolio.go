package domain

// Project is one entry of the portfolio showcase.
type Project struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Image       string `json:"img"`
	Description string `json:"desc"`
	Link        string `json:"link"`
}

// ContactSubmission carries the contact form fields. JSON names match the
// form input names used by the email template.
type ContactSubmission struct {
	Name    string `json:"user_name" validate:"required,max=100"`
	Email   string `json:"user_email" validate:"required,email,max=254"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}
