package entity

import "time"

// Submission is a contact-form payload after trimming.
type Submission struct {
	Email   string
	Name    string
	Message string
}

// DispatchJob is the broker wire format of a submission. It never carries
// an access or refresh token.
type DispatchJob struct {
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Submission returns the job payload as a Submission.
func (j DispatchJob) Submission() Submission {
	return Submission{Email: j.Email, Name: j.Name, Message: j.Message}
}
