package inbound

type SubmitRequest struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Credential string `json:"credential"`
	Dispatch   string `json:"dispatch"`
}
