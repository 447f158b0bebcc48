package handler

// Request DTOs for the courrier endpoints. Parsing stays here; validation
// semantics live in the models and the workflow service.

type createCourrierRequest struct {
	Type      string `json:"type"`
	Subject   string `json:"subject"`
	Sender    string `json:"sender,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Date      string `json:"date,omitempty"`
	Service   string `json:"service,omitempty"`
	Priority  string `json:"priority,omitempty"`
	Notes     string `json:"notes,omitempty"`
	LinkedTo  string `json:"linked_to,omitempty"`
}

type encodeRequest struct {
	Service string `json:"service"`
	Notes   string `json:"notes,omitempty"`
}

type processRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes,omitempty"`
}

type validateRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes,omitempty"`
}

type transferRequest struct {
	ToUserID string `json:"to_user_id"`
	Reason   string `json:"reason,omitempty"`
}

type grantRequest struct {
	Level string `json:"level"`
}

type updateDetailsRequest struct {
	Subject            *string `json:"subject,omitempty"`
	Notes              *string `json:"notes,omitempty"`
	Attachment         *string `json:"attachment,omitempty"`
	Priority           *string `json:"priority,omitempty"`
	ProcessingDeadline *string `json:"processing_deadline,omitempty"`
}
