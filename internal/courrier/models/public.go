package models

// PublicView is the redacted projection served to unauthenticated QR-code
// verification. It must never grow fields beyond these: no sender, recipient,
// notes, attachment or responsibility data leaves the authenticated API.
type PublicView struct {
	Ref     string `json:"ref"`
	Subject string `json:"subject"`
	Type    Type   `json:"type"`
	Status  Status `json:"status"`
	Date    string `json:"date"`
	Service string `json:"service,omitempty"`
}

// Redacted builds the public verification view of the record.
func (c *Courrier) Redacted() PublicView {
	return PublicView{
		Ref:     c.Ref,
		Subject: c.Subject,
		Type:    c.Type,
		Status:  c.Status,
		Date:    c.Date,
		Service: c.Service,
	}
}
