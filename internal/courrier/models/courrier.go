package models

import (
	"strings"
	"time"

	id "registre/pkg/domain"
	dErrors "registre/pkg/domain-errors"
)

// Type distinguishes the two correspondence flows. Immutable after creation.
type Type string

const (
	TypeIncoming Type = "INCOMING"
	TypeOutgoing Type = "OUTGOING"
)

func (t Type) Valid() bool { return t == TypeIncoming || t == TypeOutgoing }

// RefPrefix is the human-readable reference prefix for the type
// (ENT = entrant, SOR = sortant, following the registry's numbering).
func (t Type) RefPrefix() string {
	if t == TypeIncoming {
		return "ENT"
	}
	return "SOR"
}

// Status is a node in the workflow graph. Transitions only move along the
// edges encoded in the Can/Apply pairs below; ARCHIVED is terminal.
type Status string

const (
	StatusReceived          Status = "RECEIVED"
	StatusDigitized         Status = "DIGITIZED"
	StatusInCircuit         Status = "IN_CIRCUIT"
	StatusPendingValidation Status = "PENDING_VALIDATION"
	StatusValidated         Status = "VALIDATED"
	StatusAnswered          Status = "ANSWERED"
	StatusArchived          Status = "ARCHIVED"
)

// Priority orders treatment urgency.
type Priority string

const (
	PriorityNormal     Priority = "NORMAL"
	PriorityUrgent     Priority = "URGENT"
	PriorityVeryUrgent Priority = "VERY_URGENT"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityUrgent, PriorityVeryUrgent:
		return true
	}
	return false
}

// processingDelay derives the deadline assigned at encoding time.
func (p Priority) processingDelay() time.Duration {
	switch p {
	case PriorityVeryUrgent:
		return 2 * 24 * time.Hour
	case PriorityUrgent:
		return 5 * 24 * time.Hour
	default:
		return 10 * 24 * time.Hour
	}
}

// ProcessAction is the agent's outcome when treating an item in circuit.
type ProcessAction string

const (
	ActionTreated         ProcessAction = "TREATED"
	ActionNeedsValidation ProcessAction = "NEEDS_VALIDATION"
)

func (a ProcessAction) Valid() bool {
	return a == ActionTreated || a == ActionNeedsValidation
}

// Decision is the director's validation verdict.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
	DecisionReturn  Decision = "RETURN"
)

func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject || d == DecisionReturn
}

// Courrier is the central correspondence entity.
//
// Invariants:
//   - Ref is globally unique and never reused.
//   - Status only moves forward along the workflow edges, with the single
//     backward edge PENDING_VALIDATION → IN_CIRCUIT (RETURN decision).
//   - Stage timestamps are set at most once; later transitions never erase
//     an earlier one.
//   - Once ARCHIVED, every mutation fails; the record persists for audit.
//
// Status and stage fields change only through the Can/Apply pairs, called by
// the workflow service inside the store's Execute critical section. The store
// deliberately exposes no raw status update.
type Courrier struct {
	ID   id.CourrierID `json:"id"`
	Ref  string        `json:"ref"`
	Type Type          `json:"type"`

	Subject   string `json:"subject"`
	Sender    string `json:"sender,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	// Date is the business date shown on the document, not a timestamp.
	Date string `json:"date"`

	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
	Service  string   `json:"service,omitempty"`

	ResponsibleUserID *id.UserID `json:"responsible_user_id,omitempty"`

	Attachment string         `json:"attachment,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	LinkedTo   *id.CourrierID `json:"linked_to,omitempty"`

	ReceivedAt  *time.Time `json:"received_at,omitempty"`
	DigitizedAt *time.Time `json:"digitized_at,omitempty"`
	EncodedAt   *time.Time `json:"encoded_at,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	ValidatedAt *time.Time `json:"validated_at,omitempty"`

	DigitizedBy *id.UserID `json:"digitized_by,omitempty"`
	EncodedBy   *id.UserID `json:"encoded_by,omitempty"`
	ProcessedBy *id.UserID `json:"processed_by,omitempty"`
	ValidatedBy *id.UserID `json:"validated_by,omitempty"`

	ProcessingDeadline *time.Time `json:"processing_deadline,omitempty"`

	CreatedBy id.UserID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateAttrs are the caller-supplied fields at registration time.
type CreateAttrs struct {
	Type      Type
	Subject   string
	Sender    string
	Recipient string
	Date      string
	Service   string
	Priority  Priority
	Notes     string
	LinkedTo  *id.CourrierID
}

// NewCourrier validates attrs and builds a record in its initial status:
// RECEIVED for incoming mail, PENDING_VALIDATION for outgoing drafts.
func NewCourrier(courrierID id.CourrierID, ref string, attrs CreateAttrs, createdBy id.UserID, now time.Time) (*Courrier, error) {
	if !attrs.Type.Valid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "courrier type must be INCOMING or OUTGOING")
	}
	if strings.TrimSpace(attrs.Subject) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "subject is required")
	}
	if attrs.Type == TypeIncoming && strings.TrimSpace(attrs.Sender) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sender is required for incoming courrier")
	}
	if attrs.Type == TypeOutgoing && strings.TrimSpace(attrs.Recipient) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "recipient is required for outgoing courrier")
	}
	if attrs.Priority == "" {
		attrs.Priority = PriorityNormal
	}
	if !attrs.Priority.Valid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown priority")
	}

	date := attrs.Date
	if date == "" {
		date = now.Format("2006-01-02")
	}

	c := &Courrier{
		ID:        courrierID,
		Ref:       ref,
		Type:      attrs.Type,
		Subject:   strings.TrimSpace(attrs.Subject),
		Sender:    strings.TrimSpace(attrs.Sender),
		Recipient: strings.TrimSpace(attrs.Recipient),
		Date:      date,
		Priority:  attrs.Priority,
		Service:   strings.TrimSpace(attrs.Service),
		Notes:     attrs.Notes,
		LinkedTo:  attrs.LinkedTo,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch attrs.Type {
	case TypeIncoming:
		c.Status = StatusReceived
		t := now
		c.ReceivedAt = &t
	case TypeOutgoing:
		c.Status = StatusPendingValidation
	}
	return c, nil
}

// Archived reports whether the record reached its terminal status.
func (c *Courrier) Archived() bool { return c.Status == StatusArchived }

// EnsureMutable guards every mutating operation against the terminal status.
func (c *Courrier) EnsureMutable() error {
	if c.Archived() {
		return dErrors.New(dErrors.CodeInvalidState, "courrier is archived")
	}
	return nil
}

// CanDigitize checks the RECEIVED → DIGITIZED edge. Re-invoking past the
// stage fails rather than no-ops: the digitization timestamp is set once.
func (c *Courrier) CanDigitize() error {
	if err := c.EnsureMutable(); err != nil {
		return err
	}
	if c.Type != TypeIncoming {
		return dErrors.New(dErrors.CodeInvalidState, "only incoming courrier is digitized")
	}
	if c.Status != StatusReceived {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot digitize courrier in status %s", c.Status)
	}
	return nil
}

// ApplyDigitize transitions to DIGITIZED and stamps the scan. Call
// CanDigitize first, inside the store's Execute critical section.
func (c *Courrier) ApplyDigitize(actor id.UserID, now time.Time) {
	c.Status = StatusDigitized
	if c.DigitizedAt == nil {
		t := now
		c.DigitizedAt = &t
		c.DigitizedBy = &actor
	}
	if c.Attachment == "" {
		c.Attachment = "scan/" + c.ID.String() + ".pdf"
	}
	c.UpdatedAt = now
}

// CanEncode checks the DIGITIZED → IN_CIRCUIT edge.
func (c *Courrier) CanEncode(service string) error {
	if err := c.EnsureMutable(); err != nil {
		return err
	}
	if c.Status != StatusDigitized {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot encode courrier in status %s", c.Status)
	}
	if strings.TrimSpace(service) == "" {
		return dErrors.New(dErrors.CodeValidation, "service is required at encoding")
	}
	return nil
}

// ApplyEncode routes the item into circuit, assigns the service and derives
// the processing deadline from priority.
func (c *Courrier) ApplyEncode(service, notes string, actor id.UserID, now time.Time) {
	c.Status = StatusInCircuit
	c.Service = strings.TrimSpace(service)
	if notes != "" {
		c.Notes = notes
	}
	if c.EncodedAt == nil {
		t := now
		c.EncodedAt = &t
		c.EncodedBy = &actor
	}
	if c.ProcessingDeadline == nil {
		d := now.Add(c.Priority.processingDelay())
		c.ProcessingDeadline = &d
	}
	c.UpdatedAt = now
}

// CanProcess checks the IN_CIRCUIT → {VALIDATED, PENDING_VALIDATION} edges.
func (c *Courrier) CanProcess(action ProcessAction) error {
	if err := c.EnsureMutable(); err != nil {
		return err
	}
	if !action.Valid() {
		return dErrors.New(dErrors.CodeValidation, "unknown process action")
	}
	if c.Status != StatusInCircuit {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot process courrier in status %s", c.Status)
	}
	return nil
}

// ApplyProcess records the treatment outcome. TREATED goes straight to
// VALIDATED; NEEDS_VALIDATION queues for the director.
func (c *Courrier) ApplyProcess(action ProcessAction, notes string, actor id.UserID, now time.Time) {
	if action == ActionTreated {
		c.Status = StatusValidated
	} else {
		c.Status = StatusPendingValidation
	}
	if notes != "" {
		c.Notes = notes
	}
	if c.ProcessedAt == nil {
		t := now
		c.ProcessedAt = &t
		c.ProcessedBy = &actor
	}
	c.UpdatedAt = now
}

// CanValidate checks the PENDING_VALIDATION edges.
func (c *Courrier) CanValidate(decision Decision) error {
	if err := c.EnsureMutable(); err != nil {
		return err
	}
	if !decision.Valid() {
		return dErrors.New(dErrors.CodeValidation, "unknown validation decision")
	}
	if c.Status != StatusPendingValidation {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot validate courrier in status %s", c.Status)
	}
	return nil
}

// ApplyValidate applies the director's verdict: APPROVE validates, REJECT
// archives, RETURN is the single backward edge to IN_CIRCUIT.
func (c *Courrier) ApplyValidate(decision Decision, notes string, actor id.UserID, now time.Time) {
	switch decision {
	case DecisionApprove:
		c.Status = StatusValidated
	case DecisionReject:
		c.Status = StatusArchived
	case DecisionReturn:
		c.Status = StatusInCircuit
	}
	if notes != "" {
		c.Notes = notes
	}
	if c.ValidatedAt == nil {
		t := now
		c.ValidatedAt = &t
		c.ValidatedBy = &actor
	}
	c.UpdatedAt = now
}

// CanArchive checks the {VALIDATED, ANSWERED} → ARCHIVED edge. ANSWERED is
// reached by the reply-recording flow, never by a direct transition here.
func (c *Courrier) CanArchive() error {
	if err := c.EnsureMutable(); err != nil {
		return err
	}
	if c.Status != StatusValidated && c.Status != StatusAnswered {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot archive courrier in status %s", c.Status)
	}
	return nil
}

// ApplyArchive reaches the terminal status.
func (c *Courrier) ApplyArchive(now time.Time) {
	c.Status = StatusArchived
	c.UpdatedAt = now
}

// CanRecordReply checks that an incoming item can be marked ANSWERED when a
// linked outgoing reply is approved.
func (c *Courrier) CanRecordReply() error {
	if err := c.EnsureMutable(); err != nil {
		return err
	}
	if c.Type != TypeIncoming {
		return dErrors.New(dErrors.CodeInvalidState, "only incoming courrier can be answered")
	}
	if c.Status != StatusValidated {
		return dErrors.Newf(dErrors.CodeInvalidState, "cannot record reply for courrier in status %s", c.Status)
	}
	return nil
}

// ApplyRecordReply marks the incoming item as answered.
func (c *Courrier) ApplyRecordReply(now time.Time) {
	c.Status = StatusAnswered
	c.UpdatedAt = now
}

// SetResponsible reassigns the current owner. Transfers and take-overs go
// through the workflow service so a ledger entry is always written.
func (c *Courrier) SetResponsible(userID id.UserID, now time.Time) {
	u := userID
	c.ResponsibleUserID = &u
	c.UpdatedAt = now
}

// IsResponsible reports whether userID currently owns the item.
func (c *Courrier) IsResponsible(userID id.UserID) bool {
	return c.ResponsibleUserID != nil && *c.ResponsibleUserID == userID
}

// Clone returns a deep copy so store reads never alias the canonical record.
func (c *Courrier) Clone() *Courrier {
	out := *c
	out.ResponsibleUserID = cloneUserID(c.ResponsibleUserID)
	out.LinkedTo = cloneCourrierID(c.LinkedTo)
	out.ReceivedAt = cloneTime(c.ReceivedAt)
	out.DigitizedAt = cloneTime(c.DigitizedAt)
	out.EncodedAt = cloneTime(c.EncodedAt)
	out.ProcessedAt = cloneTime(c.ProcessedAt)
	out.ValidatedAt = cloneTime(c.ValidatedAt)
	out.ProcessingDeadline = cloneTime(c.ProcessingDeadline)
	out.DigitizedBy = cloneUserID(c.DigitizedBy)
	out.EncodedBy = cloneUserID(c.EncodedBy)
	out.ProcessedBy = cloneUserID(c.ProcessedBy)
	out.ValidatedBy = cloneUserID(c.ValidatedBy)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneUserID(u *id.UserID) *id.UserID {
	if u == nil {
		return nil
	}
	v := *u
	return &v
}

func cloneCourrierID(c *id.CourrierID) *id.CourrierID {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}
