package models

import (
	"time"

	"gorm.io/datatypes"
)

/* =============================== Enums ================================== */

// ClientStatus marks whether a client is still served by the office.
type ClientStatus string

const (
	ClientActive   ClientStatus = "ACTIVE"
	ClientInactive ClientStatus = "INACTIVE"
)

// CaseType is the legal area of a case.
type CaseType string

const (
	CaseCivil          CaseType = "CIVIL"
	CaseCriminal       CaseType = "CRIMINAL"
	CaseCommercial     CaseType = "COMMERCIAL"
	CaseFamily         CaseType = "FAMILY"
	CaseAdministrative CaseType = "ADMINISTRATIVE"
	CaseLabor          CaseType = "LABOR"
	CaseOther          CaseType = "OTHER"
)

// CaseStatus is the lifecycle value of a case. Any status may follow any other.
type CaseStatus string

const (
	CaseOpen      CaseStatus = "OPEN"
	CaseClosed    CaseStatus = "CLOSED"
	CaseSuspended CaseStatus = "SUSPENDED"
	CaseAppealed  CaseStatus = "APPEALED"
)

// AppointmentStatus is the lifecycle value of an appointment.
type AppointmentStatus string

const (
	AppointmentScheduled   AppointmentStatus = "SCHEDULED"
	AppointmentCompleted   AppointmentStatus = "COMPLETED"
	AppointmentCancelled   AppointmentStatus = "CANCELLED"
	AppointmentRescheduled AppointmentStatus = "RESCHEDULED"
)

// AppointmentType is the kind of meeting.
type AppointmentType string

const (
	AppointmentConsultation AppointmentType = "consultation"
	AppointmentReview       AppointmentType = "review"
	AppointmentCourt        AppointmentType = "court"
	AppointmentMeeting      AppointmentType = "meeting"
)

type ContractType string

const (
	ContractPowerOfAttorney   ContractType = "POWER_OF_ATTORNEY"
	ContractLegalConsultation ContractType = "LEGAL_CONSULTATION"
	ContractRepresentation    ContractType = "REPRESENTATION"
	ContractOther             ContractType = "OTHER"
)

type ContractStatus string

const (
	ContractDraft      ContractStatus = "DRAFT"
	ContractActive     ContractStatus = "ACTIVE"
	ContractCompleted  ContractStatus = "COMPLETED"
	ContractTerminated ContractStatus = "TERMINATED"
)

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "PENDING"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceOverdue   InvoiceStatus = "OVERDUE"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

type PaymentMethod string

const (
	PayCash         PaymentMethod = "CASH"
	PayBankTransfer PaymentMethod = "BANK_TRANSFER"
	PayCreditCard   PaymentMethod = "CREDIT_CARD"
	PayCheck        PaymentMethod = "CHECK"
	PayOther        PaymentMethod = "OTHER"
)

/* =============================== Entities =============================== */

// Lawyer is the account that signs in and owns the office data.
type Lawyer struct {
	ID           string                      `json:"id"`
	Name         string                      `json:"name"`
	Email        string                      `json:"email"`
	Phone        string                      `json:"phone"`
	Country      string                      `json:"country"`
	WorkArea     string                      `json:"workArea"`
	LicenseNo    string                      `json:"licenseNo"`
	Specialties  datatypes.JSONSlice[string] `json:"specialties"`
	PasswordHash string                      `json:"-"`
	Active       bool                        `json:"active"`
	CreatedAt    time.Time                   `json:"createdAt"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
}

type Client struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`
	NationalID  string       `json:"nationalId"`
	Address     string       `json:"address"`
	DateOfBirth string       `json:"dateOfBirth"`
	Notes       string       `json:"notes"`
	Status      ClientStatus `json:"status"`
	CasesCount  int64        `json:"casesCount"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// ClientOption is the reduced shape used by pickers.
type ClientOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Case keeps both the client reference and a copy of the client's contact
// details, so cases opened for walk-in clients without a record still work.
type Case struct {
	ID          string     `json:"id"`
	CaseNumber  string     `json:"caseNumber"`
	Title       string     `json:"title"`
	CaseType    CaseType   `json:"caseType"`
	Status      CaseStatus `json:"status"`
	ClientID    string     `json:"clientId"`
	ClientName  string     `json:"clientName"`
	ClientPhone string     `json:"clientPhone"`
	ClientEmail string     `json:"clientEmail"`
	LawyerID    string     `json:"lawyerId"`
	LawyerName  string     `json:"lawyerName"`
	Court       string     `json:"court"`
	Opponent    string     `json:"opponent"`
	Description string     `json:"description"`
	StartDate   string     `json:"startDate"`
	EndDate     string     `json:"endDate"`
	NextSession string     `json:"nextSession"`
	Notes       string     `json:"notes"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CaseHistory is an audit entry for a case status change.
type CaseHistory struct {
	ID        string     `json:"id"`
	CaseID    string     `json:"caseId"`
	ActorID   string     `json:"actorId"`
	Action    string     `json:"action"`
	OldStatus CaseStatus `json:"oldStatus"`
	NewStatus CaseStatus `json:"newStatus"`
	Reason    string     `json:"reason"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Appointment struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	ClientID        string            `json:"clientId"`
	ClientName      string            `json:"clientName"`
	LawyerID        string            `json:"lawyerId"`
	AppointmentDate string            `json:"date"`
	AppointmentTime string            `json:"time"`
	Duration        int               `json:"duration"`
	AppointmentType AppointmentType   `json:"type"`
	Status          AppointmentStatus `json:"status"`
	Location        string            `json:"location"`
	Notes           string            `json:"notes"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// Document is the metadata row for a stored file. The bytes live in the
// configured storage backend under StorageKey.
type Document struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	OriginalName string    `json:"originalName"`
	StorageKey   string    `json:"-"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimeType"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	ClientID     string    `json:"clientId"`
	CaseID       string    `json:"caseId"`
	UploadedBy   string    `json:"uploadedBy"`
	UploadedAt   time.Time `json:"uploadedAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Contract struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	ContractType ContractType   `json:"contractType"`
	Status       ContractStatus `json:"status"`
	ClientID     string         `json:"clientId"`
	ClientName   string         `json:"clientName"`
	LawyerID     string         `json:"lawyerId"`
	AmountCents  int64          `json:"amountCents"`
	StartDate    string         `json:"startDate"`
	EndDate      string         `json:"endDate"`
	Description  string         `json:"description"`
	Terms        string         `json:"terms"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Invoice amounts are integer cents; TaxRateBps is the tax rate in basis
// points (1500 = 15%).
type Invoice struct {
	ID            string        `json:"id"`
	InvoiceNumber string        `json:"invoiceNumber"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	ClientID      string        `json:"clientId"`
	ClientName    string        `json:"clientName"`
	CaseID        string        `json:"caseId"`
	LawyerID      string        `json:"lawyerId"`
	AmountCents   int64         `json:"amountCents"`
	TaxRateBps    int64         `json:"taxRateBps"`
	TaxCents      int64         `json:"taxCents"`
	TotalCents    int64         `json:"totalCents"`
	PaidCents     int64         `json:"paidCents"`
	DueDate       string        `json:"dueDate"`
	Status        InvoiceStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type Payment struct {
	ID            string        `json:"id"`
	InvoiceID     string        `json:"invoiceId"`
	AmountCents   int64         `json:"amountCents"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaymentDate   string        `json:"paymentDate"`
	Reference     string        `json:"reference"`
	CreatedAt     time.Time     `json:"createdAt"`
}
