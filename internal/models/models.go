package models

import (
	"time"

	"lending-service/internal/calendar"

	"github.com/google/uuid"
)

type Item struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string     `gorm:"type:text;not null"`
	Description   string     `gorm:"type:text"`
	TotalQuantity int32      `gorm:"not null;default:0"`
	OwnerID       *uuid.UUID `gorm:"type:uuid;index"`
	Location      string     `gorm:"type:text"`
	ImageURL      string     `gorm:"type:text"`
	// default в БД задаёт миграция: с default в теге gorm не пишет false
	IsActive bool `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Item) TableName() string {
	return "items"
}

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationApproved  ReservationStatus = "approved"
	ReservationInUse     ReservationStatus = "in_use"
	ReservationRejected  ReservationStatus = "rejected"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationReturned  ReservationStatus = "returned"
)

// ActiveStatuses: статусы, занимающие ёмкость
var ActiveStatuses = []ReservationStatus{ReservationPending, ReservationApproved, ReservationInUse}

func (s ReservationStatus) IsActive() bool {
	switch s {
	case ReservationPending, ReservationApproved, ReservationInUse:
		return true
	}
	return false
}

func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationPending, ReservationApproved, ReservationInUse,
		ReservationRejected, ReservationCancelled, ReservationReturned:
		return true
	}
	return false
}

var transitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:  {ReservationApproved, ReservationRejected, ReservationCancelled},
	ReservationApproved: {ReservationInUse, ReservationCancelled},
	ReservationInUse:    {ReservationReturned},
}

func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Reservation struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID      uuid.UUID         `gorm:"type:uuid;not null;index"`
	Quantity    int32             `gorm:"not null"`
	StartDate   time.Time         `gorm:"type:date;not null"`
	EndDate     time.Time         `gorm:"type:date;not null"`
	Status      ReservationStatus `gorm:"type:text;not null;default:'pending';index"`
	Priority    Priority          `gorm:"type:text;not null;default:'low'"`
	Message     string            `gorm:"type:text"`
	Contact     string            `gorm:"type:text"`
	SubmitterID uuid.UUID         `gorm:"type:uuid;not null;index"`

	Documents []ReservationDocument `gorm:"foreignKey:ReservationID"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Reservation) TableName() string {
	return "reservations"
}

func (r *Reservation) Range() calendar.Range {
	return calendar.Range{Start: calendar.FromTime(r.StartDate), End: calendar.FromTime(r.EndDate)}
}

func (r *Reservation) IsActive() bool { return r.Status.IsActive() }

// BlockedDate: день, снятый с выдачи вручную
type BlockedDate struct {
	ItemID    uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Day       time.Time  `gorm:"type:date;primaryKey"`
	Reason    string     `gorm:"type:text"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (BlockedDate) TableName() string {
	return "blocked_dates"
}

type DocumentKind string

const (
	DocumentLetter  DocumentKind = "letter"
	DocumentValidID DocumentKind = "valid_id"
)

type ReservationDocument struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ReservationID uuid.UUID    `gorm:"type:uuid;not null;index"`
	Kind          DocumentKind `gorm:"type:text;not null"`
	ObjectPath    string       `gorm:"type:text;not null"`
	ContentType   string       `gorm:"type:text"`
	SizeBytes     int64        `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (ReservationDocument) TableName() string {
	return "reservation_documents"
}
