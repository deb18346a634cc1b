package model

import "time"

type BookingStatus string

const (
	StatusBooked    BookingStatus = "booked"
	StatusCancelled BookingStatus = "cancelled"
)

// Booking is a reservation on a provider's calendar. EndTime may be empty on legacy rows.
type Booking struct {
	ID          string
	ProviderID  string
	Date        string
	StartTime   string
	EndTime     string
	Status      BookingStatus
	ClientName  string
	ClientPhone string
	CreatedAt   time.Time
	CancelledAt *time.Time
}

func (b Booking) IsCancelled() bool {
	return b.Status == StatusCancelled
}
