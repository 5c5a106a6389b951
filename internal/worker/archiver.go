package worker

import "context"

// BookingArchiver переводит прошедшие бронирования в archived
type BookingArchiver interface {
	ArchiveExpired(ctx context.Context) (int64, error)
}

// Archiver периодическая архивация прошедших бронирований
type Archiver struct {
	bookings BookingArchiver
}

func NewArchiver(bookings BookingArchiver) *Archiver {
	return &Archiver{bookings: bookings}
}

func (a *Archiver) Name() string { return "archiver" }

func (a *Archiver) Run(ctx context.Context) error {
	_, err := a.bookings.ArchiveExpired(ctx)
	return err
}
