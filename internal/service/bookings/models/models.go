package models

import (
	"errors"
	"time"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
)

var (
	// ErrInvalidStatus возвращается при некорректном статусе
	ErrInvalidStatus = errors.New("invalid booking status")
)

// Request модели

// GetMyBookingsRequest запрос на получение бронирований вызывающего (по роли)
type GetMyBookingsRequest struct {
	Caller domain.Caller `json:"-"`
	Status *string       `json:"status,omitempty"`
}

// CancelBookingRequest запрос на отмену бронирования
type CancelBookingRequest struct {
	Caller domain.Caller `json:"-"`
	Reason string        `json:"reason"`
}

// Response модели

// BookingResponse ответ с данными бронирования
type BookingResponse struct {
	ID              int64     `json:"id"`
	StudentID       int64     `json:"studentId"`
	SubjectID       int64     `json:"subjectId"`
	PackageID       int64     `json:"packageId"`
	CurriculumID    int64     `json:"curriculumId"`
	RequestedStart  time.Time `json:"requestedStart"`
	RequestedEnd    time.Time `json:"requestedEnd"`
	AssignedTutorID *int64    `json:"assignedTutorId,omitempty"`
	Status          string    `json:"status"`
	Note            *string   `json:"note,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// BookingListResponse ответ со списком бронирований
type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
}

// Методы конвертации

// FromDomainBooking конвертирует domain модель в DTO
func FromDomainBooking(b *domain.Booking) *BookingResponse {
	if b == nil {
		return nil
	}

	return &BookingResponse{
		ID:              b.ID,
		StudentID:       b.StudentID,
		SubjectID:       b.SubjectID,
		PackageID:       b.PackageID,
		CurriculumID:    b.CurriculumID,
		RequestedStart:  b.RequestedStart,
		RequestedEnd:    b.RequestedEnd,
		AssignedTutorID: b.AssignedTutorID,
		Status:          string(b.Status),
		Note:            b.Note,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

// FromDomainBookingList конвертирует список domain моделей в DTO
func FromDomainBookingList(bookings []*domain.Booking) *BookingListResponse {
	resp := &BookingListResponse{
		Bookings: make([]BookingResponse, 0, len(bookings)),
	}

	for _, b := range bookings {
		if dto := FromDomainBooking(b); dto != nil {
			resp.Bookings = append(resp.Bookings, *dto)
		}
	}

	return resp
}

// ToDomainBookingStatus конвертирует строку в domain статус
func ToDomainBookingStatus(status string) (domain.BookingStatus, error) {
	switch domain.BookingStatus(status) {
	case domain.StatusRequested, domain.StatusConfirmed, domain.StatusArchived, domain.StatusCancelled:
		return domain.BookingStatus(status), nil
	}
	return "", ErrInvalidStatus
}
