package create_booking

import (
	"time"

	"github.com/m04kA/SMC-TutoringService/internal/domain"
	"github.com/m04kA/SMC-TutoringService/internal/service/allocation"
	"github.com/m04kA/SMC-TutoringService/internal/service/bookings/models"
)

// CreateBookingRequest HTTP request model
type CreateBookingRequest struct {
	StudentID    int64   `json:"studentId"`
	SubjectID    int64   `json:"subjectId"`
	PackageID    int64   `json:"packageId"`
	CurriculumID int64   `json:"curriculumId"`
	Start        string  `json:"start"` // RFC3339, "2026-03-03T10:00:00Z"
	End          string  `json:"end"`
	Note         *string `json:"note,omitempty"`
}

// AllocationResponse HTTP response model
type AllocationResponse struct {
	Booking  *models.BookingResponse `json:"booking"`
	Assigned bool                    `json:"assigned"`
	Reason   string                  `json:"reason"`
}

// ToDraft конвертирует HTTP запрос в черновик бронирования
func (r *CreateBookingRequest) ToDraft(caller domain.Caller) (*allocation.Draft, error) {
	start, err := time.Parse(time.RFC3339, r.Start)
	if err != nil {
		return nil, err
	}
	end, err := time.Parse(time.RFC3339, r.End)
	if err != nil {
		return nil, err
	}

	return &allocation.Draft{
		Caller:       caller,
		StudentID:    r.StudentID,
		SubjectID:    r.SubjectID,
		PackageID:    r.PackageID,
		CurriculumID: r.CurriculumID,
		Start:        start,
		End:          end,
		Note:         r.Note,
	}, nil
}

// FromResult конвертирует итог распределения в HTTP response
func FromResult(res *allocation.Result) *AllocationResponse {
	return &AllocationResponse{
		Booking:  models.FromDomainBooking(res.Booking),
		Assigned: res.Assigned,
		Reason:   res.Reason,
	}
}
