package allocation

import "errors"

var (
	// ErrInvalidInput возвращается при некорректных входных данных (ValidationError)
	ErrInvalidInput = errors.New("allocation: invalid input data")

	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("allocation: booking not found")

	// ErrTutorNotFound возвращается, когда преподаватель не найден
	ErrTutorNotFound = errors.New("allocation: tutor not found")

	// ErrTutorProfileNotFound возвращается, когда у аккаунта нет профиля преподавателя
	ErrTutorProfileNotFound = errors.New("allocation: tutor profile not found")

	// ErrStudentNotFound возвращается, когда ученик не найден
	ErrStudentNotFound = errors.New("allocation: student not found")

	// ErrSubjectNotFound возвращается, когда предмет не найден в каталоге
	ErrSubjectNotFound = errors.New("allocation: subject not found")

	// ErrPackageNotFound возвращается, когда пакет занятий не найден
	ErrPackageNotFound = errors.New("allocation: package not found")

	// ErrCurriculumNotFound возвращается, когда программа обучения не найдена
	ErrCurriculumNotFound = errors.New("allocation: curriculum not found")

	// ErrConflict возвращается, когда слот уже занят или бронирование уже назначено.
	// Не фатальная ошибка: вызывающий выбирает другого кандидата или перечитывает список
	ErrConflict = errors.New("allocation: conflict")

	// ErrBookingClosed возвращается для archived/cancelled бронирований
	ErrBookingClosed = errors.New("allocation: booking is closed")

	// ErrNotEligible возвращается, когда преподаватель не ведёт предмет или неактивен
	ErrNotEligible = errors.New("allocation: tutor is not eligible for this booking")

	// ErrAccessDenied возвращается, когда вызывающий не может создавать бронирования для ученика
	ErrAccessDenied = errors.New("allocation: access denied")

	// ErrInternal возвращается при внутренних ошибках
	ErrInternal = errors.New("allocation: internal error")
)
