package catalogservice

import "errors"

var (
	// ErrSubjectNotFound возвращается, когда предмет не найден в каталоге
	ErrSubjectNotFound = errors.New("catalogservice client: subject not found")

	// ErrPackageNotFound возвращается, когда пакет занятий не найден
	ErrPackageNotFound = errors.New("catalogservice client: package not found")

	// ErrCurriculumNotFound возвращается, когда программа обучения не найдена
	ErrCurriculumNotFound = errors.New("catalogservice client: curriculum not found")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("catalogservice client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от сервиса
	ErrInvalidResponse = errors.New("catalogservice client: invalid response")
)
