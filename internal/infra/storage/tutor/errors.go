package tutor

import "errors"

var (
	// ErrTutorNotFound возвращается, когда преподаватель не найден
	ErrTutorNotFound = errors.New("tutor.repository: tutor not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("tutor.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("tutor.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("tutor.repository: failed to scan row")
)
