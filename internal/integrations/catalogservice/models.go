package catalogservice

// Subject предмет из каталога
type Subject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Package пакет занятий, купленный учеником
type Package struct {
	ID        int64  `json:"id"`
	SubjectID int64  `json:"subject_id"`
	Name      string `json:"name"`
}

// Curriculum программа обучения по предмету
type Curriculum struct {
	ID        int64  `json:"id"`
	SubjectID int64  `json:"subject_id"`
	Name      string `json:"name"`
}

// ErrorResponse модель ошибки от CatalogService
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
