package catalogservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Logger interface {
	Info(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client клиент для работы с CatalogService (предметы, пакеты, программы)
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента CatalogService
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// GetSubject получает предмет по ID
func (c *Client) GetSubject(ctx context.Context, subjectID int64) (*Subject, error) {
	var subject Subject
	url := fmt.Sprintf("%s/internal/subjects/%d", c.baseURL, subjectID)
	if err := c.get(ctx, url, ErrSubjectNotFound, &subject); err != nil {
		return nil, err
	}
	return &subject, nil
}

// GetPackage получает пакет занятий по ID
func (c *Client) GetPackage(ctx context.Context, packageID int64) (*Package, error) {
	var pkg Package
	url := fmt.Sprintf("%s/internal/packages/%d", c.baseURL, packageID)
	if err := c.get(ctx, url, ErrPackageNotFound, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// GetCurriculum получает программу обучения по ID
func (c *Client) GetCurriculum(ctx context.Context, curriculumID int64) (*Curriculum, error) {
	var curriculum Curriculum
	url := fmt.Sprintf("%s/internal/curricula/%d", c.baseURL, curriculumID)
	if err := c.get(ctx, url, ErrCurriculumNotFound, &curriculum); err != nil {
		return nil, err
	}
	return &curriculum, nil
}

func (c *Client) get(ctx context.Context, url string, notFound error, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("CatalogService request failed: url=%s, error=%v", url, err)
		return fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	// Обработка статус-кодов
	switch resp.StatusCode {
	case http.StatusOK:
		// Продолжаем обработку
	case http.StatusNotFound:
		return notFound
	case http.StatusBadRequest:
		return fmt.Errorf("%w: invalid id format", ErrInvalidResponse)
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	return nil
}

// IsNotFound возвращает true для ошибок отсутствия сущности в каталоге
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSubjectNotFound) ||
		errors.Is(err, ErrPackageNotFound) ||
		errors.Is(err, ErrCurriculumNotFound)
}
