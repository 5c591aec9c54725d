package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"scorekeeper/core"
)

// Page mirrors the JSON page returned by the history/page route.
type Page struct {
	Records     []core.Record `json:"records"`
	Total       int           `json:"total"`
	CurrentPage int           `json:"currentPage"`
	TotalPages  int           `json:"totalPages"`
	HasNext     bool          `json:"hasNext"`
	HasPrev     bool          `json:"hasPrev"`
}

// PageQuery selects one page of history. Zero values fall back to server defaults;
// nil filter fields leave that bound open.
type PageQuery struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
	Completed *bool
	From      *time.Time
	To        *time.Time
	MinScore  *float64
	MaxScore  *float64
}

// Stats mirrors the per-partition statistics.
type Stats struct {
	TotalGames     int      `json:"totalGames"`
	CompletedGames int      `json:"completedGames"`
	BestScore      *float64 `json:"bestScore"`
	AverageScore   *float64 `json:"averageScore"`
	WorstScore     *float64 `json:"worstScore"`
	TotalTime      int64    `json:"totalTime"`
	AverageTime    *float64 `json:"averageTime"`
	TotalMoves     int      `json:"totalMoves"`
	AverageMoves   *float64 `json:"averageMoves"`
	Recent5Avg     *float64 `json:"recent5Avg"`
	Recent10Avg    *float64 `json:"recent10Avg"`
}

// Best is the answer of the best route. Score is nil when Found is false.
type Best struct {
	Score *float64 `json:"score"`
	Found bool     `json:"found"`
}

type CategoryUsage struct {
	Keys  int `json:"keys"`
	Bytes int `json:"bytes"`
}

// StorageInfo mirrors the storage usage report.
type StorageInfo struct {
	History    CategoryUsage    `json:"history"`
	Best       CategoryUsage    `json:"best"`
	Legacy     CategoryUsage    `json:"legacy"`
	Other      CategoryUsage    `json:"other"`
	TotalBytes int              `json:"totalBytes"`
	Partitions []core.Partition `json:"partitions"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// APIError is the error body the server returns with a 4xx/5xx status.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed: status %d", e.Status)
	}
	return fmt.Sprintf("request failed: status %d: %s: %s", e.Status, e.Code, e.Message)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(body, apiErr)
	return apiErr
}

func decodeJSON(resp *http.Response, target any) error {
	if err := checkStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

var (
	// ErrEmptyPartition is returned when game type or difficulty is empty.
	ErrEmptyPartition = errors.New("game type and difficulty are required")
	// ErrEmptyRecordID is returned when a record id is empty.
	ErrEmptyRecordID = errors.New("record id is required")
)
