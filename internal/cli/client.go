package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// SagaResponse — определение саги из API.
type SagaResponse struct {
	Name  string   `json:"name"`
	Steps []string `json:"steps"`
}

// WaitResponse — условие ожидания execution.
type WaitResponse struct {
	EventType string `json:"event_type"`
	Deadline  string `json:"deadline"`
}

// ExecutionResponse — execution из API.
type ExecutionResponse struct {
	ID             string         `json:"id"`
	Saga           string         `json:"saga"`
	Status         string         `json:"status"`
	StepIndex      int            `json:"step_index"`
	Context        map[string]any `json:"context,omitempty"`
	Wait           *WaitResponse  `json:"wait,omitempty"`
	PendingCancel  bool           `json:"pending_cancel,omitempty"`
	FailedStep     string         `json:"failed_step,omitempty"`
	Error          string         `json:"error,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	Version        int64          `json:"version"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
}

// StepRecordResponse — исход шага из API.
type StepRecordResponse struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts,omitempty"`
}

// --- Request types ---

// StartExecutionRequest — запуск саги.
type StartExecutionRequest struct {
	Input          map[string]any `json:"input,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// EventRequest — внешнее событие для WAITING execution.
type EventRequest struct {
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// ListExecutionsOpts — параметры фильтрации executions.
type ListExecutionsOpts struct {
	Saga   string
	Status string
	Limit  int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Orkestra API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Sagas ---

// ListSagas возвращает все зарегистрированные саги.
func (c *Client) ListSagas() ([]SagaResponse, error) {
	var sagas []SagaResponse
	err := c.list("/api/v1/sagas", nil, &sagas)
	return sagas, err
}

// GetSaga возвращает сагу по имени.
func (c *Client) GetSaga(name string) (*SagaResponse, error) {
	var saga SagaResponse
	err := c.get("/api/v1/sagas/"+name, &saga)
	return &saga, err
}

// --- Executions ---

// ListExecutions возвращает список executions с фильтрацией.
func (c *Client) ListExecutions(opts ListExecutionsOpts) ([]ExecutionResponse, error) {
	params := url.Values{}
	if opts.Saga != "" {
		params.Set("saga", opts.Saga)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var execs []ExecutionResponse
	err := c.list("/api/v1/executions", params, &execs)
	return execs, err
}

// StartExecution запускает новый execution саги.
func (c *Client) StartExecution(saga string, req StartExecutionRequest) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.post("/api/v1/sagas/"+saga+"/executions", req, &exec)
	return &exec, err
}

// GetExecution возвращает execution по ID.
func (c *Client) GetExecution(id string) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.get("/api/v1/executions/"+id, &exec)
	return &exec, err
}

// ListSteps возвращает исходы шагов execution.
func (c *Client) ListSteps(executionID string) ([]StepRecordResponse, error) {
	var steps []StepRecordResponse
	err := c.list("/api/v1/executions/"+executionID+"/steps", nil, &steps)
	return steps, err
}

// SubmitEvent доставляет внешнее событие в WAITING execution.
func (c *Client) SubmitEvent(executionID string, req EventRequest) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.post("/api/v1/executions/"+executionID+"/events", req, &exec)
	return &exec, err
}

// CancelExecution запрашивает отмену execution.
func (c *Client) CancelExecution(id string) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.post("/api/v1/executions/"+id+"/cancel", nil, &exec)
	return &exec, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
