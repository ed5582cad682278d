package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// ApplicationResponse — заявка из API.
type ApplicationResponse struct {
	ID                string `json:"id"`
	FullName          string `json:"fullName"`
	DateOfBirth       string `json:"dateOfBirth"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Profession        string `json:"profession"`
	Address           string `json:"address"`
	IDNumber          string `json:"idNumber"`
	IDType            string `json:"idType"`
	Status            string `json:"status"`
	Summary           string `json:"summary"`
	SubmittedAt       string `json:"submittedAt"`
	ProcessedAt       string `json:"processedAt,omitempty"`
	DocumentGenerated bool   `json:"documentGenerated"`
	DocumentPath      string `json:"documentPath,omitempty"`
}

// DecisionResponse — результат approve/reject.
type DecisionResponse struct {
	Message     string              `json:"message"`
	Application ApplicationResponse `json:"application"`
}

// DocumentStatusResponse — состояние документа.
type DocumentStatusResponse struct {
	ApplicationID string `json:"applicationId"`
	State         string `json:"state"`
	Locator       string `json:"locator,omitempty"`
}

// LoginResponse — токен администратора.
type LoginResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	ExpiresAt string `json:"expiresAt"`
}

// ListApplicationsOpts — параметры фильтрации заявок.
type ListApplicationsOpts struct {
	Status string
	Limit  int
}

// ErrDocumentPending — документ ещё генерируется (API ответил 202).
var ErrDocumentPending = errors.New("document generation in progress, try again shortly")

// APIError — ошибка, которую вернул API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
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

// Client — HTTP-клиент для kycdoc API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient создаёт клиент для API. token может быть пустым (только публичные методы).
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Login входит как администратор и возвращает токен.
func (c *Client) Login(username, password string) (*LoginResponse, error) {
	body := map[string]string{"username": username, "password": password}
	var res LoginResponse
	err := c.post("/api/admin/login", body, &res)
	return &res, err
}

// ListApplications возвращает заявки, новые первыми.
func (c *Client) ListApplications(opts ListApplicationsOpts) ([]ApplicationResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var apps []ApplicationResponse
	err := c.list("/api/admin/applications", params, &apps)
	return apps, err
}

// GetApplication возвращает заявку по ID.
func (c *Client) GetApplication(id string) (*ApplicationResponse, error) {
	var app ApplicationResponse
	err := c.get("/api/admin/applications/"+url.PathEscape(id), &app)
	return &app, err
}

// Approve одобряет заявку.
func (c *Client) Approve(id string) (*DecisionResponse, error) {
	var res DecisionResponse
	err := c.put("/api/admin/applications/"+url.PathEscape(id)+"/approved", nil, &res)
	return &res, err
}

// Reject отклоняет заявку.
func (c *Client) Reject(id string) (*DecisionResponse, error) {
	var res DecisionResponse
	err := c.put("/api/admin/applications/"+url.PathEscape(id)+"/rejected", nil, &res)
	return &res, err
}

// DocumentStatus возвращает состояние документа заявки.
func (c *Client) DocumentStatus(id string) (*DocumentStatusResponse, error) {
	var res DocumentStatusResponse
	err := c.get("/api/admin/applications/"+url.PathEscape(id)+"/document", &res)
	return &res, err
}

// DownloadDocument пишет PDF документ в w.
// Возвращает ErrDocumentPending, если документ ещё не готов.
func (c *Client) DownloadDocument(id string, w io.Writer) (int64, error) {
	resp, err := c.do(http.MethodGet, "/api/admin/applications/"+url.PathEscape(id)+"/pdf", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return 0, err
	}
	if resp.StatusCode == http.StatusAccepted {
		return 0, ErrDocumentPending
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read document: %w", err)
	}
	return n, nil
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
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
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return &APIError{Status: resp.StatusCode}
	}

	return &APIError{Status: resp.StatusCode, Code: er.Error.Code, Message: er.Error.Message}
}
