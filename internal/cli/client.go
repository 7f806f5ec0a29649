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

// CampaignResponse — кампания из API.
type CampaignResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Status        string `json:"status"`
	ErrorStrategy string `json:"error_strategy"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// RunStats — агрегаты run.
type RunStats struct {
	TotalLeads int `json:"total_leads"`
	Processed  int `json:"processed"`
	Success    int `json:"success"`
	Failed     int `json:"failed"`
}

// RunResponse — run из API.
type RunResponse struct {
	ID                   string   `json:"id"`
	CampaignID           string   `json:"campaign_id"`
	WorkflowDefinitionID string   `json:"workflow_definition_id"`
	Status               string   `json:"status"`
	StartedAt            string   `json:"started_at,omitempty"`
	EndedAt              string   `json:"ended_at,omitempty"`
	Error                string   `json:"error,omitempty"`
	Stats                RunStats `json:"stats"`
	IdempotencyKey       string   `json:"idempotency_key,omitempty"`
	CreatedAt            string   `json:"created_at"`
}

// LogResponse — log-запись run из API.
type LogResponse struct {
	ID        string `json:"id"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	NodeID    string `json:"node_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// QueueResponse — очередь кампании из API.
type QueueResponse struct {
	ID            string `json:"id"`
	CampaignID    string `json:"campaign_id"`
	QueueName     string `json:"queue_name"`
	WorkerCount   int    `json:"worker_count"`
	Status        string `json:"status"`
	CompletedJobs int    `json:"completed_jobs"`
	FailedJobs    int    `json:"failed_jobs"`
}

// QueueStatusResponse — живые счётчики очереди из API.
type QueueStatusResponse struct {
	CampaignID string `json:"campaign_id"`
	QueueName  string `json:"queue_name"`
	Waiting    int    `json:"waiting"`
	Completed  int    `json:"completed"`
	Failed     int    `json:"failed"`
	Paused     bool   `json:"paused"`
}

// --- Request types ---

// CreateCampaignRequest — создание кампании.
type CreateCampaignRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ErrorStrategy string `json:"error_strategy,omitempty"`
}

// CreateRunRequest — запуск кампании.
type CreateRunRequest struct {
	LeadListID     string `json:"lead_list_id"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	Priority       int    `json:"priority,omitempty"`
}

// ListRunsOpts — параметры фильтрации runs.
type ListRunsOpts struct {
	CampaignID string
	Status     string
	Limit      int
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

// Client — HTTP-клиент для Cadence API.
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

// --- Campaigns ---

// ListCampaigns возвращает все кампании.
func (c *Client) ListCampaigns() ([]CampaignResponse, error) {
	var campaigns []CampaignResponse
	err := c.list("/api/v1/campaigns", nil, &campaigns)
	return campaigns, err
}

// CreateCampaign создаёт новую кампанию.
func (c *Client) CreateCampaign(req CreateCampaignRequest) (*CampaignResponse, error) {
	var campaign CampaignResponse
	err := c.post("/api/v1/campaigns", req, &campaign)
	return &campaign, err
}

// GetCampaign возвращает кампанию по ID.
func (c *Client) GetCampaign(id string) (*CampaignResponse, error) {
	var campaign CampaignResponse
	err := c.get("/api/v1/campaigns/"+id, &campaign)
	return &campaign, err
}

// DeleteCampaign удаляет кампанию.
func (c *Client) DeleteCampaign(id string) error {
	return c.delete("/api/v1/campaigns/" + id)
}

// --- Runs ---

// ListRuns возвращает список runs с фильтрацией.
func (c *Client) ListRuns(opts ListRunsOpts) ([]RunResponse, error) {
	params := url.Values{}
	if opts.CampaignID != "" {
		params.Set("campaign_id", opts.CampaignID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var runs []RunResponse
	err := c.list("/api/v1/runs", params, &runs)
	return runs, err
}

// StartRun запускает кампанию для списка leads.
func (c *Client) StartRun(campaignID string, req CreateRunRequest) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/campaigns/"+campaignID+"/runs", req, &run)
	return &run, err
}

// GetRun возвращает run по ID.
func (c *Client) GetRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.get("/api/v1/runs/"+id, &run)
	return &run, err
}

// CancelRun отменяет run.
func (c *Client) CancelRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs/"+id+"/cancel", nil, &run)
	return &run, err
}

// ListRunLogs возвращает log-записи run.
func (c *Client) ListRunLogs(runID string, limit int) ([]LogResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	var logs []LogResponse
	err := c.list("/api/v1/runs/"+runID+"/logs", params, &logs)
	return logs, err
}

// --- Queues ---

// ListQueues возвращает все очереди кампаний.
func (c *Client) ListQueues() ([]QueueResponse, error) {
	var queues []QueueResponse
	err := c.list("/api/v1/queues", nil, &queues)
	return queues, err
}

// GetQueueStatus возвращает живые счётчики очереди кампании.
func (c *Client) GetQueueStatus(campaignID string) (*QueueStatusResponse, error) {
	var status QueueStatusResponse
	err := c.get("/api/v1/campaigns/"+campaignID+"/queue", &status)
	return &status, err
}

// PauseQueue приостанавливает очередь кампании.
func (c *Client) PauseQueue(campaignID string) (*QueueResponse, error) {
	var queue QueueResponse
	err := c.post("/api/v1/campaigns/"+campaignID+"/queue/pause", nil, &queue)
	return &queue, err
}

// ResumeQueue возобновляет очередь кампании.
func (c *Client) ResumeQueue(campaignID string) (*QueueResponse, error) {
	var queue QueueResponse
	err := c.post("/api/v1/campaigns/"+campaignID+"/queue/resume", nil, &queue)
	return &queue, err
}

// RemoveQueue запрашивает удаление очереди кампании.
func (c *Client) RemoveQueue(campaignID string) error {
	return c.doData(http.MethodDelete, "/api/v1/campaigns/"+campaignID+"/queue", nil, nil)
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
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
