package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"auto_leads/normalize"
)

const (
	capturePollDelay       = 10 * time.Second
	capturePollMaxAttempts = 30
)

// CaptureClient drives a managed capture bot (Browse AI shaped API):
// submit a task against a pre-trained robot, poll until it reaches a
// terminal state, and return the captured lists.
type CaptureClient struct {
	baseURL string
	apiKey  string
	client  *http.Client

	pollDelay       time.Duration
	maxPollAttempts int
}

func NewCaptureClient(baseURL, apiKey string, client *http.Client) *CaptureClient {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &CaptureClient{
		baseURL:         baseURL,
		apiKey:          apiKey,
		client:          client,
		pollDelay:       capturePollDelay,
		maxPollAttempts: capturePollMaxAttempts,
	}
}

// CreateTask submits a capture task and returns its id.
func (c *CaptureClient) CreateTask(ctx context.Context, botID string, input map[string]interface{}) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("CAPTURE_API_KEY not set")
	}
	if input == nil {
		input = map[string]interface{}{}
	}

	body, _ := json.Marshal(map[string]interface{}{"inputParameters": input})
	url := fmt.Sprintf("%s/robots/%s/tasks", c.baseURL, botID)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &TaskCreationError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result struct {
		Result struct {
			ID string `json:"id"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Result.ID, nil
}

type captureTask struct {
	Status string `json:"status"`
	Result struct {
		CapturedLists map[string][]normalize.RawRecord `json:"capturedLists"`
	} `json:"result"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *CaptureClient) getTask(ctx context.Context, botID, taskID string) (*captureTask, error) {
	url := fmt.Sprintf("%s/robots/%s/tasks/%s", c.baseURL, botID, taskID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("capture task poll failed: %d", resp.StatusCode)
	}

	var result struct {
		Result captureTask `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result.Result, nil
}

// WaitForTask polls the task on a fixed delay until it finishes. Statuses
// are running, successful, failed and cancelled; anything still running
// after the attempt budget is a TaskTimeoutError.
func (c *CaptureClient) WaitForTask(ctx context.Context, botID, taskID string) (map[string][]normalize.RawRecord, error) {
	for attempt := 1; attempt <= c.maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		task, err := c.getTask(ctx, botID, taskID)
		if err != nil {
			log.Printf("Warning: capture poll %d/%d: %v", attempt, c.maxPollAttempts, err)
		} else {
			switch task.Status {
			case "successful":
				return task.Result.CapturedLists, nil
			case "failed":
				msg := task.Error.Message
				if msg == "" {
					msg = "unknown error"
				}
				return nil, &TaskFailedError{Message: msg}
			case "cancelled":
				return nil, &TaskFailedError{Message: "task was cancelled"}
			}
			log.Printf("Capture task %s status: %s (%d/%d)", taskID, task.Status, attempt, c.maxPollAttempts)
		}

		if attempt < c.maxPollAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.pollDelay):
			}
		}
	}

	return nil, &TaskTimeoutError{Attempts: c.maxPollAttempts}
}
