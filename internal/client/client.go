// Package client provides an HTTP client for the field-scheduler REST API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/evcraddock/field-scheduler/internal/customer"
	"github.com/evcraddock/field-scheduler/internal/technician"
	"github.com/evcraddock/field-scheduler/internal/visit"
)

// Client is an HTTP client for the field-scheduler API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
	// Field names the offending input on validation errors.
	Field string
}

func (e *APIError) Error() string { return e.Message }

// Health checks that the server is reachable. It needs no API key.
func (c *Client) Health() error {
	return c.get("/health", nil)
}

// ListVisits returns visits dated within [from, to]. Empty bounds use the
// server defaults.
func (c *Client) ListVisits(from, to string) ([]visit.Record, error) {
	var records []visit.Record
	if err := c.get("/api/visits"+rangeQuery(from, to), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetVisit returns a single visit.
func (c *Client) GetVisit(id int64) (*visit.Record, error) {
	var rec visit.Record
	if err := c.get(fmt.Sprintf("/api/visits/%d", id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateVisit books a new visit.
func (c *Client) CreateVisit(req visit.Request) (*visit.Record, error) {
	var rec visit.Record
	if err := c.send(http.MethodPost, "/api/visits", req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateVisit replaces the fields of a visit.
func (c *Client) UpdateVisit(id int64, req visit.Request) (*visit.Record, error) {
	var rec visit.Record
	if err := c.send(http.MethodPut, fmt.Sprintf("/api/visits/%d", id), req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CancelVisit cancels a visit.
func (c *Client) CancelVisit(id int64) (*visit.Record, error) {
	var rec visit.Record
	if err := c.send(http.MethodPost, fmt.Sprintf("/api/visits/%d/cancel", id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CompleteVisit marks a visit as done.
func (c *Client) CompleteVisit(id int64) (*visit.Record, error) {
	var rec visit.Record
	if err := c.send(http.MethodPost, fmt.Sprintf("/api/visits/%d/complete", id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteVisit permanently removes a cancelled visit.
func (c *Client) DeleteVisit(id int64) error {
	return c.send(http.MethodDelete, fmt.Sprintf("/api/visits/%d", id), nil, nil)
}

// Stats returns per-technician visit counts for [from, to].
func (c *Client) Stats(from, to string) ([]visit.TechnicianStats, error) {
	var stats []visit.TechnicianStats
	if err := c.get("/api/stats"+rangeQuery(from, to), &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// ListTechnicians returns active technicians, or all of them when all is set.
func (c *Client) ListTechnicians(all bool) ([]*technician.Technician, error) {
	path := "/api/technicians"
	if all {
		path += "?all=true"
	}
	var techs []*technician.Technician
	if err := c.get(path, &techs); err != nil {
		return nil, err
	}
	return techs, nil
}

// AddTechnician creates a technician.
func (c *Client) AddTechnician(t *technician.Technician) (*technician.Technician, error) {
	body := map[string]string{
		"first_name": t.FirstName,
		"last_name":  t.LastName,
		"phone":      t.Phone,
		"email":      t.Email,
		"specialty":  t.Specialty,
	}
	var out technician.Technician
	if err := c.send(http.MethodPost, "/api/technicians", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeactivateTechnician marks a technician inactive.
func (c *Client) DeactivateTechnician(id int64) error {
	return c.send(http.MethodDelete, fmt.Sprintf("/api/technicians/%d", id), nil, nil)
}

// ListClients returns every client.
func (c *Client) ListClients() ([]*customer.Customer, error) {
	var list []*customer.Customer
	if err := c.get("/api/clients", &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SearchClients returns clients matching term by name or company.
func (c *Client) SearchClients(term string) ([]*customer.Customer, error) {
	var list []*customer.Customer
	if err := c.get("/api/clients?q="+url.QueryEscape(term), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// AddClient creates a client.
func (c *Client) AddClient(cu *customer.Customer) (*customer.Customer, error) {
	body := map[string]string{
		"first_name": cu.FirstName,
		"last_name":  cu.LastName,
		"company":    cu.Company,
		"phone":      cu.Phone,
		"email":      cu.Email,
		"address":    cu.Address,
		"city":       cu.City,
	}
	var out customer.Customer
	if err := c.send(http.MethodPost, "/api/clients", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteClient removes a client with no visits on record.
func (c *Client) DeleteClient(id int64) error {
	return c.send(http.MethodDelete, fmt.Sprintf("/api/clients/%d", id), nil, nil)
}

func rangeQuery(from, to string) string {
	q := url.Values{}
	if from != "" {
		q.Set("start", from)
	}
	if to != "" {
		q.Set("end", to)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// get performs a GET request and decodes the response.
func (c *Client) get(path string, result any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

// send performs a request with an optional JSON body and decodes the response.
func (c *Client) send(method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, result)
}

// do executes an HTTP request with auth header and handles errors.
func (c *Client) do(req *http.Request, result any) (err error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing response body: %w", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errResp struct {
			Error string `json:"error"`
			Field string `json:"field"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
			apiErr.Field = errResp.Field
		} else {
			apiErr.Message = fmt.Sprintf("server error: %s", http.StatusText(resp.StatusCode))
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
