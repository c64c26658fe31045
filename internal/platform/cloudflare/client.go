package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const baseURL = "https://api.cloudflare.com/client/v4"

// ManagedComment marks records written by k8postal.
const ManagedComment = "managed by k8postal"

// Client is a minimal Cloudflare API client for DNS record management.
type Client struct {
	apiToken   string
	httpClient *http.Client
}

// Record represents a Cloudflare DNS record.
type Record struct {
	ID       string  `json:"id,omitempty"`
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	Content  string  `json:"content"`
	TTL      int     `json:"ttl,omitempty"`
	Priority *uint16 `json:"priority,omitempty"`
	Proxied  *bool   `json:"proxied,omitempty"`
	Comment  string  `json:"comment,omitempty"`
}

// UpsertResult describes what UpsertRecord did.
type UpsertResult string

const (
	Created   UpsertResult = "created"
	Updated   UpsertResult = "updated"
	Unchanged UpsertResult = "unchanged"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Errors  []apiError      `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type zoneResult struct {
	ID string `json:"id"`
}

type resultInfo struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

type listResponse struct {
	Success    bool       `json:"success"`
	Errors     []apiError `json:"errors"`
	Result     []Record   `json:"result"`
	ResultInfo resultInfo `json:"result_info"`
}

// NewClient creates a new Cloudflare API client.
func NewClient(apiToken string) *Client {
	return &Client{
		apiToken:   apiToken,
		httpClient: &http.Client{},
	}
}

// GetZoneID returns the zone ID for the given zone name.
func (c *Client) GetZoneID(ctx context.Context, zone string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/zones?name="+url.QueryEscape(zone), nil)
	if err != nil {
		return "", err
	}

	var resp apiResponse
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("get zone ID: %w", err)
	}

	var zones []zoneResult
	if err := json.Unmarshal(resp.Result, &zones); err != nil {
		return "", fmt.Errorf("parse zones: %w", err)
	}

	if len(zones) == 0 {
		return "", fmt.Errorf("no zone found for %s", zone)
	}

	return zones[0].ID, nil
}

// ListDNSRecords returns the records in the zone with the given type and
// name. Empty filters match everything.
func (c *Client) ListDNSRecords(ctx context.Context, zoneID, recordType, name string) ([]Record, error) {
	var all []Record
	page := 1

	for {
		q := url.Values{}
		q.Set("per_page", "100")
		q.Set("page", fmt.Sprint(page))
		if recordType != "" {
			q.Set("type", recordType)
		}
		if name != "" {
			q.Set("name", name)
		}

		req, err := c.newRequest(ctx, http.MethodGet,
			fmt.Sprintf("/zones/%s/dns_records?%s", zoneID, q.Encode()), nil)
		if err != nil {
			return nil, err
		}

		var resp listResponse
		if err := c.do(req, &resp); err != nil {
			return nil, fmt.Errorf("list DNS records page %d: %w", page, err)
		}

		all = append(all, resp.Result...)

		if page >= resp.ResultInfo.TotalPages {
			break
		}
		page++
	}

	return all, nil
}

// CreateDNSRecord creates a record and returns it with its ID.
func (c *Client) CreateDNSRecord(ctx context.Context, zoneID string, r Record) (Record, error) {
	return c.writeRecord(ctx, http.MethodPost, fmt.Sprintf("/zones/%s/dns_records", zoneID), r)
}

// UpdateDNSRecord overwrites the record with the given ID.
func (c *Client) UpdateDNSRecord(ctx context.Context, zoneID, recordID string, r Record) (Record, error) {
	return c.writeRecord(ctx, http.MethodPut, fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, recordID), r)
}

func (c *Client) writeRecord(ctx context.Context, method, path string, r Record) (Record, error) {
	r.ID = ""
	body, err := json.Marshal(r)
	if err != nil {
		return Record{}, fmt.Errorf("encode record: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, bytes.NewReader(body))
	if err != nil {
		return Record{}, err
	}

	var resp apiResponse
	if err := c.do(req, &resp); err != nil {
		return Record{}, fmt.Errorf("write %s record %s: %w", r.Type, r.Name, err)
	}

	var out Record
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		return Record{}, fmt.Errorf("parse record: %w", err)
	}
	return out, nil
}

// DeleteDNSRecord deletes a DNS record by ID.
func (c *Client) DeleteDNSRecord(ctx context.Context, zoneID, recordID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete,
		fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, recordID), nil)
	if err != nil {
		return err
	}

	var resp apiResponse
	if err := c.do(req, &resp); err != nil {
		return fmt.Errorf("delete DNS record %s: %w", recordID, err)
	}

	return nil
}

// UpsertRecord makes the zone contain desired. An existing record of the
// same type and name is updated in place. TXT records only replace records
// with the same leading tag (v=spf1, v=DKIM1), so unrelated TXT records at
// the same name survive.
func (c *Client) UpsertRecord(ctx context.Context, zoneID string, desired Record) (UpsertResult, error) {
	if desired.Comment == "" {
		desired.Comment = ManagedComment
	}

	existing, err := c.ListDNSRecords(ctx, zoneID, desired.Type, desired.Name)
	if err != nil {
		return "", err
	}

	for _, r := range existing {
		if !sameSlot(r, desired) {
			continue
		}
		if sameContent(r, desired) {
			return Unchanged, nil
		}
		if _, err := c.UpdateDNSRecord(ctx, zoneID, r.ID, desired); err != nil {
			return "", err
		}
		return Updated, nil
	}

	if _, err := c.CreateDNSRecord(ctx, zoneID, desired); err != nil {
		return "", err
	}
	return Created, nil
}

// DeleteManagedRecords deletes every record carrying ManagedComment whose
// name is in names. It returns the number of records deleted.
func (c *Client) DeleteManagedRecords(ctx context.Context, zoneID string, names []string) (int, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToLower(n)] = true
	}

	records, err := c.ListDNSRecords(ctx, zoneID, "", "")
	if err != nil {
		return 0, fmt.Errorf("list records: %w", err)
	}

	deleted := 0
	for _, r := range records {
		if r.Comment != ManagedComment || !wanted[strings.ToLower(r.Name)] {
			continue
		}
		if err := c.DeleteDNSRecord(ctx, zoneID, r.ID); err != nil {
			return deleted, fmt.Errorf("delete record %s (%s %s): %w", r.ID, r.Type, r.Name, err)
		}
		deleted++
	}
	return deleted, nil
}

func sameSlot(existing, desired Record) bool {
	if desired.Type != "TXT" {
		return true
	}
	return txtTag(existing.Content) == txtTag(desired.Content)
}

func sameContent(existing, desired Record) bool {
	if strings.Trim(existing.Content, `"`) != strings.Trim(desired.Content, `"`) {
		return false
	}
	if desired.Priority != nil && (existing.Priority == nil || *existing.Priority != *desired.Priority) {
		return false
	}
	return true
}

// txtTag returns the first token of a TXT value, e.g. "v=spf1".
func txtTag(content string) string {
	content = strings.Trim(content, `"`)
	tag, _, _ := strings.Cut(content, " ")
	return strings.TrimSuffix(tag, ";")
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w (status %d)", err, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}
