// Package functions is the HTTP client for the Supabase Edge Functions that
// perform extraction, classification, catalog sync, purge, and pipeline
// orchestration. Every function speaks the {success, data|error} envelope.
package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
)

// Client invokes the deployed edge functions.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.SugaredLogger

	classifySchema *jsonschema.Schema
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// classifySchemaJSON constrains the classifier payload before it is folded
// into review state: field names are non-empty and confidence stays in [0,1].
const classifySchemaJSON = `{
	"type": "object",
	"required": ["fields"],
	"properties": {
		"fields": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["field_name", "value", "confidence"],
				"properties": {
					"field_name": {"type": "string", "minLength": 1},
					"value": {"type": "string"},
					"confidence": {"type": "number", "minimum": 0, "maximum": 1}
				}
			}
		}
	}
}`

// NewClient creates an edge functions client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	schema := jsonschema.MustCompileString("classify-extracted-fields.json", classifySchemaJSON)

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		log:            logger.GetLogger().Named("functions"),
		classifySchema: schema,
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// invoke POSTs a JSON body to the named function and unwraps the envelope,
// decoding the data member into out when out is non-nil.
func (c *Client) invoke(ctx context.Context, fn string, body any, out any) error {
	rid := uuid.New().String()
	start := time.Now()

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", fn, err)
	}

	url := c.baseURL + "/" + fn
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("create %s request: %w", fn, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Errorw("function call failed",
			"function", fn, "req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err)
		return fmt.Errorf("call %s: %w", fn, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", fn, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if envelope.Error != "" {
			return fmt.Errorf("%s failed with status %d: %s", fn, resp.StatusCode, envelope.Error)
		}
		return fmt.Errorf("%s failed with status %d", fn, resp.StatusCode)
	}
	if !envelope.Success {
		return fmt.Errorf("%s reported failure: %s", fn, envelope.Error)
	}

	c.log.Debugw("function call succeeded",
		"function", fn, "req_id", rid,
		"elapsed_ms", time.Since(start).Milliseconds())

	if out == nil {
		return nil
	}
	if len(envelope.Data) == 0 {
		return fmt.Errorf("%s returned success without data", fn)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", fn, err)
	}
	return nil
}

// ClassifyExtractedFields labels raw extracted fields with AI confidence
// scores. The payload is schema-validated before it is returned.
func (c *Client) ClassifyExtractedFields(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error) {
	var raw json.RawMessage
	if err := c.invoke(ctx, FnClassifyExtractedFields, req, &raw); err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode classifier payload: %w", err)
	}
	if err := c.classifySchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("classifier payload failed schema validation: %w", err)
	}

	var out ClassifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode classifier payload: %w", err)
	}
	return &out, nil
}

// RunExtraction invokes the enhanced extraction function for a document.
func (c *Client) RunExtraction(ctx context.Context, req ExtractionRequest) (*ExtractionResponse, error) {
	var out ExtractionResponse
	if err := c.invoke(ctx, FnEnhancedExtraction, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SyncSubsidyCatalog runs the full upstream catalog sync.
func (c *Client) SyncSubsidyCatalog(ctx context.Context, req SyncRequest) (*SyncResponse, error) {
	var out SyncResponse
	if err := c.invoke(ctx, FnSubsidyFullSync, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PurgeData deletes a farm's data through the purge function.
func (c *Client) PurgeData(ctx context.Context, req PurgeRequest) (*PurgeResponse, error) {
	var out PurgeResponse
	if err := c.invoke(ctx, FnDataPurge, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunDualPipeline starts the extraction+matching orchestrator for a farm.
func (c *Client) RunDualPipeline(ctx context.Context, req OrchestrateRequest) (*OrchestrateResponse, error) {
	var out OrchestrateResponse
	if err := c.invoke(ctx, FnDualPipeline, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
