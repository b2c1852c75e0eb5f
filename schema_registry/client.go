package schema_registry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/aalemi-dev/schema-evolution-lab/observability"
)

// contentType is the media type of every registry request and response.
const contentType = "application/vnd.schemaregistry.v1+json"

// DefaultTimeout bounds every registry HTTP request when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Latest selects the newest version of a subject in GetSchemaBySubjectVersion.
const Latest = "latest"

// Registry is the subset of the Confluent Schema Registry REST API the
// application needs. Every call may block on the network and honours ctx.
type Registry interface {
	// GetSchemaByID returns the schema text registered under id.
	GetSchemaByID(ctx context.Context, id int) (string, error)

	// GetSchemaBySubjectVersion returns one version of a subject. version is a
	// positive number or Latest.
	GetSchemaBySubjectVersion(ctx context.Context, subject, version string) (*Metadata, error)

	// GetLatestSchema is GetSchemaBySubjectVersion(ctx, subject, Latest).
	GetLatestSchema(ctx context.Context, subject string) (*Metadata, error)

	// LookupSchema finds which version of subject the given schema text is.
	LookupSchema(ctx context.Context, subject, schema string) (*Metadata, error)

	// RegisterSchema registers schema under subject, returning its id.
	// Registering an existing schema returns the existing id.
	RegisterSchema(ctx context.Context, subject, schema, schemaType string) (int, error)
}

// Metadata describes one registered version of a subject.
type Metadata struct {
	ID      int    `json:"id"`
	Version int    `json:"version"`
	Schema  string `json:"schema"`
	Subject string `json:"subject"`
	Type    string `json:"schemaType,omitempty"`
}

// Client is the HTTP implementation of Registry.
//
// Schemas by id and lookups by (subject, schema) are cached for the life of the
// client: both are immutable once the registry has issued them. Versions
// fetched by subject are not cached except for their schema text, since
// "latest" moves.
type Client struct {
	url        string
	httpClient *http.Client

	schemaCache      map[int]string
	schemaCacheMutex sync.RWMutex

	idCache      map[string]int
	idCacheMutex sync.RWMutex

	lookupCache      map[string]*Metadata
	lookupCacheMutex sync.RWMutex

	username string
	password string

	observer observability.Observer
	logger   Logger
}

// Config holds the registry connection settings.
type Config struct {
	// URL is the registry base URL, e.g. "http://schema-registry:8081".
	URL string `envconfig:"SCHEMA_REGISTRY_HOSTNAME" required:"true"`

	Username string `envconfig:"SCHEMA_REGISTRY_USERNAME"`
	Password string `envconfig:"SCHEMA_REGISTRY_PASSWORD" json:"-"` //nolint:gosec

	// Timeout bounds each HTTP request. Zero means DefaultTimeout.
	Timeout time.Duration `envconfig:"SCHEMA_REGISTRY_TIMEOUT" default:"10s"`
}

// Logger is the logging surface the client needs; *logger.LoggerClient satisfies it.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// NewClient validates config and returns a ready client.
func NewClient(config Config) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("schema registry URL is required")
	}

	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		url: strings.TrimRight(config.URL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		schemaCache: make(map[int]string),
		idCache:     make(map[string]int),
		lookupCache: make(map[string]*Metadata),
		username:    config.Username,
		password:    config.Password,
	}, nil
}

// GetSchemaByID retrieves a schema by its global id.
func (c *Client) GetSchemaByID(ctx context.Context, id int) (string, error) {
	start := time.Now()
	sub := strconv.Itoa(id)

	c.schemaCacheMutex.RLock()
	if schema, ok := c.schemaCache[id]; ok {
		c.schemaCacheMutex.RUnlock()
		c.observeOperation("get_schema_by_id", "registry", sub, time.Since(start), nil, map[string]interface{}{
			"cache_hit": true,
		})
		return schema, nil
	}
	c.schemaCacheMutex.RUnlock()

	var result struct {
		Schema string `json:"schema"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/schemas/ids/%d", id), nil, &result); err != nil {
		c.observeOperation("get_schema_by_id", "registry", sub, time.Since(start), err, map[string]interface{}{
			"cache_hit": false,
		})
		c.logWarn(ctx, "Schema lookup by id failed", map[string]interface{}{"schema_id": id, "error": err.Error()})
		return "", fmt.Errorf("failed to fetch schema %d: %w", id, err)
	}

	c.schemaCacheMutex.Lock()
	c.schemaCache[id] = result.Schema
	c.schemaCacheMutex.Unlock()

	c.observeOperation("get_schema_by_id", "registry", sub, time.Since(start), nil, map[string]interface{}{
		"cache_hit": false,
	})
	return result.Schema, nil
}

// GetSchemaBySubjectVersion retrieves one version of subject.
func (c *Client) GetSchemaBySubjectVersion(ctx context.Context, subject, version string) (*Metadata, error) {
	start := time.Now()

	if version == "" {
		version = Latest
	}
	if version != Latest {
		if n, err := strconv.Atoi(version); err != nil || n <= 0 {
			err := fmt.Errorf("invalid subject version %q", version)
			c.observeOperation("get_schema_by_version", subject, version, time.Since(start), err, nil)
			return nil, err
		}
	}

	var metadata Metadata
	path := fmt.Sprintf("/subjects/%s/versions/%s", url.PathEscape(subject), version)
	if err := c.do(ctx, http.MethodGet, path, nil, &metadata); err != nil {
		c.observeOperation("get_schema_by_version", subject, version, time.Since(start), err, nil)
		return nil, fmt.Errorf("failed to fetch %s version %s: %w", subject, version, err)
	}
	metadata.Subject = subject

	c.schemaCacheMutex.Lock()
	c.schemaCache[metadata.ID] = metadata.Schema
	c.schemaCacheMutex.Unlock()

	c.observeOperation("get_schema_by_version", subject, version, time.Since(start), nil, map[string]interface{}{
		"schema_id": metadata.ID,
		"version":   metadata.Version,
	})
	return &metadata, nil
}

// GetLatestSchema retrieves the newest version of subject.
func (c *Client) GetLatestSchema(ctx context.Context, subject string) (*Metadata, error) {
	return c.GetSchemaBySubjectVersion(ctx, subject, Latest)
}

// LookupSchema asks the registry whether schema is registered under subject
// and, if so, which id and version it has.
func (c *Client) LookupSchema(ctx context.Context, subject, schema string) (*Metadata, error) {
	start := time.Now()
	cacheKey := subject + ":" + schema

	c.lookupCacheMutex.RLock()
	if m, ok := c.lookupCache[cacheKey]; ok {
		c.lookupCacheMutex.RUnlock()
		c.observeOperation("lookup_schema", subject, strconv.Itoa(m.Version), time.Since(start), nil, map[string]interface{}{
			"cache_hit": true,
		})
		cp := *m
		return &cp, nil
	}
	c.lookupCacheMutex.RUnlock()

	var metadata Metadata
	payload := map[string]interface{}{"schema": schema}
	if err := c.do(ctx, http.MethodPost, "/subjects/"+url.PathEscape(subject), payload, &metadata); err != nil {
		c.observeOperation("lookup_schema", subject, "", time.Since(start), err, map[string]interface{}{
			"cache_hit": false,
		})
		return nil, fmt.Errorf("failed to look up schema under %s: %w", subject, err)
	}
	if metadata.Subject == "" {
		metadata.Subject = subject
	}

	c.lookupCacheMutex.Lock()
	c.lookupCache[cacheKey] = &metadata
	c.lookupCacheMutex.Unlock()

	c.observeOperation("lookup_schema", subject, strconv.Itoa(metadata.Version), time.Since(start), nil, map[string]interface{}{
		"cache_hit": false,
		"schema_id": metadata.ID,
	})
	cp := metadata
	return &cp, nil
}

// RegisterSchema registers a schema under subject and returns its id.
// schemaType is "AVRO" when empty.
func (c *Client) RegisterSchema(ctx context.Context, subject, schema, schemaType string) (int, error) {
	start := time.Now()

	cacheKey := fmt.Sprintf("%s:%s:%s", subject, schemaType, schema)
	c.idCacheMutex.RLock()
	if id, ok := c.idCache[cacheKey]; ok {
		c.idCacheMutex.RUnlock()
		c.observeOperation("register_schema", subject, strconv.Itoa(id), time.Since(start), nil, map[string]interface{}{
			"cache_hit":   true,
			"schema_type": schemaType,
		})
		return id, nil
	}
	c.idCacheMutex.RUnlock()

	payload := map[string]interface{}{"schema": schema}
	if schemaType != "" && schemaType != "AVRO" {
		payload["schemaType"] = schemaType
	}

	var result struct {
		ID int `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/subjects/%s/versions", url.PathEscape(subject)), payload, &result); err != nil {
		c.observeOperation("register_schema", subject, "", time.Since(start), err, map[string]interface{}{
			"cache_hit":   false,
			"schema_type": schemaType,
		})
		c.logError(ctx, "Schema registration failed", err, map[string]interface{}{"subject": subject})
		return 0, fmt.Errorf("failed to register schema under %s: %w", subject, err)
	}

	c.idCacheMutex.Lock()
	c.idCache[cacheKey] = result.ID
	c.idCacheMutex.Unlock()

	c.schemaCacheMutex.Lock()
	c.schemaCache[result.ID] = schema
	c.schemaCacheMutex.Unlock()

	c.logInfo(ctx, "Schema registered", map[string]interface{}{"subject": subject, "schema_id": result.ID})
	c.observeOperation("register_schema", subject, strconv.Itoa(result.ID), time.Since(start), nil, map[string]interface{}{
		"cache_hit":   false,
		"schema_type": schemaType,
		"schema_id":   result.ID,
	})
	return result.ID, nil
}

// do sends one request and decodes a 200 response into out.
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := sonic.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", contentType)
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var registryErr struct {
			ErrorCode int    `json:"error_code"`
			Message   string `json:"message"`
		}
		if sonic.Unmarshal(respBody, &registryErr) == nil && registryErr.Message != "" {
			statusErr.ErrorCode = registryErr.ErrorCode
			statusErr.Message = registryErr.Message
		}
		return statusErr
	}

	if err := sonic.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// WithObserver sets the observer notified after every registry call.
func (c *Client) WithObserver(observer observability.Observer) *Client {
	c.observer = observer
	return c
}

// WithLogger sets the logger used for failed lookups and registrations.
func (c *Client) WithLogger(logger Logger) *Client {
	c.logger = logger
	return c
}

func (c *Client) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (c *Client) logWarn(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.WarnWithContext(ctx, msg, nil, fields)
	}
}

func (c *Client) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
