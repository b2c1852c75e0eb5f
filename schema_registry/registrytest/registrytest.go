// Package registrytest provides an in-memory schema registry for tests, both as
// a schema_registry.Registry and as an HTTP server speaking the REST API.
package registrytest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/aalemi-dev/schema-evolution-lab/schema_registry"
)

// Registry is an in-memory schema_registry.Registry. Ids are global and
// assigned from 1; versions are per subject and assigned from 1.
type Registry struct {
	mu       sync.Mutex
	schemas  map[int]string
	subjects map[string][]int // subject -> ids by version-1

	// Err, when set, fails every call.
	Err error
}

var _ schema_registry.Registry = (*Registry)(nil)

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		schemas:  make(map[int]string),
		subjects: make(map[string][]int),
	}
}

// Add registers raw under subject as its next version and returns the id and
// version. Adding the same schema text again returns the existing coordinates.
func (r *Registry) Add(subject, raw string) (id, version int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(subject, raw)
}

func (r *Registry) add(subject, raw string) (int, int) {
	for v, id := range r.subjects[subject] {
		if r.schemas[id] == raw {
			return id, v + 1
		}
	}

	id := 0
	for existing, s := range r.schemas {
		if s == raw {
			id = existing
			break
		}
	}
	if id == 0 {
		id = len(r.schemas) + 1
		r.schemas[id] = raw
	}
	r.subjects[subject] = append(r.subjects[subject], id)
	return id, len(r.subjects[subject])
}

func (r *Registry) GetSchemaByID(_ context.Context, id int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return "", r.Err
	}
	raw, ok := r.schemas[id]
	if !ok {
		return "", notFound(fmt.Sprintf("schema %d not found", id))
	}
	return raw, nil
}

func (r *Registry) GetSchemaBySubjectVersion(_ context.Context, subject, version string) (*schema_registry.Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	ids := r.subjects[subject]
	if len(ids) == 0 {
		return nil, notFound(fmt.Sprintf("subject %s not found", subject))
	}

	v := len(ids)
	if version != schema_registry.Latest {
		n, err := strconv.Atoi(version)
		if err != nil || n < 1 || n > len(ids) {
			return nil, notFound(fmt.Sprintf("version %s of %s not found", version, subject))
		}
		v = n
	}
	id := ids[v-1]
	return &schema_registry.Metadata{ID: id, Version: v, Schema: r.schemas[id], Subject: subject}, nil
}

func (r *Registry) GetLatestSchema(ctx context.Context, subject string) (*schema_registry.Metadata, error) {
	return r.GetSchemaBySubjectVersion(ctx, subject, schema_registry.Latest)
}

func (r *Registry) LookupSchema(_ context.Context, subject, raw string) (*schema_registry.Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for v, id := range r.subjects[subject] {
		if r.schemas[id] == raw {
			return &schema_registry.Metadata{ID: id, Version: v + 1, Schema: raw, Subject: subject}, nil
		}
	}
	return nil, notFound(fmt.Sprintf("schema not found under %s", subject))
}

func (r *Registry) RegisterSchema(_ context.Context, subject, raw, _ string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	id, _ := r.add(subject, raw)
	return id, nil
}

func notFound(msg string) error {
	return &schema_registry.StatusError{StatusCode: http.StatusNotFound, ErrorCode: 40401, Message: msg}
}

// NewServer serves r over the Confluent REST API. The caller closes it.
func NewServer(r *Registry) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		parts := strings.Split(strings.Trim(req.URL.Path, "/"), "/")

		switch {
		case req.Method == http.MethodGet && len(parts) == 3 && parts[0] == "schemas" && parts[1] == "ids":
			id, err := strconv.Atoi(parts[2])
			if err != nil {
				writeError(w, notFound("bad id"))
				return
			}
			raw, err := r.GetSchemaByID(ctx, id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, map[string]interface{}{"schema": raw})

		case req.Method == http.MethodGet && len(parts) == 4 && parts[0] == "subjects" && parts[2] == "versions":
			meta, err := r.GetSchemaBySubjectVersion(ctx, parts[1], parts[3])
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, meta)

		case req.Method == http.MethodPost && len(parts) == 2 && parts[0] == "subjects":
			var body struct {
				Schema string `json:"schema"`
			}
			if err := sonic.ConfigDefault.NewDecoder(req.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			meta, err := r.LookupSchema(ctx, parts[1], body.Schema)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, meta)

		case req.Method == http.MethodPost && len(parts) == 3 && parts[0] == "subjects" && parts[2] == "versions":
			var body struct {
				Schema     string `json:"schema"`
				SchemaType string `json:"schemaType"`
			}
			if err := sonic.ConfigDefault.NewDecoder(req.Body).Decode(&body); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			id, err := r.RegisterSchema(ctx, parts[1], body.Schema, body.SchemaType)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, map[string]interface{}{"id": id})

		default:
			writeError(w, notFound("not found"))
		}
	}))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/vnd.schemaregistry.v1+json")
	body, _ := sonic.Marshal(v)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := 50001
	var se *schema_registry.StatusError
	if errors.As(err, &se) {
		status = se.StatusCode
		code = se.ErrorCode
	}
	w.Header().Set("Content-Type", "application/vnd.schemaregistry.v1+json")
	w.WriteHeader(status)
	body, _ := sonic.Marshal(map[string]interface{}{"error_code": code, "message": err.Error()})
	_, _ = w.Write(body)
}
