package ginstream_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/invopop/jsonschema"

	"github.com/deepankarm/streamjson/pkg/ginstream"
	"github.com/deepankarm/streamjson/pkg/streamjson"
	"github.com/deepankarm/streamjson/pkg/streamjson/schema"
)

func personDef(t *testing.T) schema.Definition {
	t.Helper()
	raw := `{
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"},
			"age": {"type": "integer"}
		}
	}`
	var s jsonschema.Schema
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	return schema.FromJSONSchema(&s)
}

func setupHandlerRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/stream", ginstream.Handler(personDef(t)))
	return r
}

func decodeLines(t *testing.T, body *bytes.Buffer) []streamjson.Result {
	t.Helper()
	var results []streamjson.Result
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var res streamjson.Result
		if err := json.Unmarshal([]byte(line), &res); err != nil {
			t.Fatalf("decode line %q: %v", line, err)
		}
		results = append(results, res)
	}
	return results
}

func TestHandlerStreamsProgressiveResults(t *testing.T) {
	r := setupHandlerRouter(t)

	body := `{"name": "Alice", "age": 30}`
	req := httptest.NewRequest("POST", "/stream", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("content type = %q", ct)
	}

	results := decodeLines(t, w.Body)
	if len(results) == 0 {
		t.Fatal("expected at least one result line")
	}
	final := results[len(results)-1]
	if !final.Complete {
		t.Error("final line must be complete")
	}
	if len(final.Errors) != 0 {
		t.Errorf("expected clean document, got %v", final.Errors)
	}
	snap, ok := final.Snapshot.(map[string]any)
	if !ok || snap["name"] != "Alice" {
		t.Errorf("snapshot = %v", final.Snapshot)
	}
}

func TestHandlerReportsErrorsAsData(t *testing.T) {
	r := setupHandlerRouter(t)

	body := `{"age": "thirty"}`
	req := httptest.NewRequest("POST", "/stream", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even with violations", w.Code)
	}
	results := decodeLines(t, w.Body)
	final := results[len(results)-1]
	if !final.Complete {
		t.Error("final line must be complete")
	}
	if len(final.Errors) != 2 {
		t.Fatalf("errors = %v, want missing name and wrong-type age", final.Errors)
	}
}

func TestHandlerTruncatedBody(t *testing.T) {
	r := setupHandlerRouter(t)

	body := `{"name": "Ali`
	req := httptest.NewRequest("POST", "/stream", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	results := decodeLines(t, w.Body)
	final := results[len(results)-1]
	if !final.Complete {
		t.Error("final line must be complete after flush")
	}
	if len(final.IncompletePaths) != 1 {
		t.Errorf("incomplete paths = %v, want one entry", final.IncompletePaths)
	}
}

func TestValidateMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/users", ginstream.Validate(personDef(t)), func(c *gin.Context) {
		res, ok := ginstream.FromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "missing result"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": res.Snapshot})
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid body", `{"name": "Alice", "age": 30}`, http.StatusOK},
		{"missing required field", `{"age": 30}`, http.StatusUnprocessableEntity},
		{"wrong type", `{"name": "Alice", "age": "x"}`, http.StatusUnprocessableEntity},
		{"trailing comma tolerated", `{"name": "Alice", }`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/users", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusUnprocessableEntity {
				var resp map[string]any
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if _, ok := resp["errors"]; !ok {
					t.Error("422 body must carry the error list")
				}
			}
		})
	}
}
