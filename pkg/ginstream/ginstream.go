// Package ginstream integrates streamjson with gin. The core stays
// transport-free; this package adapts an HTTP request body into a
// fragment stream and reports progressive validation results.
package ginstream

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deepankarm/streamjson/pkg/streamjson"
	"github.com/deepankarm/streamjson/pkg/streamjson/schema"
)

// resultKey is the context key the Validate middleware stores the final
// result under.
const resultKey = "streamjson_result"

// readSize is the fragment size request bodies are consumed in. Small on
// purpose: it exercises the same chunk-boundary tolerance LLM deltas do.
const readSize = 512

// Handler returns a handler that consumes the request body as a fragment
// stream and writes one NDJSON line per fragment with the progressive
// result, ending with the authoritative one. Validation errors are data:
// the response is 200 either way, and the final line carries the full
// error list.
func Handler(def schema.Definition, opts ...streamjson.Option) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := streamjson.New(opts...)
		st.Initialize(def)

		c.Header("Content-Type", "application/x-ndjson")
		c.Status(http.StatusOK)
		enc := json.NewEncoder(c.Writer)

		buf := make([]byte, readSize)
		for {
			n, err := c.Request.Body.Read(buf)
			if n > 0 {
				res, ferr := st.Feed(string(buf[:n]))
				if ferr != nil {
					c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ferr.Error()})
					return
				}
				_ = enc.Encode(res)
				c.Writer.Flush()
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		res, err := st.Complete()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		_ = enc.Encode(res)
		c.Writer.Flush()
	}
}

// Validate returns a middleware that streams the request body through a
// validation stream and aborts with 422 when the authoritative pass finds
// violations. On success the final result is stored in the context for
// the handler behind it.
func Validate(def schema.Definition, opts ...streamjson.Option) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := streamjson.New(opts...)
		st.Initialize(def)

		buf := make([]byte, readSize)
		for {
			n, err := c.Request.Body.Read(buf)
			if n > 0 {
				if _, ferr := st.Feed(string(buf[:n])); ferr != nil {
					c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ferr.Error()})
					return
				}
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		res, err := st.Complete()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if len(res.Errors) > 0 {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"errors": res.Errors})
			return
		}
		c.Set(resultKey, res)
		c.Next()
	}
}

// FromContext retrieves the result stored by the Validate middleware.
func FromContext(c *gin.Context) (*streamjson.Result, bool) {
	v, ok := c.Get(resultKey)
	if !ok {
		return nil, false
	}
	res, ok := v.(*streamjson.Result)
	return res, ok
}
