package s3

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/dongdio/s3mock/internal/s3err"
	"github.com/dongdio/s3mock/internal/s3store"
	"github.com/dongdio/s3mock/internal/s3xml"
	"github.com/dongdio/s3mock/utility/errs"
)

// Handler wires the S3 REST surface onto a Store. One Handler is
// shared by every request; all mutable state lives in the Store.
type Handler struct {
	Store       *s3store.Store
	Region      string
	OwnerID     string
	OwnerName   string
	ServiceHost string
}

func (h *Handler) owner() s3xml.Owner {
	return s3xml.Owner{ID: h.OwnerID, DisplayName: h.OwnerName}
}

func requestID(c *gin.Context) string {
	if v, ok := c.Get("requestID"); ok {
		return v.(string)
	}
	id, err := s3store.NewRequestID()
	if err != nil {
		id = "00000000"
	}
	c.Set("requestID", id)
	return id
}

// writeError maps err to its S3 error code and writes the XML error
// envelope, special-casing 304 Not Modified, which is written with no
// body; 412 Precondition Failed still carries the <Error> envelope.
func writeError(c *gin.Context, err error) {
	if errors.Is(err, errs.NotModified) {
		c.Status(http.StatusNotModified)
		return
	}
	apiErr := s3err.Map(err)
	c.Header("Content-Type", "application/xml")
	c.Status(apiErr.StatusCode)
	_ = s3err.Write(c.Writer, requestID(c), c.Request.URL.Path, apiErr)
}

// writeAPIError writes a specific APIError directly, bypassing Map,
// for failures that originate in the HTTP layer rather than the store.
func writeAPIError(c *gin.Context, apiErr s3err.APIError) {
	c.Header("Content-Type", "application/xml")
	c.Status(apiErr.StatusCode)
	_ = s3err.Write(c.Writer, requestID(c), c.Request.URL.Path, apiErr)
}

func writeXML(c *gin.Context, status int, v any) {
	c.Header("Content-Type", "application/xml")
	c.Status(status)
	_ = s3xml.Encode(c.Writer, v)
}

func readXML(c *gin.Context, v any) error {
	return s3xml.Decode(c.Request.Body, v)
}
