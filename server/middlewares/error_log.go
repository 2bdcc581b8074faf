package middlewares

import (
	"bytes"
	"encoding/xml"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ErrorLogging captures the response body for requests that fail so
// the S3 <Error> envelope's Code/Message reach the log, not just the
// bare status code.
func ErrorLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		w := &responseBodyWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		if c.Writer.Status() < 400 {
			return
		}
		if len(c.Errors) > 0 {
			log.Errorf("%s %s: %s", c.Request.Method, c.Request.URL.Path, c.Errors.String())
			return
		}
		var body struct {
			XMLName xml.Name `xml:"Error"`
			Code    string   `xml:"Code"`
			Message string   `xml:"Message"`
		}
		if err := xml.Unmarshal(w.body.Bytes(), &body); err == nil && body.Code != "" {
			log.Errorf("%s %s: status=%d code=%s message=%s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), body.Code, body.Message)
			return
		}
		log.Errorf("%s %s: status=%d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}

// responseBodyWriter tees the response body into a buffer alongside
// the real ResponseWriter so ErrorLogging can inspect it afterward.
type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r *responseBodyWriter) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
