package handler

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
)

// NewEngine serves h over plain HTTP for local development. Requests are
// translated into API Gateway proxy events so both deployments share one
// code path.
func NewEngine(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger))

	serve := h.serveGin
	r.POST("/chat", serve)
	r.POST("/ask", serve)
	r.POST("/contact", serve)
	r.GET("/projects", serve)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.NoRoute(serve)
	return r
}

func (h *Handler) serveGin(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	headers := make(map[string]string, len(c.Request.Header))
	for k, v := range c.Request.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	query := make(map[string]string)
	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	resp, _ := h.Handle(c.Request.Context(), events.APIGatewayProxyRequest{
		HTTPMethod:            c.Request.Method,
		Path:                  c.Request.URL.Path,
		Headers:               headers,
		QueryStringParameters: query,
		Body:                  string(body),
	})

	for k, v := range resp.Headers {
		c.Header(k, v)
	}
	c.Status(resp.StatusCode)
	if resp.Body != "" {
		_, _ = c.Writer.WriteString(resp.Body)
	}
}

func requestLogger(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}
