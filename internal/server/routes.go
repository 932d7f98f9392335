package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/bitpacket/internal/auth"
	"github.com/danmuck/bitpacket/internal/observability"
	"github.com/danmuck/bitpacket/internal/protocol"
	"github.com/danmuck/bitpacket/internal/protocol/export"
	"github.com/danmuck/bitpacket/internal/protocol/packet"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	version     = "0.1.0"
	contentCBOR = "application/cbor"
)

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Started).String(),
			"service": s.Name,
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"uptime":  time.Since(s.Started).String(),
			"service": s.Name,
			"version": version,
		})
	})

	v1 := s.router.Group("/v1")
	if s.token != "" {
		v1.Use(auth.Require(auth.StaticToken{Token: s.token}))
	}
	v1.POST("/decode", s.handleDecode)
	v1.POST("/decode/batch", s.handleBatch)
}

type decodeRequest struct {
	Hex *string `json:"hex"`
}

type batchRequest struct {
	Transmissions []string `json:"transmissions"`
}

type decodeResponse struct {
	VersionSum int64        `json:"version_sum" cbor:"version_sum"`
	Value      int64        `json:"value" cbor:"value"`
	Bits       int          `json:"bits" cbor:"bits"`
	Padding    int          `json:"padding" cbor:"padding"`
	Stats      packet.Stats `json:"stats" cbor:"stats"`
	Tree       export.Node  `json:"tree" cbor:"tree"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Offset int    `json:"offset"`
}

type batchItem struct {
	Index int `json:"index"`
	*decodeResponse
	Error *errorResponse `json:"error,omitempty"`
}

func (s *Server) handleDecode(c *gin.Context) {
	var req decodeRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Hex == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hex is required"})
		return
	}

	report, err := s.analyzer.Analyze(*req.Hex)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, newErrorResponse(err))
		return
	}

	resp := newDecodeResponse(report)
	if strings.EqualFold(c.Query("format"), "cbor") {
		body, err := export.EncodeCBOR(resp)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, contentCBOR, body)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleBatch(c *gin.Context) {
	var req batchRequest
	if !s.bind(c, &req) {
		return
	}

	results, err := s.analyzer.AnalyzeAll(c.Request.Context(), req.Transmissions, s.workers)
	if err != nil {
		log.Warn().
			Str("request_id", observability.RequestIDFrom(c)).
			Err(err).
			Msg("batch decode interrupted")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	items := make([]batchItem, len(results))
	failed := 0
	for i, res := range results {
		items[i].Index = res.Index
		if res.Err != nil {
			items[i].Error = newErrorResponse(res.Err)
			failed++
			continue
		}
		resp := newDecodeResponse(res.Report)
		items[i].decodeResponse = &resp
	}
	c.JSON(http.StatusOK, gin.H{
		"results": items,
		"failed":  failed,
	})
}

func (s *Server) bind(c *gin.Context, dst any) bool {
	if s.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody)
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func newDecodeResponse(r *protocol.Report) decodeResponse {
	return decodeResponse{
		VersionSum: r.VersionSum,
		Value:      r.Value,
		Bits:       r.Bits,
		Padding:    r.Padding,
		Stats:      r.Stats,
		Tree:       export.Tree(r.Packet),
	}
}

func newErrorResponse(err error) *errorResponse {
	offset, _ := packet.OffsetOf(err)
	return &errorResponse{
		Error:  err.Error(),
		Kind:   packet.KindOf(err),
		Offset: offset,
	}
}
