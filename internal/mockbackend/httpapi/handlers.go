package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/worldviewlab/claimgraph/internal/mockbackend/config"
	"github.com/worldviewlab/claimgraph/internal/mockbackend/pipeline"
	"github.com/worldviewlab/claimgraph/internal/platform/logger"
)

func handleGraphStream(cfg *config.Config, log *logger.Logger, p *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in GraphStreamRequest
		if err := bindJSON(c, cfg, &in); err != nil {
			writeError(c, http.StatusBadRequest, err.Error(), "invalid_request", "")
			return
		}
		if err := in.normalize(); err != nil {
			writeError(c, http.StatusBadRequest, err.Error(), "invalid_request", "")
			return
		}

		runStream(c, log, p, pipeline.Params{
			Worldview: in.Worldview,
			K:         in.K,
			TopN:      in.TopN,
			Threshold: in.Threshold,
		})
	}
}

func handleGraphExpand(cfg *config.Config, log *logger.Logger, p *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in GraphExpandRequest
		if err := bindJSON(c, cfg, &in); err != nil {
			writeError(c, http.StatusBadRequest, err.Error(), "invalid_request", "")
			return
		}
		if err := in.normalize(); err != nil {
			writeError(c, http.StatusBadRequest, err.Error(), "invalid_request", "")
			return
		}

		runStream(c, log, p, pipeline.Params{
			Worldview: in.Worldview,
			ParentID:  in.ParentID,
			ParentHop: in.ParentHop,
			K:         in.K,
			TopN:      in.TopN,
			Threshold: in.Threshold,
		})
	}
}

func bindJSON(c *gin.Context, cfg *config.Config, dst any) error {
	if cfg.HTTP.MaxRequestBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.HTTP.MaxRequestBytes)
	}
	return c.ShouldBindJSON(dst)
}

func runStream(c *gin.Context, log *logger.Logger, p *pipeline.Pipeline, params pipeline.Params) {
	c.Writer.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	// Keeps reverse proxies from buffering the stream.
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.Flush()

	emit := streamEmitter(c)
	err := p.Run(c.Request.Context(), params, emit)
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		log.Debug("stream cancelled by client", "request_id", c.GetString("request_id"))
		return
	}
	log.Error("pipeline failed", "error", err, "request_id", c.GetString("request_id"))
	_ = emit("error", map[string]any{"error": err.Error()})
}
