// Package httpapi is the mock backend's HTTP surface: a health probe
// plus the two streaming graph endpoints the client consumes.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/worldviewlab/claimgraph/internal/mockbackend/config"
	"github.com/worldviewlab/claimgraph/internal/mockbackend/pipeline"
	"github.com/worldviewlab/claimgraph/internal/platform/logger"
)

func NewServer(cfg *config.Config, log *logger.Logger, p *pipeline.Pipeline) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           NewRouter(cfg, log, p),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.HTTP.IdleTimeout.Duration,
		// Streaming responses have no bounded write window.
		WriteTimeout: 0,
	}
}

func NewRouter(cfg *config.Config, log *logger.Logger, p *pipeline.Pipeline) *gin.Engine {
	if strings.HasPrefix(strings.ToLower(cfg.Env), "prod") {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(accessLogMiddleware(log))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Accept", "X-Request-Id"},
		AllowCredentials: false,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	r.POST("/v1/graph/stream", handleGraphStream(cfg, log, p))
	r.POST("/v1/graph/expand", handleGraphExpand(cfg, log, p))

	return r
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

func writeError(c *gin.Context, status int, message string, code string, param string) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = http.StatusText(status)
	}
	c.JSON(status, errorEnvelope{Error: errorBody{
		Message: msg,
		Code:    strings.TrimSpace(code),
		Param:   strings.TrimSpace(param),
	}})
}

// streamEmitter adapts a gin response writer into a pipeline emitter.
func streamEmitter(c *gin.Context) pipeline.Emitter {
	return func(event string, data any) error {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		if err := WriteSSE(c.Writer, event, string(b)); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}
}
