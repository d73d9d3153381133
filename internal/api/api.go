package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"promptcanvas/internal/catalog"
	"promptcanvas/internal/imagegen"
	"promptcanvas/internal/round"
	"promptcanvas/internal/scoring"
)

// Server wires the REST surface: the /api/generate proxy to the image
// provider plus the round lifecycle routes.
type Server struct {
	Controller *round.Controller
	Provider   imagegen.Provider
	Catalog    *catalog.Catalog
}

func (s *Server) Register(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	api := r.Group("/api")
	api.POST("/generate", s.generate)
	api.GET("/catalog", s.listCatalog)
	api.POST("/round/start", s.startRound)
	api.POST("/round/restart", s.restartRound)
	api.POST("/round/submit", s.submitPrompt)
	api.GET("/round/state", s.roundState)
}

// generate proxies a single prompt to the upstream image provider and
// returns the image as a data URI plus the seed used.
func (s *Server) generate(c *gin.Context) {
	var req struct {
		Prompt *string `json:"prompt"`
	}
	if err := c.BindJSON(&req); err != nil || req.Prompt == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt must be a string"})
		return
	}
	prompt := strings.TrimSpace(*req.Prompt)
	if len(prompt) < 4 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt must be at least 4 characters"})
		return
	}

	result, err := s.Provider.Generate(c.Request.Context(), prompt)
	if err != nil {
		if errors.Is(err, imagegen.ErrUpstream) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "image provider unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generation failed"})
		return
	}

	uri := "data:" + result.ContentType + ";base64," + base64.StdEncoding.EncodeToString(result.Image)
	c.JSON(http.StatusOK, gin.H{"imageBase64": uri, "seed": result.Seed})
}

func (s *Server) listCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"references": s.Catalog.Entries()})
}

func (s *Server) startRound(c *gin.Context) {
	c.JSON(http.StatusOK, s.Controller.Start())
}

func (s *Server) restartRound(c *gin.Context) {
	c.JSON(http.StatusOK, s.Controller.Restart())
}

func (s *Server) roundState(c *gin.Context) {
	c.JSON(http.StatusOK, s.Controller.Snapshot())
}

func (s *Server) submitPrompt(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	attempt, err := s.Controller.SubmitPrompt(c.Request.Context(), req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, round.ErrPromptTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"error": "prompt must be longer than 3 characters"})
		case errors.Is(err, round.ErrNotPlaying), errors.Is(err, round.ErrPipelinePending), errors.Is(err, round.ErrRoundSuperseded):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, imagegen.ErrUpstream):
			c.JSON(http.StatusBadGateway, gin.H{"error": "image provider unavailable"})
		case errors.Is(err, scoring.ErrDecode):
			c.JSON(http.StatusBadGateway, gin.H{"error": "generated image could not be decoded"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "submission failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempt": attempt, "state": s.Controller.Snapshot()})
}
