package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/glance/internal/logger"
	"github.com/samcharles93/glance/internal/predictor"
)

// DefaultMaxBodyBytes bounds a prediction request, base64 image included.
const DefaultMaxBodyBytes = 32 << 20

// Predictor is the part of *predictor.Predictor the HTTP layer needs.
type Predictor interface {
	Run(ctx context.Context, req predictor.Request) (*predictor.Result, error)
}

type Config struct {
	Model        string
	Device       string
	Workers      int
	MaxBodyBytes int64
	// Metrics is served on /metrics when set.
	Metrics http.Handler
	Logger  logger.Logger
}

type Server struct {
	cfg       Config
	predictor Predictor
}

func NewServer(p Predictor, cfg Config) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	return &Server{cfg: cfg, predictor: p}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/predict", s.handlePredict)
	e.GET("/healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		e.GET("/metrics", s.handleMetrics)
	}
}

func (s *Server) handlePredict(c *echo.Context) error {
	if s.predictor == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "predictor not configured", "")
	}
	body, err := io.ReadAll(http.MaxBytesReader(nil, c.Request().Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return writeError(c, http.StatusRequestEntityTooLarge, "invalid_request_error",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), "")
		}
		return writeBadRequest(c, err.Error(), "")
	}
	var req PredictRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return writeBadRequest(c, err.Error(), "")
	}
	if err := validate(req); err != nil {
		return writeBadRequest(c, err.Error(), "image_b64")
	}

	ctx := logger.WithContext(c.Request().Context(), s.cfg.Logger)
	res, err := s.predictor.Run(ctx, predictor.Request{ImageB64: req.ImageB64, Prompt: req.Prompt})
	if err != nil {
		status, errType := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.cfg.Logger.Error("prediction failed", "error", err)
		}
		return writeError(c, status, errType, err.Error(), "")
	}

	resp := PredictResponse{ID: res.ID, Output: res.Output}
	if st := res.Stats; st.TokensGenerated > 0 {
		resp.Usage = &Usage{
			CompletionTokens: st.TokensGenerated,
			DurationMS:       st.Duration.Milliseconds(),
			TokensPerSecond:  st.TPS,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func validate(req PredictRequest) error {
	if strings.TrimSpace(req.ImageB64) == "" {
		return newInvalidRequest("image_b64 is required")
	}
	return nil
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Model:   s.cfg.Model,
		Device:  s.cfg.Device,
		Workers: s.cfg.Workers,
	})
}

func (s *Server) handleMetrics(c *echo.Context) error {
	s.cfg.Metrics.ServeHTTP(c.Response(), c.Request())
	return nil
}

func writeBadRequest(c *echo.Context, msg, param string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, param)
}

func writeError(c *echo.Context, status int, errType, msg, param string) error {
	return c.JSON(status, ErrorResponse{Error: ResponseError{
		Message: msg,
		Type:    errType,
		Param:   param,
	}})
}
