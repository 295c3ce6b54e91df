// Package mockserver is a local stand-in for the eraser API. It accepts the
// same request, runs a trivial fill instead of a model and serves the result
// from memory.
package mockserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/chaos-io/eraser-bench/eraser"
	"github.com/chaos-io/eraser-bench/util"
)

const (
	ErasePath   = "/v1/eraser"
	resultsPath = "/results"
)

type Config struct {
	// Token, when set, must match the api_token header.
	Token string
	// BaseURL prefixes result URLs. Empty means http://<request host>.
	BaseURL string
}

type Server struct {
	cfg    Config
	logger *zap.Logger

	mu      sync.Mutex
	results map[string][]byte
}

func New(cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		logger:  logger.Named("mockserver"),
		results: make(map[string][]byte),
	}
}

// Handler 返回注册好路由的 gin 引擎
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Logger(s.logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST(ErasePath, s.erase)
	r.GET(resultsPath+"/:name", s.result)
	return r
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()
	s.logger.Info("mock eraser listening", zap.String("addr", addr), zap.String("path", ErasePath))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}

func (s *Server) erase(c *gin.Context) {
	if s.cfg.Token != "" && c.GetHeader("api_token") != s.cfg.Token {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api_token"})
		return
	}

	var req eraser.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}
	if req.File == "" || req.MaskFile == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file and mask_file are required"})
		return
	}

	img, err := decodeBase64Image(req.File)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file: " + err.Error()})
		return
	}
	mask, err := decodeBase64Image(req.MaskFile)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mask_file: " + err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, Inpaint(img, mask)); err != nil {
		s.logger.Error("failed to encode result", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode result"})
		return
	}

	id := ksuid.New().String()
	s.mu.Lock()
	s.results[id] = buf.Bytes()
	s.mu.Unlock()

	c.JSON(http.StatusOK, eraser.Response{ResultURL: s.resultURL(c, id)})
}

func (s *Server) result(c *gin.Context) {
	id := strings.TrimSuffix(c.Param("name"), ".png")
	// 每个结果只下载一次，取走即删除
	s.mu.Lock()
	data, ok := s.results[id]
	delete(s.results, id)
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) resultURL(c *gin.Context, id string) string {
	base := s.cfg.BaseURL
	if base == "" {
		base = "http://" + c.Request.Host
	}
	return fmt.Sprintf("%s%s/%s.png", strings.TrimSuffix(base, "/"), resultsPath, id)
}

func decodeBase64Image(s string) (image.Image, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	img, err := util.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
