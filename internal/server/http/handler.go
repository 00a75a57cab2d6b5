package http

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"accord/internal/attachments"
	"accord/internal/consensus"
	"accord/internal/jsonx"
	"accord/internal/logging"
)

// maxUploadBytes bounds one multipart request body.
const maxUploadBytes = 32 << 20

// SessionRunner runs one consensus session to completion, emitting progress
// on the sink. Implemented by consensus.Engine; narrowed here so handler
// tests can script outcomes.
type SessionRunner interface {
	Run(ctx context.Context, query string, opts consensus.SessionOptions, sink consensus.Sink) (*consensus.Result, error)
}

// ConsensusHandler serves the session endpoint as an SSE stream.
type ConsensusHandler struct {
	runner    SessionRunner
	extractor *attachments.Extractor
	metrics   *Metrics
	logger    logging.Logger

	maxStreams     chan struct{}
	streamDuration time.Duration
}

// NewConsensusHandler wires the session endpoint. maxStreams caps concurrent
// SSE streams; zero disables the cap. maxDuration bounds one stream's
// lifetime; zero disables it.
func NewConsensusHandler(runner SessionRunner, extractor *attachments.Extractor, metrics *Metrics, logger logging.Logger, maxStreams int, maxDuration time.Duration) *ConsensusHandler {
	h := &ConsensusHandler{
		runner:         runner,
		extractor:      extractor,
		metrics:        metrics,
		logger:         logging.OrNop(logger),
		streamDuration: maxDuration,
	}
	if maxStreams > 0 {
		h.maxStreams = make(chan struct{}, maxStreams)
	}
	return h
}

type sessionRequest struct {
	Question   string `json:"question" form:"question"`
	Mode       string `json:"mode" form:"mode"`
	Iterations int    `json:"iterations" form:"iterations"`
}

// parseRequest accepts either a JSON body or a multipart form with attached
// files. Attachment text is merged into the question before the engine sees
// it.
func (h *ConsensusHandler) parseRequest(c *gin.Context) (string, consensus.SessionOptions, error) {
	var req sessionRequest

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			return "", consensus.SessionOptions{}, fmt.Errorf("parse multipart form: %w", err)
		}
		req.Question = firstFormValue(form, "question")
		req.Mode = firstFormValue(form, "mode")
		if raw := firstFormValue(form, "iterations"); raw != "" {
			req.Iterations, err = strconv.Atoi(raw)
			if err != nil {
				return "", consensus.SessionOptions{}, fmt.Errorf("invalid iterations %q", raw)
			}
		}

		files, err := h.extractFiles(form.File["files"])
		if err != nil {
			return "", consensus.SessionOptions{}, err
		}
		req.Question = attachments.BuildQueryText(req.Question, files)
	} else if err := c.ShouldBindJSON(&req); err != nil {
		return "", consensus.SessionOptions{}, fmt.Errorf("parse request body: %w", err)
	}

	if strings.TrimSpace(req.Question) == "" {
		return "", consensus.SessionOptions{}, fmt.Errorf("question is required")
	}
	switch consensus.Mode(req.Mode) {
	case "", consensus.ModeFast, consensus.ModeRobust:
	default:
		return "", consensus.SessionOptions{}, fmt.Errorf("invalid mode %q: must be %q or %q", req.Mode, consensus.ModeFast, consensus.ModeRobust)
	}
	if req.Iterations < 0 || req.Iterations > consensus.MaxIterations {
		return "", consensus.SessionOptions{}, fmt.Errorf("invalid iterations %d: must be in [1, %d]", req.Iterations, consensus.MaxIterations)
	}
	opts := consensus.SessionOptions{
		Mode:       consensus.Mode(req.Mode),
		Iterations: req.Iterations,
	}
	return req.Question, opts, nil
}

func firstFormValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func (h *ConsensusHandler) extractFiles(headers []*multipart.FileHeader) ([]attachments.File, error) {
	if h.extractor == nil || len(headers) == 0 {
		return nil, nil
	}
	files := make([]attachments.File, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", header.Filename, err)
		}
		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", header.Filename, err)
		}
		text, err := h.extractor.Extract(header.Filename, data)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", header.Filename, err)
		}
		files = append(files, attachments.File{Name: header.Filename, Text: text})
	}
	return files, nil
}

// HandleSession runs one consensus session, streaming progress events as SSE
// frames. The stream is the only delivery channel for the result.
func (h *ConsensusHandler) HandleSession(c *gin.Context) {
	if h.maxStreams != nil {
		select {
		case h.maxStreams <- struct{}{}:
			defer func() { <-h.maxStreams }()
		default:
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "stream limit exceeded"})
			return
		}
	}

	query, opts, err := h.parseRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if h.streamDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.streamDuration)
		defer cancel()
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	events := make(chan consensus.Event, 64)
	done := make(chan struct{})
	go func() {
		defer close(events)
		defer close(done)
		result, err := h.runner.Run(ctx, query, opts, consensus.SinkFunc(func(event consensus.Event) {
			select {
			case events <- event:
			case <-ctx.Done():
			}
		}))
		h.recordOutcome(result, err)
	}()

	for event := range events {
		h.writeEvent(c, event)
	}
	<-done
	h.logger.Info("session stream closed")
}

func (h *ConsensusHandler) recordOutcome(result *consensus.Result, err error) {
	if h.metrics == nil {
		return
	}
	switch {
	case err != nil:
		h.metrics.Sessions.WithLabelValues("error").Inc()
	case result.Consensus:
		h.metrics.Sessions.WithLabelValues("consensus").Inc()
	default:
		h.metrics.Sessions.WithLabelValues("fallback").Inc()
	}
}

func (h *ConsensusHandler) writeEvent(c *gin.Context, event consensus.Event) {
	payload, err := jsonx.Marshal(event)
	if err != nil {
		h.logger.Error("serialize event: %v", err)
		return
	}
	if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
		h.logger.Warn("write SSE frame: %v", err)
		return
	}
	c.Writer.Flush()
}

// HandleHealth reports liveness.
func HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
