package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pageza/fridgechef/backend/internal/render"
	"github.com/pageza/fridgechef/backend/internal/service"
	"github.com/pageza/fridgechef/backend/internal/types"
)

const (
	imageField = "image"

	// room for the multipart framing around the image itself
	multipartOverhead = 1 << 20
)

// uploadError is a rejected upload together with the status to answer with
type uploadError struct {
	status int
	resp   types.ErrorResponse
}

// AnalyzeHandler serves the photo analysis endpoints and the HTML page
type AnalyzeHandler struct {
	analyzer service.IAnalyzer
	maxBytes int64
	log      logrus.FieldLogger
}

// NewAnalyzeHandler creates a new AnalyzeHandler accepting images up to maxBytes
func NewAnalyzeHandler(analyzer service.IAnalyzer, maxBytes int64, log logrus.FieldLogger) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer: analyzer,
		maxBytes: maxBytes,
		log:      log.WithField("component", "api"),
	}
}

// RegisterRoutes registers the analysis routes
func (h *AnalyzeHandler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/", h.Index)
	router.POST("/analyze", h.Analyze)
	router.POST("/results", h.Results)
}

// Analyze handles POST /analyze and answers with JSON
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	resp, uerr := h.run(c)
	if uerr != nil {
		c.JSON(uerr.status, uerr.resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Results handles POST /results and answers with the rendered page
func (h *AnalyzeHandler) Results(c *gin.Context) {
	resp, uerr := h.run(c)
	if uerr != nil {
		h.page(c, uerr.status, render.PageData{Status: failedStatus(uerr.resp), Failed: true})
		return
	}

	ingredients, recipes, err := render.Sections(resp)
	if err != nil {
		h.log.WithError(err).Error("failed to render results")
		h.page(c, http.StatusInternalServerError, render.PageData{
			Status: failedStatus(types.ErrorResponse{Error: types.ErrMsgInternal}),
			Failed: true,
		})
		return
	}

	h.page(c, http.StatusOK, render.PageData{Ingredients: ingredients, Recipes: recipes})
}

// Index handles GET / with the empty page
func (h *AnalyzeHandler) Index(c *gin.Context) {
	h.page(c, http.StatusOK, render.PageData{})
}

func (h *AnalyzeHandler) page(c *gin.Context, status int, data render.PageData) {
	var buf bytes.Buffer
	if err := render.Page(&buf, data); err != nil {
		h.log.WithError(err).Error("failed to render page")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: types.ErrMsgInternal})
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// run reads the upload and analyzes it
func (h *AnalyzeHandler) run(c *gin.Context) (*types.AnalysisResponse, *uploadError) {
	image, uerr := h.readImage(c)
	if uerr != nil {
		return nil, uerr
	}

	resp, err := h.analyzer.Analyze(c.Request.Context(), *image)
	if err != nil {
		return nil, h.analysisError(c, err)
	}
	return resp, nil
}

func (h *AnalyzeHandler) readImage(c *gin.Context) (*service.Image, *uploadError) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	file, header, err := c.Request.FormFile(imageField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, tooLarge(h.maxBytes)
		}
		return nil, &uploadError{status: http.StatusBadRequest, resp: types.ErrorResponse{Error: types.ErrMsgNoImage}}
	}
	defer func() { _ = file.Close() }()

	if header.Size > h.maxBytes {
		return nil, tooLarge(h.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		return nil, &uploadError{status: http.StatusBadRequest, resp: types.ErrorResponse{Error: types.ErrMsgNoImage, Message: "could not read the uploaded file"}}
	}
	if int64(len(data)) > h.maxBytes {
		return nil, tooLarge(h.maxBytes)
	}
	if len(data) == 0 {
		return nil, &uploadError{status: http.StatusBadRequest, resp: types.ErrorResponse{Error: types.ErrMsgNoImage, Message: "the uploaded file is empty"}}
	}

	contentType, ok := imageContentType(data, header.Header.Get("Content-Type"))
	if !ok {
		return nil, &uploadError{
			status: http.StatusUnsupportedMediaType,
			resp:   types.ErrorResponse{Error: types.ErrMsgUnsupportedType, Message: "the uploaded file is not an image"},
		}
	}

	return &service.Image{Data: data, Filename: header.Filename, ContentType: contentType}, nil
}

func (h *AnalyzeHandler) analysisError(c *gin.Context, err error) *uploadError {
	logger := h.log.WithError(err).WithField("client", c.ClientIP())
	switch {
	case errors.Is(err, service.ErrProviderFailure):
		logger.Warn("analysis failed at the model provider")
		return &uploadError{
			status: http.StatusBadGateway,
			resp:   types.ErrorResponse{Error: types.ErrMsgAnalysisFailed, Message: "the recipe assistant is unavailable, try again later"},
		}
	case errors.Is(err, context.Canceled):
		logger.Info("client went away during analysis")
		return &uploadError{status: http.StatusInternalServerError, resp: types.ErrorResponse{Error: types.ErrMsgInternal}}
	default:
		logger.Error("analysis failed")
		return &uploadError{status: http.StatusInternalServerError, resp: types.ErrorResponse{Error: types.ErrMsgInternal}}
	}
}

func tooLarge(limit int64) *uploadError {
	return &uploadError{
		status: http.StatusRequestEntityTooLarge,
		resp:   types.ErrorResponse{Error: types.ErrMsgImageTooLarge, Message: "images must be at most " + humanBytes(limit)},
	}
}

// imageContentType sniffs the upload. Formats the sniffer does not know, such as
// HEIC, are accepted when the client declared an image type.
func imageContentType(data []byte, declared string) (string, bool) {
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed, true
	}
	if sniffed == "application/octet-stream" && strings.HasPrefix(declared, "image/") {
		return declared, true
	}
	return "", false
}

func failedStatus(resp types.ErrorResponse) string {
	msg := resp.Message
	if msg == "" {
		msg = resp.Error
	}
	return types.ErrMsgAnalysisFailed + ": " + msg
}
