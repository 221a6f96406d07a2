package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/vta/internal/model"
	appErr "github.com/xxxsen/vta/internal/pkg/errors"
)

const healthMessage = "TDS Virtual TA is running"

type Answerer interface {
	Answer(ctx context.Context, q model.Query) *model.AnswerResponse
}

type QAHandler struct {
	qa Answerer
}

func NewQAHandler(qa Answerer) *QAHandler {
	return &QAHandler{qa: qa}
}

type askRequest struct {
	Question string `json:"question"`
	Image    string `json:"image"`
}

// Ask answers a question. Pipeline failures still come back as HTTP 200
// with the fallback answer; only bad requests use the error envelope.
func (h *QAHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, fmt.Errorf("%w: bind request: %w", appErr.ErrInvalid, err))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		handleError(c, fmt.Errorf("%w: question is required", appErr.ErrInvalid))
		return
	}
	resp := h.qa.Answer(c.Request.Context(), model.Query{Question: req.Question, Image: req.Image})
	if resp.Links == nil {
		resp.Links = []model.Link{}
	}
	c.JSON(http.StatusOK, resp)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": healthMessage})
}
