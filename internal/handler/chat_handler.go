package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docuvault/docuvault-api/internal/dto"
	appErrors "github.com/docuvault/docuvault-api/pkg/errors"
	"github.com/docuvault/docuvault-api/pkg/response"
)

type questionAnswerer interface {
	AskQuestion(ctx context.Context, question string) (string, error)
}

// ChatHandler serves natural-language questions over the document corpus.
type ChatHandler struct {
	service questionAnswerer
}

// NewChatHandler constructs the handler.
func NewChatHandler(service questionAnswerer) *ChatHandler {
	return &ChatHandler{service: service}
}

// Ask godoc
// @Summary Ask a question about the document corpus
// @Tags Chat
// @Accept json
// @Produce json
// @Param payload body dto.QuestionRequest true "Question"
// @Success 200 {object} response.Envelope
// @Router /chat [post]
func (h *ChatHandler) Ask(c *gin.Context) {
	var req dto.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "question is required"))
		return
	}
	answer, err := h.service.AskQuestion(c.Request.Context(), req.Question)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.AnswerResponse{Answer: answer}, nil)
}
