package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/docintel/internal/docintel/biz"
	"github.com/kart-io/docintel/internal/model"
	"github.com/kart-io/docintel/internal/pkg/httputils"
	"github.com/kart-io/docintel/pkg/errors"
)

// ChatHandler handles grounded question answering.
type ChatHandler struct {
	svc biz.Service
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(svc biz.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Chat answers a question grounded in the indexed corpus.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrInvalidParam.WithMessage(err.Error()), nil)
		return
	}

	resp, err := h.svc.Chat(c.Request.Context(), &req)
	httputils.WriteResponse(c, err, resp)
}
