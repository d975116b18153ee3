package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/docintel/internal/docintel/biz"
	"github.com/kart-io/docintel/internal/model"
	"github.com/kart-io/docintel/internal/pkg/httputils"
	"github.com/kart-io/docintel/pkg/errors"
)

// SearchHandler handles search requests.
type SearchHandler struct {
	svc biz.Service
}

// NewSearchHandler creates a SearchHandler.
func NewSearchHandler(svc biz.Service) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Search runs a semantic, keyword or hybrid query.
func (h *SearchHandler) Search(c *gin.Context) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrInvalidParam.WithMessage(err.Error()), nil)
		return
	}

	resp, err := h.svc.Search(c.Request.Context(), &req)
	httputils.WriteResponse(c, err, resp)
}
