package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkarran/accessgate/internal/navigation"
	"github.com/mkarran/accessgate/internal/services"
	"github.com/mkarran/accessgate/pkg/errors"
	"github.com/mkarran/accessgate/pkg/response"
)

// NavigationHandler returns the navigation tree filtered by the caller's grants.
type NavigationHandler struct {
	snapshots *services.SnapshotService
}

func NewNavigationHandler(snapshots *services.SnapshotService) *NavigationHandler {
	return &NavigationHandler{snapshots: snapshots}
}

// GET /api/navigation
func (h *NavigationHandler) Tree(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	evaluator, err := h.snapshots.EvaluatorFor(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := navigation.Filter(navigation.Tree(), evaluator)
	response.Success(c, http.StatusOK, gin.H{"items": items})
}
