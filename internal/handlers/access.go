package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkarran/accessgate/internal/access"
	"github.com/mkarran/accessgate/internal/services"
	"github.com/mkarran/accessgate/pkg/errors"
	"github.com/mkarran/accessgate/pkg/metrics"
	"github.com/mkarran/accessgate/pkg/response"
)

// AccessHandler exposes combined access checks over the authenticated user's
// grant snapshot.
type AccessHandler struct {
	snapshots *services.SnapshotService
}

func NewAccessHandler(snapshots *services.SnapshotService) *AccessHandler {
	return &AccessHandler{snapshots: snapshots}
}

type checkRequest struct {
	Permissions []string `json:"permissions"`
	Roles       []string `json:"roles"`
	Guards      []string `json:"guards"`
	RequireAll  bool     `json:"require_all"`
}

// POST /api/access/check
//
// The response always carries an evaluation result; denial is expressed in
// the result body rather than an HTTP error.
func (h *AccessHandler) Check(c *gin.Context) {
	var req checkRequest
	if !bindAndValidate(c, &req) {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	evaluator, err := h.snapshots.EvaluatorFor(requestContext(c), userID)
	if err != nil {
		// An unknown or inactive user evaluates as unauthenticated.
		evaluator = access.NewEvaluator(nil)
	}

	result := evaluator.Evaluate(access.Query{
		Permissions: req.Permissions,
		Roles:       req.Roles,
		Guards:      req.Guards,
		RequireAll:  req.RequireAll,
	})

	outcome := "denied"
	switch {
	case result.Granted:
		outcome = "granted"
	case result.Error != nil:
		outcome = "error"
	}
	metrics.AccessChecks.WithLabelValues(outcome).Inc()

	response.Success(c, http.StatusOK, result)
}

// GET /api/access/me
func (h *AccessHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	snapshot, err := h.snapshots.Load(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	evaluator := access.NewEvaluator(snapshot)

	response.Success(c, http.StatusOK, gin.H{
		"user_id":     snapshot.UserID,
		"permissions": evaluator.PermissionNames(),
		"roles":       evaluator.RoleNames(),
	})
}
