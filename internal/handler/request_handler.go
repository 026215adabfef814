package handler

import (
	"context"
	"net/http"
	"time"

	"expensehub/internal/middleware"
	"expensehub/internal/model"
	"expensehub/internal/policy"
	"expensehub/internal/service"
	"expensehub/pkg/pagination"
	"expensehub/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService service.RequestService
	jwtSecret      []byte
}

func NewRequestHandler(requestService service.RequestService, jwtSecret []byte) *RequestHandler {
	return &RequestHandler{requestService: requestService, jwtSecret: jwtSecret}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests", middleware.RequireAuth(h.jwtSecret))
	{
		requests.POST("", h.CreateRequest)
		requests.GET("", h.ListRequests)
		requests.GET("/my", h.ListMyRequests)
		requests.GET("/pending", middleware.RequireRole(model.RoleManager, model.RoleAdmin), h.ListPendingRequests)
		requests.GET("/stats", h.RequestStats)
		requests.GET("/:id", h.GetRequest)
		requests.PUT("/:id", h.UpdateRequest)
		requests.PUT("/:id/approve", middleware.RequireRole(model.RoleManager, model.RoleAdmin), h.ApproveRequest)
		requests.PUT("/:id/reject", middleware.RequireRole(model.RoleManager, model.RoleAdmin), h.RejectRequest)
		requests.PUT("/:id/cancel", h.CancelRequest)
		requests.GET("/:id/comments", h.GetComments)
		requests.POST("/:id/comments", h.AddComment)
		requests.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteRequest)
	}
}

// CreateRequest submits a new workflow request owned by the caller
// @Summary      Create request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRequestDTO  true  "Request payload"
// @Success      201      {object}  response.Response{data=model.Request}
// @Failure      400      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request payload: "+err.Error()))
		return
	}

	actor, _ := middleware.ActorFrom(c)
	record, err := h.requestService.Create(c.Request.Context(), actor, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, record))
}

// ListRequests returns requests visible to the caller; reviewers see all,
// everyone else sees their own
// @Summary      List requests
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        status    query  string  false  "Filter by status"
// @Param        type      query  string  false  "Filter by type"
// @Param        priority  query  string  false  "Filter by priority"
// @Param        from      query  string  false  "Created after (RFC3339)"
// @Param        to        query  string  false  "Created before (RFC3339)"
// @Param        page      query  int     false  "Page number"
// @Param        limit     query  int     false  "Items per page"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	h.list(c, h.requestService.List)
}

// ListMyRequests returns only the caller's own requests
// @Summary      List my requests
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/requests/my [get]
func (h *RequestHandler) ListMyRequests(c *gin.Context) {
	h.list(c, h.requestService.ListMine)
}

// ListPendingRequests returns the review queue for managers and admins
// @Summary      Pending requests
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/requests/pending [get]
func (h *RequestHandler) ListPendingRequests(c *gin.Context) {
	p := pagination.Parse(c)
	actor, _ := middleware.ActorFrom(c)

	records, total, err := h.requestService.ListPending(c.Request.Context(), actor, p)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"requests":   records,
		"pagination": pagination.NewMeta(p, len(records), total),
	}))
}

// RequestStats returns aggregates, scoped to the caller unless reviewer
// @Summary      Request statistics
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.RequestStats}
// @Router       /api/requests/stats [get]
func (h *RequestHandler) RequestStats(c *gin.Context) {
	actor, _ := middleware.ActorFrom(c)
	stats, err := h.requestService.Stats(c.Request.Context(), actor)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// GetRequest returns one request with comments and attachments
// @Summary      Get request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=model.Request}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(c)
	record, err := h.requestService.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
}

// UpdateRequest edits a still-pending request owned by the caller
// @Summary      Update request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Request ID"
// @Param        payload  body      service.UpdateRequestDTO  true  "Fields to update"
// @Success      200      {object}  response.Response{data=model.Request}
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id} [put]
func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.UpdateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request payload: "+err.Error()))
		return
	}

	actor, _ := middleware.ActorFrom(c)
	record, err := h.requestService.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
}

// ApproveRequest moves a pending request to approved
// @Summary      Approve request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=model.Request}
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/approve [put]
func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(c)
	record, err := h.requestService.Approve(c.Request.Context(), actor, id)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
}

// RejectRequest moves a pending request to rejected with a reason
// @Summary      Reject request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string             true   "Request ID"
// @Param        payload  body      service.RejectDTO  false  "Rejection reason"
// @Success      200      {object}  response.Response{data=model.Request}
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/reject [put]
func (h *RequestHandler) RejectRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.RejectDTO
	_ = c.ShouldBindJSON(&req) // body optional

	actor, _ := middleware.ActorFrom(c)
	record, err := h.requestService.Reject(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
}

// CancelRequest lets the owner withdraw a still-pending request
// @Summary      Cancel request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=model.Request}
// @Failure      409  {object}  response.Response
// @Router       /api/requests/{id}/cancel [put]
func (h *RequestHandler) CancelRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(c)
	record, err := h.requestService.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
}

// GetComments lists a request's comments, oldest first
// @Summary      List comments
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=[]model.Comment}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id}/comments [get]
func (h *RequestHandler) GetComments(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(c)
	comments, err := h.requestService.GetComments(c.Request.Context(), actor, id)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, comments))
}

// AddComment appends a comment to a request the caller can read
// @Summary      Add comment
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Request ID"
// @Param        payload  body      service.AddCommentDTO  true  "Comment body"
// @Success      201      {object}  response.Response{data=model.Comment}
// @Router       /api/requests/{id}/comments [post]
func (h *RequestHandler) AddComment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req service.AddCommentDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid request payload: "+err.Error()))
		return
	}

	actor, _ := middleware.ActorFrom(c)
	comment, err := h.requestService.AddComment(c.Request.Context(), actor, id, req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, comment))
}

// DeleteRequest hard-deletes a request and its children (admin only)
// @Summary      Delete request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [delete]
func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	actor, _ := middleware.ActorFrom(c)
	if err := h.requestService.Delete(c.Request.Context(), actor, id); err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "request deleted"}))
}

// list is the shared body of the full and owner-scoped listings.
func (h *RequestHandler) list(c *gin.Context, fn func(ctx context.Context, actor policy.Actor, filter service.RequestListFilter, p pagination.Params) ([]model.Request, int64, error)) {
	p := pagination.Parse(c)
	actor, _ := middleware.ActorFrom(c)

	filter := service.RequestListFilter{
		Status:      c.Query("status"),
		Type:        c.Query("type"),
		Priority:    c.Query("priority"),
		CreatedFrom: parseTimeQuery(c, "from"),
		CreatedTo:   parseTimeQuery(c, "to"),
	}

	records, total, err := fn(c.Request.Context(), actor, filter, p)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"requests":   records,
		"pagination": pagination.NewMeta(p, len(records), total),
	}))
}

func parseTimeQuery(c *gin.Context, key string) *time.Time {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}
