package handlers

import (
	"net/http"

	"coop-ledger/internal/service/members"

	"github.com/gin-gonic/gin"
)

type MembersHandler struct {
	service MemberService
}

func NewMembersHandler(service MemberService) *MembersHandler {
	return &MembersHandler{service: service}
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

func (h *MembersHandler) List(c *gin.Context) {
	list := h.service.List()
	c.JSON(http.StatusOK, gin.H{"count": len(list), "members": list})
}

func (h *MembersHandler) Register(c *gin.Context) {
	var body members.RegisterRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindError(c, err)
		return
	}
	member, err := h.service.Register(c.Request.Context(), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (h *MembersHandler) Get(c *gin.Context) {
	member, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *MembersHandler) Update(c *gin.Context) {
	var body members.UpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindError(c, err)
		return
	}
	member, err := h.service.Update(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *MembersHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": members.OutcomeDeleted})
}

func (h *MembersHandler) BulkDelete(c *gin.Context) {
	var body bulkDeleteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindError(c, err)
		return
	}
	outcomes, err := h.service.BulkDelete(c.Request.Context(), body.IDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": outcomes})
}

func (h *MembersHandler) Transactions(c *gin.Context) {
	txs, err := h.service.Transactions(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

func (h *MembersHandler) Loans(c *gin.Context) {
	list, err := h.service.Loans(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": list})
}
