package handlers

import (
	"net/http"

	"coop-ledger/internal/service/loans"

	"github.com/gin-gonic/gin"
)

type LoansHandler struct {
	service LoanService
}

func NewLoansHandler(service LoanService) *LoansHandler {
	return &LoansHandler{service: service}
}

func (h *LoansHandler) Apply(c *gin.Context) {
	var body loans.ApplyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindError(c, err)
		return
	}
	loan, err := h.service.Apply(c.Request.Context(), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (h *LoansHandler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(list), "loans": list})
}

func (h *LoansHandler) Get(c *gin.Context) {
	loan, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (h *LoansHandler) RecordPayment(c *gin.Context) {
	var body loans.PaymentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindError(c, err)
		return
	}
	result, err := h.service.RecordPayment(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *LoansHandler) UpdateStatus(c *gin.Context) {
	var body loans.StatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindError(c, err)
		return
	}
	loan, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}
