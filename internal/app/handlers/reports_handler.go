package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"coop-ledger/internal/pkg/consts"
	"coop-ledger/internal/service/report"

	"github.com/gin-gonic/gin"
)

type ReportsHandler struct {
	service ReportService
	now     func() time.Time
}

func NewReportsHandler(service ReportService) *ReportsHandler {
	return &ReportsHandler{service: service, now: func() time.Time { return time.Now().UTC() }}
}

func (h *ReportsHandler) Summary(c *gin.Context) {
	r, err := h.service.Summary(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *ReportsHandler) MembersCSV(c *gin.Context) {
	h.csv(c, report.FileName(h.now()), h.service.MembersCSV)
}

func (h *ReportsHandler) TransactionsCSV(c *gin.Context) {
	name := strings.Replace(report.FileName(h.now()), "member-report", "transaction-history", 1)
	h.csv(c, name, h.service.TransactionsCSV)
}

func (h *ReportsHandler) Export(c *gin.Context) {
	object, err := h.service.Export(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"object": object})
}

// csv renders the whole file before responding so a failed render still
// yields a proper error status.
func (h *ReportsHandler) csv(c *gin.Context, filename string, render func(context.Context, io.Writer) error) {
	var buf bytes.Buffer
	if err := render(c.Request.Context(), &buf); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, consts.ReportContentType, buf.Bytes())
}
