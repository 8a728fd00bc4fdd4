package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/shopbooks/internal/ledger/domain"
	obstracing "github.com/smallbiznis/shopbooks/internal/observability/tracing"
	reconciledomain "github.com/smallbiznis/shopbooks/internal/reconcile/domain"
)

const ctxCollectionKind = obstracing.CollectionKindKey

func (s *Server) AddCollection(c *gin.Context) {
	var req ledgerdomain.Candidate
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	c.Set(ctxCollectionKind, string(req.Kind))

	entry, err := s.engineSvc.AddCollectionEntry(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(ctxCollectionKind, string(entry.Kind))
	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

func (s *Server) ListCollections(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.engineSvc.History(c.Request.Context(), limit)})
}

func (s *Server) DeleteCollection(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	entry, err := s.engineSvc.RemoveCollectionEntry(c.Request.Context(), reconciledomain.RemoveRef{ID: id})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(ctxCollectionKind, string(entry.Kind))
	c.JSON(http.StatusOK, gin.H{"data": entry})
}

// RemoveCollection deletes by derived row: the row's __colId when present,
// else the legacy date/amount/domain match. A stale __colId falls back to the
// match when the row carries a date.
func (s *Server) RemoveCollection(c *gin.Context) {
	var req struct {
		ColID  string  `json:"__colId"`
		ID     string  `json:"id"`
		Date   string  `json:"date"`
		Amount float64 `json:"amount"`
		Domain string  `json:"domain"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ref := reconciledomain.RemoveRef{
		ID:     strings.TrimSpace(req.ColID),
		Date:   req.Date,
		Amount: req.Amount,
		Domain: req.Domain,
	}
	if ref.ID == "" {
		ref.ID = strings.TrimSpace(req.ID)
	}

	entry, err := s.engineSvc.RemoveCollectionEntry(c.Request.Context(), ref)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(ctxCollectionKind, string(entry.Kind))
	c.JSON(http.StatusOK, gin.H{"data": entry})
}

func (s *Server) CollectPool(c *gin.Context) {
	var req reconciledomain.PoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	c.Set(ctxCollectionKind, string(req.Kind))

	entry, err := s.engineSvc.CollectPool(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

func (s *Server) CollectSale(c *gin.Context) {
	var req reconciledomain.CollectRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	c.Set(ctxCollectionKind, string(ledgerdomain.KindSalesCredit))

	resp, err := s.engineSvc.CollectCreditSale(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) CollectService(c *gin.Context) {
	var req reconciledomain.CollectRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	c.Set(ctxCollectionKind, string(ledgerdomain.KindServiceCredit))

	resp, err := s.engineSvc.CollectCreditService(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// bindOptionalJSON accepts an empty body as the zero request.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		AbortWithError(c, invalidRequestError())
		return false
	}
	return true
}
