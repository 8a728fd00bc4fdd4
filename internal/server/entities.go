package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	entitydomain "github.com/smallbiznis/shopbooks/internal/entity/domain"
)

func (s *Server) RecordSale(c *gin.Context) {
	var req entitydomain.RecordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.entitySvc.RecordSale(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListSales(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.entitySvc.ListSales(c.Request.Context())})
}

func (s *Server) RecordServiceJob(c *gin.Context) {
	var req entitydomain.RecordServiceJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.entitySvc.RecordServiceJob(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListServiceJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.entitySvc.ListServiceJobs(c.Request.Context())})
}

func (s *Server) CompleteServiceJob(c *gin.Context) {
	var req entitydomain.CompleteServiceJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.entitySvc.CompleteServiceJob(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddStock(c *gin.Context) {
	var req entitydomain.AddStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.entitySvc.AddStock(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListStock(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.entitySvc.ListStockItems(c.Request.Context())})
}

func (s *Server) SellStock(c *gin.Context) {
	var req struct {
		Qty float64 `json:"qty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.entitySvc.SellStock(c.Request.Context(), c.Param("id"), req.Qty)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecordExpense(c *gin.Context) {
	var req entitydomain.RecordExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.entitySvc.RecordExpense(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListExpenses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.entitySvc.ListExpenses(c.Request.Context())})
}
