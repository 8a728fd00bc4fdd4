package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetDailySummary(c *gin.Context) {
	resp, err := s.engineSvc.GetDailySummary(c.Request.Context(), c.Query("date"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDashboard(c *gin.Context) {
	currency := ""
	if s.books != nil {
		currency = s.books.Get().Currency
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     s.engineSvc.GetDashboardTotals(c.Request.Context()),
		"currency": currency,
	})
}

func (s *Server) GetCreditCollectedViews(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.engineSvc.GetCreditCollectedViews(c.Request.Context())})
}

func (s *Server) GetPersistenceHealth(c *gin.Context) {
	report := s.persist.Health()
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"data": report})
}
