package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pricewatch/internal/pricing"
	"pricewatch/internal/report"
	"pricewatch/internal/storage"
)

// parseFilter builds a report filter from the request query string. month is
// 1-12; setting month or year disables the rolling range.
func (s *Server) parseFilter(c *gin.Context) (report.Filter, bool) {
	f := report.Filter{
		Commodity:    c.Query("commodity"),
		Store:        c.Query("store"),
		Municipality: c.Query("municipality"),
		Range:        report.DateRange(c.DefaultQuery("range", s.cfg.Report.DefaultRange)),
		Now:          time.Now().UTC(),
	}

	switch f.Range {
	case report.RangeAllTime, report.RangeLast30Days, report.RangeLast90Days:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "range must be one of all, 30d, 90d"})
		return report.Filter{}, false
	}

	if raw := c.Query("month"); raw != "" {
		m := intQuery(c, "month", 0)
		if m < 1 || m > 12 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "month must be between 1 and 12"})
			return report.Filter{}, false
		}
		month := time.Month(m)
		f.Month = &month
	}
	if raw := c.Query("year"); raw != "" {
		y := intQuery(c, "year", 0)
		if y < 1970 || y > 9999 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "year out of range"})
			return report.Filter{}, false
		}
		f.Year = &y
	}

	return f, true
}

func (s *Server) limits(c *gin.Context) report.Limits {
	return report.Limits{
		TopCommodities: intQuery(c, "topCommodities", s.cfg.Report.TopCommodities),
		ExtremeCount:   intQuery(c, "extremes", s.cfg.Report.ExtremeCount),
		TopLocations:   intQuery(c, "topLocations", s.cfg.Report.TopLocations),
		TopMovers:      intQuery(c, "topMovers", s.cfg.Report.TopMovers),
	}
}

func (s *Server) loadObservations(c *gin.Context) ([]pricing.Observation, bool) {
	records, err := s.prices.ListAllPrices(c.Request.Context())
	if err != nil {
		s.internalError(c, err, "load observations")
		return nil, false
	}
	return storage.Observations(records), true
}

func (s *Server) handleDashboard(c *gin.Context) {
	f, ok := s.parseFilter(c)
	if !ok {
		return
	}
	obs, ok := s.loadObservations(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report.BuildDashboard(obs, f, s.limits(c)))
}

func (s *Server) handlePrevailing(c *gin.Context) {
	f, ok := s.parseFilter(c)
	if !ok {
		return
	}
	obs, ok := s.loadObservations(c)
	if !ok {
		return
	}
	summaries := report.SummarizeByCommodity(f.Apply(obs), s.limits(c).TopCommodities)
	c.JSON(http.StatusOK, gin.H{"commodities": summaries})
}

func (s *Server) handleTrend(c *gin.Context) {
	f, ok := s.parseFilter(c)
	if !ok {
		return
	}
	obs, ok := s.loadObservations(c)
	if !ok {
		return
	}
	filtered := f.Apply(obs)
	c.JSON(http.StatusOK, gin.H{
		"stats":  report.StatsFor(filtered),
		"series": report.DailyAverages(filtered),
	})
}

func (s *Server) handleMovers(c *gin.Context) {
	f, ok := s.parseFilter(c)
	if !ok {
		return
	}
	obs, ok := s.loadObservations(c)
	if !ok {
		return
	}
	increases, decreases := report.TopMovers(f.Apply(obs), s.limits(c).TopMovers)
	c.JSON(http.StatusOK, gin.H{
		"increases": increases,
		"decreases": decreases,
	})
}

func (s *Server) handleCompliance(c *gin.Context) {
	f, ok := s.parseFilter(c)
	if !ok {
		return
	}
	obs, ok := s.loadObservations(c)
	if !ok {
		return
	}
	filtered := f.Apply(obs)
	latest := report.LatestPerCommodity(filtered)

	breaches := make([]pricing.Observation, 0)
	for _, o := range latest {
		if !o.Compliant() {
			breaches = append(breaches, o)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"counts":   report.Compliance(filtered),
		"breaches": breaches,
	})
}
