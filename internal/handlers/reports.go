package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"canteen/internal/service"
)

func FullReport(reports *service.Reports) gin.HandlerFunc {
	return reportHandler("GET /api/reports/full-report/:theaterId", reports, reports.Full)
}

func MySalesReport(reports *service.Reports) gin.HandlerFunc {
	return reportHandler("GET /api/reports/my-sales/:theaterId", reports, reports.MySales)
}

type reportFunc func(ctx context.Context, caller service.Caller, theater primitive.ObjectID, f service.ReportFilter) (service.Report, error)

// reportHandler renders a report as JSON or, with ?format=csv, as a CSV
// attachment. Date bounds are days in the configured timezone.
func reportHandler(route string, reports *service.Reports, build reportFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		caller, ok := requireCaller(c, route)
		if !ok {
			return
		}
		theater, ok := objectIDParam(c, route, "theaterId")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		dates, err := service.ParseDateRange(c.Query("startDate"), c.Query("endDate"), reports.Location(ctx))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		report, err := build(ctx, caller, theater, service.ReportFilter{
			Status: strings.TrimSpace(c.Query("status")),
			Range:  dates,
		})
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		if strings.EqualFold(c.Query("format"), "csv") {
			var buf bytes.Buffer
			if err := report.WriteCSV(&buf); err != nil {
				respondServiceError(c, route, err)
				return
			}
			c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.CSVFilename()))
			c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
			return
		}

		respondOK(c, http.StatusOK, report)
	}
}
