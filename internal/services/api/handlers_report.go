package api

import (
	"net/http"

	"syncfabric/internal/platform/store"
)

func (d Deps) dailyReport(r *http.Request) (any, error) {
	return d.Report.DailyReport(r.Context(), intParam(r, "days", 7))
}

func (d Deps) dashboardOverview(r *http.Request) (any, error) {
	return d.Report.DashboardOverview(r.Context(), intParam(r, "limit", 8))
}

func (d Deps) topCustomers(r *http.Request) (any, error) {
	tag, err := tagParam(r, "db")
	if err != nil {
		return nil, err
	}
	return d.Report.TopCustomers(r.Context(), tag, intParam(r, "days", 30), intParam(r, "limit", 10))
}

type queryIn struct {
	DB    string `json:"db" validate:"required"`
	SQL   string `json:"sql" validate:"required"`
	Limit int    `json:"limit"`
}

func (d Deps) runQuery(r *http.Request, in queryIn) (any, error) {
	tag, err := store.ParseTag(in.DB)
	if err != nil {
		return nil, err
	}
	return d.Report.RunQuery(r.Context(), tag, in.SQL, in.Limit)
}
