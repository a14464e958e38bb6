package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"studyplan/internal/models"
)

// Statistics periods accepted by the backend.
const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodAll   = "all"
)

// GetStatistics returns the progress summary for period.
func (c *Client) GetStatistics(ctx context.Context, period string) (models.Statistics, error) {
	switch period {
	case "":
		period = PeriodWeek
	case PeriodWeek, PeriodMonth, PeriodAll:
	default:
		return models.Statistics{}, fmt.Errorf("unknown statistics period %q", period)
	}

	var resp statisticsDTO
	if err := c.do(ctx, http.MethodGet, "/statistics", url.Values{"period": {period}}, nil, &resp); err != nil {
		return models.Statistics{}, err
	}
	return resp.toModel(), nil
}
