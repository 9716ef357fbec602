package cbr

import (
	"context"
	"regexp"

	"finflow/internal/fetch"
	"finflow/internal/models"
	"finflow/logger"
)

// The key rate history has no structured API; it is published as an HTML
// table with a date cell followed by a percent cell, newest row first.
var keyRateRowPattern = regexp.MustCompile(
	`(?si)<tr[^>]*>\s*<td[^>]*>\s*(\d{2}\.\d{2}\.\d{4})\s*</td>\s*<td[^>]*>\s*([\d]+[.,]?\d*)\s*</td>`)

func (c *Client) scrapeKeyRates(ctx context.Context, limit int) []models.KeyRate {
	logger.RecordFetch("cbr")
	log := c.log.WithComponent("cbr_keyrate")

	if limit <= 0 {
		limit = -1
	}

	body, err := fetch.Get(ctx, c.http, c.cfg.KeyRateURL)
	if err != nil {
		logger.RecordSoftFail("cbr")
		log.WithError(err).Warn("failed to fetch key rate page")
		return nil
	}

	matches := keyRateRowPattern.FindAllStringSubmatch(string(body), limit)
	if len(matches) == 0 {
		// Indistinguishable from "no data": the page may have changed shape.
		logger.RecordSoftFail("cbr")
		log.Warn("key rate pattern matched zero rows")
		return nil
	}

	rates := make([]models.KeyRate, 0, len(matches))
	for _, m := range matches {
		date, err := toISODate(m[1])
		if err != nil {
			log.WithError(err).Debug("skipping key rate row with malformed date")
			continue
		}
		rate, err := parseCommaDecimal(m[2])
		if err != nil {
			log.WithError(err).Debug("skipping key rate row with malformed value")
			continue
		}
		rates = append(rates, models.KeyRate{Rate: rate, Date: date})
	}
	return rates
}

// CurrentKeyRate scrapes the key rate page and returns the newest entry, or
// nil when the page cannot be fetched or yields no rows.
func (c *Client) CurrentKeyRate(ctx context.Context) *models.KeyRate {
	rates := c.scrapeKeyRates(ctx, 1)
	if len(rates) == 0 {
		return nil
	}
	return &rates[0]
}

// KeyRateHistory returns at most maxRecords key rate changes in ascending
// chronological order. The source table lists rows newest-first, so the
// scraped slice is reversed before returning.
func (c *Client) KeyRateHistory(ctx context.Context, maxRecords int) []models.KeyRate {
	rates := c.scrapeKeyRates(ctx, maxRecords)
	if len(rates) == 0 {
		return []models.KeyRate{}
	}

	for i, j := 0, len(rates)-1; i < j; i, j = i+1, j-1 {
		rates[i], rates[j] = rates[j], rates[i]
	}
	return rates
}
