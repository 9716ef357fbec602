package cbr

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	"finflow/config"
	"finflow/internal/fetch"
	"finflow/internal/models"
	"finflow/logger"
)

// Client reads fiat exchange rates and the key policy rate from the central
// bank. The bank publishes windows-1251 encoded XML for rates and plain HTML
// for the key rate table, with no SLA; every operation on this client
// degrades to nil or an empty slice instead of returning an error.
type Client struct {
	cfg  config.BankSourceConfig
	http *http.Client
	log  *logger.Log
}

// NewClient constructs a central bank client from the bank source settings.
func NewClient(cfg config.BankSourceConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: fetch.NewClient(time.Duration(cfg.TimeoutSeconds) * time.Second),
		log:  logger.GetLogger(),
	}
}

// Internal currency identifiers used by the bank's date-range endpoint.
var currencyIDs = map[string]string{
	"USD": "R01235",
	"EUR": "R01239",
	"GBP": "R01035",
	"CNY": "R01375",
	"JPY": "R01820",
	"CHF": "R01775",
	"KZT": "R01335",
	"TRY": "R01700J",
}

type valCurs struct {
	XMLName xml.Name `xml:"ValCurs"`
	Date    string   `xml:"Date,attr"`
	Valutes []valute `xml:"Valute"`
}

type valute struct {
	NumCode  string `xml:"NumCode"`
	CharCode string `xml:"CharCode"`
	Nominal  int64  `xml:"Nominal"`
	Name     string `xml:"Name"`
	Value    string `xml:"Value"`
}

type valDynamic struct {
	XMLName xml.Name    `xml:"ValCurs"`
	Records []valRecord `xml:"Record"`
}

type valRecord struct {
	Date    string `xml:"Date,attr"`
	Nominal int64  `xml:"Nominal"`
	Value   string `xml:"Value"`
}

// charsetReader lets the XML decoder handle the bank's legacy single-byte
// encoding declared in the document header.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "windows-1251", "cp1251":
		return charmap.Windows1251.NewDecoder().Reader(input), nil
	case "utf-8", "":
		return input, nil
	}
	return nil, fmt.Errorf("unsupported charset %q", charset)
}

func decodeXML(data []byte, v interface{}) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader
	return dec.Decode(v)
}

// parseCommaDecimal converts the bank's localized decimal notation
// ("91,5125") into a decimal value.
func parseCommaDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
}

// toISODate converts the bank's DD.MM.YYYY date strings to ISO form.
func toISODate(s string) (string, error) {
	t, err := time.Parse("02.01.2006", strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}

// unitPrice divides the published value by its nominal so callers always see
// the price of one unit of currency.
func unitPrice(value string, nominal int64) (decimal.Decimal, error) {
	v, err := parseCommaDecimal(value)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if nominal > 1 {
		v = v.Div(decimal.NewFromInt(nominal))
	}
	return v, nil
}

// CurrentRate fetches the daily rate snapshot and returns the rate for the
// requested currency code. Returns nil when the code is absent or anything
// about the fetch or decode fails; callers treat nil as "retry later".
func (c *Client) CurrentRate(ctx context.Context, code string) *models.CurrencyRate {
	logger.RecordFetch("cbr")
	log := c.log.WithComponent("cbr_rates").WithFields(logger.Fields{"code": code})

	body, err := fetch.Get(ctx, c.http, c.cfg.DailyURL)
	if err != nil {
		logger.RecordSoftFail("cbr")
		log.WithError(err).Warn("failed to fetch daily rates")
		return nil
	}

	var doc valCurs
	if err := decodeXML(body, &doc); err != nil {
		logger.RecordSoftFail("cbr")
		log.WithError(err).Warn("failed to decode daily rates document")
		return nil
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	for _, v := range doc.Valutes {
		if v.CharCode != code {
			continue
		}
		value, err := unitPrice(v.Value, v.Nominal)
		if err != nil {
			logger.RecordSoftFail("cbr")
			log.WithError(err).Warn("malformed rate value")
			return nil
		}
		date, err := toISODate(doc.Date)
		if err != nil {
			logger.RecordSoftFail("cbr")
			log.WithError(err).Warn("malformed rate date")
			return nil
		}
		return &models.CurrencyRate{Value: value, Date: date}
	}

	logger.RecordSoftFail("cbr")
	log.Debug("currency code not present in daily snapshot")
	return nil
}

// RateOnDate fetches the rate for the requested currency on a specific day.
// The bank silently substitutes the nearest prior business day when no rate
// was published on the requested date; that substitution is upstream
// behaviour and is deliberately not corrected here.
func (c *Client) RateOnDate(ctx context.Context, code string, date time.Time) *decimal.Decimal {
	logger.RecordFetch("cbr")
	log := c.log.WithComponent("cbr_rates").WithFields(logger.Fields{
		"code": code,
		"date": date.Format("2006-01-02"),
	})

	endpoint := fmt.Sprintf("%s?date_req=%s", c.cfg.DailyURL, url.QueryEscape(date.Format("02/01/2006")))
	body, err := fetch.Get(ctx, c.http, endpoint)
	if err != nil {
		logger.RecordSoftFail("cbr")
		log.WithError(err).Warn("failed to fetch dated rates")
		return nil
	}

	var doc valCurs
	if err := decodeXML(body, &doc); err != nil {
		logger.RecordSoftFail("cbr")
		log.WithError(err).Warn("failed to decode dated rates document")
		return nil
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	for _, v := range doc.Valutes {
		if v.CharCode != code {
			continue
		}
		value, err := unitPrice(v.Value, v.Nominal)
		if err != nil {
			logger.RecordSoftFail("cbr")
			log.WithError(err).Warn("malformed rate value")
			return nil
		}
		return &value
	}

	logger.RecordSoftFail("cbr")
	return nil
}

// HistoricalSeries fetches the rate series for the last `days` days and
// returns it sorted ascending by date. The upstream does not guarantee
// record order. Unknown currency codes yield an empty slice.
func (c *Client) HistoricalSeries(ctx context.Context, code string, days int) []models.CurrencyRate {
	logger.RecordFetch("cbr")
	log := c.log.WithComponent("cbr_rates").WithFields(logger.Fields{"code": code, "days": days})

	id, ok := currencyIDs[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		logger.RecordSoftFail("cbr")
		log.Debug("no internal id for currency code")
		return []models.CurrencyRate{}
	}

	end := time.Now()
	start := end.AddDate(0, 0, -days)
	endpoint := fmt.Sprintf("%s?date_req1=%s&date_req2=%s&VAL_NM_RQ=%s",
		c.cfg.DynamicURL,
		url.QueryEscape(start.Format("02/01/2006")),
		url.QueryEscape(end.Format("02/01/2006")),
		id,
	)

	body, err := fetch.Get(ctx, c.http, endpoint)
	if err != nil {
		logger.RecordSoftFail("cbr")
		log.WithError(err).Warn("failed to fetch rate series")
		return []models.CurrencyRate{}
	}

	var doc valDynamic
	if err := decodeXML(body, &doc); err != nil {
		logger.RecordSoftFail("cbr")
		log.WithError(err).Warn("failed to decode rate series document")
		return []models.CurrencyRate{}
	}

	rates := make([]models.CurrencyRate, 0, len(doc.Records))
	for _, rec := range doc.Records {
		value, err := unitPrice(rec.Value, rec.Nominal)
		if err != nil {
			log.WithError(err).Debug("skipping malformed series record")
			continue
		}
		date, err := toISODate(rec.Date)
		if err != nil {
			log.WithError(err).Debug("skipping series record with malformed date")
			continue
		}
		rates = append(rates, models.CurrencyRate{Value: value, Date: date})
	}

	// ISO dates sort lexicographically.
	sort.Slice(rates, func(i, j int) bool { return rates[i].Date < rates[j].Date })
	return rates
}
