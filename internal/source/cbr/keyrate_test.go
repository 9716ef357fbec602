package cbr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

// Rows newest-first, as the bank renders them.
const keyRateHTML = `<html><body>
<table class="data">
  <tr><th>Date</th><th>Rate</th></tr>
  <tr>
    <td>16.12.2024</td>
    <td>21,00</td>
  </tr>
  <tr>
    <td>28.10.2024</td>
    <td>21,00</td>
  </tr>
  <tr>
    <td>16.09.2024</td>
    <td>19,00</td>
  </tr>
</table>
</body></html>`

func keyRateServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body))
	}))
}

func TestCurrentKeyRate(t *testing.T) {
	server := keyRateServer(t, keyRateHTML)
	defer server.Close()

	rate := newTestClient(server.URL).CurrentKeyRate(context.Background())
	if rate == nil {
		t.Fatal("expected a key rate, got nil")
	}
	if rate.Date != "2024-12-16" {
		t.Errorf("date = %s, want 2024-12-16 (newest row)", rate.Date)
	}
	if want := decimal.RequireFromString("21"); !rate.Rate.Equal(want) {
		t.Errorf("rate = %s, want %s", rate.Rate, want)
	}
}

func TestKeyRateHistoryChronological(t *testing.T) {
	server := keyRateServer(t, keyRateHTML)
	defer server.Close()

	history := newTestClient(server.URL).KeyRateHistory(context.Background(), 10)
	if len(history) != 3 {
		t.Fatalf("expected 3 records, got %d", len(history))
	}
	wantDates := []string{"2024-09-16", "2024-10-28", "2024-12-16"}
	for i, want := range wantDates {
		if history[i].Date != want {
			t.Errorf("history[%d].Date = %s, want %s", i, history[i].Date, want)
		}
	}
}

func TestKeyRateHistoryTruncates(t *testing.T) {
	server := keyRateServer(t, keyRateHTML)
	defer server.Close()

	history := newTestClient(server.URL).KeyRateHistory(context.Background(), 2)
	if len(history) != 2 {
		t.Fatalf("expected 2 records, got %d", len(history))
	}
	// The two newest rows, reversed into chronological order.
	if history[0].Date != "2024-10-28" || history[1].Date != "2024-12-16" {
		t.Errorf("unexpected dates: %s, %s", history[0].Date, history[1].Date)
	}
}

func TestKeyRateHistoryNoMatches(t *testing.T) {
	server := keyRateServer(t, "<html><body><p>layout changed</p></body></html>")
	defer server.Close()

	history := newTestClient(server.URL).KeyRateHistory(context.Background(), 10)
	if len(history) != 0 {
		t.Errorf("expected empty history, got %d records", len(history))
	}
	if rate := newTestClient(server.URL).CurrentKeyRate(context.Background()); rate != nil {
		t.Errorf("expected nil key rate, got %+v", rate)
	}
}
