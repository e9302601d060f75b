package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hamed0406/pricealert/internal/domain"
)

// BuildMessage renders the subject line and body for the targets that fired.
// Alerts keep configuration order.
func BuildMessage(alerts []domain.Alert, price float64, at time.Time, link string) (string, string) {
	var subject string
	if len(alerts) == 1 {
		subject = fmt.Sprintf("Price alert: %s below %s (now %s)",
			alerts[0].Label, num(alerts[0].Threshold), num(price))
	} else {
		subject = fmt.Sprintf("Price alert: %d thresholds breached (now %s)", len(alerts), num(price))
	}

	var b strings.Builder
	noun := "threshold"
	if len(alerts) != 1 {
		noun = "thresholds"
	}
	fmt.Fprintf(&b, "Price is %s, below %d configured %s:\n\n", num(price), len(alerts), noun)
	for _, a := range alerts {
		fmt.Fprintf(&b, "- %s (%s): threshold %s, re-arms at %s\n",
			a.Label, a.TargetID, num(a.Threshold), rearm(a.Threshold, a.Buffer))
	}
	b.WriteString("\nNo further alert fires for a target until the price recovers to its re-arm level.\n")
	if link != "" {
		fmt.Fprintf(&b, "\nRun: %s\n", link)
	}
	fmt.Fprintf(&b, "Checked at: %s\n", at.UTC().Format("2006-01-02 15:04:05 UTC"))
	return subject, b.String()
}

// num prints the shortest decimal form, without float noise or exponents.
func num(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// rearm adds in decimal so 0.1 + 0.2 prints as 0.3.
func rearm(threshold, buffer float64) string {
	return decimal.NewFromFloat(threshold).Add(decimal.NewFromFloat(buffer)).String()
}
