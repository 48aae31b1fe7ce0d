package summary

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	sentKeywords = []string{
		"sent", "payment of", "paid to", "you paid", "payment to",
		"transferred to", "debited", "purchase at", "purchase to",
	}
	receivedKeywords = []string{
		"received", "payment from", "transferred from", "credited", "deposit",
	}
	airtimeKeywords = []string{"bought airtime", "buy airtime"}

	sentAmountRe     = regexp.MustCompile(`(?:payment of|paid|payment to|you paid|transferred to|debited|purchase at|purchase to)\D*?([\d,]+)\s*rwf`)
	receivedAmountRe = regexp.MustCompile(`(?:received|received from|payment from|transferred from|credited|deposit|you received|credited to)\D*?([\d,]+)\s*rwf`)
	anyAmountRe      = regexp.MustCompile(`rwf\s?([\d,]+)|([\d,]+)\s?rwf`)
	balanceRe        = regexp.MustCompile(`balance[:\s\w]*?(?:rwf\s?)?(\d[\d,]*)`)
	dateRe           = regexp.MustCompile(`on\s(\d{1,2}\s[a-z]+\s\d{4})`)
)

// Parse extracts the transaction described by one SMS. Unrecognised messages
// come back as TypeOther with whatever RWF amount they mention.
func Parse(sms string) Transaction {
	text := strings.ToLower(sms)
	tx := Transaction{Type: TypeOther}

	var contextual *regexp.Regexp
	switch {
	case containsAny(text, sentKeywords):
		tx.Type = TypeSent
		contextual = sentAmountRe
	case containsAny(text, receivedKeywords):
		tx.Type = TypeReceived
		contextual = receivedAmountRe
	case strings.Contains(text, "withdrawn"):
		tx.Type = TypeWithdrawn
	case containsAny(text, airtimeKeywords):
		tx.Type = TypeAirtime
	}

	amount, ok := 0.0, false
	if contextual != nil {
		amount, ok = firstAmount(contextual, text)
	}
	if !ok {
		amount, _ = firstAmount(anyAmountRe, text)
	}
	tx.Amount = amount

	if m := dateRe.FindStringSubmatch(text); m != nil {
		if d, err := time.Parse("2 January 2006", m[1]); err == nil {
			tx.Date = &d
		}
	}
	if balance, ok := firstAmount(balanceRe, text); ok {
		tx.Balance = &balance
	}
	return tx
}

// Summarize parses every message and totals them. The latest balance is the
// last one reported in input order.
func Summarize(messages []string) *Summary {
	s := &Summary{
		TransactionsCount: len(messages),
		MonthlySummary:    make(map[string]float64),
	}
	for _, sms := range messages {
		tx := Parse(sms)
		switch tx.Type {
		case TypeSent:
			s.TotalSent += tx.Amount
		case TypeReceived:
			s.TotalReceived += tx.Amount
		case TypeWithdrawn:
			s.TotalWithdrawn += tx.Amount
		case TypeAirtime:
			s.TotalAirtime += tx.Amount
		}
		if tx.Balance != nil {
			balance := *tx.Balance
			s.LatestBalance = &balance
		}
		if tx.Date != nil {
			s.MonthlySummary[tx.Date.Format(MonthLayout)] += tx.Amount
		}
	}
	return s
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// firstAmount returns the first non-empty capture group of re as a number
func firstAmount(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	for _, group := range m[1:] {
		digits := strings.ReplaceAll(group, ",", "")
		if digits == "" {
			continue
		}
		v, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}
