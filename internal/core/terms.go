// This file implements payment terms as a strategy registry. Each term name
// maps to a rule that derives an invoice due date from its issue date.

package core

import (
	"fmt"
	"sort"
	"time"
)

const (
	TermsNet10        = "net10"
	TermsNet15        = "net15"
	TermsNet30        = "net30"
	TermsNet60        = "net60"
	TermsDueOnReceipt = "due_on_receipt"
	TermsEndOfMonth   = "end_of_month"
)

// DefaultPaymentTerms applies when an invoice form names none.
const DefaultPaymentTerms = TermsNet30

// DueDateRule computes the due date of an invoice issued on date.
type DueDateRule interface {
	DueDate(date time.Time) time.Time
}

// NetDays is due a fixed number of days after issue.
type NetDays int

func (n NetDays) DueDate(date time.Time) time.Time {
	return date.AddDate(0, 0, int(n))
}

// EndOfMonth is due on the last day of the issue month.
type EndOfMonth struct{}

func (EndOfMonth) DueDate(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month()+1, 0, 0, 0, 0, 0, date.Location())
}

var paymentTerms = map[string]DueDateRule{
	TermsNet10:        NetDays(10),
	TermsNet15:        NetDays(15),
	TermsNet30:        NetDays(30),
	TermsNet60:        NetDays(60),
	TermsDueOnReceipt: NetDays(0),
	TermsEndOfMonth:   EndOfMonth{},
}

// GetDueDateRule returns the rule registered for terms.
func GetDueDateRule(terms string) (DueDateRule, error) {
	rule, ok := paymentTerms[terms]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTerms, terms)
	}
	return rule, nil
}

// RegisterPaymentTerms adds or replaces a named rule.
func RegisterPaymentTerms(terms string, rule DueDateRule) {
	paymentTerms[terms] = rule
}

// PaymentTermNames lists the registered terms in name order.
func PaymentTermNames() []string {
	names := make([]string, 0, len(paymentTerms))
	for k := range paymentTerms {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DueDateFor resolves the due date of an invoice issued on date ("YYYY-MM-DD").
func DueDateFor(terms, date string) (string, error) {
	if terms == "" {
		terms = DefaultPaymentTerms
	}
	rule, err := GetDueDateRule(terms)
	if err != nil {
		return "", err
	}
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return FormatDate(rule.DueDate(d)), nil
}
