package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrMalformedDocument = errors.New("malformed transaction document")

// Decode reads the stored document. Documents with a missing or unparsable
// timestamp, items that are not a list, or a non-numeric total fail with
// ErrMalformedDocument.
func (r *POSTransactionRecord) Decode() (POSTransaction, error) {
	return decodeDocument(r, false)
}

// DecodeLenient is Decode, except that an unusable document timestamp is
// replaced with the record's indexed timestamp.
func (r *POSTransactionRecord) DecodeLenient() (POSTransaction, error) {
	return decodeDocument(r, true)
}

func decodeDocument(r *POSTransactionRecord, lenient bool) (POSTransaction, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(r.Document), &fields); err != nil || fields == nil {
		return POSTransaction{}, fmt.Errorf("%w: not an object", ErrMalformedDocument)
	}

	itemsRaw, ok := fields["items"]
	if !ok || !strings.HasPrefix(strings.TrimSpace(string(itemsRaw)), "[") {
		return POSTransaction{}, fmt.Errorf("%w: items is not a list", ErrMalformedDocument)
	}
	var items []CartItem
	if err := json.Unmarshal(itemsRaw, &items); err != nil {
		return POSTransaction{}, fmt.Errorf("%w: items: %v", ErrMalformedDocument, err)
	}

	var total int64
	totalRaw, ok := fields["total_amount"]
	if !ok || string(totalRaw) == "null" {
		return POSTransaction{}, fmt.Errorf("%w: total_amount missing", ErrMalformedDocument)
	}
	if err := json.Unmarshal(totalRaw, &total); err != nil {
		return POSTransaction{}, fmt.Errorf("%w: total_amount is not numeric", ErrMalformedDocument)
	}

	ts, tsErr := parseTimestamp(fields["timestamp"])
	if tsErr != nil {
		if !lenient {
			return POSTransaction{}, fmt.Errorf("%w: %v", ErrMalformedDocument, tsErr)
		}
		ts = r.Timestamp
	}

	var rest struct {
		PaymentMethod PaymentMethod `json:"payment_method"`
		CashReceived  *int64        `json:"cash_received"`
		Change        *int64        `json:"change"`
		Status        string        `json:"status"`
		CashierID     string        `json:"cashier_id"`
		CashierName   string        `json:"cashier_name"`
		DateString    string        `json:"date_string"`
	}
	if err := json.Unmarshal([]byte(r.Document), &rest); err != nil {
		return POSTransaction{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	dateString := rest.DateString
	if dateString == "" {
		dateString = r.DateString
	}

	return POSTransaction{
		ID:            r.ID.String(),
		Items:         items,
		TotalAmount:   total,
		PaymentMethod: rest.PaymentMethod,
		CashReceived:  rest.CashReceived,
		Change:        rest.Change,
		Status:        rest.Status,
		CashierID:     rest.CashierID,
		CashierName:   rest.CashierName,
		Timestamp:     ts,
		DateString:    dateString,
	}, nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, errors.New("timestamp missing")
	}
	var ts time.Time
	if err := json.Unmarshal(raw, &ts); err != nil {
		return time.Time{}, errors.New("timestamp unparsable")
	}
	if ts.IsZero() {
		return time.Time{}, errors.New("timestamp missing")
	}
	return ts, nil
}
