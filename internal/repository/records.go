package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/vanshika/chatterledger/backend/internal/domain"
	"github.com/vanshika/chatterledger/backend/internal/graph"
)

func paymentProperties(p domain.Payment) map[string]any {
	return map[string]any{
		"clientId":  p.ClientID,
		"chatterId": p.ChatterID,
		"amount":    p.Amount,
		"feeAmount": p.FeeAmount,
		"currency":  p.Currency,
		"status":    p.Status,
		"platform":  p.Platform,
		"soldItem":  p.SoldItem,
		"model":     p.Model,
		"bank":      p.Bank,
		"message":   p.Message,
	}
}

// clientProperties leaves empty identity keys unset so the composite
// uniqueness constraints never collide on "".
func clientProperties(c domain.Client) map[string]any {
	props := map[string]any{
		"name":  c.Name,
		"notes": c.Notes,
	}
	if c.Email != "" {
		props["email"] = c.Email
	}
	if c.Phone != "" {
		props["phone"] = c.Phone
	}
	if c.PayoutDay > 0 {
		props["payoutDay"] = int64(c.PayoutDay)
	}
	return props
}

func chatterProperties(c domain.Chatter) map[string]any {
	props := map[string]any{
		"username":    strings.ToLower(strings.TrimSpace(c.Username)),
		"displayName": c.DisplayName,
		"role":        c.Role,
	}
	if c.DeletedAt != nil {
		props["deletedAt"] = formatTime(*c.DeletedAt)
	}
	return props
}

func paymentFromRecord(record graph.Record) domain.Payment {
	p := domain.Payment{
		ID:        toString(record["paymentId"]),
		TeamID:    toString(record["teamId"]),
		ClientID:  toString(record["clientId"]),
		ChatterID: toString(record["chatterId"]),
		Amount:    toFloat64(record["amount"]),
		FeeAmount: toFloat64(record["feeAmount"]),
		Currency:  toString(record["currency"]),
		Status:    toString(record["status"]),
		Platform:  toString(record["platform"]),
		SoldItem:  toString(record["soldItem"]),
		Model:     toString(record["model"]),
		Bank:      toString(record["bank"]),
		Message:   toString(record["message"]),
	}
	if ts := toTimePtr(record["paidAt"]); ts != nil {
		p.PaidAt = ts.UTC()
	}
	if ts := toTimePtr(record["createdAt"]); ts != nil {
		p.CreatedAt = ts.UTC()
	}
	return p
}

func clientFromRecord(record graph.Record) domain.Client {
	c := domain.Client{
		ID:        toString(record["clientId"]),
		TeamID:    toString(record["teamId"]),
		Name:      toString(record["name"]),
		Email:     toString(record["email"]),
		Phone:     toString(record["phone"]),
		PayoutDay: int(toInt64(record["payoutDay"])),
		Notes:     toString(record["notes"]),
		DeletedAt: toTimePtr(record["deletedAt"]),
	}
	if ts := toTimePtr(record["createdAt"]); ts != nil {
		c.CreatedAt = ts.UTC()
	}
	return c
}

func chatterFromRecord(record graph.Record) domain.Chatter {
	return domain.Chatter{
		ID:          toString(record["chatterId"]),
		TeamID:      toString(record["teamId"]),
		Username:    toString(record["username"]),
		DisplayName: toString(record["displayName"]),
		Role:        toString(record["role"]),
		DeletedAt:   toTimePtr(record["deletedAt"]),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return formatTime(*t)
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toFloat64(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func toInt64(val any) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func toTimePtr(val any) *time.Time {
	switch v := val.(type) {
	case time.Time:
		return &v
	case string:
		if v == "" {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &parsed
		}
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return &parsed
		}
	}
	return nil
}
