package generator

import "github.com/vanshika/chatterledger/backend/internal/service"

// ChatterInputs converts the generated chatters for registration.
func (d Dataset) ChatterInputs() []service.ChatterInput {
	out := make([]service.ChatterInput, 0, len(d.Chatters))
	for _, c := range d.Chatters {
		out = append(out, service.ChatterInput{
			ID:          c.ID,
			TeamID:      d.TeamID,
			Username:    c.Username,
			DisplayName: c.DisplayName,
			Role:        c.Role,
		})
	}
	return out
}

// ImportRows converts the generated payments into bulk import rows.
func (d Dataset) ImportRows() []service.ImportRow {
	out := make([]service.ImportRow, 0, len(d.Payments))
	for _, p := range d.Payments {
		paidAt := p.PaidAt
		out = append(out, service.ImportRow{
			PaymentInput: service.PaymentInput{
				ID:     p.ID,
				TeamID: d.TeamID,
				Client: service.ClientRef{
					Name:         p.ClientName,
					Email:        p.ClientEmail,
					Phone:        p.ClientPhone,
					FirstPayment: p.FirstPayment,
				},
				PaidAt:    &paidAt,
				Amount:    p.Amount,
				FeeAmount: p.FeeAmount,
				Platform:  p.Platform,
				SoldItem:  p.SoldItem,
				Model:     p.Model,
				Bank:      p.Bank,
			},
			ChatterUsername: p.ChatterUsername,
		})
	}
	return out
}
