package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vanshika/chatterledger/backend/internal/domain"
	"github.com/vanshika/chatterledger/backend/internal/graph"
)

func TestRepository_InsertPayment(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	paidAt := time.Date(2024, 3, 10, 21, 15, 0, 0, time.UTC)
	p := domain.Payment{
		ID:        "PAY-001",
		TeamID:    "team-1",
		ClientID:  "CLI-1",
		ChatterID: "CHT-1",
		Amount:    500,
		FeeAmount: 25,
		Currency:  "CZK",
		PaidAt:    paidAt,
		Status:    domain.PaymentStatusCompleted,
		Platform:  "OnlyFans",
		CreatedAt: paidAt,
	}

	if err := repo.InsertPayment(context.Background(), p); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	calls := mem.WriteCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 write query, got %d", len(calls))
	}
	call := calls[0]
	if call.Query != insertPaymentCypher {
		t.Fatalf("unexpected query\nexpected:\n%s\ngot:\n%s", insertPaymentCypher, call.Query)
	}
	if call.Params["paidAt"] != "2024-03-10T21:15:00Z" {
		t.Errorf("paidAt mismatch: got %v", call.Params["paidAt"])
	}
	props, ok := call.Params["props"].(map[string]any)
	if !ok {
		t.Fatalf("expected props map, got %T", call.Params["props"])
	}
	if props["feeAmount"] != 25.0 {
		t.Errorf("feeAmount mismatch: got %v", props["feeAmount"])
	}
	if props["clientId"] != "CLI-1" {
		t.Errorf("clientId mismatch: got %v", props["clientId"])
	}
}

func TestRepository_InsertPaymentRequiresTeam(t *testing.T) {
	repo := New(graph.NewMemoryClient())
	err := repo.InsertPayment(context.Background(), domain.Payment{ID: "PAY-1"})
	if !errors.Is(err, ErrTeamRequired) {
		t.Fatalf("expected ErrTeamRequired, got %v", err)
	}
}

func TestRepository_QueryPayments(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	paidAt := time.Date(2024, 3, 10, 21, 15, 0, 0, time.UTC)
	mem.PushReadResult(graph.Result{Records: []graph.Record{
		{
			"paymentId": "PAY-1",
			"teamId":    "team-1",
			"clientId":  "CLI-1",
			"chatterId": "CHT-1",
			"amount":    int64(300),
			"feeAmount": nil,
			"currency":  "CZK",
			"paidAt":    paidAt,
			"createdAt": paidAt.Format(time.RFC3339Nano),
		},
	}})

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	payments, err := repo.QueryPayments(context.Background(), PaymentFilter{
		TeamID:   "team-1",
		From:     &from,
		Platform: " OnlyFans ",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("expected 1 payment, got %d", len(payments))
	}
	got := payments[0]
	if got.Amount != 300 || got.FeeAmount != 0 {
		t.Errorf("unexpected amounts: %+v", got)
	}
	if !got.PaidAt.Equal(paidAt) || !got.CreatedAt.Equal(paidAt) {
		t.Errorf("unexpected timestamps: %+v", got)
	}

	call := mem.ReadCalls()[0]
	if !strings.Contains(call.Query, "ORDER BY p.paidAt ASC, p.createdAt ASC, p.paymentId ASC") {
		t.Errorf("expected chronological ordering, got %s", call.Query)
	}
	if call.Params["from"] != "2024-03-01T00:00:00Z" {
		t.Errorf("from mismatch: got %v", call.Params["from"])
	}
	if call.Params["to"] != "" {
		t.Errorf("expected empty to bound, got %v", call.Params["to"])
	}
	if call.Params["platform"] != "onlyfans" {
		t.Errorf("platform should be normalized, got %v", call.Params["platform"])
	}
}

func TestRepository_QueryPaymentsRequiresTeam(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)
	if _, err := repo.QueryPayments(context.Background(), PaymentFilter{}); !errors.Is(err, ErrTeamRequired) {
		t.Fatalf("expected ErrTeamRequired, got %v", err)
	}
	if len(mem.ReadCalls()) != 0 {
		t.Fatalf("expected no query to be issued")
	}
}

func TestRepository_ListPayments(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	mem.OnRead("SKIP $skip", graph.Result{Records: []graph.Record{
		{"paymentId": "PAY-2", "amount": 10.0},
		{"paymentId": "PAY-1", "amount": 20.0},
	}})
	mem.OnRead("count(p)", graph.Result{Records: []graph.Record{{"total": int64(12)}}})

	res, err := repo.ListPayments(context.Background(), ListPaymentsOptions{
		PaymentFilter: PaymentFilter{TeamID: "team-1"},
		Limit:         500,
		Offset:        -3,
		SortField:     "amount",
		SortOrder:     "asc",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Total != 12 || len(res.Items) != 2 {
		t.Fatalf("unexpected list result: %+v", res)
	}

	call := mem.ReadCalls()[0]
	if call.Params["limit"] != 200 || call.Params["skip"] != 0 {
		t.Errorf("expected clamped pagination, got limit=%v skip=%v", call.Params["limit"], call.Params["skip"])
	}
	if !strings.Contains(call.Query, "coalesce(p.amount, 0.0) ASC") {
		t.Errorf("expected amount ordering, got %s", call.Query)
	}
}

func TestRepository_FirstPaymentTimes(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	first := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	mem.PushReadResult(graph.Result{Records: []graph.Record{
		{"clientId": "CLI-1", "firstPaidAt": first},
		{"clientId": "", "firstPaidAt": first},
		{"clientId": "CLI-2", "firstPaidAt": nil},
	}})

	got, err := repo.FirstPaymentTimes(context.Background(), "team-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 1 || !got["CLI-1"].Equal(first) {
		t.Fatalf("unexpected first payment times: %v", got)
	}
}

func TestRepository_UpsertClientMergesOnEmail(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	mem.PushWriteResult(graph.Result{Records: []graph.Record{
		{"clientId": "CLI-EXISTING", "teamId": "team-1", "email": "anna@example.com", "payoutDay": int64(15)},
	}})

	got, err := repo.UpsertClient(context.Background(), domain.Client{
		ID:        "CLI-NEW",
		TeamID:    "team-1",
		Email:     "anna@example.com",
		Phone:     "+420777000111",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.ID != "CLI-EXISTING" || got.PayoutDay != 15 {
		t.Fatalf("expected stored client to win, got %+v", got)
	}

	call := mem.WriteCalls()[0]
	if call.Query != mergeClientByEmailCypher {
		t.Fatalf("expected merge by email, got %s", call.Query)
	}
	if call.Params["value"] != "anna@example.com" {
		t.Errorf("value mismatch: got %v", call.Params["value"])
	}
}

func TestRepository_UpsertClientFallsBackToPhoneThenID(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	if _, err := repo.UpsertClient(context.Background(), domain.Client{ID: "CLI-1", TeamID: "team-1", Phone: "+420777000111"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := repo.UpsertClient(context.Background(), domain.Client{ID: "CLI-2", TeamID: "team-1", Name: "Walk-in"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	calls := mem.WriteCalls()
	if calls[0].Query != mergeClientByPhoneCypher {
		t.Errorf("expected merge by phone, got %s", calls[0].Query)
	}
	if calls[1].Query != createClientCypher {
		t.Errorf("expected plain create, got %s", calls[1].Query)
	}
	props := calls[1].Params["props"].(map[string]any)
	if _, ok := props["email"]; ok {
		t.Errorf("empty email must not be stored")
	}
}

func TestRepository_FindClientByIdentity(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	mem.OnRead("phone: $value", graph.Result{Records: []graph.Record{{"clientId": "CLI-PHONE"}}})

	got, ok, err := repo.FindClientByIdentity(context.Background(), "team-1", "nobody@example.com", "+420777000111")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ok || got.ID != "CLI-PHONE" {
		t.Fatalf("expected phone match, got %+v ok=%v", got, ok)
	}
	if calls := mem.ReadCalls(); len(calls) != 2 || calls[0].Query != findClientByEmailCypher {
		t.Fatalf("expected email lookup before phone, got %d calls", len(calls))
	}
}

func TestRepository_DeletePayment(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	mem.PushWriteResult(graph.Result{Records: []graph.Record{{"deleted": int64(1)}}})
	mem.PushWriteResult(graph.Result{Records: []graph.Record{{"deleted": int64(0)}}})

	found, err := repo.DeletePayment(context.Background(), "team-1", "PAY-1")
	if err != nil || !found {
		t.Fatalf("expected deletion, got found=%v err=%v", found, err)
	}
	found, err = repo.DeletePayment(context.Background(), "team-1", "PAY-404")
	if err != nil || found {
		t.Fatalf("expected missing payment, got found=%v err=%v", found, err)
	}
}

func TestRepository_QueryChatters(t *testing.T) {
	mem := graph.NewMemoryClient()
	repo := New(mem)

	mem.PushReadResult(graph.Result{Records: []graph.Record{
		{"chatterId": "CHT-1", "username": "eva", "displayName": "Eva", "role": "admin"},
	}})

	chatters, err := repo.QueryChatters(context.Background(), ChatterFilter{TeamID: "team-1", Username: " Eva "})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(chatters) != 1 || !chatters[0].IsAdmin() {
		t.Fatalf("unexpected chatters: %+v", chatters)
	}
	if mem.ReadCalls()[0].Params["username"] != "eva" {
		t.Errorf("username should be normalized")
	}
}

func TestRepository_PropagatesGraphErrors(t *testing.T) {
	mem := graph.NewMemoryClient().WithError(errors.New("bolt down"))
	repo := New(mem)

	if _, err := repo.QueryClients(context.Background(), ClientFilter{TeamID: "team-1"}); err == nil || !strings.Contains(err.Error(), "bolt down") {
		t.Fatalf("expected wrapped graph error, got %v", err)
	}
	if err := repo.EnsureSchema(context.Background()); err == nil {
		t.Fatalf("expected schema error")
	}
}
