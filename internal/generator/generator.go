package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"
)

// ChatterRecord is a generated chatter.
type ChatterRecord struct {
	ID          string `json:"chatterId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role,omitempty"`
}

// PaymentRecord is a generated payment. Clients are referenced by identity,
// not by ID, so the importer exercises dedup.
type PaymentRecord struct {
	ID              string    `json:"paymentId"`
	ChatterUsername string    `json:"chatterUsername"`
	ClientName      string    `json:"clientName,omitempty"`
	ClientEmail     string    `json:"clientEmail,omitempty"`
	ClientPhone     string    `json:"clientPhone,omitempty"`
	FirstPayment    bool      `json:"firstPayment,omitempty"`
	PaidAt          time.Time `json:"paidAt"`
	Amount          float64   `json:"amount"`
	FeeAmount       float64   `json:"feeAmount,omitempty"`
	Platform        string    `json:"platform"`
	SoldItem        string    `json:"soldItem,omitempty"`
	Model           string    `json:"model,omitempty"`
	Bank            string    `json:"bank,omitempty"`
}

// Dataset contains the generated chatters and payments for one team.
type Dataset struct {
	TeamID   string          `json:"teamId"`
	Chatters []ChatterRecord `json:"chatters"`
	Payments []PaymentRecord `json:"payments"`
}

type clientIdentity struct {
	name  string
	email string
	phone string
}

// Generator produces a synthetic ledger with repeat clients.
type Generator struct {
	cfg           Config
	rand          *rand.Rand
	nameFragments nameFragments
	clients       []clientIdentity
	now           time.Time
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.TeamID == "" {
		cfg.TeamID = def.TeamID
	}
	if cfg.NumChatters <= 0 {
		cfg.NumChatters = def.NumChatters
	}
	if cfg.NumPayments <= 0 {
		cfg.NumPayments = def.NumPayments
	}
	if cfg.RepeatClientChance <= 0 {
		cfg.RepeatClientChance = def.RepeatClientChance
	}
	if cfg.PhoneOnlyChance < 0 {
		cfg.PhoneOnlyChance = 0
	}
	if cfg.NameOnlyChance < 0 {
		cfg.NameOnlyChance = 0
	}
	if cfg.Span <= 0 {
		cfg.Span = def.Span
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:           cfg,
		rand:          rand.New(rand.NewSource(cfg.Seed)),
		nameFragments: defaultNameFragments(),
		now:           time.Now().UTC(),
	}
}

// WithNow pins the end of the generated span.
func (g *Generator) WithNow(now time.Time) *Generator {
	g.now = now.UTC()
	return g
}

// Generate synthesises chatters and payments. It respects context cancellation.
// Payments are returned oldest first.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	chatters := make([]ChatterRecord, g.cfg.NumChatters)
	for i := range chatters {
		first := g.pick(g.nameFragments.first)
		chatters[i] = ChatterRecord{
			ID:          fmt.Sprintf("CHT-%03d", i+1),
			Username:    fmt.Sprintf("%s%02d", strings.ToLower(first), i+1),
			DisplayName: first,
		}
	}
	if len(chatters) > 1 {
		chatters[0].Role = "admin"
	}

	payments := make([]PaymentRecord, g.cfg.NumPayments)
	for i := range payments {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}

		idx := g.client()
		identity := g.clients[idx]
		paidAt := g.now.Add(-time.Duration(g.rand.Int63n(int64(g.cfg.Span))))
		amount := g.amount()

		payment := PaymentRecord{
			ID:              fmt.Sprintf("PAY-%07d", i+1),
			ChatterUsername: chatters[g.rand.Intn(len(chatters))].Username,
			ClientName:      identity.name,
			ClientEmail:     identity.email,
			ClientPhone:     identity.phone,
			PaidAt:          paidAt.Truncate(time.Second),
			Amount:          amount,
			Platform:        g.pick(g.nameFragments.platforms),
			SoldItem:        g.pick(g.nameFragments.items),
			Model:           g.pick(g.nameFragments.models),
			Bank:            g.pick(g.nameFragments.banks),
		}
		if g.rand.Float64() < g.cfg.FeeChance {
			payment.FeeAmount = math.Round(amount*0.2*100) / 100
		}
		payments[i] = payment
	}

	sort.SliceStable(payments, func(i, j int) bool { return payments[i].PaidAt.Before(payments[j].PaidAt) })
	markFirstPayments(payments)

	return Dataset{TeamID: g.cfg.TeamID, Chatters: chatters, Payments: payments}, nil
}

// client returns the index of a repeat client or registers a new one.
func (g *Generator) client() int {
	if len(g.clients) > 0 && g.rand.Float64() < g.cfg.RepeatClientChance {
		return g.rand.Intn(len(g.clients))
	}
	n := len(g.clients) + 1
	identity := clientIdentity{name: g.randomFullName()}
	switch r := g.rand.Float64(); {
	case r < g.cfg.NameOnlyChance:
	case r < g.cfg.NameOnlyChance+g.cfg.PhoneOnlyChance:
		identity.phone = g.randomPhone()
	default:
		identity.email = g.randomEmail(identity.name, n)
		if g.rand.Float64() < 0.5 {
			identity.phone = g.randomPhone()
		}
	}
	g.clients = append(g.clients, identity)
	return len(g.clients) - 1
}

// markFirstPayments flags the earliest payment of each client identity.
func markFirstPayments(sorted []PaymentRecord) {
	seen := make(map[string]bool)
	for i := range sorted {
		p := &sorted[i]
		key := p.ClientEmail + "|" + p.ClientPhone + "|" + p.ClientName
		if !seen[key] {
			seen[key] = true
			p.FirstPayment = true
		}
	}
}

func (g *Generator) amount() float64 {
	// Long tail: most tips are small, a few purchases are large.
	base := 50 + g.rand.ExpFloat64()*400
	if base > 20000 {
		base = 20000
	}
	return math.Round(base*100) / 100
}

func (g *Generator) pick(options []string) string {
	return options[g.rand.Intn(len(options))]
}

func (g *Generator) randomFullName() string {
	return fmt.Sprintf("%s %s", g.pick(g.nameFragments.first), g.pick(g.nameFragments.last))
}

func (g *Generator) randomEmail(name string, n int) string {
	local := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	return fmt.Sprintf("%s%d@%s", local, n, g.pick(g.nameFragments.domains))
}

func (g *Generator) randomPhone() string {
	return fmt.Sprintf("+420 %03d %03d %03d", g.rand.Intn(900)+100, g.rand.Intn(1000), g.rand.Intn(1000))
}

type nameFragments struct {
	first     []string
	last      []string
	domains   []string
	platforms []string
	items     []string
	models    []string
	banks     []string
}

func defaultNameFragments() nameFragments {
	return nameFragments{
		first:     []string{"Jan", "Petr", "Lucie", "Tereza", "Marek", "Eva", "Tomas", "Klara", "David", "Anna", "Jakub", "Martina"},
		last:      []string{"Novak", "Svoboda", "Dvorak", "Cerny", "Prochazka", "Kucera", "Vesely", "Horak", "Marek", "Pokorny"},
		domains:   []string{"example.com", "mail.cz", "seznam.cz", "post.cz"},
		platforms: []string{"onlyfans", "fansly", "telegram", "instagram"},
		items:     []string{"tip", "ppv", "custom", "subscription", "call"},
		models:    []string{"luna", "nova", "stella", "aria"},
		banks:     []string{"revolut", "fio", "csob", "paypal"},
	}
}
