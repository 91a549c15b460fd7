// Package fixtures builds synthetic upload sets: one statement export per
// account plus a final workbook that agrees with them, optionally with a
// planted disagreement. The files load through the regular workbook
// loader and are used for demos, load testing and end-to-end tests.
//
// Example usage:
//
//	g := fixtures.NewGenerator(fixtures.DefaultAccounts()[:3], 42)
//	g.Transfers = 20
//	scenario, err := g.Generate()
//	paths, err := scenario.Write("./fixtures", "Jan 2024")
package fixtures

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"contra-reconciliation-service/internal/identity"
	"contra-reconciliation-service/internal/models"
	"contra-reconciliation-service/internal/party"

	"github.com/shopspring/decimal"
)

// Account is one generated bank account.
type Account struct {
	Holder string `json:"holder"`
	Bank   string `json:"bank"`
	Number string `json:"number"`
}

// DefaultAccounts returns a pool of accounts at different banks. The first
// and third belong to the same company.
func DefaultAccounts() []Account {
	return []Account{
		{Holder: "Acme Traders Pvt Ltd", Bank: "HDFC Bank, India", Number: "50200012345678"},
		{Holder: "Ravi Kumar", Bank: "State Bank of India, India", Number: "30001234"},
		{Holder: "Acme Traders Private Limited", Bank: "ICICI Bank, India", Number: "000405004321"},
		{Holder: "Sunrise Agencies", Bank: "Axis Bank, India", Number: "918020011112468"},
		{Holder: "Meena Iyer", Bank: "Kotak Mahindra Bank, India", Number: "7711339955"},
		{Holder: "Blue Ocean Enterprises", Bank: "Canara Bank, India", Number: "2401101009753"},
	}
}

// Generator produces scenarios. The same seed and settings always give
// the same scenario.
type Generator struct {
	Accounts  []Account
	Transfers int
	NoiseRows int
	StartDate time.Time
	Seed      int64

	// Mismatch plants a transfer in the first final sheet that no
	// statement carries.
	Mismatch bool

	banks    *identity.BankDirectory
	resolver *party.Resolver
}

// NewGenerator returns a generator with ten transfers and three noise rows
// per account, starting on 1 Jan 2024.
func NewGenerator(accounts []Account, seed int64) *Generator {
	return &Generator{
		Accounts:  accounts,
		Transfers: 10,
		NoiseRows: 3,
		StartDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Seed:      seed,
		banks:     identity.DefaultBankDirectory(),
		resolver:  party.NewResolver(nil),
	}
}

// WithBanks sets the bank directory used to derive sheet keys.
func (g *Generator) WithBanks(banks *identity.BankDirectory) *Generator {
	g.banks = banks
	return g
}

// Row is one generated transaction.
type Row struct {
	Date         time.Time
	Description  string
	Amount       decimal.Decimal
	Credit       bool
	Type         models.TransferType
	Counterparty string
}

// Transfer is one contra transfer between two generated accounts.
type Transfer struct {
	From   int                 `json:"from"`
	To     int                 `json:"to"`
	Date   time.Time           `json:"date"`
	Amount decimal.Decimal     `json:"amount"`
	Type   models.TransferType `json:"type"`
	Rail   string              `json:"rail"`
}

// Scenario is a generated upload set.
type Scenario struct {
	Accounts []Account
	// Keys are the statement sheet keys, aligned with Accounts.
	Keys      []string
	Codes     []string
	Transfers []Transfer

	statementRows [][]*Row
	finalRows     [][]*Row
}

// StatementRows returns the rows of account i's statement export.
func (s *Scenario) StatementRows(i int) []*Row {
	return s.statementRows[i]
}

// FinalRows returns the rows of account i's final sheet.
func (s *Scenario) FinalRows(i int) []*Row {
	return s.finalRows[i]
}

var noise = []struct {
	description string
	credit      bool
}{
	{"ATM WDL CASH", false},
	{"POS PURCHASE GROCERY MART", false},
	{"CHARGES SMS ALERT", false},
	{"INTEREST CREDIT", true},
	{"CASH DEPOSIT BRANCH", true},
	{"ELECTRICITY BILL PAYMENT", false},
}

// Generate builds a scenario.
func (g *Generator) Generate() (*Scenario, error) {
	if len(g.Accounts) < 2 {
		return nil, fmt.Errorf("at least two accounts are required, got %d", len(g.Accounts))
	}
	if g.Transfers < 0 || g.NoiseRows < 0 {
		return nil, fmt.Errorf("transfer and noise counts cannot be negative")
	}

	s := &Scenario{
		Accounts:      append([]Account(nil), g.Accounts...),
		statementRows: make([][]*Row, len(g.Accounts)),
		finalRows:     make([][]*Row, len(g.Accounts)),
	}

	seen := make(map[string]int)
	for i, acct := range g.Accounts {
		code, ok := g.banks.Code(acct.Bank)
		if !ok {
			return nil, fmt.Errorf("unknown bank %q for account %d", acct.Bank, i+1)
		}
		key := identity.StatementKey(code, acct.Number, models.ProductCurrent)
		canonical := identity.Canonicalize(key)
		if j, dup := seen[canonical]; dup {
			return nil, fmt.Errorf("accounts %d and %d share the sheet key %s", j+1, i+1, key)
		}
		seen[canonical] = i
		s.Codes = append(s.Codes, code)
		s.Keys = append(s.Keys, key)
	}

	type pair struct {
		a, b int
		typ  models.TransferType
	}
	var pairs []pair
	for a := 0; a < len(g.Accounts); a++ {
		for b := a + 1; b < len(g.Accounts); b++ {
			typ := g.resolver.InferTransferType(g.Accounts[a].Holder, g.Accounts[b].Holder)
			if typ == models.TransferOther {
				continue
			}
			pairs = append(pairs, pair{a, b, typ})
		}
	}
	if g.Transfers > 0 && len(pairs) == 0 {
		return nil, fmt.Errorf("no two accounts can exchange a contra transfer")
	}

	rng := rand.New(rand.NewSource(g.Seed))

	// One transfer per day keeps every same-day, same-amount lookup unique.
	for t := 0; t < g.Transfers; t++ {
		p := pairs[rng.Intn(len(pairs))]
		from, to := p.a, p.b
		if rng.Intn(2) == 1 {
			from, to = to, from
		}
		tr := Transfer{
			From:   from,
			To:     to,
			Date:   g.StartDate.AddDate(0, 0, t),
			Amount: decimal.NewFromInt(int64(rng.Intn(100)+1) * 500),
			Type:   p.typ,
			Rail:   "NEFT",
		}
		if rng.Intn(2) == 1 {
			tr.Rail = "IMPS"
		}
		s.Transfers = append(s.Transfers, tr)

		debit, credit := g.transferRows(t, tr, rng)
		s.statementRows[from] = append(s.statementRows[from], debit)
		s.statementRows[to] = append(s.statementRows[to], credit)
	}

	days := g.Transfers
	if days == 0 {
		days = 1
	}
	for i := range g.Accounts {
		for n := 0; n < g.NoiseRows; n++ {
			kind := noise[rng.Intn(len(noise))]
			// Non-zero paise keep noise amounts away from transfer amounts.
			amount := decimal.New(int64(rng.Intn(4900)+100)*100+int64(rng.Intn(99)+1), -2)
			s.statementRows[i] = append(s.statementRows[i], &Row{
				Date:        g.StartDate.AddDate(0, 0, rng.Intn(days)),
				Description: kind.description,
				Amount:      amount,
				Credit:      kind.credit,
			})
		}
		sort.SliceStable(s.statementRows[i], func(x, y int) bool {
			return s.statementRows[i][x].Date.Before(s.statementRows[i][y].Date)
		})
		s.finalRows[i] = append([]*Row(nil), s.statementRows[i]...)
	}

	if g.Mismatch {
		s.finalRows[0] = append(s.finalRows[0], &Row{
			Date:         g.StartDate,
			Description:  "MANUAL CONTRA ADJUSTMENT",
			Amount:       decimal.RequireFromString("1234.56"),
			Type:         models.TransferSisterConcern,
			Counterparty: "Suspense",
		})
	}

	return s, nil
}

// transferRows returns the sender's debit and the receiver's credit. NEFT
// narrations carry the masked counterparty account; IMPS narrations share
// a 12-digit reference whose last five digits are the transfer index.
func (g *Generator) transferRows(n int, tr Transfer, rng *rand.Rand) (*Row, *Row) {
	sender, receiver := g.Accounts[tr.From], g.Accounts[tr.To]

	var out, in string
	switch tr.Rail {
	case "IMPS":
		ref := fmt.Sprintf("%07d%05d", rng.Intn(10_000_000), n%100_000)
		out = fmt.Sprintf("IMPS/P2A/%s/TO %s", ref, shortName(receiver.Holder))
		in = fmt.Sprintf("IMPS/P2A/%s/FROM %s", ref, shortName(sender.Holder))
	default:
		out = fmt.Sprintf("NEFT TO %s %s", mask(receiver.Number), shortName(receiver.Holder))
		in = fmt.Sprintf("NEFT FROM %s %s", mask(sender.Number), shortName(sender.Holder))
	}

	debit := &Row{
		Date:         tr.Date,
		Description:  out,
		Amount:       tr.Amount,
		Type:         tr.Type,
		Counterparty: receiver.Holder,
	}
	credit := &Row{
		Date:         tr.Date,
		Description:  in,
		Amount:       tr.Amount,
		Credit:       true,
		Type:         tr.Type,
		Counterparty: sender.Holder,
	}
	return debit, credit
}

func mask(number string) string {
	if len(number) > 4 {
		number = number[len(number)-4:]
	}
	return "XXXXXXXX" + number
}

func shortName(holder string) string {
	fields := strings.Fields(strings.ToUpper(holder))
	if len(fields) > 2 {
		fields = fields[:2]
	}
	return strings.Join(fields, " ")
}
