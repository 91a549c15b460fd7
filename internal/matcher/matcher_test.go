package matcher

import (
	"io"
	"strings"
	"testing"
	"time"

	"contra-reconciliation-service/internal/identity"
	"contra-reconciliation-service/internal/models"
	"contra-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func debit(date time.Time, amount int64, category, desc string) *models.StatementRow {
	return &models.StatementRow{
		Date:        date,
		Category:    category,
		Description: desc,
		Debit:       decimal.NewNullDecimal(decimal.NewFromInt(amount)),
	}
}

func credit(date time.Time, amount int64, category, desc string) *models.StatementRow {
	return &models.StatementRow{
		Date:        date,
		Category:    category,
		Description: desc,
		Credit:      decimal.NewNullDecimal(decimal.NewFromInt(amount)),
	}
}

func statement(key, holder string, rows ...*models.StatementRow) *models.Statement {
	return &models.Statement{
		Key:           key,
		BankCode:      identity.BankCodeOf(key),
		AccountSuffix: identity.AccountSuffix(key),
		HolderName:    holder,
		Rows:          rows,
	}
}

func newTestEngine(cfg *Config) *Engine {
	return NewEngine(cfg, nil, nil).WithLogger(logger.NewWithWriter(io.Discard, logger.ErrorLevel))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"negative tolerance", func(c *Config) { c.AmountTolerance = decimal.NewFromInt(-1) }, true},
		{"negative window", func(c *Config) { c.ReferenceWindowDays = -1 }, true},
		{"short suffix", func(c *Config) { c.SuffixLength = 2 }, true},
		{"empty self marker", func(c *Config) { c.SelfMarker = " " }, true},
		{"no strategies", func(c *Config) { c.Strategies = nil }, true},
		{"duplicate strategy", func(c *Config) { c.Strategies = []Strategy{StrategyReference, StrategyReference} }, true},
		{"unknown strategy", func(c *Config) { c.Strategies = []Strategy{Strategy(42)} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigVariants(t *testing.T) {
	if !StrictConfig().AmountTolerance.Equal(decimal.NewFromInt(25)) {
		t.Error("strict config should use a tolerance of 25")
	}
	if RelaxedConfig().EnableAccountVeto {
		t.Error("relaxed config should disable the account veto")
	}
	if !DefaultConfig().EnableAccountVeto || !DefaultConfig().AmountTolerance.Equal(decimal.NewFromInt(100)) {
		t.Error("default config should use the veto and a tolerance of 100")
	}
	if legacy := LegacyConfig(); legacy.EnableAccountVeto || !legacy.AmountTolerance.Equal(decimal.NewFromInt(25)) {
		t.Error("legacy config should use a tolerance of 25 without the veto")
	}
}

func TestConfigClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Strategies[0] = StrategyMaskedSuffix

	if cfg.Strategies[0] != StrategyReference {
		t.Error("Clone should not share the strategy slice")
	}
	if (*Config)(nil).Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
	if !strings.Contains(cfg.String(), "reference,self_transfer,transfer_code,masked_suffix") {
		t.Errorf("unexpected String(): %s", cfg.String())
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range DefaultStrategyOrder() {
		got, err := ParseStrategy(strings.ToUpper(s.String()))
		if err != nil || got != s {
			t.Errorf("ParseStrategy(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseStrategy("telepathy"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestDirection(t *testing.T) {
	if DirectionCreditDebit.Source() != models.SideCredit || DirectionCreditDebit.Target() != models.SideDebit {
		t.Error("credit-debit direction should read credits first")
	}
	if DirectionDebitCredit.String() != "DR->CR" {
		t.Errorf("unexpected direction label %q", DirectionDebitCredit.String())
	}
}

func TestPrepare(t *testing.T) {
	engine := newTestEngine(nil)
	s := statement("XNS-HDFC-5678-CA", "Ravi Kumar",
		credit(time.Date(2024, 1, 10, 15, 4, 5, 0, time.UTC), 100, "", "IMPS-412345678901-RAVI XXXXXXXX1234"),
	)

	engine.Prepare(s)

	row := s.Rows[0]
	if !row.NormDate.Equal(day(2024, 1, 10)) {
		t.Errorf("expected normalized date, got %v", row.NormDate)
	}
	if row.ReferenceCode != "412345678901" {
		t.Errorf("expected reference code, got %q", row.ReferenceCode)
	}
	if len(row.Numbers) != 1 || row.Numbers[0] != "XXXXXXXX1234" {
		t.Errorf("expected masked number, got %v", row.Numbers)
	}
}

func TestTransferCodeTiers(t *testing.T) {
	a := func() *models.Statement {
		return statement("XNS-SBI-1111-CA", "Acme Traders Pvt Ltd",
			credit(day(2024, 4, 2), 700, "Transfer In", "eTXN/By:1234567/Trf"),
		)
	}

	t.Run("opposite categories", func(t *testing.T) {
		b := statement("XNS-SBI-2222-CA", "Zenith Industries",
			debit(day(2024, 4, 2), 700, "TRANSFER OUT", "eTXN/To:7654321/Trf"),
		)
		pr := newTestEngine(nil).MatchPair(a(), b)
		if len(pr.Matches) != 1 || pr.Matches[0].Strategy != StrategyTransferCode {
			t.Fatalf("expected one transfer code match, got %+v", pr.Matches)
		}
	})

	t.Run("same code beats opposite category", func(t *testing.T) {
		b := statement("XNS-SBI-2222-CA", "Zenith Industries",
			debit(day(2024, 4, 2), 700, "TRANSFER OUT", "eTXN/To:7654321/Trf"),
			debit(day(2024, 4, 2), 700, "TRANSFER IN", "eTXN/To:1234567/Trf"),
		)
		pr := newTestEngine(nil).MatchPair(a(), b)
		if len(pr.Matches) != 1 || pr.Matches[0].TargetIndex != 1 {
			t.Fatalf("expected the same-code row to win, got %+v", pr.Matches)
		}
	})

	t.Run("two opposite candidates are ambiguous", func(t *testing.T) {
		b := statement("XNS-SBI-2222-CA", "Zenith Industries",
			debit(day(2024, 4, 2), 700, "TRANSFER OUT", "eTXN/To:7654321/Trf"),
			debit(day(2024, 4, 2), 700, "TRANSFER OUT", "eTXN/To:7654322/Trf"),
		)
		pr := newTestEngine(nil).MatchPair(a(), b)
		if len(pr.Matches) != 0 {
			t.Fatalf("expected no match, got %+v", pr.Matches)
		}
	})
}

func TestAccountVeto(t *testing.T) {
	build := func() (*models.Statement, *models.Statement) {
		a := statement("XNS-HDFC-5678-CA", "Ravi Kumar",
			debit(day(2024, 2, 5), 2000, "SELF", "TRF TO XXXXXXXX9999"),
		)
		b := statement("XNS-ICICI-4321-CA", "Ravi Kumar",
			credit(day(2024, 2, 5), 2000, "Ravi Kumar", "BY TRANSFER"),
		)
		return a, b
	}

	a, b := build()
	if pr := newTestEngine(DefaultConfig()).MatchPair(a, b); len(pr.Matches) != 0 {
		t.Errorf("expected veto to block the match, got %+v", pr.Matches)
	}

	a, b = build()
	pr := newTestEngine(RelaxedConfig()).MatchPair(a, b)
	if len(pr.Matches) != 1 || pr.Matches[0].Strategy != StrategySelfTransfer {
		t.Errorf("expected a self transfer match without the veto, got %+v", pr.Matches)
	}
}

func TestSummarize(t *testing.T) {
	results := []*PairResult{
		{Matches: []*MatchResult{
			{Strategy: StrategyReference, Type: models.TransferInterBank},
			{Strategy: StrategyMaskedSuffix, Type: models.TransferOther},
		}},
		{Matches: []*MatchResult{
			{Strategy: StrategyReference, Type: models.TransferSisterConcern},
		}},
	}

	s := Summarize(results)
	if s.Pairs != 2 || s.Matches != 3 || s.ContraMatches != 2 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.ByStrategy["reference"] != 2 || s.ByType["OTHERS"] != 1 {
		t.Errorf("unexpected breakdown: %+v", s)
	}
	if got := s.Strategies(); len(got) != 2 || got[0] != "masked_suffix" {
		t.Errorf("unexpected strategies: %v", got)
	}
	if results[0].Count(StrategyReference) != 1 {
		t.Error("Count should count matches of one strategy")
	}
}
