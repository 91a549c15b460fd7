package matcher

import (
	"fmt"
	"sort"

	"contra-reconciliation-service/internal/identity"
	"contra-reconciliation-service/internal/models"
	"contra-reconciliation-service/internal/party"
	"contra-reconciliation-service/internal/refcode"
	"contra-reconciliation-service/pkg/logger"
)

// Engine runs the candidate chain over statement pairs.
type Engine struct {
	Config    *Config
	Resolver  *party.Resolver
	Extractor *refcode.Extractor
	log       logger.Logger
}

// MatchResult is one accepted pairing: row SourceIndex of the first
// statement with row TargetIndex of the second.
type MatchResult struct {
	SourceIndex int                 `json:"source_index"`
	TargetIndex int                 `json:"target_index"`
	Direction   Direction           `json:"direction"`
	Strategy    Strategy            `json:"strategy"`
	Type        models.TransferType `json:"type"`
}

// PairResult collects the pairings of one statement pair.
type PairResult struct {
	Source  string              `json:"source"`
	Target  string              `json:"target"`
	Type    models.TransferType `json:"type"`
	Matches []*MatchResult      `json:"matches"`
}

// Count returns the number of pairings made with strategy s.
func (pr *PairResult) Count(s Strategy) int {
	n := 0
	for _, m := range pr.Matches {
		if m.Strategy == s {
			n++
		}
	}
	return n
}

// MatchSummary provides aggregate statistics over all pairs.
type MatchSummary struct {
	Pairs         int            `json:"pairs"`
	Matches       int            `json:"matches"`
	ContraMatches int            `json:"contra_matches"`
	ByStrategy    map[string]int `json:"by_strategy"`
	ByType        map[string]int `json:"by_type"`
}

// NewEngine creates an engine. Nil arguments fall back to defaults.
func NewEngine(cfg *Config, resolver *party.Resolver, extractor *refcode.Extractor) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if resolver == nil {
		resolver = party.NewResolver(nil)
	}
	if extractor == nil {
		extractor = refcode.NewExtractor()
	}
	return &Engine{
		Config:    cfg,
		Resolver:  resolver,
		Extractor: extractor,
		log:       logger.GetGlobalLogger().WithComponent("matcher"),
	}
}

// WithLogger replaces the engine's logger.
func (e *Engine) WithLogger(log logger.Logger) *Engine {
	e.log = log.WithComponent("matcher")
	return e
}

// Prepare fills the derived fields of every row: normalized date,
// reference code and masked account numbers. It is safe to call twice.
func (e *Engine) Prepare(s *models.Statement) {
	bank := s.BankCode
	if bank == "" {
		bank = identity.BankCodeOf(s.Key)
	}
	for _, row := range s.Rows {
		row.NormDate = models.NormalizeDate(row.Date)
		row.ReferenceCode = e.Extractor.ExtractReferenceCode(row.Description, bank)
		row.Numbers = refcode.GetNumbers(row.Description)
	}
}

// MatchAll matches every unordered pair of statements in load order:
// (0,1), (0,2), ..., (1,2), ... A row may be paired again in a later pair.
func (e *Engine) MatchAll(statements []*models.Statement) []*PairResult {
	for _, s := range statements {
		e.Prepare(s)
	}

	total := len(statements) * (len(statements) - 1) / 2
	progress := logger.NewProgressTracker("match statement pairs", total, e.log)

	var results []*PairResult
	for i := 0; i < len(statements); i++ {
		for j := i + 1; j < len(statements); j++ {
			pr := e.matchPair(statements[i], statements[j])
			results = append(results, pr)
			progress.Step(pr.Source+" vs "+pr.Target, logger.Fields{"matches": len(pr.Matches)})
		}
	}
	progress.Complete()
	return results
}

// MatchPair matches a against b. Both statements are prepared first.
func (e *Engine) MatchPair(a, b *models.Statement) *PairResult {
	e.Prepare(a)
	e.Prepare(b)
	return e.matchPair(a, b)
}

func (e *Engine) matchPair(a, b *models.Statement) *PairResult {
	result := &PairResult{
		Source: a.Key,
		Target: b.Key,
		Type:   e.Resolver.InferTransferType(a.HolderName, b.HolderName),
	}

	usedA := make(map[int]bool)
	usedB := make(map[int]bool)

	for _, dir := range []Direction{DirectionCreditDebit, DirectionDebitCredit} {
		p := &pass{
			cfg:      e.Config,
			resolver: e.Resolver,
			a:        a,
			b:        b,
			src:      dir.Source(),
			dst:      dir.Target(),
			lookup:   NewDateLookup(b.Rows, dir.Target()),
			used:     usedB,
		}

		for i, row := range a.Rows {
			if usedA[i] || !row.HasDate() {
				continue
			}
			if amt, ok := row.Amount(p.src); !ok || !amt.IsPositive() {
				continue
			}

			j, strategy, ok := e.choose(p, row)
			if !ok {
				continue
			}

			e.apply(a, b, i, j, result.Type)
			usedA[i] = true
			usedB[j] = true
			result.Matches = append(result.Matches, &MatchResult{
				SourceIndex: i,
				TargetIndex: j,
				Direction:   dir,
				Strategy:    strategy,
				Type:        result.Type,
			})

			e.log.WithFields(logger.Fields{
				"source":    fmt.Sprintf("%s#%d", a.Key, i),
				"target":    fmt.Sprintf("%s#%d", b.Key, j),
				"strategy":  strategy.String(),
				"direction": dir.String(),
			}).Debug("Rows paired")
		}
	}

	return result
}

// choose runs the chain. A strategy's unique candidate that is already
// used does not end the chain.
func (e *Engine) choose(p *pass, row *models.StatementRow) (int, Strategy, bool) {
	for _, s := range e.Config.Strategies {
		fn, ok := strategyFuncs[s]
		if !ok {
			continue
		}
		if j, found := fn(p, row); found && !p.used[j] {
			return j, s, true
		}
	}
	return -1, 0, false
}

// apply stamps both rows with a pointer to the other statement and the
// pair's transfer type.
func (e *Engine) apply(a, b *models.Statement, i, j int, typ models.TransferType) {
	a.Rows[i].Category = b.HolderName + "-" + identity.DisplayKey(b.Key)
	b.Rows[j].Category = a.HolderName + "-" + identity.DisplayKey(a.Key)
	a.Rows[i].Type = string(typ)
	b.Rows[j].Type = string(typ)
}

// Summarize aggregates pair results.
func Summarize(results []*PairResult) MatchSummary {
	summary := MatchSummary{
		Pairs:      len(results),
		ByStrategy: make(map[string]int),
		ByType:     make(map[string]int),
	}
	for _, pr := range results {
		for _, m := range pr.Matches {
			summary.Matches++
			summary.ByStrategy[m.Strategy.String()]++
			summary.ByType[string(m.Type)]++
			if m.Type.IsContra() {
				summary.ContraMatches++
			}
		}
	}
	return summary
}

// Strategies returns the names of the strategies that produced at least
// one match, sorted.
func (s MatchSummary) Strategies() []string {
	out := make([]string, 0, len(s.ByStrategy))
	for name := range s.ByStrategy {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ValidateConfiguration validates the engine's configuration
func (e *Engine) ValidateConfiguration() error {
	return e.Config.Validate()
}
