package matcher

import (
	"regexp"
	"strings"

	"contra-reconciliation-service/internal/identity"
	"contra-reconciliation-service/internal/models"
	"contra-reconciliation-service/internal/party"
	"contra-reconciliation-service/internal/refcode"
)

// pass is one direction of one statement pair: rows of a on the source
// side looked up against rows of b on the target side.
type pass struct {
	cfg      *Config
	resolver *party.Resolver

	a, b     *models.Statement
	src, dst models.Side
	lookup   *DateLookup

	// used holds positions of b already paired in this statement pair.
	used map[int]bool
}

// strategyFunc returns the position in b of the single row that strategy
// accepts for row, or false when there is none or more than one.
type strategyFunc func(p *pass, row *models.StatementRow) (int, bool)

var strategyFuncs = map[Strategy]strategyFunc{
	StrategyReference:    byReference,
	StrategySelfTransfer: bySelfTransfer,
	StrategyTransferCode: byTransferCode,
	StrategyMaskedSuffix: byMaskedSuffix,
}

func only(positions []int) (int, bool) {
	if len(positions) != 1 {
		return -1, false
	}
	return positions[0], true
}

// byReference accepts a row within the date window whose reference number
// correlates with this row's and whose amount is within tolerance.
func byReference(p *pass, row *models.StatementRow) (int, bool) {
	amt := row.Value(p.src)
	n := p.cfg.ReferenceTailLength
	hasRef1 := len(row.ReferenceCode) >= p.cfg.ReferenceMinLength

	var matches []int
	for _, j := range p.lookup.Around(row.NormDate, p.cfg.ReferenceWindowDays) {
		other := p.b.Rows[j]
		hasRef2 := len(other.ReferenceCode) >= p.cfg.ReferenceMinLength
		if !hasRef1 && !hasRef2 {
			continue
		}

		linked := hasRef1 && hasRef2 && refcode.Tail(row.ReferenceCode, n) == refcode.Tail(other.ReferenceCode, n)
		if !linked && hasRef1 {
			linked = refcode.MentionsTail(other.Description, refcode.Tail(row.ReferenceCode, n), p.cfg.LongNumberDigits)
		}
		if !linked && hasRef2 {
			linked = refcode.MentionsTail(row.Description, refcode.Tail(other.ReferenceCode, n), p.cfg.LongNumberDigits)
		}
		if !linked {
			continue
		}

		otherAmt, ok := other.Amount(p.dst)
		if !ok {
			continue
		}
		if p.cfg.WithinTolerance(amt, otherAmt) {
			matches = append(matches, j)
		}
	}
	return only(matches)
}

// bySelfTransfer accepts a same-day, same-amount row when the categories
// show money moving between the two holders.
func bySelfTransfer(p *pass, row *models.StatementRow) (int, bool) {
	candidates := p.lookup.On(row.NormDate)
	if len(candidates) == 0 {
		return -1, false
	}
	if p.cfg.EnableAccountVeto && !p.ownsMaskedNumbers(row) {
		return -1, false
	}

	amt := row.Value(p.src)
	cat1 := strings.TrimSpace(row.Category)
	holderA, holderB := p.a.HolderName, p.b.HolderName

	var matches []int
	for _, j := range candidates {
		other := p.b.Rows[j]
		otherAmt, ok := other.Amount(p.dst)
		if !ok || !otherAmt.Equal(amt) {
			continue
		}
		if p.cfg.EnableAccountVeto && !p.ownsMaskedNumbers(other) {
			continue
		}

		cat2 := strings.TrimSpace(other.Category)
		desc2 := strings.TrimSpace(other.Description)

		match := false
		switch {
		case strings.EqualFold(cat1, p.cfg.SelfMarker):
			match = p.resolver.NamesAgree(holderA, cat2) || p.resolver.DescriptionMentions(holderA, desc2)
		case p.resolver.NamesAgree(holderB, cat1):
			match = strings.EqualFold(cat2, p.cfg.SelfMarker) ||
				p.resolver.NamesAgree(holderA, cat2) ||
				p.resolver.DescriptionMentions(holderA, desc2)
		}
		if match {
			matches = append(matches, j)
		}
	}
	return only(matches)
}

// ownsMaskedNumbers is the account veto: masked numbers in the narration
// must end in one of the pair's account suffixes. Rows without masked
// numbers pass.
func (p *pass) ownsMaskedNumbers(row *models.StatementRow) bool {
	suffixes := refcode.NumberSuffixes(row.Numbers, p.cfg.SuffixLength)
	if len(suffixes) == 0 {
		return true
	}
	known := []string{accountSuffix(p.a), accountSuffix(p.b)}
	for _, s := range suffixes {
		for _, k := range known {
			if k != "" && strings.HasSuffix(s, k) {
				return true
			}
		}
	}
	return false
}

var transferCode = regexp.MustCompile(`(?i)^eTXN/(?:By|To):(\d+)(?:/Trf)?`)

func transferCodeID(description string) (string, bool) {
	m := transferCode.FindStringSubmatch(strings.TrimSpace(description))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// byTransferCode pairs same-day, same-amount eTXN rows filed under the
// transfer categories. An identical code wins; otherwise the categories
// must point in opposite directions.
func byTransferCode(p *pass, row *models.StatementRow) (int, bool) {
	id1, ok := transferCodeID(row.Description)
	cat1 := strings.ToUpper(strings.TrimSpace(row.Category))
	if !ok || !p.isTransferCategory(cat1) {
		return -1, false
	}

	amt := row.Value(p.src)
	var sameCode, opposite []int
	for _, j := range p.lookup.On(row.NormDate) {
		if p.used[j] {
			continue
		}
		other := p.b.Rows[j]
		otherAmt, ok := other.Amount(p.dst)
		if !ok || !otherAmt.Equal(amt) {
			continue
		}
		id2, ok := transferCodeID(other.Description)
		cat2 := strings.ToUpper(strings.TrimSpace(other.Category))
		if !ok || !p.isTransferCategory(cat2) {
			continue
		}

		switch {
		case id1 == id2:
			sameCode = append(sameCode, j)
		case cat1 != cat2:
			opposite = append(opposite, j)
		}
	}

	if len(sameCode) > 0 {
		return only(sameCode)
	}
	return only(opposite)
}

func (p *pass) isTransferCategory(upper string) bool {
	return upper == strings.ToUpper(p.cfg.TransferInCategory) || upper == strings.ToUpper(p.cfg.TransferOutCategory)
}

// byMaskedSuffix pairs a same-day, same-amount row when a masked account
// number in one narration ends in the other statement's account suffix.
func byMaskedSuffix(p *pass, row *models.StatementRow) (int, bool) {
	amt := row.Value(p.src)
	suffixA, suffixB := accountSuffix(p.a), accountSuffix(p.b)

	var matches []int
	for _, j := range p.lookup.On(row.NormDate) {
		other := p.b.Rows[j]
		if p.claimedByOtherReference(row, other) {
			continue
		}
		otherAmt, ok := other.Amount(p.dst)
		if !ok || !otherAmt.Equal(amt) {
			continue
		}
		if endsWithAny(row.Numbers, suffixB) || endsWithAny(other.Numbers, suffixA) {
			matches = append(matches, j)
		}
	}
	return only(matches)
}

// claimedByOtherReference reports whether both rows carry reference numbers
// and neither narration mentions the other's reference tail. Such rows
// belong to different transfers even if a masked suffix agrees.
func (p *pass) claimedByOtherReference(row, other *models.StatementRow) bool {
	ref1 := strings.TrimSpace(row.ReferenceCode)
	ref2 := strings.TrimSpace(other.ReferenceCode)
	if ref1 == "" || ref2 == "" {
		return false
	}
	tail1 := refcode.Tail(ref1, p.cfg.ReferenceTailLength)
	tail2 := refcode.Tail(ref2, p.cfg.ReferenceTailLength)
	return !strings.Contains(other.Description, tail1) && !strings.Contains(row.Description, tail2)
}

func endsWithAny(numbers []string, suffix string) bool {
	if suffix == "" {
		return false
	}
	for _, n := range numbers {
		if strings.HasSuffix(n, suffix) {
			return true
		}
	}
	return false
}

func accountSuffix(s *models.Statement) string {
	if s.AccountSuffix != "" {
		return s.AccountSuffix
	}
	return identity.AccountSuffix(s.Key)
}
