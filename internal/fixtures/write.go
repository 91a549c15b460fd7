package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const dateLayout = "02-01-2006"

var (
	statementHeader = []interface{}{"Sl. No.", "Date", "Cheque No.", "Description", "Amount", "Type", "Balance", "Category"}
	finalHeader     = []interface{}{"Sl. No.", "Date", "MONTH", "TYPE", "Cheque_No", "Category", "Description", "DR", "CR", "Balance"}
)

// Paths are the files written for a scenario.
type Paths struct {
	Statements []string `json:"statements"`
	Final      string   `json:"final"`
}

// All returns the statements followed by the final workbook.
func (p *Paths) All() []string {
	return append(append([]string(nil), p.Statements...), p.Final)
}

// Write saves one statement export per account and "Final <label>.xlsx"
// into dir.
func (s *Scenario) Write(dir, label string) (*Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create fixture directory: %w", err)
	}

	paths := &Paths{}
	for i := range s.Accounts {
		name := fmt.Sprintf("%s-%s.xlsx", s.Codes[i], suffix(s.Accounts[i].Number))
		path := filepath.Join(dir, name)
		if err := s.writeStatement(i, path, label); err != nil {
			return nil, err
		}
		paths.Statements = append(paths.Statements, path)
	}

	if strings.TrimSpace(label) == "" {
		label = "Workbook"
	}
	paths.Final = filepath.Join(dir, "Final "+label+".xlsx")
	if err := s.writeFinal(paths.Final); err != nil {
		return nil, err
	}
	return paths, nil
}

func (s *Scenario) writeStatement(i int, path, label string) error {
	acct := s.Accounts[i]
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Analysis"); err != nil {
		return err
	}
	analysis := [][]interface{}{
		{"Name of the Account Holder", acct.Holder},
		{"Name of the Bank", acct.Bank},
		{"Account Number", acct.Number},
	}
	if err := setRows(f, "Analysis", analysis); err != nil {
		return err
	}

	if _, err := f.NewSheet("Statements Considered"); err != nil {
		return err
	}
	if err := setRows(f, "Statements Considered", [][]interface{}{{"Period", label}}); err != nil {
		return err
	}

	if _, err := f.NewSheet("Xns"); err != nil {
		return err
	}
	rows := s.statementRows[i]
	balance := opening(rows)
	grid := [][]interface{}{statementHeader}
	for n, r := range rows {
		marker := "Debit"
		if r.Credit {
			marker = "Credit"
			balance = balance.Add(r.Amount)
		} else {
			balance = balance.Sub(r.Amount)
		}
		grid = append(grid, []interface{}{
			n + 1, r.Date.Format(dateLayout), "", r.Description,
			r.Amount.InexactFloat64(), marker, balance.InexactFloat64(), "",
		})
	}
	if err := setRows(f, "Xns", grid); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func (s *Scenario) writeFinal(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i := range s.Accounts {
		sheet := s.Keys[i]
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return err
		}

		rows := s.finalRows[i]
		balance := opening(rows)
		grid := [][]interface{}{finalHeader}
		for n, r := range rows {
			var dr, cr interface{} = r.Amount.InexactFloat64(), ""
			if r.Credit {
				dr, cr = "", r.Amount.InexactFloat64()
				balance = balance.Add(r.Amount)
			} else {
				balance = balance.Sub(r.Amount)
			}
			grid = append(grid, []interface{}{
				n + 1, r.Date.Format(dateLayout), strings.ToUpper(r.Date.Format("Jan")),
				string(r.Type), "", r.Counterparty, r.Description, dr, cr, balance.InexactFloat64(),
			})
		}
		if err := setRows(f, sheet, grid); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// opening is a balance that keeps the account in credit throughout.
func opening(rows []*Row) decimal.Decimal {
	total := decimal.NewFromInt(100000)
	for _, r := range rows {
		if !r.Credit {
			total = total.Add(r.Amount)
		}
	}
	return total
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for n, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, n+1)
		if err != nil {
			return err
		}
		row := values
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, n+1, err)
		}
	}
	return nil
}

func suffix(number string) string {
	if len(number) > 4 {
		return number[len(number)-4:]
	}
	return number
}
