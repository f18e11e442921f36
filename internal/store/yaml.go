package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/hrushi1881/fintrack-cycles/internal/recurrence"
)

// FileStore keeps the whole tracker state in one YAML document, read
// and rewritten as a unit. Suited for single-user local use; the
// postgres store covers everything beyond that.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// document is the persisted YAML shape. Dates are YYYY-MM-DD strings
// and amounts decimal strings so the file stays hand-editable.
type document struct {
	Rules        []ruleDoc        `yaml:"rules,omitempty"`
	Transactions []transactionDoc `yaml:"transactions,omitempty"`
}

type ruleDoc struct {
	ID         string    `yaml:"id"`
	Title      string    `yaml:"title,omitempty"`
	Category   string    `yaml:"category,omitempty"`
	Nature     string    `yaml:"nature,omitempty"`
	Frequency  string    `yaml:"frequency"`
	Interval   int       `yaml:"interval"`
	AnchorDay  int       `yaml:"anchor_day,omitempty"`
	CustomUnit string    `yaml:"custom_unit,omitempty"`
	Start      string    `yaml:"start"`
	End        string    `yaml:"end,omitempty"`
	BaseAmount string    `yaml:"base_amount"`
	Phases     []phasDoc `yaml:"phases,omitempty"`

	Overrides map[int]overrideDoc `yaml:"overrides,omitempty"`
	Notes     map[int]string      `yaml:"notes,omitempty"`

	ScheduledPayments []paymentDoc `yaml:"scheduled_payments,omitempty"`
	Bills             []billDoc    `yaml:"bills,omitempty"`
}

type phasDoc struct {
	Start    string `yaml:"start"`
	Amount   string `yaml:"amount"`
	Label    string `yaml:"label,omitempty"`
	Prorated bool   `yaml:"prorated,omitempty"`
}

type overrideDoc struct {
	Date          string `yaml:"date,omitempty"`
	Amount        string `yaml:"amount,omitempty"`
	MinimumAmount string `yaml:"minimum_amount,omitempty"`
	Notes         string `yaml:"notes,omitempty"`
}

type transactionDoc struct {
	ID          string `yaml:"id"`
	Date        string `yaml:"date"`
	Amount      string `yaml:"amount"`
	Description string `yaml:"description,omitempty"`
	Category    string `yaml:"category,omitempty"`
}

type paymentDoc struct {
	ID          string `yaml:"id"`
	Date        string `yaml:"date"`
	Amount      string `yaml:"amount"`
	Description string `yaml:"description,omitempty"`
}

type billDoc struct {
	ID            string `yaml:"id"`
	Title         string `yaml:"title,omitempty"`
	DueDate       string `yaml:"due_date"`
	Status        string `yaml:"status"`
	Amount        string `yaml:"amount"`
	MinimumAmount string `yaml:"minimum_amount,omitempty"`
	CycleNumber   int    `yaml:"cycle_number"`
}

// NewFileStore opens (or prepares to create) the YAML store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath returns ~/.fintrack-cycles/store.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "store.yaml"
	}
	return filepath.Join(home, ".fintrack-cycles", "store.yaml")
}

func (s *FileStore) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store file: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing store file: %w", err)
	}
	return &doc, nil
}

func (s *FileStore) save(doc *document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling store: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating store directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing store file: %w", err)
	}
	return nil
}

func (s *FileStore) ListRules(ctx context.Context) ([]recurrence.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	var rules []recurrence.Rule
	for _, rd := range doc.Rules {
		rule, err := rd.toRule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (s *FileStore) Rule(ctx context.Context, id string) (recurrence.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return recurrence.Rule{}, err
	}
	rd, err := doc.rule(id)
	if err != nil {
		return recurrence.Rule{}, err
	}
	return rd.toRule()
}

func (s *FileStore) SaveRule(ctx context.Context, rule recurrence.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	rd := fromRule(rule)
	for i := range doc.Rules {
		if doc.Rules[i].ID == rule.ID {
			// Keep the per-cycle state the rule record carries.
			rd.Overrides = doc.Rules[i].Overrides
			rd.Notes = doc.Rules[i].Notes
			rd.ScheduledPayments = doc.Rules[i].ScheduledPayments
			rd.Bills = doc.Rules[i].Bills
			doc.Rules[i] = rd
			return s.save(doc)
		}
	}
	doc.Rules = append(doc.Rules, rd)
	return s.save(doc)
}

func (s *FileStore) Overrides(ctx context.Context, ruleID string) (map[int]recurrence.Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	rd, err := doc.rule(ruleID)
	if err != nil {
		return nil, err
	}
	out := make(map[int]recurrence.Override, len(rd.Overrides))
	for n, od := range rd.Overrides {
		ov, err := od.toOverride(n)
		if err != nil {
			return nil, err
		}
		out[n] = ov
	}
	return out, nil
}

func (s *FileStore) SaveOverride(ctx context.Context, ruleID string, ov recurrence.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	rd, err := doc.rule(ruleID)
	if err != nil {
		return err
	}
	if rd.Overrides == nil {
		rd.Overrides = make(map[int]overrideDoc)
	}
	rd.Overrides[ov.CycleNumber] = fromOverride(ov)
	return s.save(doc)
}

func (s *FileStore) DeleteOverride(ctx context.Context, ruleID string, cycleNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	rd, err := doc.rule(ruleID)
	if err != nil {
		return err
	}
	if _, ok := rd.Overrides[cycleNumber]; !ok {
		return ErrOverrideNotFound
	}
	delete(rd.Overrides, cycleNumber)
	return s.save(doc)
}

func (s *FileStore) Notes(ctx context.Context, ruleID string) (map[int]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	rd, err := doc.rule(ruleID)
	if err != nil {
		return nil, err
	}
	out := make(map[int]string, len(rd.Notes))
	for n, text := range rd.Notes {
		out[n] = text
	}
	return out, nil
}

func (s *FileStore) SaveNote(ctx context.Context, ruleID string, cycleNumber int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	rd, err := doc.rule(ruleID)
	if err != nil {
		return err
	}
	if rd.Notes == nil {
		rd.Notes = make(map[int]string)
	}
	rd.Notes[cycleNumber] = text
	return s.save(doc)
}

func (s *FileStore) Transactions(ctx context.Context, since time.Time) ([]recurrence.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	var txs []recurrence.Transaction
	for _, td := range doc.Transactions {
		tx, err := td.toTransaction()
		if err != nil {
			return nil, err
		}
		if tx.Date.Before(since) {
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (s *FileStore) AddTransactions(ctx context.Context, txs []recurrence.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	for _, tx := range txs {
		doc.Transactions = append(doc.Transactions, fromTransaction(tx))
	}
	return s.save(doc)
}

func (s *FileStore) ScheduledPayments(ctx context.Context, ruleID string) ([]recurrence.ScheduledPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	rd, err := doc.rule(ruleID)
	if err != nil {
		return nil, err
	}
	var pays []recurrence.ScheduledPayment
	for _, pd := range rd.ScheduledPayments {
		pay, err := pd.toPayment()
		if err != nil {
			return nil, err
		}
		pays = append(pays, pay)
	}
	return pays, nil
}

func (s *FileStore) Bills(ctx context.Context, ruleID string) ([]recurrence.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	rd, err := doc.rule(ruleID)
	if err != nil {
		return nil, err
	}
	var bills []recurrence.Bill
	for _, bd := range rd.Bills {
		bill, err := bd.toBill()
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	return bills, nil
}

func (s *FileStore) UpdateBill(ctx context.Context, ruleID string, bill recurrence.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	rd, err := doc.rule(ruleID)
	if err != nil {
		return err
	}
	for i := range rd.Bills {
		if rd.Bills[i].ID == bill.ID {
			rd.Bills[i] = fromBill(bill)
			return s.save(doc)
		}
	}
	return ErrBillNotFound
}

func (s *FileStore) Close() error { return nil }

func (d *document) rule(id string) (*ruleDoc, error) {
	for i := range d.Rules {
		if d.Rules[i].ID == id {
			return &d.Rules[i], nil
		}
	}
	return nil, ErrRuleNotFound
}

// --- document <-> domain conversion ---

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

func (rd *ruleDoc) toRule() (recurrence.Rule, error) {
	start, err := parseDate(rd.Start)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("rule %s: %w", rd.ID, err)
	}
	base, err := parseAmount(rd.BaseAmount)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("rule %s: %w", rd.ID, err)
	}

	rule := recurrence.Rule{
		ID:         rd.ID,
		Title:      rd.Title,
		Category:   rd.Category,
		Nature:     recurrence.Nature(rd.Nature),
		Start:      start,
		Frequency:  recurrence.Frequency(rd.Frequency),
		Interval:   rd.Interval,
		AnchorDay:  rd.AnchorDay,
		CustomUnit: recurrence.CustomUnit(rd.CustomUnit),
		BaseAmount: base,
	}
	if rd.End != "" {
		end, err := parseDate(rd.End)
		if err != nil {
			return recurrence.Rule{}, fmt.Errorf("rule %s: %w", rd.ID, err)
		}
		rule.End = &end
	}
	for _, pd := range rd.Phases {
		start, err := parseDate(pd.Start)
		if err != nil {
			return recurrence.Rule{}, fmt.Errorf("rule %s phase: %w", rd.ID, err)
		}
		amount, err := parseAmount(pd.Amount)
		if err != nil {
			return recurrence.Rule{}, fmt.Errorf("rule %s phase: %w", rd.ID, err)
		}
		rule.Phases = append(rule.Phases, recurrence.PricingPhase{
			Start:    start,
			Amount:   amount,
			Label:    pd.Label,
			Prorated: pd.Prorated,
		})
	}
	return rule, nil
}

func fromRule(rule recurrence.Rule) ruleDoc {
	rd := ruleDoc{
		ID:         rule.ID,
		Title:      rule.Title,
		Category:   rule.Category,
		Nature:     string(rule.Nature),
		Frequency:  string(rule.Frequency),
		Interval:   rule.Interval,
		AnchorDay:  rule.AnchorDay,
		CustomUnit: string(rule.CustomUnit),
		Start:      rule.Start.Format(dateLayout),
		BaseAmount: rule.BaseAmount.String(),
	}
	if rule.End != nil {
		rd.End = rule.End.Format(dateLayout)
	}
	for _, p := range rule.Phases {
		rd.Phases = append(rd.Phases, phasDoc{
			Start:    p.Start.Format(dateLayout),
			Amount:   p.Amount.String(),
			Label:    p.Label,
			Prorated: p.Prorated,
		})
	}
	return rd
}

func (od overrideDoc) toOverride(cycleNumber int) (recurrence.Override, error) {
	ov := recurrence.Override{CycleNumber: cycleNumber}
	if od.Date != "" {
		date, err := parseDate(od.Date)
		if err != nil {
			return recurrence.Override{}, fmt.Errorf("override for cycle %d: %w", cycleNumber, err)
		}
		ov.Date = &date
	}
	if od.Amount != "" {
		amount, err := parseAmount(od.Amount)
		if err != nil {
			return recurrence.Override{}, fmt.Errorf("override for cycle %d: %w", cycleNumber, err)
		}
		ov.Amount = &amount
	}
	if od.MinimumAmount != "" {
		min, err := parseAmount(od.MinimumAmount)
		if err != nil {
			return recurrence.Override{}, fmt.Errorf("override for cycle %d: %w", cycleNumber, err)
		}
		ov.MinimumAmount = &min
	}
	if od.Notes != "" {
		notes := od.Notes
		ov.Notes = &notes
	}
	return ov, nil
}

func fromOverride(ov recurrence.Override) overrideDoc {
	od := overrideDoc{}
	if ov.Date != nil {
		od.Date = ov.Date.Format(dateLayout)
	}
	if ov.Amount != nil {
		od.Amount = ov.Amount.String()
	}
	if ov.MinimumAmount != nil {
		od.MinimumAmount = ov.MinimumAmount.String()
	}
	if ov.Notes != nil {
		od.Notes = *ov.Notes
	}
	return od
}

func (td transactionDoc) toTransaction() (recurrence.Transaction, error) {
	date, err := parseDate(td.Date)
	if err != nil {
		return recurrence.Transaction{}, fmt.Errorf("transaction %s: %w", td.ID, err)
	}
	amount, err := parseAmount(td.Amount)
	if err != nil {
		return recurrence.Transaction{}, fmt.Errorf("transaction %s: %w", td.ID, err)
	}
	return recurrence.Transaction{
		ID:          td.ID,
		Date:        date,
		Amount:      amount,
		Description: td.Description,
		Category:    td.Category,
	}, nil
}

func fromTransaction(tx recurrence.Transaction) transactionDoc {
	return transactionDoc{
		ID:          tx.ID,
		Date:        tx.Date.Format(dateLayout),
		Amount:      tx.Amount.String(),
		Description: tx.Description,
		Category:    tx.Category,
	}
}

func (pd paymentDoc) toPayment() (recurrence.ScheduledPayment, error) {
	date, err := parseDate(pd.Date)
	if err != nil {
		return recurrence.ScheduledPayment{}, fmt.Errorf("scheduled payment %s: %w", pd.ID, err)
	}
	amount, err := parseAmount(pd.Amount)
	if err != nil {
		return recurrence.ScheduledPayment{}, fmt.Errorf("scheduled payment %s: %w", pd.ID, err)
	}
	return recurrence.ScheduledPayment{
		ID:          pd.ID,
		Date:        date,
		Amount:      amount,
		Description: pd.Description,
	}, nil
}

func (bd billDoc) toBill() (recurrence.Bill, error) {
	due, err := parseDate(bd.DueDate)
	if err != nil {
		return recurrence.Bill{}, fmt.Errorf("bill %s: %w", bd.ID, err)
	}
	amount, err := parseAmount(bd.Amount)
	if err != nil {
		return recurrence.Bill{}, fmt.Errorf("bill %s: %w", bd.ID, err)
	}
	bill := recurrence.Bill{
		ID:          bd.ID,
		Title:       bd.Title,
		DueDate:     due,
		Status:      recurrence.BillStatus(bd.Status),
		Amount:      amount,
		CycleNumber: bd.CycleNumber,
	}
	if bd.MinimumAmount != "" {
		min, err := parseAmount(bd.MinimumAmount)
		if err != nil {
			return recurrence.Bill{}, fmt.Errorf("bill %s: %w", bd.ID, err)
		}
		bill.MinimumAmount = &min
	}
	return bill, nil
}

func fromBill(bill recurrence.Bill) billDoc {
	bd := billDoc{
		ID:          bill.ID,
		Title:       bill.Title,
		DueDate:     bill.DueDate.Format(dateLayout),
		Status:      string(bill.Status),
		Amount:      bill.Amount.String(),
		CycleNumber: bill.CycleNumber,
	}
	if bill.MinimumAmount != nil {
		bd.MinimumAmount = bill.MinimumAmount.String()
	}
	return bd
}
