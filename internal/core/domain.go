package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	// Date is a calendar date carried on the wire as YYYY-MM-DD.
	Date struct {
		time.Time
	}

	User struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email,omitempty"`
	}

	Category struct {
		ID   int64           `json:"id"`
		Name string          `json:"name"`
		Type TransactionType `json:"type"`
	}

	Transaction struct {
		ID           int64           `json:"id"`
		Type         TransactionType `json:"type"`
		Category     int64           `json:"category"`
		CategoryName string          `json:"category_name,omitempty"`
		Amount       decimal.Decimal `json:"amount"`
		Description  string          `json:"description"`
		Date         Date            `json:"date"`
	}

	Budget struct {
		ID        int64           `json:"id"`
		Month     int             `json:"month"`
		Year      int             `json:"year"`
		Amount    decimal.Decimal `json:"amount"`
		CreatedAt time.Time       `json:"created_at"`
	}
)

var (
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrMissingCategory = errors.New("category is required")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMissingDate     = errors.New("date is required")
	ErrInvalidMonth    = errors.New("invalid month")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Valid reports whether t is one of the two known transaction types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// TransactionDraft is the user-entered form state for a create or update.
type TransactionDraft struct {
	Type        TransactionType `json:"type"`
	Category    int64           `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        Date            `json:"date"`
}

// Validate performs the basic presence checks done before submitting.
// Everything beyond this is the server's job.
func (d TransactionDraft) Validate() error {
	if !d.Type.Valid() {
		return ErrInvalidType
	}
	if d.Category == 0 {
		return ErrMissingCategory
	}
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if d.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// BudgetDraft is the budget form state for a given period.
type BudgetDraft struct {
	Month  int             `json:"month"`
	Year   int             `json:"year"`
	Amount decimal.Decimal `json:"amount"`
}

func (d BudgetDraft) Validate() error {
	if d.Month < 1 || d.Month > 12 {
		return ErrInvalidMonth
	}
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// FindBudget returns the budget matching the period by exact integer
// equality of month and year, or nil when none exists. The caller uses
// the result to decide between an update and a create.
func FindBudget(budgets []Budget, month, year int) *Budget {
	for i := range budgets {
		if budgets[i].Month == month && budgets[i].Year == year {
			return &budgets[i]
		}
	}
	return nil
}

// FilterCategories returns only the categories scoped to the given type.
func FilterCategories(cats []Category, t TransactionType) []Category {
	out := make([]Category, 0, len(cats))
	for _, c := range cats {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}
