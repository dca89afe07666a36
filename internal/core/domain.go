package core

import (
	"strconv"
	"strings"
	"time"
)

const (
	Income  TxType = "INCOME"
	Expense TxType = "EXPENSE"
)

type (
	// TxType classifies a transaction as money in or money out.
	TxType string

	// Transaction is a single ledger entry. Owner scopes it to one
	// personal or group ledger; PostedBy carries the acting user for
	// group ledgers and stays empty for personal ones.
	Transaction struct {
		ID          int64
		Owner       string
		Type        TxType
		Amount      Money
		Category    string
		Description string
		Date        Date
		PostedBy    string
	}

	// Budget is a monthly spending ceiling for one category. At most one
	// budget exists per (owner, category); the used amount is never part
	// of the record, it is derived at read time.
	Budget struct {
		ID       int64
		Owner    string
		Category string
		Limit    Money
	}

	// BudgetUsage is the read-time projection of a budget together with
	// the current month's spending against it.
	BudgetUsage struct {
		Budget
		Used Money
	}

	// GroupMember records one user's membership in a shared group ledger.
	GroupMember struct {
		GroupID  int64
		UserID   string
		Role     MemberRole
		JoinedAt time.Time
	}

	MemberRole string

	// Summary holds aggregated income/expense totals for one month window.
	Summary struct {
		Income  Money
		Expense Money
		Net     Money
	}
)

const (
	RoleFounder MemberRole = "founder"
	RoleMember  MemberRole = "member"
)

// UserOwner builds the ledger owner key for a personal ledger.
func UserOwner(userID string) string {
	return "user:" + userID
}

// GroupOwner builds the shared ledger owner key for a group.
func GroupOwner(groupID int64) string {
	return "group:" + strconv.FormatInt(groupID, 10)
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Owner) == "" {
		return ErrEmptyOwner
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return t.Date.Validate()
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Owner) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	return b.Limit.Validate()
}
