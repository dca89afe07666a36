package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Owner:       UserOwner("42"),
		Type:        Expense,
		Amount:      Money{Cents: 3000},
		Category:    "FOOD",
		Description: "groceries",
		Date:        NewDate(2024, time.March, 5),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	// Empty description is fine, it is optional.
	noDesc := good
	noDesc.Description = ""
	if err := noDesc.Validate(); err != nil {
		t.Fatalf("empty description should be valid: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"empty owner", func(tx *Transaction) { tx.Owner = " " }, ErrEmptyOwner},
		{"bad type", func(tx *Transaction) { tx.Type = "TRANSFER" }, ErrInvalidType},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -1} }, ErrInvalidAmount},
		{"empty category", func(tx *Transaction) { tx.Category = "" }, ErrEmptyCategory},
		{"long description", func(tx *Transaction) { tx.Description = strings.Repeat("x", 201) }, ErrDescriptionTooLong},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := good
			tc.mutate(&tx)
			if err := tx.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{Owner: UserOwner("42"), Category: "FOOD", Limit: Money{Cents: 10000}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	zero := good
	zero.Limit = Money{}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero limit should be valid: %v", err)
	}
	bads := []Budget{
		{Owner: "", Category: "FOOD", Limit: Money{Cents: 1}},
		{Owner: UserOwner("42"), Category: " ", Limit: Money{Cents: 1}},
		{Owner: UserOwner("42"), Category: "FOOD", Limit: Money{Cents: -1}},
	}
	for i, b := range bads {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestOwnerKeys(t *testing.T) {
	if got := UserOwner("42"); got != "user:42" {
		t.Fatalf("unexpected user owner key %q", got)
	}
	if got := GroupOwner(7); got != "group:7" {
		t.Fatalf("unexpected group owner key %q", got)
	}
	if UserOwner("7") == GroupOwner(7) {
		t.Fatalf("user and group keys must never collide")
	}
}
