package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ledgerd/internal/core"
	"ledgerd/internal/services"
)

// memStore is a minimal in-memory implementation of the service store
// ports, mirroring the real store's owner scoping and conflict rules.
type memStore struct {
	nextTxID     int64
	nextBudgetID int64
	transactions []core.Transaction
	budgets      []core.Budget
	members      []core.GroupMember
}

func (m *memStore) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	m.nextTxID++
	tx.ID = m.nextTxID
	m.transactions = append(m.transactions, tx)
	return tx, nil
}

func (m *memStore) GetTransaction(_ context.Context, owner string, id int64) (core.Transaction, error) {
	for _, tx := range m.transactions {
		if tx.ID == id && tx.Owner == owner {
			return tx, nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

func (m *memStore) ListTransactions(_ context.Context, owner string) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, tx := range m.transactions {
		if tx.Owner == owner {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *memStore) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	for i, cur := range m.transactions {
		if cur.ID == tx.ID && cur.Owner == tx.Owner {
			m.transactions[i] = tx
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) DeleteTransaction(_ context.Context, owner string, id int64) error {
	for i, tx := range m.transactions {
		if tx.ID == id && tx.Owner == owner {
			m.transactions = append(m.transactions[:i], m.transactions[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) SumExpenses(_ context.Context, owner, category string, start, end core.Date) (core.Money, error) {
	var sum core.Money
	for _, tx := range m.transactions {
		if tx.Owner == owner && tx.Category == category && tx.Type == core.Expense && tx.Date.InWindow(start, end) {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum, nil
}

func (m *memStore) SumByType(_ context.Context, owner string, typ core.TxType, start, end core.Date) (core.Money, error) {
	var sum core.Money
	for _, tx := range m.transactions {
		if tx.Owner == owner && tx.Type == typ && tx.Date.InWindow(start, end) {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum, nil
}

func (m *memStore) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	for _, cur := range m.budgets {
		if cur.Owner == b.Owner && cur.Category == b.Category {
			return core.Budget{}, core.ErrConflict
		}
	}
	m.nextBudgetID++
	b.ID = m.nextBudgetID
	m.budgets = append(m.budgets, b)
	return b, nil
}

func (m *memStore) GetBudget(_ context.Context, owner string, id int64) (core.Budget, error) {
	for _, b := range m.budgets {
		if b.ID == id && b.Owner == owner {
			return b, nil
		}
	}
	return core.Budget{}, core.ErrNotFound
}

func (m *memStore) ListBudgets(_ context.Context, owner string) ([]core.Budget, error) {
	var out []core.Budget
	for _, b := range m.budgets {
		if b.Owner == owner {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) UpdateBudget(_ context.Context, b core.Budget) error {
	for _, cur := range m.budgets {
		if cur.Owner == b.Owner && cur.Category == b.Category && cur.ID != b.ID {
			return core.ErrConflict
		}
	}
	for i, cur := range m.budgets {
		if cur.ID == b.ID && cur.Owner == b.Owner {
			m.budgets[i] = b
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) DeleteBudget(_ context.Context, owner string, id int64) error {
	for i, b := range m.budgets {
		if b.ID == id && b.Owner == owner {
			m.budgets = append(m.budgets[:i], m.budgets[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) AddGroupMember(_ context.Context, gm core.GroupMember) error {
	for _, cur := range m.members {
		if cur.GroupID == gm.GroupID && cur.UserID == gm.UserID {
			return core.ErrConflict
		}
	}
	m.members = append(m.members, gm)
	return nil
}

func (m *memStore) GetGroupMember(_ context.Context, groupID int64, userID string) (core.GroupMember, error) {
	for _, gm := range m.members {
		if gm.GroupID == groupID && gm.UserID == userID {
			return gm, nil
		}
	}
	return core.GroupMember{}, core.ErrNotFound
}

func (m *memStore) ListGroupMembers(_ context.Context, groupID int64) ([]core.GroupMember, error) {
	var out []core.GroupMember
	for _, gm := range m.members {
		if gm.GroupID == groupID {
			out = append(out, gm)
		}
	}
	return out, nil
}

func (m *memStore) RemoveGroupMember(_ context.Context, groupID int64, userID string) error {
	for i, gm := range m.members {
		if gm.GroupID == groupID && gm.UserID == userID {
			m.members = append(m.members[:i], m.members[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memStore) CountGroupMembers(_ context.Context, groupID int64) (int64, error) {
	var n int64
	for _, gm := range m.members {
		if gm.GroupID == groupID {
			n++
		}
	}
	return n, nil
}

func newTestServer() (*Server, *memStore) {
	store := &memStore{}
	usage := services.NewUsageService(store, time.UTC)
	budgets := services.NewBudgetService(store)
	transactions := services.NewTransactionService(store, nil)
	groups := services.NewGroupService(store, transactions, usage)
	return NewServer(":0", budgets, usage, transactions, groups, nil), store
}

func doRequest(t *testing.T, s *Server, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

// currentMonthDate returns a date inside the current UTC month, which is
// what the usage endpoints aggregate over.
func currentMonthDate() string {
	return core.DateOf(time.Now().UTC()).String()
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer()

	if rec := doRequest(t, s, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d, want 200", rec.Code)
	}
}

func TestMissingUserHeader(t *testing.T) {
	s, _ := newTestServer()

	for _, path := range []string{"/budgets", "/transactions", "/summary"} {
		if rec := doRequest(t, s, http.MethodGet, path, "", ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without user = %d, want 401", path, rec.Code)
		}
	}
}

func TestCreateBudget(t *testing.T) {
	s, _ := newTestServer()

	rec := doRequest(t, s, http.MethodPost, "/budgets", `{"category":"FOOD","limit":"400.00"}`, "alice")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create budget = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse[budgetResponse](t, rec)
	if resp.ID == 0 || resp.Category != "FOOD" || resp.Limit != "400.00" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestCreateBudgetErrors(t *testing.T) {
	s, _ := newTestServer()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"bad limit", `{"category":"FOOD","limit":"abc"}`, http.StatusBadRequest},
		{"negative limit", `{"category":"FOOD","limit":"-5"}`, http.StatusBadRequest},
		{"empty category", `{"category":"","limit":"10"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/budgets", tc.body, "alice")
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}

	// Duplicate category conflicts.
	doRequest(t, s, http.MethodPost, "/budgets", `{"category":"FOOD","limit":"10"}`, "alice")
	rec := doRequest(t, s, http.MethodPost, "/budgets", `{"category":"FOOD","limit":"20"}`, "alice")
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate budget = %d, want 409", rec.Code)
	}

	// Same category for another user is fine.
	rec = doRequest(t, s, http.MethodPost, "/budgets", `{"category":"FOOD","limit":"20"}`, "bob")
	if rec.Code != http.StatusCreated {
		t.Errorf("other user budget = %d, want 201", rec.Code)
	}
}

func TestListBudgetsWithUsage(t *testing.T) {
	s, _ := newTestServer()
	date := currentMonthDate()

	doRequest(t, s, http.MethodPost, "/budgets", `{"category":"FOOD","limit":"400.00"}`, "alice")
	doRequest(t, s, http.MethodPost, "/transactions",
		`{"type":"EXPENSE","amount":"30.00","category":"FOOD","date":"`+date+`"}`, "alice")
	doRequest(t, s, http.MethodPost, "/transactions",
		`{"type":"EXPENSE","amount":"15.50","category":"FOOD","date":"`+date+`"}`, "alice")
	// Income and foreign spending never count.
	doRequest(t, s, http.MethodPost, "/transactions",
		`{"type":"INCOME","amount":"500.00","category":"FOOD","date":"`+date+`"}`, "alice")
	doRequest(t, s, http.MethodPost, "/transactions",
		`{"type":"EXPENSE","amount":"99.00","category":"FOOD","date":"`+date+`"}`, "bob")

	rec := doRequest(t, s, http.MethodGet, "/budgets", "", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("list budgets = %d", rec.Code)
	}
	resp := decodeResponse[[]budgetUsageResponse](t, rec)
	if len(resp) != 1 {
		t.Fatalf("expected 1 budget, got %d", len(resp))
	}
	if resp[0].UsedAmount != "45.50" {
		t.Errorf("used_amount = %q, want 45.50", resp[0].UsedAmount)
	}
	if resp[0].Limit != "400.00" {
		t.Errorf("limit = %q, want 400.00", resp[0].Limit)
	}
}

func TestUpdateAndDeleteBudget(t *testing.T) {
	s, _ := newTestServer()

	rec := doRequest(t, s, http.MethodPost, "/budgets", `{"category":"FOOD","limit":"400.00"}`, "alice")
	created := decodeResponse[budgetResponse](t, rec)

	rec = doRequest(t, s, http.MethodPatch, "/budgets/1", `{"limit":"250.00"}`, "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("patch = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decodeResponse[budgetResponse](t, rec)
	if updated.Limit != "250.00" || updated.ID != created.ID {
		t.Fatalf("unexpected body: %+v", updated)
	}

	// Someone else's budget is a 404, not a 403.
	if rec := doRequest(t, s, http.MethodPatch, "/budgets/1", `{"limit":"1.00"}`, "bob"); rec.Code != http.StatusNotFound {
		t.Errorf("foreign patch = %d, want 404", rec.Code)
	}

	if rec := doRequest(t, s, http.MethodDelete, "/budgets/1", "", "alice"); rec.Code != http.StatusOK {
		t.Errorf("delete = %d, want 200", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodDelete, "/budgets/1", "", "alice"); rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	s, _ := newTestServer()

	rec := doRequest(t, s, http.MethodPost, "/transactions",
		`{"type":"EXPENSE","amount":"12.50","category":"FOOD","description":"groceries","date":"2024-03-05"}`, "alice")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeResponse[transactionResponse](t, rec)
	if created.Amount != "12.50" || created.Date != "2024-03-05" || created.Type != "EXPENSE" {
		t.Fatalf("unexpected body: %+v", created)
	}

	rec = doRequest(t, s, http.MethodGet, "/transactions/1", "", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("get = %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPatch, "/transactions/1", `{"category":"RENT"}`, "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("patch = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decodeResponse[transactionResponse](t, rec)
	if updated.Category != "RENT" || updated.Amount != "12.50" {
		t.Fatalf("partial update wrong: %+v", updated)
	}

	rec = doRequest(t, s, http.MethodGet, "/transactions", "", "alice")
	list := decodeResponse[[]transactionResponse](t, rec)
	if len(list) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(list))
	}

	if rec := doRequest(t, s, http.MethodDelete, "/transactions/1", "", "alice"); rec.Code != http.StatusOK {
		t.Errorf("delete = %d, want 200", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodGet, "/transactions/1", "", "alice"); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestTransactionValidationErrors(t *testing.T) {
	s, _ := newTestServer()

	cases := []struct {
		name string
		body string
	}{
		{"bad type", `{"type":"TRANSFER","amount":"1.00","category":"FOOD","date":"2024-03-05"}`},
		{"bad amount", `{"type":"EXPENSE","amount":"1.2.3","category":"FOOD","date":"2024-03-05"}`},
		{"signed amount", `{"type":"EXPENSE","amount":"-1.00","category":"FOOD","date":"2024-03-05"}`},
		{"bad date", `{"type":"EXPENSE","amount":"1.00","category":"FOOD","date":"05/03/2024"}`},
		{"impossible date", `{"type":"EXPENSE","amount":"1.00","category":"FOOD","date":"2024-02-30"}`},
		{"empty category", `{"type":"EXPENSE","amount":"1.00","category":"","date":"2024-03-05"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/transactions", tc.body, "alice")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestTransactionOwnershipHiding(t *testing.T) {
	s, _ := newTestServer()

	doRequest(t, s, http.MethodPost, "/transactions",
		`{"type":"EXPENSE","amount":"1.00","category":"FOOD","date":"2024-03-05"}`, "alice")

	if rec := doRequest(t, s, http.MethodGet, "/transactions/1", "", "bob"); rec.Code != http.StatusNotFound {
		t.Errorf("foreign get = %d, want 404", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodPatch, "/transactions/1", `{"amount":"2.00"}`, "bob"); rec.Code != http.StatusNotFound {
		t.Errorf("foreign patch = %d, want 404", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodDelete, "/transactions/1", "", "bob"); rec.Code != http.StatusNotFound {
		t.Errorf("foreign delete = %d, want 404", rec.Code)
	}
}

func TestSummary(t *testing.T) {
	s, _ := newTestServer()
	date := currentMonthDate()

	doRequest(t, s, http.MethodPost, "/transactions",
		`{"type":"INCOME","amount":"2500.00","category":"SALARY","date":"`+date+`"}`, "alice")
	doRequest(t, s, http.MethodPost, "/transactions",
		`{"type":"EXPENSE","amount":"900.00","category":"RENT","date":"`+date+`"}`, "alice")

	rec := doRequest(t, s, http.MethodGet, "/summary", "", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary = %d", rec.Code)
	}
	resp := decodeResponse[summaryResponse](t, rec)
	if resp.Income != "2500.00" || resp.Expense != "900.00" || resp.Net != "1600.00" {
		t.Fatalf("unexpected summary: %+v", resp)
	}
}

func TestSummaryExplicitMonth(t *testing.T) {
	s, _ := newTestServer()

	doRequest(t, s, http.MethodPost, "/transactions",
		`{"type":"INCOME","amount":"100.00","category":"SALARY","date":"2024-03-20"}`, "alice")
	doRequest(t, s, http.MethodPost, "/transactions",
		`{"type":"EXPENSE","amount":"10.00","category":"FOOD","date":"2024-03-05"}`, "alice")
	// Adjacent month, must not appear.
	doRequest(t, s, http.MethodPost, "/transactions",
		`{"type":"EXPENSE","amount":"99.00","category":"FOOD","date":"2024-04-01"}`, "alice")

	rec := doRequest(t, s, http.MethodGet, "/summary?year=2024&month=3", "", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse[summaryResponse](t, rec)
	if resp.Income != "100.00" || resp.Expense != "10.00" || resp.Net != "90.00" {
		t.Fatalf("unexpected summary: %+v", resp)
	}

	if rec := doRequest(t, s, http.MethodGet, "/summary?year=2024&month=13", "", "alice"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad month = %d, want 400", rec.Code)
	}
}

func TestGroupEndpoints(t *testing.T) {
	s, _ := newTestServer()
	date := currentMonthDate()

	// First invite founds the group.
	if rec := doRequest(t, s, http.MethodPost, "/groups/7/members/bob", "", "alice"); rec.Code != http.StatusNoContent {
		t.Fatalf("invite = %d, body %s", rec.Code, rec.Body.String())
	}

	rec := doRequest(t, s, http.MethodGet, "/groups/7/members", "", "bob")
	if rec.Code != http.StatusOK {
		t.Fatalf("list members = %d", rec.Code)
	}
	members := decodeResponse[[]groupMemberResponse](t, rec)
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	// Outsiders cannot even see the group.
	if rec := doRequest(t, s, http.MethodGet, "/groups/7/members", "", "mallory"); rec.Code != http.StatusNotFound {
		t.Errorf("outsider list = %d, want 404", rec.Code)
	}

	// Re-inviting an existing member conflicts.
	if rec := doRequest(t, s, http.MethodPost, "/groups/7/members/bob", "", "alice"); rec.Code != http.StatusConflict {
		t.Errorf("re-invite = %d, want 409", rec.Code)
	}

	// Posting into the shared ledger stamps the author.
	rec = doRequest(t, s, http.MethodPost, "/groups/7/transactions",
		`{"type":"EXPENSE","amount":"22.00","category":"FOOD","date":"`+date+`"}`, "bob")
	if rec.Code != http.StatusCreated {
		t.Fatalf("group post = %d, body %s", rec.Code, rec.Body.String())
	}
	tx := decodeResponse[transactionResponse](t, rec)
	if tx.PostedBy != "bob" {
		t.Errorf("posted_by = %q, want bob", tx.PostedBy)
	}

	// Every member reads the same ledger.
	rec = doRequest(t, s, http.MethodGet, "/groups/7/transactions", "", "alice")
	list := decodeResponse[[]transactionResponse](t, rec)
	if len(list) != 1 {
		t.Fatalf("expected 1 group transaction, got %d", len(list))
	}

	// A plain member cannot kick.
	if rec := doRequest(t, s, http.MethodDelete, "/groups/7/members/alice", "", "bob"); rec.Code != http.StatusForbidden {
		t.Errorf("member kick = %d, want 403", rec.Code)
	}
	// But may leave.
	if rec := doRequest(t, s, http.MethodDelete, "/groups/7/members/bob", "", "bob"); rec.Code != http.StatusNoContent {
		t.Errorf("leave = %d, want 204", rec.Code)
	}
}

func TestGroupBudgetUsage(t *testing.T) {
	s, store := newTestServer()
	date := currentMonthDate()

	doRequest(t, s, http.MethodPost, "/groups/7/members/bob", "", "alice")

	// Seed a group budget directly in the store; budget management for
	// groups goes through the same store path.
	store.CreateBudget(context.Background(), core.Budget{
		Owner: core.GroupOwner(7), Category: "FOOD", Limit: core.Money{Cents: 50000},
	})

	doRequest(t, s, http.MethodPost, "/groups/7/transactions",
		`{"type":"EXPENSE","amount":"30.00","category":"FOOD","date":"`+date+`"}`, "alice")
	doRequest(t, s, http.MethodPost, "/groups/7/transactions",
		`{"type":"EXPENSE","amount":"15.50","category":"FOOD","date":"`+date+`"}`, "bob")

	rec := doRequest(t, s, http.MethodGet, "/groups/7/budgets", "", "bob")
	if rec.Code != http.StatusOK {
		t.Fatalf("group budgets = %d", rec.Code)
	}
	resp := decodeResponse[[]budgetUsageResponse](t, rec)
	if len(resp) != 1 || resp[0].UsedAmount != "45.50" {
		t.Fatalf("unexpected group budgets: %+v", resp)
	}

	if rec := doRequest(t, s, http.MethodGet, "/groups/7/budgets", "", "mallory"); rec.Code != http.StatusNotFound {
		t.Errorf("outsider budgets = %d, want 404", rec.Code)
	}
}

func TestPathIDValidation(t *testing.T) {
	s, _ := newTestServer()

	if rec := doRequest(t, s, http.MethodGet, "/transactions/abc", "", "alice"); rec.Code != http.StatusNotFound {
		t.Errorf("non-numeric id = %d, want 404", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodGet, "/transactions/0", "", "alice"); rec.Code != http.StatusNotFound {
		t.Errorf("zero id = %d, want 404", rec.Code)
	}
}
