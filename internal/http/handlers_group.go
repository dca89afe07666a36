package http

import (
	"net/http"
	"strings"
	"time"

	"ledgerd/internal/core"
	"ledgerd/internal/log"
)

type groupMemberResponse struct {
	GroupID  int64  `json:"group_id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at,omitempty"`
}

func memberToResponse(m core.GroupMember) groupMemberResponse {
	joined := ""
	if !m.JoinedAt.IsZero() {
		joined = m.JoinedAt.UTC().Format(time.RFC3339)
	}
	return groupMemberResponse{
		GroupID:  m.GroupID,
		UserID:   m.UserID,
		Role:     string(m.Role),
		JoinedAt: joined,
	}
}

// pathUser extracts a user ID path segment.
func pathUser(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	userID := strings.TrimSpace(r.PathValue(name))
	if userID == "" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return "", false
	}
	return userID, true
}

func (s *Server) handleInviteGroupMember(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}
	targetID, ok := pathUser(w, r, "userID")
	if !ok {
		return
	}

	if err := s.groups.Invite(r.Context(), groupID, actorID, targetID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}
	memberID, ok := pathUser(w, r, "userID")
	if !ok {
		return
	}

	if err := s.groups.Remove(r.Context(), groupID, actorID, memberID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetGroupMember(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}
	memberID, ok := pathUser(w, r, "userID")
	if !ok {
		return
	}

	m, err := s.groups.GetMember(r.Context(), groupID, actorID, memberID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, memberToResponse(m))
}

func (s *Server) handleListGroupMembers(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}

	members, err := s.groups.ListMembers(r.Context(), groupID, actorID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]groupMemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberToResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePostGroupTransaction(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}

	var req createTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tx, ok := transactionFromRequest(w, req)
	if !ok {
		return
	}

	created, err := s.groups.PostTransaction(r.Context(), groupID, actorID, tx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogTransactionPosted(r.Context(), created.Owner, string(created.Type), created.Category, created.Amount.Cents)

	writeJSON(w, http.StatusCreated, transactionToResponse(created))
}

func (s *Server) handleListGroupTransactions(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}

	txs, err := s.groups.ListTransactions(r.Context(), groupID, actorID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transactionsToResponse(txs))
}

func (s *Server) handleGroupBudgets(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUser(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r, "groupID")
	if !ok {
		return
	}

	enriched, err := s.groups.Budgets(r.Context(), groupID, actorID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, budgetsToUsageResponse(enriched))
}
