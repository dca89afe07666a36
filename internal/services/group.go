package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ledgerd/internal/core"
)

// ErrForbidden reports a membership action the caller's role does not
// allow. It is distinct from ErrNotFound: the caller is a member and may
// know the group exists, they just cannot do this.
var ErrForbidden = errors.New("forbidden")

// GroupService extends ledgers to shared groups. A group ledger is an
// ordinary ledger under the group owner key; everything specific to
// groups is the membership gate in front of it.
type GroupService struct {
	members      MembershipStore
	transactions *TransactionService
	usage        *UsageService
}

func NewGroupService(members MembershipStore, transactions *TransactionService, usage *UsageService) *GroupService {
	return &GroupService{
		members:      members,
		transactions: transactions,
		usage:        usage,
	}
}

// requireMember resolves the caller's membership. Non-members get
// ErrNotFound so the group's existence is not revealed to outsiders.
func (s *GroupService) requireMember(ctx context.Context, groupID int64, userID string) (core.GroupMember, error) {
	m, err := s.members.GetGroupMember(ctx, groupID, userID)
	if err != nil {
		return core.GroupMember{}, fmt.Errorf("membership check for group %d: %w", groupID, err)
	}
	return m, nil
}

// Invite adds targetID to the group. Inviting into an empty group makes
// the caller its founder first, which is how groups come to exist.
func (s *GroupService) Invite(ctx context.Context, groupID int64, actorID, targetID string) error {
	if strings.TrimSpace(targetID) == "" {
		return core.ErrEmptyUser
	}

	n, err := s.members.CountGroupMembers(ctx, groupID)
	if err != nil {
		return fmt.Errorf("count members of group %d: %w", groupID, err)
	}
	if n == 0 {
		founder := core.GroupMember{GroupID: groupID, UserID: actorID, Role: core.RoleFounder}
		if err := s.members.AddGroupMember(ctx, founder); err != nil {
			return fmt.Errorf("found group %d: %w", groupID, err)
		}
		slog.InfoContext(ctx, "Group founded", "group_id", groupID, "founder", actorID)
	} else if _, err := s.requireMember(ctx, groupID, actorID); err != nil {
		return err
	}

	if targetID == actorID {
		// Founding already added the actor; anything else is a re-invite.
		if n == 0 {
			return nil
		}
		return core.ErrConflict
	}

	member := core.GroupMember{GroupID: groupID, UserID: targetID, Role: core.RoleMember}
	if err := s.members.AddGroupMember(ctx, member); err != nil {
		return fmt.Errorf("invite %s to group %d: %w", targetID, groupID, err)
	}

	slog.InfoContext(ctx, "Group member invited", "group_id", groupID, "actor", actorID, "target", targetID)
	return nil
}

// Remove handles both voluntary leave (actor removes themself) and a
// kick, which only the founder may perform.
func (s *GroupService) Remove(ctx context.Context, groupID int64, actorID, memberID string) error {
	actor, err := s.requireMember(ctx, groupID, actorID)
	if err != nil {
		return err
	}

	if actorID != memberID && actor.Role != core.RoleFounder {
		return fmt.Errorf("remove %s from group %d: %w", memberID, groupID, ErrForbidden)
	}

	if err := s.members.RemoveGroupMember(ctx, groupID, memberID); err != nil {
		return fmt.Errorf("remove %s from group %d: %w", memberID, groupID, err)
	}

	slog.InfoContext(ctx, "Group member removed", "group_id", groupID, "actor", actorID, "member", memberID)
	return nil
}

func (s *GroupService) GetMember(ctx context.Context, groupID int64, actorID, memberID string) (core.GroupMember, error) {
	if _, err := s.requireMember(ctx, groupID, actorID); err != nil {
		return core.GroupMember{}, err
	}
	return s.members.GetGroupMember(ctx, groupID, memberID)
}

func (s *GroupService) ListMembers(ctx context.Context, groupID int64, actorID string) ([]core.GroupMember, error) {
	if _, err := s.requireMember(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	return s.members.ListGroupMembers(ctx, groupID)
}

// PostTransaction writes a transaction into the shared group ledger on
// behalf of actorID.
func (s *GroupService) PostTransaction(ctx context.Context, groupID int64, actorID string, tx core.Transaction) (core.Transaction, error) {
	if _, err := s.requireMember(ctx, groupID, actorID); err != nil {
		return core.Transaction{}, err
	}

	tx.Owner = core.GroupOwner(groupID)
	tx.PostedBy = actorID
	return s.transactions.Create(ctx, tx)
}

func (s *GroupService) ListTransactions(ctx context.Context, groupID int64, actorID string) ([]core.Transaction, error) {
	if _, err := s.requireMember(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	return s.transactions.List(ctx, core.GroupOwner(groupID))
}

// Budgets returns the group's budgets enriched with current usage, the
// same projection the personal read path uses.
func (s *GroupService) Budgets(ctx context.Context, groupID int64, actorID string) ([]core.BudgetUsage, error) {
	if _, err := s.requireMember(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	return s.usage.EnrichBudgets(ctx, core.GroupOwner(groupID))
}
