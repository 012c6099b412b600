package workgroups

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"dzemat/internal/engine/identity"
	apperr "dzemat/internal/pkg/errors"
	"dzemat/internal/platform/models"
	"dzemat/internal/platform/repositories"
	"dzemat/internal/platform/testutil"
)

type recorder struct {
	mu      sync.Mutex
	actions []string
}

func (r *recorder) Log(_ context.Context, _, _, action, _ string, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

type fixture struct {
	db    *sql.DB
	svc   *Service
	rec   *recorder
	admin *identity.Principal
	board *identity.Principal
	mod   *identity.Principal
	alice *identity.Principal
	bob   *identity.Principal
	group *WorkGroup
}

func principal(id string, admin bool, roles ...string) *identity.Principal {
	return &identity.Principal{ID: id, TenantID: "tenant_a", IsAdmin: admin, Roles: roles}
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	testutil.SeedTenant(t, db, "tenant_a", models.TierFull, models.StatusActive)
	testutil.SeedTenant(t, db, "tenant_b", models.TierFull, models.StatusActive)
	testutil.SeedUser(t, db, "tenant_a", "admin", testutil.Admin())
	testutil.SeedUser(t, db, "tenant_a", "board", testutil.Roles(models.RoleBoardMember))
	testutil.SeedUser(t, db, "tenant_a", "mod")
	testutil.SeedUser(t, db, "tenant_a", "alice")
	testutil.SeedUser(t, db, "tenant_a", "bob")
	testutil.SeedUser(t, db, "tenant_b", "eve")

	rec := &recorder{}
	repo := NewRepository(db)
	manager := NewManager(repo, repositories.NewUserRepository(db), rec)
	svc := NewService(repo, manager, rec)

	f := &fixture{
		db:    db,
		svc:   svc,
		rec:   rec,
		admin: principal("admin", true),
		board: principal("board", false, models.RoleBoardMember),
		mod:   principal("mod", false, models.RoleMember),
		alice: principal("alice", false, models.RoleMember),
		bob:   principal("bob", false, models.RoleMember),
	}

	name := "Omladinska sekcija"
	group, err := svc.Create(context.Background(), f.admin, GroupInput{Name: &name})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.group = group

	ctx := context.Background()
	if _, _, err := manager.AddMember(ctx, "tenant_a", group.ID, "mod", "admin"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if err := manager.SetModerator(ctx, "tenant_a", group.ID, "mod", true, "admin"); err != nil {
		t.Fatalf("SetModerator: %v", err)
	}
	return f
}

func countMembers(t *testing.T, db *sql.DB, groupID, userID string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(1) FROM work_group_members WHERE work_group_id = ? AND user_id = ?`, groupID, userID).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestManager_AddMemberIsIdempotent(t *testing.T) {
	f := setup(t)
	m := f.svc.Members()
	ctx := context.Background()

	first, added, err := m.AddMember(ctx, "tenant_a", f.group.ID, "alice", "admin")
	if err != nil || !added {
		t.Fatalf("first AddMember: added=%v err=%v", added, err)
	}
	if first.IsModerator {
		t.Error("new members must not be moderators")
	}

	second, added, err := m.AddMember(ctx, "tenant_a", f.group.ID, "alice", "admin")
	if err != nil {
		t.Fatalf("second AddMember: %v", err)
	}
	if added {
		t.Error("second AddMember reported a new row")
	}
	if second.ID != first.ID {
		t.Errorf("second AddMember returned %s, want %s", second.ID, first.ID)
	}
	if n := countMembers(t, f.db, f.group.ID, "alice"); n != 1 {
		t.Errorf("expected exactly one membership row, got %d", n)
	}
}

func TestManager_AddMemberRequiresUserInTenant(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, err := f.svc.Members().AddMember(ctx, "tenant_a", f.group.ID, "eve", "admin")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("cross-tenant user: got %v, want ErrUserNotFound", err)
	}
	_, _, err = f.svc.Members().AddMember(ctx, "tenant_a", "wg_missing", "alice", "admin")
	if !errors.Is(err, ErrWorkGroupNotFound) {
		t.Errorf("missing group: got %v, want ErrWorkGroupNotFound", err)
	}
}

func TestManager_RemoveAndModerator(t *testing.T) {
	f := setup(t)
	m := f.svc.Members()
	ctx := context.Background()

	if err := m.RemoveMember(ctx, "tenant_a", f.group.ID, "alice", "admin"); !errors.Is(err, ErrNotMember) {
		t.Errorf("RemoveMember(non-member) = %v, want ErrNotMember", err)
	}
	if err := m.SetModerator(ctx, "tenant_a", f.group.ID, "alice", true, "admin"); !errors.Is(err, ErrNotMember) {
		t.Errorf("SetModerator(non-member) = %v, want ErrNotMember", err)
	}

	m.AddMember(ctx, "tenant_a", f.group.ID, "alice", "admin")
	if ok, _ := m.IsMember(ctx, "tenant_a", f.group.ID, "alice"); !ok {
		t.Fatal("alice should be a member")
	}
	if err := m.RemoveMember(ctx, "tenant_a", f.group.ID, "alice", "admin"); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if ok, _ := m.IsMember(ctx, "tenant_a", f.group.ID, "alice"); ok {
		t.Error("alice should no longer be a member")
	}
	if ok, _ := m.IsModerator(ctx, "tenant_a", f.group.ID, "mod"); !ok {
		t.Error("mod should be a moderator")
	}
}

func TestService_AddMemberAuthorization(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.svc.AddMember(ctx, f.mod, f.group.ID, "alice"); err != nil {
		t.Fatalf("moderator AddMember: %v", err)
	}
	if _, err := f.svc.AddMember(ctx, f.alice, f.group.ID, "bob"); apperr.KindOf(err) != apperr.KindAuthorizationDenied {
		t.Errorf("member AddMember: got %v, want AuthorizationDenied", err)
	}
	if _, err := f.svc.AddMember(ctx, f.admin, f.group.ID, "alice"); !errors.Is(err, ErrAlreadyMember) {
		t.Errorf("duplicate AddMember: got %v, want ErrAlreadyMember", err)
	}
	if err := f.svc.SetModerator(ctx, f.mod, f.group.ID, "alice", true); apperr.KindOf(err) != apperr.KindAuthorizationDenied {
		t.Errorf("moderator SetModerator: got %v, want AuthorizationDenied", err)
	}
}

func TestService_RemoveMemberSelfOrModerator(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.svc.AddMember(ctx, f.admin, f.group.ID, "alice")
	f.svc.AddMember(ctx, f.admin, f.group.ID, "bob")

	if err := f.svc.RemoveMember(ctx, f.alice, f.group.ID, "bob"); apperr.KindOf(err) != apperr.KindAuthorizationDenied {
		t.Errorf("member removing another: got %v", err)
	}
	if err := f.svc.RemoveMember(ctx, f.alice, f.group.ID, "alice"); err != nil {
		t.Errorf("self removal: %v", err)
	}
	if err := f.svc.RemoveMember(ctx, f.mod, f.group.ID, "bob"); err != nil {
		t.Errorf("moderator removal: %v", err)
	}
}

func TestService_ListVisibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	private := VisibilityPrivate
	name := "Upravni odbor"
	secret, err := f.svc.Create(ctx, f.admin, GroupInput{Name: &name, Visibility: &private})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	archivedName := "Stara sekcija"
	old, _ := f.svc.Create(ctx, f.admin, GroupInput{Name: &archivedName})
	if _, err := f.svc.ToggleArchive(ctx, f.admin, old.ID); err != nil {
		t.Fatalf("ToggleArchive: %v", err)
	}

	ids := func(groups []*WorkGroup) map[string]bool {
		out := map[string]bool{}
		for _, g := range groups {
			out[g.ID] = true
		}
		return out
	}

	forAlice, _ := f.svc.List(ctx, f.alice)
	if got := ids(forAlice); !got[f.group.ID] || got[secret.ID] || got[old.ID] {
		t.Errorf("alice sees %v", got)
	}

	forBoard, _ := f.svc.List(ctx, f.board)
	if got := ids(forBoard); !got[secret.ID] || got[old.ID] {
		t.Errorf("board sees %v", got)
	}

	forAdmin, _ := f.svc.List(ctx, f.admin)
	if got := ids(forAdmin); !got[secret.ID] || !got[old.ID] {
		t.Errorf("admin sees %v", got)
	}

	if _, err := f.svc.Get(ctx, f.alice, secret.ID); apperr.KindOf(err) != apperr.KindAuthorizationDenied {
		t.Errorf("alice Get(private): %v", err)
	}
}

func TestService_TenantIsolation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	outsider := &identity.Principal{ID: "eve", TenantID: "tenant_b", IsAdmin: true}

	if _, err := f.svc.Get(ctx, outsider, f.group.ID); !errors.Is(err, ErrWorkGroupNotFound) {
		t.Errorf("cross-tenant Get: %v", err)
	}
	if err := f.svc.Delete(ctx, outsider, f.group.ID); !errors.Is(err, ErrWorkGroupNotFound) {
		t.Errorf("cross-tenant Delete: %v", err)
	}
	groups, _ := f.svc.List(ctx, outsider)
	if len(groups) != 0 {
		t.Errorf("cross-tenant List returned %d groups", len(groups))
	}
}

func TestService_CreateValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	empty := "   "
	if _, err := f.svc.Create(ctx, f.admin, GroupInput{Name: &empty}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("empty name: %v", err)
	}
	name := "Sekcija"
	bad := Visibility("tajna")
	if _, err := f.svc.Create(ctx, f.admin, GroupInput{Name: &name, Visibility: &bad}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("bad visibility: %v", err)
	}
	if _, err := f.svc.Create(ctx, f.mod, GroupInput{Name: &name}); apperr.KindOf(err) != apperr.KindAuthorizationDenied {
		t.Errorf("moderator create: %v", err)
	}
}

func TestAccessRequests(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, err := f.svc.RequestAccess(ctx, f.alice, f.group.ID)
	if err != nil {
		t.Fatalf("RequestAccess: %v", err)
	}
	if _, err := f.svc.RequestAccess(ctx, f.alice, f.group.ID); !errors.Is(err, ErrRequestPending) {
		t.Errorf("duplicate request: %v", err)
	}

	if _, err := f.svc.DecideAccessRequest(ctx, f.mod, req.ID, RequestApproved); apperr.KindOf(err) != apperr.KindAuthorizationDenied {
		t.Errorf("moderator decide: %v", err)
	}
	if _, err := f.svc.DecideAccessRequest(ctx, f.admin, req.ID, "maybe"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("invalid status: %v", err)
	}

	decided, err := f.svc.DecideAccessRequest(ctx, f.admin, req.ID, RequestApproved)
	if err != nil {
		t.Fatalf("DecideAccessRequest: %v", err)
	}
	if decided.Status != RequestApproved || decided.DecidedBy == nil || *decided.DecidedBy != "admin" {
		t.Errorf("decided = %+v", decided)
	}
	if ok, _ := f.svc.Members().IsMember(ctx, "tenant_a", f.group.ID, "alice"); !ok {
		t.Error("approval should add alice to the group")
	}

	if _, err := f.svc.DecideAccessRequest(ctx, f.admin, req.ID, RequestRejected); !errors.Is(err, ErrRequestDecided) {
		t.Errorf("second decision: %v", err)
	}
	if _, err := f.svc.RequestAccess(ctx, f.alice, f.group.ID); !errors.Is(err, ErrAlreadyMember) {
		t.Errorf("request after approval: %v", err)
	}

	mine, _ := f.svc.MyAccessRequests(ctx, f.alice)
	if len(mine) != 1 {
		t.Errorf("alice has %d requests", len(mine))
	}
	if _, err := f.svc.ListAccessRequests(ctx, f.alice); apperr.KindOf(err) != apperr.KindAuthorizationDenied {
		t.Errorf("member list all: %v", err)
	}
}

func TestAccessRequests_Rejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, _ := f.svc.RequestAccess(ctx, f.bob, f.group.ID)
	if _, err := f.svc.DecideAccessRequest(ctx, f.admin, req.ID, RequestRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if ok, _ := f.svc.Members().IsMember(ctx, "tenant_a", f.group.ID, "bob"); ok {
		t.Error("rejection must not add a member")
	}
}

func TestAccessRequests_ApprovalNeedsResolvableRequester(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req, err := f.svc.RequestAccess(ctx, f.bob, f.group.ID)
	if err != nil {
		t.Fatalf("RequestAccess: %v", err)
	}
	if _, err := f.db.Exec(`UPDATE users SET tenant_id = 'tenant_b' WHERE id = 'bob'`); err != nil {
		t.Fatalf("move user: %v", err)
	}

	if _, err := f.svc.DecideAccessRequest(ctx, f.admin, req.ID, RequestApproved); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("approve: got %v, want ErrUserNotFound", err)
	}
	pending, err := f.svc.ListAccessRequests(ctx, f.admin)
	if err != nil {
		t.Fatalf("ListAccessRequests: %v", err)
	}
	if len(pending) != 1 || pending[0].Status != RequestPending {
		t.Errorf("request should stay pending, got %+v", pending)
	}
	if n := countMembers(t, f.db, f.group.ID, "bob"); n != 0 {
		t.Errorf("bob has %d membership rows", n)
	}
}
