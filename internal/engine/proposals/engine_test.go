package proposals

import (
	"context"
	"errors"
	"sync"
	"testing"

	"dzemat/internal/engine/identity"
	"dzemat/internal/engine/workgroups"
	apperr "dzemat/internal/pkg/errors"
	"dzemat/internal/platform/models"
	"dzemat/internal/platform/repositories"
	"dzemat/internal/platform/testutil"
)

type nopRecorder struct{}

func (nopRecorder) Log(context.Context, string, string, string, string, map[string]interface{}) {}

type fixture struct {
	engine *Engine
	group  *workgroups.WorkGroup
	admin  *identity.Principal
	board  *identity.Principal
	alice  *identity.Principal
	bob    *identity.Principal
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewDB(t)
	testutil.SeedTenant(t, db, "tenant_a", models.TierFull, models.StatusActive)
	testutil.SeedTenant(t, db, "tenant_b", models.TierFull, models.StatusActive)
	testutil.SeedUser(t, db, "tenant_a", "admin", testutil.Admin())
	testutil.SeedUser(t, db, "tenant_a", "board", testutil.Roles(models.RoleBoardMember))
	testutil.SeedUser(t, db, "tenant_a", "alice")
	testutil.SeedUser(t, db, "tenant_a", "bob")

	wgRepo := workgroups.NewRepository(db)
	manager := workgroups.NewManager(wgRepo, repositories.NewUserRepository(db), nopRecorder{})
	wgService := workgroups.NewService(wgRepo, manager, nopRecorder{})

	f := &fixture{
		engine: NewEngine(NewRepository(db), manager, nopRecorder{}),
		admin:  &identity.Principal{ID: "admin", TenantID: "tenant_a", IsAdmin: true},
		board:  &identity.Principal{ID: "board", TenantID: "tenant_a", Roles: []string{models.RoleBoardMember}},
		alice:  &identity.Principal{ID: "alice", TenantID: "tenant_a", Roles: []string{models.RoleMember}},
		bob:    &identity.Principal{ID: "bob", TenantID: "tenant_a", Roles: []string{models.RoleMember}},
	}
	name := "Humanitarna sekcija"
	g, err := wgService.Create(ctx, f.admin, workgroups.GroupInput{Name: &name})
	if err != nil {
		t.Fatalf("Create group: %v", err)
	}
	f.group = g
	if _, _, err := manager.AddMember(ctx, "tenant_a", g.ID, "alice", "admin"); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	return f
}

func (f *fixture) submit(t *testing.T) *Proposal {
	t.Helper()
	what := "Iftar za komšije"
	p, err := f.engine.Viewer(f.alice).Create(context.Background(), Input{WorkGroupID: f.group.ID, What: &what})
	if err != nil {
		t.Fatalf("Create proposal: %v", err)
	}
	return p
}

func TestCreate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p := f.submit(t)
	if p.Status != StatusPending || p.CreatedByID != "alice" {
		t.Errorf("Unexpected proposal %+v", p)
	}

	what := "Nešto"
	_, err := f.engine.Viewer(f.bob).Create(ctx, Input{WorkGroupID: f.group.ID, What: &what})
	if apperr.KindOf(err) != apperr.KindAuthorizationDenied {
		t.Errorf("Expected non-member to be denied, got %v", err)
	}

	blank := " "
	_, err = f.engine.Viewer(f.alice).Create(ctx, Input{WorkGroupID: f.group.ID, What: &blank})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestReviewerIsAdminOnly(t *testing.T) {
	f := setup(t)

	for _, p := range []*identity.Principal{f.board, f.alice} {
		if _, err := f.engine.Reviewer(p); apperr.KindOf(err) != apperr.KindAuthorizationDenied {
			t.Errorf("Expected %s to be denied a reviewer, got %v", p.ID, err)
		}
	}
	if _, err := f.engine.Reviewer(f.admin); err != nil {
		t.Errorf("Expected admin reviewer, got %v", err)
	}
}

func TestRejectRequiresComment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.submit(t)
	reviewer, _ := f.engine.Reviewer(f.admin)

	if _, err := reviewer.Reject(ctx, p.ID, "   "); !errors.Is(err, ErrCommentRequired) {
		t.Fatalf("Expected ErrCommentRequired, got %v", err)
	}

	rejected, err := reviewer.Reject(ctx, p.ID, "Nema budžeta")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.Status != StatusRejected || rejected.ReviewComment == nil || *rejected.ReviewComment != "Nema budžeta" {
		t.Errorf("Unexpected rejected proposal %+v", rejected)
	}

	if _, err := reviewer.Reject(ctx, p.ID, "Opet"); !errors.Is(err, ErrNotPending) {
		t.Errorf("Expected ErrNotPending on second reject, got %v", err)
	}
	if _, err := reviewer.Approve(ctx, p.ID, ""); !errors.Is(err, ErrNotPending) {
		t.Errorf("Expected ErrNotPending on approve after reject, got %v", err)
	}
}

func TestConcurrentDecisionsSucceedOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.submit(t)
	reviewer, _ := f.engine.Reviewer(f.admin)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reviewer.Approve(ctx, p.ID, ""); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if success != 1 {
		t.Errorf("Expected exactly one decision to succeed, got %d", success)
	}
}

func TestUpdate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.submit(t)

	budget := "500 KM"
	if _, err := f.engine.Viewer(f.bob).Update(ctx, p.ID, Input{Budget: &budget}); apperr.KindOf(err) != apperr.KindAuthorizationDenied {
		t.Errorf("Expected non-author to be denied, got %v", err)
	}
	updated, err := f.engine.Viewer(f.alice).Update(ctx, p.ID, Input{Budget: &budget})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Budget != budget || updated.What != "Iftar za komšije" {
		t.Errorf("Unexpected update result %+v", updated)
	}

	reviewer, _ := f.engine.Reviewer(f.admin)
	if _, err := reviewer.Approve(ctx, p.ID, ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, err := f.engine.Viewer(f.alice).Update(ctx, p.ID, Input{Budget: &budget}); !errors.Is(err, ErrNotPending) {
		t.Errorf("Expected ErrNotPending after approval, got %v", err)
	}
}

func TestVisibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := f.submit(t)

	cases := map[string]struct {
		viewer *identity.Principal
		count  int
	}{
		"admin":      {f.admin, 1},
		"board":      {f.board, 1},
		"member":     {f.alice, 1},
		"non-member": {f.bob, 0},
		"outsider":   {&identity.Principal{ID: "eve", TenantID: "tenant_b", IsAdmin: true}, 0},
	}
	for name, tc := range cases {
		list, err := f.engine.Viewer(tc.viewer).List(ctx, "")
		if err != nil {
			t.Fatalf("%s: List: %v", name, err)
		}
		if len(list) != tc.count {
			t.Errorf("%s: expected %d proposals, got %d", name, tc.count, len(list))
		}
	}

	if _, err := f.engine.Viewer(f.bob).Get(ctx, p.ID); apperr.KindOf(err) != apperr.KindAuthorizationDenied {
		t.Errorf("Expected non-member Get to be denied, got %v", err)
	}
	if _, err := f.engine.Viewer(f.board).Get(ctx, p.ID); err != nil {
		t.Errorf("Expected board member to read proposal, got %v", err)
	}

	list, err := f.engine.Viewer(f.admin).List(ctx, StatusApproved)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Expected no approved proposals, got %d", len(list))
	}
	if _, err := f.engine.Viewer(f.admin).List(ctx, "maybe"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("Expected validation error for unknown status, got %v", err)
	}
}
