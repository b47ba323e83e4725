package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/flotilla-dev/flotilla/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestServerCRUD(t *testing.T) {
	s := openTestStore(t)

	srv := &types.Server{Name: "host-a", Address: "https://10.0.0.1:9121", Enabled: true}
	if err := s.CreateServer(srv); err != nil {
		t.Fatalf("create: %v", err)
	}
	if srv.ID == "" {
		t.Fatal("create should assign an id")
	}

	got, err := s.GetServer(srv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "host-a" || !got.Enabled {
		t.Errorf("got %+v", got)
	}

	got.Address = "https://10.0.0.2:9121"
	if err := s.ReplaceServer("host-a", &got); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ = s.GetServer(srv.ID)
	if got.Address != "https://10.0.0.2:9121" {
		t.Errorf("replace not persisted: %+v", got)
	}

	if err := s.DeleteServer(srv.ID, srv.Name); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetServer(srv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestServerNameUnique(t *testing.T) {
	s := openTestStore(t)
	if err := s.CreateServer(&types.Server{Name: "dup"}); err != nil {
		t.Fatal(err)
	}
	err := s.CreateServer(&types.Server{Name: "dup"})
	if !errors.Is(err, ErrNameTaken) {
		t.Errorf("expected ErrNameTaken, got %v", err)
	}
}

func TestRenameMovesIndex(t *testing.T) {
	s := openTestStore(t)
	srv := &types.Server{Name: "before"}
	if err := s.CreateServer(srv); err != nil {
		t.Fatal(err)
	}
	srv.Name = "after"
	if err := s.ReplaceServer("before", srv); err != nil {
		t.Fatalf("rename: %v", err)
	}
	// old name is free again
	if err := s.CreateServer(&types.Server{Name: "before"}); err != nil {
		t.Errorf("old name should be reusable: %v", err)
	}
	// new name is claimed
	if err := s.CreateServer(&types.Server{Name: "after"}); !errors.Is(err, ErrNameTaken) {
		t.Errorf("new name should be taken, got %v", err)
	}
}

func TestListDeploymentsOnServer(t *testing.T) {
	s := openTestStore(t)
	for _, d := range []*types.Deployment{
		{Name: "d1", ServerID: "s1"},
		{Name: "d2", ServerID: "s1"},
		{Name: "d3", ServerID: "s2"},
	} {
		if err := s.CreateDeployment(d); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.ListDeploymentsOnServer("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 deployments on s1, got %d", len(got))
	}
}

func TestUpdatesOrderingAndFilter(t *testing.T) {
	s := openTestStore(t)
	for _, u := range []*types.Update{
		{Target: types.DeploymentTarget("d1"), Operation: types.OpDeployContainer, StartTs: 100, Status: types.UpdateComplete},
		{Target: types.DeploymentTarget("d1"), Operation: types.OpStopContainer, StartTs: 300, Status: types.UpdateComplete},
		{Target: types.ServerTarget("s1"), Operation: types.OpPruneImagesServer, StartTs: 200, Status: types.UpdateComplete},
	} {
		if err := s.CreateUpdate(u); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListUpdates(UpdateFilter{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].StartTs != 300 || all[2].StartTs != 100 {
		t.Errorf("expected newest-first ordering, got %+v", all)
	}

	target := types.DeploymentTarget("d1")
	filtered, err := s.ListUpdates(UpdateFilter{Target: &target}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 2 {
		t.Errorf("expected 2 updates for d1, got %d", len(filtered))
	}

	limited, _ := s.ListUpdates(UpdateFilter{}, 1)
	if len(limited) != 1 {
		t.Errorf("limit not applied: %d", len(limited))
	}
}

func TestOrphanedUpdates(t *testing.T) {
	s := openTestStore(t)
	if err := s.CreateUpdate(&types.Update{Status: types.UpdateInProgress, StartTs: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateUpdate(&types.Update{Status: types.UpdateComplete, StartTs: 2}); err != nil {
		t.Fatal(err)
	}
	orphans, err := s.ListOrphanedUpdates()
	if err != nil {
		t.Fatal(err)
	}
	if len(orphans) != 1 || orphans[0].Status != types.UpdateInProgress {
		t.Errorf("got %+v", orphans)
	}
}

func TestStatsRoundTripAndPrune(t *testing.T) {
	s := openTestStore(t)
	for _, ts := range []int64{1000, 2000, 3000} {
		err := s.AppendStats(&types.SystemStatsRecord{
			SID: "s1", TS: ts,
			Stats: types.SystemStats{Basic: types.BasicSystemStats{CPUPerc: float64(ts)}},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	// other server, should never be returned for s1
	if err := s.AppendStats(&types.SystemStatsRecord{SID: "s2", TS: 2000}); err != nil {
		t.Fatal(err)
	}

	got, err := s.StatsAtTimestamps("s1", []int64{3000, 1000, 9999})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].TS != 3000 || got[1].TS != 1000 {
		t.Errorf("expected [3000 1000], got %+v", got)
	}

	removed, err := s.PruneStatsBefore(2500)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 3 { // 1000, 2000 for s1 and 2000 for s2
		t.Errorf("expected 3 pruned, got %d", removed)
	}
}

func TestUserUsernameIndex(t *testing.T) {
	s := openTestStore(t)
	u := &types.User{Username: "ops", Admin: true, Enabled: true}
	if err := s.CreateUser(u); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetUserByUsername("ops")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != u.ID {
		t.Errorf("index resolved wrong user: %+v", got)
	}
	if err := s.CreateUser(&types.User{Username: "ops"}); !errors.Is(err, ErrNameTaken) {
		t.Errorf("duplicate username should fail, got %v", err)
	}
	n, err := s.CountUsers()
	if err != nil || n != 1 {
		t.Errorf("count = %d, err = %v", n, err)
	}
}

func TestApiKeys(t *testing.T) {
	s := openTestStore(t)
	if err := s.CreateApiKey(&types.ApiKey{Key: "fk_1", UserID: "u1", SecretHash: "h"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateApiKey(&types.ApiKey{Key: "fk_2", UserID: "u2"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetApiKey("fk_1")
	if err != nil || got.UserID != "u1" {
		t.Errorf("got %+v, err %v", got, err)
	}
	mine, _ := s.ListApiKeysForUser("u1")
	if len(mine) != 1 {
		t.Errorf("expected 1 key for u1, got %d", len(mine))
	}
	if err := s.DeleteApiKey("fk_1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetApiKey("fk_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
