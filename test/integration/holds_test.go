package integration

import (
	"context"
	"encoding/json"
	"lodgr/internal/availability/handler"
	"lodgr/pkg/client"
	apperrors "lodgr/pkg/errors"
	"lodgr/pkg/model"
	"lodgr/test/integration/testutil"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

func holdRequest(start, end string) model.HoldRequest {
	ttl := 15
	return model.HoldRequest{StartDate: start, EndDate: end, TTLMinutes: &ttl}
}

func TestHold_IsJournaledAndSurvivesRestart(t *testing.T) {
	env := testutil.NewTestEnv(t)
	mongo := env.Setup(t)
	cfg := env.Config(mongo)
	ctx := context.Background()

	first := testutil.StartServer(t, cfg)
	held, err := first.Client.Hold(ctx, "U1", holdRequest("2031-07-01", "2031-07-05"), "")
	if err != nil {
		t.Fatalf("hold failed: %v", err)
	}

	doc := mongo.FindHold(t, held.Token)
	if doc["status"] != string(model.HoldStatusActive) || doc["unit_id"] != "U1" {
		t.Fatalf("unexpected journal document %v", doc)
	}
	first.Stop()

	second := testutil.StartServer(t, cfg)
	_, err = second.Client.Hold(ctx, "U1", holdRequest("2031-07-03", "2031-07-06"), "")
	if !client.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("restored hold should block the overlap, got %v", err)
	}

	confirmed, err := second.Client.Confirm(ctx, "U1", held.Token, "B-100")
	if err != nil {
		t.Fatalf("confirm after restart failed: %v", err)
	}
	if confirmed.StartDate != "2031-07-01" || confirmed.EndDate != "2031-07-05" {
		t.Errorf("unexpected confirm response %+v", confirmed)
	}

	doc = mongo.FindHold(t, held.Token)
	if doc["status"] != string(model.HoldStatusConfirmed) || doc["booking_id"] != "B-100" {
		t.Errorf("confirmation not journaled: %v", doc)
	}
}

func TestRelease_FreesRangeAndIsJournaled(t *testing.T) {
	env := testutil.NewTestEnv(t)
	mongo := env.Setup(t)
	srv := testutil.StartServer(t, env.Config(mongo))
	ctx := context.Background()

	held, err := srv.Client.Hold(ctx, "U2", holdRequest("2031-08-10", "2031-08-12"), "")
	if err != nil {
		t.Fatalf("hold failed: %v", err)
	}

	released, err := srv.Client.Release(ctx, "U2", held.Token)
	if err != nil || !released.Released {
		t.Fatalf("release failed: %+v %v", released, err)
	}
	if doc := mongo.FindHold(t, held.Token); doc["status"] != string(model.HoldStatusReleased) {
		t.Errorf("release not journaled: %v", doc)
	}

	if _, err := srv.Client.Hold(ctx, "U2", holdRequest("2031-08-10", "2031-08-12"), ""); err != nil {
		t.Fatalf("released range should be free: %v", err)
	}
	if n := mongo.CountDocuments(t, testutil.HoldsCollection, bson.M{"unit_id": "U2"}); n != 2 {
		t.Errorf("expected 2 journaled holds, got %d", n)
	}
}

func TestHold_IdempotentRetryCreatesOneHold(t *testing.T) {
	env := testutil.NewTestEnv(t)
	mongo := env.Setup(t)
	srv := testutil.StartServer(t, env.Config(mongo))
	ctx := context.Background()

	a, err := srv.Client.Hold(ctx, "U3", holdRequest("2031-09-01", "2031-09-03"), "booking-flow-1")
	if err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	b, err := srv.Client.Hold(ctx, "U3", holdRequest("2031-09-01", "2031-09-03"), "booking-flow-1")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if a.Token != b.Token {
		t.Errorf("replay returned a different token: %s vs %s", a.Token, b.Token)
	}
	if n := mongo.CountDocuments(t, testutil.HoldsCollection, bson.M{"unit_id": "U3"}); n != 1 {
		t.Errorf("expected a single journaled hold, got %d", n)
	}
}

func TestRepository_FindByUnitSkipsPurgedTombstones(t *testing.T) {
	env := testutil.NewTestEnv(t)
	mongo := env.Setup(t)
	srv := testutil.StartServer(t, env.Config(mongo))
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	later := now.Add(time.Hour)
	day := func(d int) time.Time { return time.Date(2031, 10, d, 0, 0, 0, 0, time.UTC) }
	active, retained, purged := uuid.NewString(), uuid.NewString(), uuid.NewString()
	holds := []model.Hold{
		{Token: active, UnitID: "U4", Range: model.DateRange{Start: day(1), End: day(3)}, Status: model.HoldStatusActive, CreatedAt: now, ExpiresAt: now.Add(2 * time.Hour), PurgeAt: now.Add(3 * time.Hour)},
		{Token: retained, UnitID: "U4", Range: model.DateRange{Start: day(5), End: day(6)}, Status: model.HoldStatusReleased, CreatedAt: now, ExpiresAt: now.Add(time.Minute), ClosedAt: now, PurgeAt: now.Add(2 * time.Hour)},
		{Token: purged, UnitID: "U4", Range: model.DateRange{Start: day(7), End: day(8)}, Status: model.HoldStatusExpired, CreatedAt: now, ExpiresAt: now.Add(time.Minute), ClosedAt: now.Add(time.Minute), PurgeAt: now.Add(30 * time.Minute)},
	}
	for i := range holds {
		if err := srv.Holds.Save(ctx, &holds[i]); err != nil {
			t.Fatalf("save %s: %v", holds[i].Token, err)
		}
	}

	found, err := srv.Holds.FindByUnit(ctx, "U4", later)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(found) != 2 || found[0].Token != active || found[1].Token != retained {
		t.Fatalf("unexpected holds %+v", found)
	}

	count, err := srv.Holds.CountActive(ctx, now)
	if err != nil || count != 1 {
		t.Errorf("expected 1 active hold, got %d (%v)", count, err)
	}

	doc := mongo.FindHold(t, purged)
	if doc["status"] != string(model.HoldStatusExpired) {
		t.Errorf("expected the expired tombstone to remain until its purge time, got %v", doc)
	}
}

func TestReady_ReportsJournaledActiveHolds(t *testing.T) {
	env := testutil.NewTestEnv(t)
	mongo := env.Setup(t)
	srv := testutil.StartServer(t, env.Config(mongo))
	ctx := context.Background()

	if _, err := srv.Client.Hold(ctx, "U5", holdRequest("2031-11-01", "2031-11-03"), ""); err != nil {
		t.Fatalf("hold failed: %v", err)
	}

	resp, err := http.Get(srv.URL() + "/ready")
	if err != nil {
		t.Fatalf("ready request failed: %v", err)
	}
	defer resp.Body.Close()

	var body handler.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("invalid ready body: %v", err)
	}
	if resp.StatusCode != http.StatusOK || body.ActiveHolds == nil || *body.ActiveHolds != 1 {
		t.Errorf("expected one journaled active hold, got %d %+v", resp.StatusCode, body)
	}
}
