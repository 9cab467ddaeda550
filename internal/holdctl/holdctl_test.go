package holdctl

import (
	"bytes"
	"context"
	"encoding/json"
	"lodgr/internal/availability/coordinator"
	"lodgr/internal/availability/handler"
	"lodgr/internal/availability/router"
	"lodgr/internal/availability/service"
	"lodgr/internal/availability/validator"
	"lodgr/pkg/config"
	"lodgr/pkg/logger"
	"lodgr/pkg/model"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
)

func newCoordinator(t *testing.T) *httptest.Server {
	t.Helper()
	log := logger.Discard()
	units := router.New(router.Config{}, coordinator.Deps{Log: log}, nil)
	svc := service.NewAvailabilityService(units, validator.NewHoldValidator(), &config.Config{Log: log})

	r := httprouter.New()
	handler.NewAvailabilityHandler(svc, log).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		_ = units.Close(context.Background())
	})
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvAPISigningSecret, "")
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHoldConfirmRelease(t *testing.T) {
	srv := newCoordinator(t)

	out, err := run(t, "hold", "U1", "2024-07-01", "2024-07-05", "--server", srv.URL, "--ttl", "30")
	if err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	var hold model.HoldResponse
	if err := json.Unmarshal([]byte(out), &hold); err != nil {
		t.Fatalf("unexpected output %q: %v", out, err)
	}

	out, err = run(t, "check", "U1", "2024-07-03", "2024-07-04", "--server", srv.URL)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !strings.Contains(out, `"reason": "hold"`) {
		t.Errorf("expected hold conflict, got %s", out)
	}

	out, err = run(t, "list", "U1", "--server", srv.URL)
	if err != nil || !strings.Contains(out, hold.Token) {
		t.Errorf("list: %s %v", out, err)
	}

	if _, err := run(t, "confirm", "U1", hold.Token, "B-1", "--server", srv.URL); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	out, err = run(t, "release", "U1", hold.Token, "--server", srv.URL)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if !strings.Contains(out, `"released": false`) {
		t.Errorf("confirmed hold cannot be released, got %s", out)
	}
}

func TestCheckWithCommittedBlocks(t *testing.T) {
	srv := newCoordinator(t)

	out, err := run(t, "check", "U1", "2024-07-01", "2024-07-05",
		"--block", "2024-07-04:2024-07-06:maintenance:boiler", "--server", srv.URL)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !strings.Contains(out, `"reason": "committed_block"`) {
		t.Errorf("expected committed block conflict, got %s", out)
	}
}

func TestErrorsSurface(t *testing.T) {
	srv := newCoordinator(t)

	if _, err := run(t, "confirm", "U1", "missing", "B-1", "--server", srv.URL); err == nil || !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if _, err := run(t, "check", "U1", "2024-07-01", "2024-07-05", "--block", "bad", "--server", srv.URL); err == nil {
		t.Error("malformed --block must fail")
	}
	if _, err := run(t, "list", "U1", "--start", "2024-07-01", "--server", srv.URL); err == nil {
		t.Error("half-specified filter must fail")
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil || !strings.HasPrefix(out, "holdctl dev") {
		t.Errorf("version: %q %v", out, err)
	}
}
