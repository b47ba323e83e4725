package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flotilla-dev/flotilla/internal/logging"
	"github.com/flotilla-dev/flotilla/internal/types"
)

func TestFormatServerUnreachable(t *testing.T) {
	down := Format(types.Alert{
		Type: types.AlertServerUnreachable, Level: types.SeverityCritical,
		Name: "host-a", Region: "eu-1",
	})
	if down.Header != "CRITICAL" {
		t.Errorf("header = %q", down.Header)
	}
	if !strings.Contains(down.Text(), "host-a (eu-1) is unreachable") {
		t.Errorf("text = %q", down.Text())
	}

	up := Format(types.Alert{
		Type: types.AlertServerUnreachable, Level: types.SeverityOK, Name: "host-a",
	})
	if !strings.Contains(up.Text(), "is now reachable") {
		t.Errorf("text = %q", up.Text())
	}
}

func TestFormatPercentageDerived(t *testing.T) {
	f := Format(types.Alert{
		Type: types.AlertServerMem, Level: types.SeverityWarning,
		Name: "host-a", UsedGB: 12, TotalGB: 16,
	})
	if !strings.Contains(f.Text(), "75.0%") {
		t.Errorf("expected derived percentage, got %q", f.Text())
	}

	f = Format(types.Alert{
		Type: types.AlertServerDisk, Level: types.SeverityCritical,
		Name: "host-a", Path: "/var", UsedGB: 90, TotalGB: 100,
	})
	if !strings.Contains(f.Text(), "90.0%") || !strings.Contains(f.Text(), "/var") {
		t.Errorf("text = %q", f.Text())
	}
}

func TestFormatCPUOneDecimal(t *testing.T) {
	f := Format(types.Alert{
		Type: types.AlertServerCPU, Level: types.SeverityWarning,
		Name: "host-a", Percentage: 91.2345,
	})
	if !strings.Contains(f.Text(), "91.2%") {
		t.Errorf("text = %q", f.Text())
	}
}

func TestFormatContainerStateChange(t *testing.T) {
	f := Format(types.Alert{
		Type: types.AlertContainerStateChange,
		Name: "api", ServerName: "host-a",
		From: types.ContainerRunning, To: types.ContainerExited,
	})
	if !strings.Contains(f.Header, "api") || !strings.Contains(f.Header, "exited") {
		t.Errorf("header = %q", f.Header)
	}
	if !strings.Contains(f.Lines[0], "previous: running") {
		t.Errorf("lines = %v", f.Lines)
	}
}

type staticAlerters []types.Alerter

func (s staticAlerters) ListEnabledAlerters() ([]types.Alerter, error) { return s, nil }

func TestSendCustomPostsRawAlert(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a types.Alert
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			t.Errorf("decode: %v", err)
		}
		got.Store(a)
	}))
	defer srv.Close()

	sender := NewSender(staticAlerters{
		{Name: "hook", Config: types.AlerterConfig{Type: types.AlerterCustom, URL: srv.URL, Enabled: true}},
	}, logging.Discard(), 5*time.Second)

	sender.Send(context.Background(), []types.Alert{{
		Type: types.AlertServerCPU, Level: types.SeverityCritical, Name: "host-a", Percentage: 99.9,
	}})

	a, ok := got.Load().(types.Alert)
	if !ok {
		t.Fatal("custom sink never called")
	}
	if a.Type != types.AlertServerCPU || a.Name != "host-a" {
		t.Errorf("got %+v", a)
	}
}

func TestSendCustomRequires200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	err := sendCustom(context.Background(), srv.URL, types.Alert{Type: types.AlertServerCPU})
	if err == nil {
		t.Error("non-200 should be an error")
	}
}

func TestSinkFailureDoesNotShortCircuit(t *testing.T) {
	var okCalls atomic.Int32
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		okCalls.Add(1)
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	sender := NewSender(staticAlerters{
		{Name: "bad", Config: types.AlerterConfig{Type: types.AlerterCustom, URL: bad.URL, Enabled: true}},
		{Name: "good", Config: types.AlerterConfig{Type: types.AlerterCustom, URL: good.URL, Enabled: true}},
	}, logging.Discard(), 5*time.Second)

	sender.Send(context.Background(), []types.Alert{{Type: types.AlertServerUnreachable, Name: "host-a"}})

	if okCalls.Load() != 1 {
		t.Errorf("healthy sink should still receive the alert, calls = %d", okCalls.Load())
	}
}

func TestSendEmptyAlertsIsNoop(t *testing.T) {
	sender := NewSender(staticAlerters{}, logging.Discard(), time.Second)
	sender.Send(context.Background(), nil)
}
