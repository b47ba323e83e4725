package interpolate

import (
	"strings"
	"testing"

	"github.com/flotilla-dev/flotilla/internal/types"
)

func vsFixture() VariablesAndSecrets {
	return VariablesAndSecrets{
		Variables: map[string]string{"GREETING": "hi", "TARGET": "world"},
		Secrets:   map[string]string{"APIKEY": "abc"},
	}
}

func TestIntoStringTwoPasses(t *testing.T) {
	global, secret := NewSet(), NewSet()
	s := "echo [[GREETING]] [[APIKEY]]"
	IntoString(&s, vsFixture(), global, secret)

	if s != "echo hi abc" {
		t.Errorf("got %q", s)
	}
	if _, ok := global[Replacement{Value: "hi", Name: "GREETING"}]; !ok {
		t.Errorf("missing global replacement, got %v", global)
	}
	if _, ok := secret[Replacement{Value: "abc", Name: "APIKEY"}]; !ok {
		t.Errorf("missing secret replacement, got %v", secret)
	}
}

func TestUnknownTokenLeftLiteral(t *testing.T) {
	global, secret := NewSet(), NewSet()
	s := "run [[MISSING]] now"
	IntoString(&s, vsFixture(), global, secret)
	if s != "run [[MISSING]] now" {
		t.Errorf("unknown token should stay literal, got %q", s)
	}
	if len(global) != 0 || len(secret) != 0 {
		t.Error("no replacements expected")
	}
}

func TestEmptyTargetPassThrough(t *testing.T) {
	global, secret := NewSet(), NewSet()
	s := ""
	IntoString(&s, vsFixture(), global, secret)
	if s != "" || len(global) != 0 {
		t.Error("empty target must be untouched")
	}
}

func TestIdempotent(t *testing.T) {
	vs := vsFixture()
	s := "echo [[GREETING]] [[APIKEY]] [[UNKNOWN]]"
	IntoString(&s, vs, NewSet(), NewSet())
	first := s
	IntoString(&s, vs, NewSet(), NewSet())
	if s != first {
		t.Errorf("second pass changed output: %q -> %q", first, s)
	}
}

func TestNoUnresolvedKnownTokens(t *testing.T) {
	vs := vsFixture()
	s := "[[GREETING]]-[[TARGET]]-[[GREETING]]"
	IntoString(&s, vs, NewSet(), NewSet())
	for name := range vs.Variables {
		if strings.Contains(s, "[["+name+"]]") {
			t.Errorf("unresolved token %s in %q", name, s)
		}
	}
}

func TestIntoArgsAndEnvironment(t *testing.T) {
	global, secret := NewSet(), NewSet()
	args := []string{"--token=[[APIKEY]]", "", "--msg=[[GREETING]]"}
	IntoArgs(args, vsFixture(), global, secret)
	if args[0] != "--token=abc" || args[2] != "--msg=hi" {
		t.Errorf("got %v", args)
	}

	env := []types.EnvVar{{Variable: "KEY", Value: "[[APIKEY]]"}}
	IntoEnvironment(env, vsFixture(), global, secret)
	if env[0].Value != "abc" {
		t.Errorf("got %v", env)
	}
}

func TestIntoCommand(t *testing.T) {
	global, secret := NewSet(), NewSet()
	cmd := types.SystemCommand{Command: "deploy [[TARGET]]"}
	IntoCommand(&cmd, vsFixture(), global, secret)
	if cmd.Command != "deploy world" {
		t.Errorf("got %q", cmd.Command)
	}
}

func TestAddLogRedactsSecrets(t *testing.T) {
	global, secret := NewSet(), NewSet()
	s := "echo [[GREETING]] [[APIKEY]]"
	IntoString(&s, vsFixture(), global, secret)

	var update types.Update
	AddLog(&update, global, secret)

	if len(update.Logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(update.Logs))
	}
	if !strings.Contains(update.Logs[0].Stdout, "GREETING => hi") {
		t.Errorf("global log missing value: %q", update.Logs[0].Stdout)
	}
	if !strings.Contains(update.Logs[1].Stdout, "replaced: APIKEY") {
		t.Errorf("secret log missing name: %q", update.Logs[1].Stdout)
	}
	for _, l := range update.Logs {
		if strings.Contains(l.Stdout, "abc") || strings.Contains(l.Stderr, "abc") {
			t.Error("secret value leaked into update logs")
		}
	}
}

func TestAddLogEmptySetsWriteNothing(t *testing.T) {
	var update types.Update
	AddLog(&update, NewSet(), NewSet())
	if len(update.Logs) != 0 {
		t.Errorf("expected no logs, got %d", len(update.Logs))
	}
}
