// Package interpolate substitutes [[name]] tokens in user-supplied
// command templates. Substitution runs in two passes, first against
// global variables and then against secrets, recording every
// replacement so callers can write an audit trail that shows variable
// values but only the names of secrets.
package interpolate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/flotilla-dev/flotilla/internal/types"
)

var tokenRe = regexp.MustCompile(`\[\[\s*([A-Za-z0-9_]+)\s*\]\]`)

// Replacement records one substitution: the value written and the
// token name it replaced.
type Replacement struct {
	Value string
	Name  string
}

// Set deduplicates replacements across targets.
type Set map[Replacement]struct{}

// NewSet creates an empty replacement set.
func NewSet() Set { return make(Set) }

// VariablesAndSecrets carries the two substitution maps.
type VariablesAndSecrets struct {
	Variables map[string]string
	Secrets   map[string]string
}

// apply replaces every known [[name]] token in s from vars, recording
// replacements into reps. Unknown tokens are left literal.
func apply(s string, vars map[string]string, reps Set) string {
	if s == "" || len(vars) == 0 {
		return s
	}
	return tokenRe.ReplaceAllStringFunc(s, func(token string) string {
		name := tokenRe.FindStringSubmatch(token)[1]
		value, ok := vars[name]
		if !ok {
			return token
		}
		reps[Replacement{Value: value, Name: name}] = struct{}{}
		return value
	})
}

// IntoString interpolates a single string in place.
func IntoString(target *string, vs VariablesAndSecrets, global, secret Set) {
	if *target == "" {
		return
	}
	res := apply(*target, vs.Variables, global)
	res = apply(res, vs.Secrets, secret)
	*target = res
}

// IntoArgs interpolates every element of an argument array in place.
func IntoArgs(args []string, vs VariablesAndSecrets, global, secret Set) {
	for i := range args {
		IntoString(&args[i], vs, global, secret)
	}
}

// IntoCommand interpolates the command body of a SystemCommand in place.
// An empty command is a pass-through.
func IntoCommand(cmd *types.SystemCommand, vs VariablesAndSecrets, global, secret Set) {
	IntoString(&cmd.Command, vs, global, secret)
}

// IntoEnvironment interpolates the values of an env var list in place.
func IntoEnvironment(env []types.EnvVar, vs VariablesAndSecrets, global, secret Set) {
	for i := range env {
		IntoString(&env[i].Value, vs, global, secret)
	}
}

// AddLog appends the audit trail of an interpolation to an update.
// Global replacements show "name => value"; secret replacements show
// only "replaced: name" so the value never reaches the log.
func AddLog(update *types.Update, global, secret Set) {
	if len(global) > 0 {
		lines := make([]string, 0, len(global))
		for rep := range global {
			lines = append(lines, fmt.Sprintf("%s => %s", rep.Name, rep.Value))
		}
		sort.Strings(lines)
		update.PushSimpleLog("interpolate global variables", strings.Join(lines, "\n"))
	}
	if len(secret) > 0 {
		lines := make([]string, 0, len(secret))
		for rep := range secret {
			lines = append(lines, "replaced: "+rep.Name)
		}
		sort.Strings(lines)
		update.PushSimpleLog("interpolate secrets", strings.Join(lines, "\n"))
	}
}
