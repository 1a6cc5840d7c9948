package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/reglet-dev/hookguard/domain/entities"
	domainerrors "github.com/reglet-dev/hookguard/domain/errors"
	"github.com/reglet-dev/hookguard/domain/policy"
)

// parseArgs turns command-line words into event arguments. Words that are
// valid JSON are decoded, so 3 is a number and '["ls","-l"]' a list.
func parseArgs(words []string) []any {
	args := make([]any, 0, len(words))
	for _, w := range words {
		dec := json.NewDecoder(bytes.NewReader([]byte(w)))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil || dec.More() {
			args = append(args, w)
			continue
		}
		args = append(args, v)
	}
	return args
}

// runCheck evaluates one event and returns the process status: 0 when it is
// allowed and 78 when it is blocked.
func runCheck(rt *runtime, w io.Writer, name string, words []string) int {
	args := parseArgs(words)
	ev := entities.DecodeEvent(name, args)

	if !rt.settings.Enabled {
		_, _ = fmt.Fprintf(w, "allow %s (hookguard disabled)\n", entities.Describe(ev))
		return domainerrors.ExitOK
	}

	engine, err := rt.engine(policy.WithDenialHandler(&policy.StderrDenialHandler{W: w}))
	if err != nil {
		_, _ = fmt.Fprintf(w, "hookguard: %v\n", err)
		return domainerrors.ExitCode(err)
	}
	if !engine.Check(ev) {
		_, _ = fmt.Fprintf(w, "deny %s\n", entities.Describe(ev))
		return domainerrors.ExitPolicyBlocked
	}
	_, _ = fmt.Fprintf(w, "allow %s\n", entities.Describe(ev))
	return domainerrors.ExitOK
}
