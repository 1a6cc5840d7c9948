package policy

import (
	"github.com/reglet-dev/hookguard/domain/entities"
)

func (e *Engine) checkEnvWrite(r *compiledRules, ev entities.EnvWrite) bool {
	if matchName(r.envWrites, ev.Key) {
		return true
	}
	return e.deny(KindEnv, ev, "variable write not allowed: "+ev.Key)
}

// checkEnvRead allows every read while the read list is empty. Once it is
// set, reads that cannot name their variable are denied.
func (e *Engine) checkEnvRead(r *compiledRules, ev entities.EnvRead) bool {
	if r.envReadsOpen {
		return true
	}
	if ev.Key == "" {
		return e.deny(KindEnv, ev, "variable read without a name")
	}
	if matchName(r.envReads, ev.Key) {
		return true
	}
	return e.deny(KindEnv, ev, "variable read not allowed: "+ev.Key)
}

func matchName(rules []nameRule, name string) bool {
	for _, rule := range rules {
		if rule.source == name || rule.g.Match(name) {
			return true
		}
	}
	return false
}
