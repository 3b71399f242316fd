package module

import (
	"doorman/internal/platform/config"
	"doorman/internal/services/trust/domain"
)

// Options controls the trust thresholds
type Options struct {
	ApproveAfter           int
	SuspiciousApproveAfter int
	Scope                  domain.ApprovalScope
}

// FromConfig reads with TRUST_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("TRUST_")
	scope := domain.ApprovalScope(c.MayString("APPROVAL_SCOPE", string(domain.ScopeGlobal)))
	if scope != domain.ScopePerChat && scope != domain.ScopeGlobal {
		scope = domain.ScopeGlobal
	}
	return Options{
		ApproveAfter:           c.MayInt("APPROVE_AFTER", 3),
		SuspiciousApproveAfter: c.MayInt("SUSPICIOUS_APPROVE_AFTER", 3),
		Scope:                  scope,
	}
}
