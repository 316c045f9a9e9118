package realm

import "strings"

// LoginPolicy governs which realm accounts may log into the local host.
type LoginPolicy int

const (
	PolicyNotSet LoginPolicy = iota
	PolicyAllowAny
	PolicyAllowRealmLogins
	PolicyAllowPermittedLogins
	PolicyDenyAny
)

// Policy token strings accepted on the wire and stored on the realm.
const (
	policyTokenAny       = "any"
	policyTokenRealm     = "realm"
	policyTokenPermitted = "permitted"
	policyTokenDeny      = "deny"
)

func (p LoginPolicy) String() string {
	switch p {
	case PolicyAllowAny:
		return policyTokenAny
	case PolicyAllowRealmLogins:
		return policyTokenRealm
	case PolicyAllowPermittedLogins:
		return policyTokenPermitted
	case PolicyDenyAny:
		return policyTokenDeny
	default:
		return ""
	}
}

// ParseLoginPolicy parses a whitespace or comma separated token list.
// Exactly one policy token must be present: more than one is a conflict,
// an unrecognized token is invalid, and an empty list yields PolicyNotSet.
func ParseLoginPolicy(s string) (LoginPolicy, error) {
	policy := PolicyNotSet
	set := 0

	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	}) {
		switch tok {
		case policyTokenAny:
			policy = PolicyAllowAny
			set++
		case policyTokenRealm:
			policy = PolicyAllowRealmLogins
			set++
		case policyTokenPermitted:
			policy = PolicyAllowPermittedLogins
			set++
		case policyTokenDeny:
			policy = PolicyDenyAny
			set++
		default:
			return PolicyNotSet, NewError(KindInvalidArgument,
				"Invalid or unknown login policy: %s", tok)
		}
	}

	if set > 1 {
		return PolicyNotSet, NewError(KindInvalidArgument,
			"Conflicting flags in login policy argument")
	}
	return policy, nil
}
