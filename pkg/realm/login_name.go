package realm

import "strings"

// Login-name formats describe how a raw user name maps onto an account name
// for this realm, using %U as the user placeholder: "%U@domain.example.com"
// or "DOMAIN\%U".

const loginFormatPlaceholder = "%U"

// FormatLogin renders user into the given login format. Returns "" when the
// format carries no placeholder.
func FormatLogin(format, user string) string {
	if !strings.Contains(format, loginFormatPlaceholder) {
		return ""
	}
	return strings.Replace(format, loginFormatPlaceholder, user, 1)
}

// parseLogin extracts the user portion of login according to format.
// Returns ok=false when login does not match the format.
func parseLogin(format, login string) (string, bool) {
	idx := strings.Index(format, loginFormatPlaceholder)
	if idx < 0 {
		return "", false
	}
	prefix := format[:idx]
	suffix := format[idx+len(loginFormatPlaceholder):]

	if !strings.HasPrefix(login, prefix) || !strings.HasSuffix(login, suffix) {
		return "", false
	}
	user := login[len(prefix) : len(login)-len(suffix)]
	if user == "" {
		return "", false
	}
	return user, true
}

// ParseLogins validates each login against the realm's declared formats and
// returns the extracted user names. The first login that matches no format
// aborts the whole parse, mirroring the all-or-nothing contract of the
// login-policy operations. When lower is set the results are lowercased.
func ParseLogins(formats []string, lower bool, logins []string) ([]string, error) {
	if len(formats) == 0 {
		return nil, NewError(KindNotSupported, "The realm does not allow specifying logins")
	}

	users := make([]string, 0, len(logins))
	for _, login := range logins {
		matched := false
		for _, format := range formats {
			if user, ok := parseLogin(format, login); ok {
				if lower {
					user = strings.ToLower(user)
				}
				users = append(users, user)
				matched = true
				break
			}
		}
		if !matched {
			return nil, NewError(KindInvalidArgument,
				"Invalid login argument '%s' does not match the login format", login)
		}
	}
	return users, nil
}
