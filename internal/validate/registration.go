package validate

import (
	"sort"
	"unicode"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// RestrictedUsernames cannot be registered by residents.
var RestrictedUsernames = map[string]bool{
	"admin":     true,
	"root":      true,
	"superuser": true,
}

// FieldErrors maps a form field to the message shown next to it.
type FieldErrors map[string]string

func (e FieldErrors) OK() bool { return len(e) == 0 }

// First returns one message in a stable order, username before password.
func (e FieldErrors) First() string {
	for _, f := range []string{"username", "password"} {
		if msg, ok := e[f]; ok {
			return msg
		}
	}
	return ""
}

// Registration applies the account rules. exists reports whether the
// username is already taken in the user store.
func Registration(username, password string, exists bool) FieldErrors {
	errs := FieldErrors{}

	switch {
	case username == "":
		errs["username"] = "Username is required"
	case RestrictedUsernames[username]:
		errs["username"] = "Username is restricted, please choose another one"
	case exists:
		errs["username"] = "Username already exists"
	case !alnum(username):
		errs["username"] = "Username must contain only letters and numbers"
	}

	switch {
	case password == "":
		errs["password"] = "Password is required"
	case len(password) < MinPasswordLength:
		errs["password"] = "Password must be at least 8 characters long"
	case !alnum(password):
		errs["password"] = "Password must contain only letters and numbers"
	}

	return errs
}

func alnum(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func sortedCopy(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}
