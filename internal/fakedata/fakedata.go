// Package fakedata generates random users and notes that satisfy the notes
// application's validation rules.
//
// Values come from gofakeit. The wrappers clamp them to the lengths and
// character sets the server accepts, since some generated names are long or
// carry apostrophes.
package fakedata

import (
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/kuitang/notes-e2e/internal/notesapi"
)

const (
	nameMin = 4
	nameMax = 30
)

// FullName returns "First Last", between 4 and 30 characters.
func FullName() string {
	for range 20 {
		name := gofakeit.FirstName() + " " + gofakeit.LastName()
		if n := len(name); n >= nameMin && n <= nameMax {
			return name
		}
	}
	return "Ada " + gofakeit.LetterN(6)
}

// Email returns a lower-cased address. The nine digit suffix keeps
// concurrently generated addresses apart.
func Email() string {
	local := alnum(gofakeit.FirstName()) + "." + alnum(gofakeit.LastName())
	return local + gofakeit.DigitN(9) + "@" + strings.ToLower(gofakeit.DomainName())
}

// Username returns a handle such as "hopper4821". It is always between 4 and
// 30 characters, the range the profile company field accepts.
func Username() string {
	u := alnum(gofakeit.Username())
	if len(u) > nameMax {
		u = u[len(u)-nameMax:]
	}
	for len(u) < nameMin {
		u += gofakeit.Digit()
	}
	return u
}

// Password returns n random alphanumeric characters.
func Password(n int) string {
	return gofakeit.Password(true, true, true, false, false, n)
}

// Words returns n space-separated random words.
func Words(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = gofakeit.LoremIpsumWord()
	}
	return strings.Join(out, " ")
}

// Category returns one of the valid note categories.
func Category() string {
	return gofakeit.RandomString(notesapi.Categories)
}

// Digits returns n random decimal digits.
func Digits(n int) string {
	return gofakeit.DigitN(uint(n))
}

// IntN returns a value in [lo, hi].
func IntN(lo, hi int) int {
	return gofakeit.Number(lo, hi)
}

// Note returns a note input with a three word title, five word description
// and random category.
func Note() notesapi.NoteInput {
	return notesapi.NoteInput{
		Title:       Words(3),
		Description: Words(5),
		Category:    Category(),
	}
}

// Registration returns a fresh user with an 8 character password.
func Registration() notesapi.RegisterRequest {
	return notesapi.RegisterRequest{
		Name:     FullName(),
		Email:    Email(),
		Password: Password(8),
	}
}

// alnum lower-cases s and drops everything but ASCII letters and digits.
func alnum(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
