package scenario

import (
	"github.com/kuitang/notes-e2e/internal/expect"
	"github.com/kuitang/notes-e2e/internal/notesapi"
)

// Catalog returns a registry holding every scenario of the suite.
func Catalog() *Registry {
	r := NewRegistry()
	r.MustRegister(healthScenarios()...)
	r.MustRegister(apiUserScenarios()...)
	r.MustRegister(apiNoteScenarios()...)
	r.MustRegister(webUserScenarios()...)
	r.MustRegister(webNoteScenarios()...)
	r.MustRegister(apiWebUserScenarios()...)
	r.MustRegister(apiWebNoteScenarios()...)
	return r
}

// badFormat is the X-Content-Format value negative scenarios send.
const badFormat = "badRequest"

// corrupt prefixes a value so the server no longer accepts it.
func corrupt(s string) string { return "@" + s }

// outcome checks an action's status and message and returns the checker
// for further assertions on the data member.
func outcome(e *Env, what string, resp *notesapi.Response, status int, msg string) *expect.Checker {
	c := e.Check(what)
	c.Status(status, resp.StatusCode)
	c.Message(msg, resp.Envelope.Message)
	return c
}

// rejected checks a negative action was refused with status and msg.
func rejected(e *Env, what string, resp *notesapi.Response, err error, status int, msg string) error {
	if err != nil {
		return err
	}
	return outcome(e, what, resp, status, msg).Err()
}
