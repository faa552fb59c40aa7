package scenario

import (
	"fmt"
	"regexp"

	"github.com/kuitang/notes-e2e/internal/fakedata"
	"github.com/kuitang/notes-e2e/internal/fixture"
	"github.com/kuitang/notes-e2e/internal/notesapi"
	"github.com/kuitang/notes-e2e/internal/webflow"
)

var reProgress = regexp.MustCompile(`You have \d+/4 notes completed|You have completed all notes`)

// Structural fallbacks for the note form validation messages.
const (
	titleFeedbackCSS       = ":nth-child(3) > .invalid-feedback"
	descriptionFeedbackCSS = ":nth-child(4) > .invalid-feedback"
)

func webNoteScenarios() []Scenario {
	return []Scenario{
		basic("TC550", "Create a new note via WEB", WEB, func(e *Env) error {
			li, err := e.SignedInWeb()
			if err != nil {
				return err
			}
			_, err = e.CreateNoteWeb(li, webflow.RandomDraft())
			return err
		}),
		negative("TC560", "Create a new note via WEB - Invalid title", WEB, func(e *Env) error {
			return invalidNoteDraft(e, e.SignedInWeb, webflow.SubmitCreateButton, func(d *webflow.NoteDraft) { d.Title = "e" },
				webflow.MsgTitleLength, titleFeedbackCSS)
		}),
		negative("TC570", "Create a new note via WEB - Invalid description", WEB, func(e *Env) error {
			return invalidNoteDraft(e, e.SignedInWeb, webflow.SubmitCreateButton, func(d *webflow.NoteDraft) { d.Description = "e" },
				webflow.MsgDescriptionLength, descriptionFeedbackCSS)
		}),

		basic("TC580", "Get all notes via WEB", WEB, func(e *Env) error {
			if _, err := e.SignedInWeb(); err != nil {
				return err
			}
			return noteList(e, webflow.SubmitCreateButton, true)
		}),

		basic("TC590", "Update an existing note via WEB", WEB, func(e *Env) error {
			wn, err := signedInWithNoteWeb(e)
			if err != nil {
				return err
			}
			web, _ := e.Web()
			_, err = web.EditNote(e.Context(), wn, webflow.RandomEdit())
			return err
		}),
		negative("TC600", "Update an existing note via WEB - Invalid title", WEB, func(e *Env) error {
			if _, err := signedInWithNoteWeb(e); err != nil {
				return err
			}
			return invalidNoteEdit(e, func(ed *webflow.NoteEdit) { ed.Title = "e" }, webflow.MsgTitleLength, titleFeedbackCSS)
		}),
		negative("TC610", "Update an existing note via WEB - Invalid description", WEB, func(e *Env) error {
			if _, err := signedInWithNoteWeb(e); err != nil {
				return err
			}
			return invalidNoteEdit(e, func(ed *webflow.NoteEdit) { ed.Description = "e" }, webflow.MsgDescriptionLength, descriptionFeedbackCSS)
		}),

		basic("TC620", "Update the completed status of a note via WEB", WEB, func(e *Env) error {
			wn, err := signedInWithNoteWeb(e)
			if err != nil {
				return err
			}
			return toggleCompleted(e, wn)
		}),

		basic("TC630", "Delete a note via WEB", WEB, func(e *Env) error {
			wn, err := signedInWithNoteWeb(e)
			if err != nil {
				return err
			}
			return deleteNoteWeb(e, wn)
		}),
	}
}

func signedInWithNoteWeb(e *Env) (fixture.WithNote, error) {
	li, err := e.SignedInWeb()
	if err != nil {
		return fixture.WithNote{}, err
	}
	return e.CreateNoteWeb(li, webflow.RandomDraft())
}

// invalidNoteDraft signs in with signIn, submits a draft broken by mutate
// and expects the form to show msg.
func invalidNoteDraft(e *Env, signIn func() (fixture.LoggedIn, error), submit webflow.NoteSubmit,
	mutate func(*webflow.NoteDraft), msg, css string) error {
	if _, err := signIn(); err != nil {
		return err
	}
	web, err := e.Web()
	if err != nil {
		return err
	}
	d := webflow.RandomDraft()
	d.Submit = submit
	mutate(&d)
	if err := web.SubmitNoteForm(e.Context(), d); err != nil {
		return err
	}
	return seeFeedback(e, web, msg, css)
}

// invalidNoteEdit saves an edit broken by mutate on the first note and
// expects the form to show msg.
func invalidNoteEdit(e *Env, mutate func(*webflow.NoteEdit), msg, css string) error {
	web, err := e.Web()
	if err != nil {
		return err
	}
	ed := webflow.RandomEdit()
	mutate(&ed)
	if err := web.SubmitNoteEdit(e.Context(), ed); err != nil {
		return err
	}
	return seeFeedback(e, web, msg, css)
}

// toggleCompleted flips the completed box of wn's note in the edit form and
// expects the card switch to end up unchecked.
func toggleCompleted(e *Env, wn fixture.WithNote) error {
	web, err := e.Web()
	if err != nil {
		return err
	}
	if _, err := web.ToggleNoteCompleted(e.Context(), wn); err != nil {
		return err
	}
	return web.Steps("completed state").
		SeeUnchecked("toggle-note-switch", web.TestID("toggle-note-switch").First()).
		Err(e.Context())
}

// deleteNoteWeb deletes wn's note through the confirmation dialog. The
// deletion is the action under test, so the note teardown is disarmed.
func deleteNoteWeb(e *Env, wn fixture.WithNote) error {
	web, err := e.Web()
	if err != nil {
		return err
	}
	if _, err := web.DeleteNote(e.Context(), wn); err != nil {
		return err
	}
	e.Disarm(TeardownNote)
	return nil
}

// noteList adds four notes, one per category plus a random one, and checks
// the list shows them newest first with a progress summary. The cards are
// deleted again through the UI.
func noteList(e *Env, submit webflow.NoteSubmit, toggleFirst bool) error {
	web, err := e.Web()
	if err != nil {
		return err
	}
	ctx := e.Context()

	drafts := make([]webflow.NoteDraft, 4)
	categories := []string{fakedata.Category(), notesapi.CategoryHome, notesapi.CategoryWork, notesapi.CategoryPersonal}
	for k := range drafts {
		n := fakedata.Note()
		drafts[k] = webflow.NoteDraft{Title: n.Title, Description: n.Description, Category: categories[k], Submit: submit}
		if err := web.AddNote(ctx, drafts[k]); err != nil {
			return err
		}
	}

	cards := web.NoteCards()
	var count int
	st := web.Steps("note list").
		Goto("app/").
		SeeVisible("note-card", cards.First()).
		Count("note-card", cards, &count)
	if !st.Failed() && count < 4 {
		st.Failf("want at least 4 note cards, got %d", count)
	}
	st.Check("oldest toggle-note-switch", cards.Nth(3).GetByTestId("toggle-note-switch"))
	for k, d := range drafts {
		card := cards.Nth(3 - k)
		st.SeeText(fmt.Sprintf("card %d title", 3-k), card.GetByTestId("note-card-title"), d.Title).
			SeeText(fmt.Sprintf("card %d body", 3-k), card.Locator(".card-body"), d.Description)
	}
	if toggleFirst {
		st.Check("newest toggle-note-switch", cards.First().GetByTestId("toggle-note-switch"))
	}
	st.Goto("app/").
		Click("All", web.ExactButton("All")).
		SeeText("progress-info", web.TestID("progress-info"), reProgress)
	if err := st.Err(ctx); err != nil {
		return err
	}
	return web.DeleteNoteCards(ctx, len(drafts))
}
