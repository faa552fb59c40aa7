package webflow

import (
	"context"
	"net/url"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/notes-e2e/internal/fakedata"
	"github.com/kuitang/notes-e2e/internal/fixture"
	"github.com/kuitang/notes-e2e/internal/notesapi"
	"github.com/kuitang/notes-e2e/internal/obs"
)

// Validation messages rendered under the note form.
const (
	MsgTitleLength       = "Title should be between 4 and 100 characters"
	MsgDescriptionLength = "Description should be between 4 and 1000 characters"
	MsgNoNotes           = "You don't have any notes"
)

// NoteSubmit selects the control that submits the add-note form.
type NoteSubmit int

const (
	// SubmitCreateButton clicks the button labelled Create.
	SubmitCreateButton NoteSubmit = iota
	// SubmitTestID clicks the note-submit test id.
	SubmitTestID
)

// NoteDraft is what the add-note form is filled with. CompletedClicks is how
// many times the completed checkbox is clicked; zero leaves it alone.
type NoteDraft struct {
	Title           string
	Description     string
	Category        string
	CompletedClicks int
	Submit          NoteSubmit
}

// RandomDraft returns a valid draft that clicks the completed box once or
// twice.
func RandomDraft() NoteDraft {
	n := fakedata.Note()
	return NoteDraft{
		Title:           n.Title,
		Description:     n.Description,
		Category:        n.Category,
		CompletedClicks: fakedata.IntN(1, 2),
	}
}

// NoteEdit is what the edit form is filled with. Empty strings leave a field
// untouched.
type NoteEdit struct {
	Title         string
	Description   string
	Category      string
	MarkCompleted bool
}

// RandomEdit returns a valid edit that marks the note completed.
func RandomEdit() NoteEdit {
	n := fakedata.Note()
	return NoteEdit{Title: n.Title, Description: n.Description, Category: n.Category, MarkCompleted: true}
}

func (s *Session) categoryField() playwright.Locator {
	return s.Field("Category", `[name="category"]`)
}

func (s *Session) titleField() playwright.Locator {
	return s.Field("Title", `input[name="title"]`)
}

func (s *Session) descriptionField() playwright.Locator {
	return s.Field("Description", `textarea[name="description"]`)
}

func (s *Session) submitControl(k NoteSubmit) playwright.Locator {
	if k == SubmitTestID {
		return s.TestID("note-submit")
	}
	return s.Button("Create")
}

// NoteCards locates every note card on the list page.
func (s *Session) NoteCards() playwright.Locator {
	return s.TestID("note-card")
}

func (s *Session) fillNoteForm(st *Steps, d NoteDraft) {
	st.Goto("app/").
		ForceClick("+ Add Note", s.Button("+ Add Note")).
		WaitVisible("category", s.categoryField()).
		Select("category", s.categoryField(), d.Category)
	for i := 0; i < d.CompletedClicks; i++ {
		st.ForceClick("note-completed", s.TestID("note-completed"))
	}
	st.Fill("title", s.titleField(), d.Title).
		Fill("description", s.descriptionField(), d.Description)
}

// SubmitNoteForm opens the add-note form on the notes page, fills it from d
// and submits it without waiting for an outcome.
func (s *Session) SubmitNoteForm(ctx context.Context, d NoteDraft) error {
	st := s.Steps("submit note form")
	s.fillNoteForm(st, d)
	return st.ForceClick("submit", s.submitControl(d.Submit)).Err(ctx)
}

// AddNote submits d and waits until its card is visible. It records nothing;
// CreateNote is the recorded variant.
func (s *Session) AddNote(ctx context.Context, d NoteDraft) error {
	if err := s.SubmitNoteForm(ctx, d); err != nil {
		return err
	}
	return s.Steps("add note").
		SeeText("note-card-title", s.TestID("note-card-title").First(), d.Title).
		Err(ctx)
}

// CreateNote creates a random note for li through the UI.
func (s *Session) CreateNote(ctx context.Context, li fixture.LoggedIn) (fixture.WithNote, error) {
	return s.CreateNoteWith(ctx, li, RandomDraft())
}

// CreateNoteWith creates d through the UI, marks it completed from its card,
// opens it and records it. The id comes from the create API response; the
// note page URL is the fallback.
func (s *Session) CreateNoteWith(ctx context.Context, li fixture.LoggedIn, d NoteDraft) (fixture.WithNote, error) {
	st := s.Steps("create note")
	s.fillNoteForm(st, d)

	var data notesapi.Note
	st.Do("submit note", func() error {
		resp, err := s.page.ExpectResponse(isCreateNote, func() error {
			return s.submitControl(d.Submit).Click(playwright.LocatorClickOptions{
				Force:   playwright.Bool(true),
				Timeout: playwright.Float(ms(s.opts.ActionTimeout)),
			})
		}, playwright.PageExpectResponseOptions{Timeout: playwright.Float(ms(s.opts.ResponseTimeout))})
		if err != nil {
			return err
		}
		return decodeEnvelope(resp, &data)
	})

	title := s.TestID("note-card-title").First()
	desc := s.TestID("note-card-description").First()
	toggle := s.TestID("toggle-note-switch").First()
	st.SeeText("note-card-title", title, d.Title).
		SeeText("note-card-description", desc, d.Description).
		Check("toggle-note-switch", toggle).
		Click("note-view", s.TestID("note-view").First()).
		SeeText("note-card-title", title, d.Title).
		SeeText("note-card-description", desc, d.Description)

	var completed bool
	st.Do("read completed state", func() error {
		var err error
		completed, err = toggle.IsChecked()
		return err
	})
	st.Do("reload note page", func() error {
		_, err := s.page.Reload(playwright.PageReloadOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded})
		return err
	})

	id := data.ID
	if !st.Failed() {
		fromURL := NoteIDFromURL(s.page.URL())
		switch {
		case id == "":
			id = fromURL
		case fromURL != "" && fromURL != id:
			obs.From(ctx).Warn("note_id_mismatch", "response_id", id, "url_id", fromURL)
		}
		if id == "" {
			st.Failf("no note id in the create response or in %s", s.page.URL())
		}
	}
	if err := st.Err(ctx); err != nil {
		return fixture.WithNote{}, err
	}

	note := fixture.Note{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Completed:   completed,
	}
	if _, err := s.store.Merge(li.Key, note.Fields()); err != nil {
		return fixture.WithNote{}, err
	}
	obs.From(ctx).Info("note_created", "channel", "web", "note_id", id)
	return fixture.WithNote{LoggedIn: li, Note: note}, nil
}

// CreateNoteForKey loads the logged-in phase of key and creates a random
// note.
func (s *Session) CreateNoteForKey(ctx context.Context, key string) (fixture.WithNote, error) {
	li, err := s.store.LoadLoggedIn(key, fixture.OpCreateNote)
	if err != nil {
		return fixture.WithNote{}, err
	}
	return s.CreateNote(ctx, li)
}

func isCreateNote(r playwright.Response) bool {
	return noteCall(r.Request().Method(), r.URL(), "")
}

// isUpdateNote matches the PUT or PATCH the edit form sends for id.
func isUpdateNote(id string) func(playwright.Response) bool {
	return func(r playwright.Response) bool {
		return noteCall(r.Request().Method(), r.URL(), id)
	}
}

// noteCall reports whether a request is a note write: POST to api/notes when
// id is empty, PUT or PATCH to api/notes/<id> otherwise.
func noteCall(method, raw, id string) bool {
	want := "/api/notes"
	switch {
	case id == "" && method == "POST":
	case id != "" && (method == "PUT" || method == "PATCH"):
		want += "/" + id
	default:
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.TrimRight(u.Path, "/"), want)
}

// DeleteNote deletes wn's note from the notes page, after checking the
// confirmation dialog names it, and drops the note fields from the record.
func (s *Session) DeleteNote(ctx context.Context, wn fixture.WithNote) (fixture.LoggedIn, error) {
	err := s.Steps("delete note").
		Goto("app/").
		Click("note-delete", s.TestID("note-delete").First()).
		SeeText("delete dialog", s.CSS(".modal-content").First(), wn.Note.Title).
		Click("note-delete-confirm", s.TestID("note-delete-confirm")).
		Err(ctx)
	if err != nil {
		return fixture.LoggedIn{}, err
	}
	if _, err := s.store.Remove(wn.Key, fixture.NoteFields...); err != nil {
		return fixture.LoggedIn{}, err
	}
	obs.From(ctx).Info("note_deleted", "channel", "web", "note_id", wn.Note.ID)
	return wn.LoggedIn, nil
}

// DeleteNoteCards deletes the first n cards on the notes page one at a time.
func (s *Session) DeleteNoteCards(ctx context.Context, n int) error {
	st := s.Steps("delete note cards").Goto("app/")
	confirm := s.TestID("note-delete-confirm")
	for i := 0; i < n; i++ {
		st.Click("note-delete", s.NoteCards().First().GetByTestId("note-delete")).
			SeeVisible("note-delete-confirm", confirm).
			Click("note-delete-confirm", confirm).
			Do("wait for dialog to close", func() error {
				return confirm.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateHidden})
			})
	}
	return st.Err(ctx)
}

// SubmitNoteEdit opens the edit form of the first note on the notes page,
// applies e and saves without waiting for an outcome.
func (s *Session) SubmitNoteEdit(ctx context.Context, e NoteEdit) error {
	st := s.Steps("submit note edit").
		Goto("app/").
		ForceClick("Edit", s.Button("Edit").First())
	if e.Category != "" {
		st.Select("category", s.categoryField(), e.Category)
	}
	if e.MarkCompleted {
		st.Do("check note-completed", func() error {
			return s.TestID("note-completed").Check(playwright.LocatorCheckOptions{
				Force:   playwright.Bool(true),
				Timeout: playwright.Float(ms(s.opts.ActionTimeout)),
			})
		})
	}
	if e.Title != "" {
		st.Fill("title", s.titleField(), e.Title)
	}
	if e.Description != "" {
		st.Fill("description", s.descriptionField(), e.Description)
	}
	return st.ForceClick("Save", s.Button("Save")).Err(ctx)
}

// EditNote applies e to wn's note, checks the card shows the new text and
// records the new fields.
func (s *Session) EditNote(ctx context.Context, wn fixture.WithNote, e NoteEdit) (fixture.WithNote, error) {
	if err := s.SubmitNoteEdit(ctx, e); err != nil {
		return fixture.WithNote{}, err
	}
	st := s.Steps("edit note")
	if e.Title != "" {
		st.SeeText("note-card-title", s.TestID("note-card-title").First(), e.Title)
	}
	if e.Description != "" {
		st.SeeText("note-card-description", s.TestID("note-card-description").First(), e.Description)
	}
	if err := st.Err(ctx); err != nil {
		return fixture.WithNote{}, err
	}

	if e.Title != "" {
		wn.Note.Title = e.Title
	}
	if e.Description != "" {
		wn.Note.Description = e.Description
	}
	if e.Category != "" {
		wn.Note.Category = e.Category
	}
	if e.MarkCompleted {
		wn.Note.Completed = true
	}
	if _, err := s.store.Merge(wn.Key, wn.Note.Fields()); err != nil {
		return fixture.WithNote{}, err
	}
	return wn, nil
}

// ToggleNoteCompleted flips the completed box in the edit form of wn's note,
// saves, and records the completed state the server returns once the card
// switch shows it.
func (s *Session) ToggleNoteCompleted(ctx context.Context, wn fixture.WithNote) (fixture.WithNote, error) {
	completedBox := s.TestID("note-completed")
	toggle := s.TestID("toggle-note-switch").First()
	st := s.Steps("toggle note completed").
		Goto("app/").
		ForceClick("Edit", s.Button("Edit").First()).
		WaitVisible("note-completed", completedBox).
		ForceClick("note-completed", completedBox)

	var saved notesapi.Note
	st.Do("save note", func() error {
		resp, err := s.page.ExpectResponse(isUpdateNote(wn.Note.ID), func() error {
			return s.Button("Save").Click(playwright.LocatorClickOptions{
				Force:   playwright.Bool(true),
				Timeout: playwright.Float(ms(s.opts.ActionTimeout)),
			})
		}, playwright.PageExpectResponseOptions{Timeout: playwright.Float(ms(s.opts.ResponseTimeout))})
		if err != nil {
			return err
		}
		return decodeEnvelope(resp, &saved)
	})
	st.WaitVisible("toggle-note-switch", toggle)
	if saved.Completed {
		st.SeeChecked("toggle-note-switch", toggle)
	} else {
		st.SeeUnchecked("toggle-note-switch", toggle)
	}
	if err := st.Err(ctx); err != nil {
		return fixture.WithNote{}, err
	}
	wn.Note.Completed = saved.Completed
	if _, err := s.store.Merge(wn.Key, fixture.Record{fixture.FieldNoteCompleted: saved.Completed}); err != nil {
		return fixture.WithNote{}, err
	}
	return wn, nil
}

// NoteIDFromURL returns the note id in a note page URL such as
// https://host/notes/app/notes/<id>, or "" when raw is not a note page.
func NoteIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	var segs []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			segs = append(segs, p)
		}
	}
	n := len(segs)
	if n < 3 || segs[n-3] != "app" || segs[n-2] != "notes" {
		return ""
	}
	return segs[len(segs)-1]
}
