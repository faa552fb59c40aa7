package fixture

import (
	"fmt"

	"github.com/kuitang/notes-e2e/internal/errs"
)

// Record field names. They match the files written by earlier versions of
// the suite so records stay readable across implementations.
const (
	FieldUserEmail       = "user_email"
	FieldUserID          = "user_id"
	FieldUserName        = "user_name"
	FieldUserPassword    = "user_password"
	FieldUserToken       = "user_token"
	FieldNoteID          = "note_id"
	FieldNoteTitle       = "note_title"
	FieldNoteDescription = "note_description"
	FieldNoteCategory    = "note_category"
	FieldNoteCompleted   = "note_completed"
)

// NoteFields are the keys removed when a note is deleted.
var NoteFields = []string{
	FieldNoteCategory,
	FieldNoteCompleted,
	FieldNoteDescription,
	FieldNoteTitle,
	FieldNoteID,
}

// User is the identity written at registration.
type User struct {
	Email    string
	ID       string
	Name     string
	Password string
}

// Fields returns the record fields for u.
func (u User) Fields() Record {
	return Record{
		FieldUserEmail:    u.Email,
		FieldUserID:       u.ID,
		FieldUserName:     u.Name,
		FieldUserPassword: u.Password,
	}
}

// Note is the state written after a note is created.
type Note struct {
	ID          string
	Title       string
	Description string
	Category    string
	Completed   bool
}

// Fields returns the record fields for n.
func (n Note) Fields() Record {
	return Record{
		FieldNoteID:          n.ID,
		FieldNoteTitle:       n.Title,
		FieldNoteDescription: n.Description,
		FieldNoteCategory:    n.Category,
		FieldNoteCompleted:   n.Completed,
	}
}

// Registered is a scenario whose user exists on the server.
type Registered struct {
	Key  string
	User User
}

// LoggedIn is a registered scenario holding a session token.
type LoggedIn struct {
	Registered
	Token string
}

// WithNote is a logged-in scenario that owns one note.
type WithNote struct {
	LoggedIn
	Note Note
}

// String returns the string field k, or "" when absent or not a string.
func (r Record) String(k string) string {
	s, _ := r[k].(string)
	return s
}

// Bool returns the boolean field k. Older records stored a click count for
// note_completed; an odd count means the box ended up checked.
func (r Record) Bool(k string) bool {
	switch v := r[k].(type) {
	case bool:
		return v
	case float64:
		return int(v)%2 == 1
	default:
		return false
	}
}

// Operations named by phase precondition errors.
const (
	OpCreateNote = "create a note"
	OpDeleteNote = "delete a note"
	OpDeleteUser = "delete a user"
)

func missing(key, field, step string) error {
	return errs.New(errs.FailedPrecondition,
		fmt.Sprintf("fixture %s has no %s. Make sure %s was executed.", key, field, step))
}

// Registered decodes the registration phase of the record.
func (r Record) Registered(key string) (Registered, error) {
	u := User{
		Email:    r.String(FieldUserEmail),
		ID:       r.String(FieldUserID),
		Name:     r.String(FieldUserName),
		Password: r.String(FieldUserPassword),
	}
	switch {
	case u.Email == "":
		return Registered{}, missing(key, FieldUserEmail, "RegisterUser")
	case u.ID == "":
		return Registered{}, missing(key, FieldUserID, "RegisterUser")
	case u.Password == "":
		return Registered{}, missing(key, FieldUserPassword, "RegisterUser")
	}
	return Registered{Key: key, User: u}, nil
}

// LoggedIn decodes the post-login phase of the record. op names the
// operation that needs it, for the error message.
func (r Record) LoggedIn(key, op string) (LoggedIn, error) {
	reg, err := r.Registered(key)
	if err != nil {
		return LoggedIn{}, err
	}
	token := r.String(FieldUserToken)
	if token == "" {
		return LoggedIn{}, errs.New(errs.FailedPrecondition,
			fmt.Sprintf("User token is required to %s. Make sure LoginUser was executed.", op))
	}
	return LoggedIn{Registered: reg, Token: token}, nil
}

// WithNote decodes the post-note-creation phase of the record.
func (r Record) WithNote(key, op string) (WithNote, error) {
	li, err := r.LoggedIn(key, op)
	if err != nil {
		return WithNote{}, err
	}
	id := r.String(FieldNoteID)
	if id == "" {
		return WithNote{}, errs.New(errs.FailedPrecondition,
			fmt.Sprintf("Note ID is required to %s. Make sure a note was created first.", op))
	}
	return WithNote{
		LoggedIn: li,
		Note: Note{
			ID:          id,
			Title:       r.String(FieldNoteTitle),
			Description: r.String(FieldNoteDescription),
			Category:    r.String(FieldNoteCategory),
			Completed:   r.Bool(FieldNoteCompleted),
		},
	}, nil
}

// LoadRegistered reads key and decodes its registration phase.
func (s *Store) LoadRegistered(key string) (Registered, error) {
	rec, err := s.Read(key)
	if err != nil {
		return Registered{}, err
	}
	return rec.Registered(key)
}

// LoadLoggedIn reads key and decodes its post-login phase.
func (s *Store) LoadLoggedIn(key, op string) (LoggedIn, error) {
	rec, err := s.Read(key)
	if err != nil {
		return LoggedIn{}, err
	}
	return rec.LoggedIn(key, op)
}

// LoadWithNote reads key and decodes its post-note phase.
func (s *Store) LoadWithNote(key, op string) (WithNote, error) {
	rec, err := s.Read(key)
	if err != nil {
		return WithNote{}, err
	}
	return rec.WithNote(key, op)
}
