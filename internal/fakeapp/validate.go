package fakeapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/notesapi"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type registerInput struct {
	Name     string `validate:"min=4,max=30"`
	Email    string `validate:"required,email"`
	Password string `validate:"min=6,max=30"`
}

type loginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"min=6,max=30"`
}

type profileInput struct {
	Name    string `validate:"min=4,max=30"`
	Phone   string `validate:"omitempty,numeric,min=8,max=20"`
	Company string `validate:"omitempty,min=4,max=30"`
}

type passwordInput struct {
	CurrentPassword string `validate:"min=6,max=30"`
	NewPassword     string `validate:"min=6,max=30"`
}

type noteInput struct {
	Title       string `validate:"min=4,max=100"`
	Description string `validate:"min=4,max=1000"`
	Category    string `validate:"oneof=Home Work Personal"`
}

// fieldMessages maps a failing struct field to the message the real
// application returns for it.
var fieldMessages = map[string]string{
	"Name":            notesapi.MsgInvalidName,
	"Email":           notesapi.MsgInvalidEmail,
	"Password":        notesapi.MsgInvalidPassword,
	"Phone":           notesapi.MsgInvalidPhone,
	"Company":         notesapi.MsgInvalidCompany,
	"CurrentPassword": notesapi.MsgInvalidPassword,
	"NewPassword":     notesapi.MsgInvalidNewPassword,
	"Title":           notesapi.MsgInvalidTitle,
	"Description":     notesapi.MsgInvalidDescription,
	"Category":        notesapi.MsgInvalidCategory,
}

// check validates v and returns an InvalidArgument error carrying the
// message of the first failing field in declaration order.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := fieldMessages[verrs[0].StructField()]; ok {
			return errs.New(errs.InvalidArgument, msg)
		}
		return errs.New(errs.InvalidArgument, verrs[0].Error())
	}
	return errs.Wrap(errs.Internal, "validate", err)
}

// validNoteID reports whether id looks like a stored object id.
func validNoteID(id string) bool {
	return validate.Var(id, "len=24,hexadecimal") == nil
}

// body is a decoded request body. JSON and form-encoded bodies are both
// accepted, as the real application accepts both.
type body map[string]any

func decodeBody(r *http.Request) (body, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, errs.Wrap(errs.InvalidArgument, "invalid form body", err)
		}
		return formBody(r.PostForm), nil
	default:
		b := body{}
		dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
		if err := dec.Decode(&b); err != nil {
			if errors.Is(err, io.EOF) {
				return b, nil
			}
			return nil, errs.Wrap(errs.InvalidArgument, "invalid JSON body", err)
		}
		return b, nil
	}
}

func formBody(values url.Values) body {
	b := body{}
	for k := range values {
		b[k] = values.Get(k)
	}
	return b
}

// str returns field k as a string. Non-string scalars are formatted so a
// numeric phone number still validates.
func (b body) str(k string) string {
	switch v := b[k].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%.0f", v))
	default:
		return fmt.Sprint(v)
	}
}

// completed parses the completed member. present is false when the member
// is absent; ok is false when it is present but not a boolean.
func (b body) completed() (value, present, ok bool) {
	raw, present := b["completed"]
	if !present || raw == nil {
		return false, false, true
	}
	switch v := raw.(type) {
	case bool:
		return v, true, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, true, true
		case "false":
			return false, true, true
		}
	}
	return false, true, false
}
