package notesapi

// Messages returned by the notes API in the envelope's message member.
const (
	MsgHealthy = "Notes API is Running"

	MsgUserCreated      = "User account created successfully"
	MsgLoginOK          = "Login successful"
	MsgProfileOK        = "Profile successful"
	MsgProfileUpdated   = "Profile updated successful"
	MsgPasswordUpdated  = "The password was successfully updated"
	MsgLoggedOut        = "User has been successfully logged out"
	MsgAccountDeleted   = "Account successfully deleted"
	MsgNoteCreated      = "Note successfully created"
	MsgNotesRetrieved   = "Notes successfully retrieved"
	MsgNoteRetrieved    = "Note successfully retrieved"
	MsgNoteUpdated      = "Note successfully Updated"
	MsgNoteDeleted      = "Note successfully deleted"

	MsgInvalidEmail        = "A valid email address is required"
	MsgInvalidName         = "User name must be between 4 and 30 characters"
	MsgInvalidPassword     = "Password must be between 6 and 30 characters"
	MsgInvalidNewPassword  = "New password must be between 6 and 30 characters"
	MsgSamePassword        = "The new password should be different from the current password"
	MsgWrongPassword       = "The current password is incorrect"
	MsgBadCredentials      = "Incorrect email address or password"
	MsgEmailTaken          = "An account already exists with the same email address"
	MsgInvalidPhone        = "Phone number should be between 8 and 20 digits"
	MsgInvalidCompany      = "Company name should be between 4 and 30 characters"
	MsgInvalidCategory     = "Category must be one of the categories: Home, Work, Personal"
	MsgInvalidTitle        = "Title must be between 4 and 100 characters"
	MsgInvalidDescription  = "Description must be between 4 and 1000 characters"
	MsgInvalidCompleted    = "Note completed status must be boolean"
	MsgInvalidNoteID       = "Note ID must be a valid ID"
	MsgNoteNotFound        = "No note was found with the provided ID, Maybe it was deleted"
	MsgUnauthorized        = "Access token is not valid or has expired, you will need to login"
	MsgInvalidContentFmt   = "Invalid X-Content-Format header, Only application/json is supported."
	MsgTooManyRequests     = "Too many requests, please try again later"
	MsgInternalServerError = "Internal Error Server"
)
