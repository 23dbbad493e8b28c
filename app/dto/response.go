package dto

// Response is the envelope every endpoint answers with, mirroring the format
// the external author registry itself speaks: ok/data/message/errors.
type Response struct {
	Ok      bool     `json:"ok"`
	Data    any      `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func Success(data any, message string) Response {
	return Response{Ok: true, Data: data, Message: message}
}

func Failure(message string, errs ...string) Response {
	return Response{Ok: false, Message: message, Errors: errs}
}

// SignUpData is returned by signup, for both the fresh-account and the
// resend-to-unverified cases.
type SignUpData struct {
	ID int64 `json:"id"`
}

// SignInData acknowledges that a confirmation code was mailed.
type SignInData struct {
	ID int64 `json:"id"`
}

// SessionData is the credential pair returned after code verification.
type SessionData struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// UserResponse represents user data in API responses.
type UserResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"nombre"`
	LastNameP       string `json:"apellidoP"`
	LastNameM       string `json:"apellidoM"`
	Email           string `json:"email"`
	Boleta          string `json:"boleta,omitempty"`
	Role            string `json:"rol"`
	IsEmailVerified bool   `json:"emailVerificado"`
	CreatedAt       string `json:"fechaCreacion"`
	UpdatedAt       string `json:"fechaActualizacion"`
}
