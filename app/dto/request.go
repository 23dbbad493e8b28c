package dto

// SignUpRequest represents the data needed to register a new user.
// Boleta is mandatory for student-domain emails; that cross-field rule is a
// struct-level validation registered in the handler layer.
type SignUpRequest struct {
	Name      string `json:"nombre" validate:"required,max=100"`
	LastNameP string `json:"apellidoP" validate:"required,max=100"`
	LastNameM string `json:"apellidoM" validate:"max=100"`
	Email     string `json:"email" validate:"required,email,max=255,ipn_domain"`
	Boleta    string `json:"boleta" validate:"omitempty,boleta"`
}

// SignInRequest carries the email whose owner wants to start a session. There
// are no passwords in this system; possession of the mailbox is the factor.
type SignInRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// VerifyCodeRequest completes either a registration or a signin, depending on
// the user's current verification state.
type VerifyCodeRequest struct {
	UserID int64  `json:"usuarioId" validate:"required,gt=0"`
	Code   string `json:"codigo" validate:"required,len=6,numeric"`
}

// UpdateUserRequest allows partial updates. Nil fields are left untouched.
type UpdateUserRequest struct {
	Name      *string `json:"nombre" validate:"omitempty,max=100"`
	LastNameP *string `json:"apellidoP" validate:"omitempty,max=100"`
	LastNameM *string `json:"apellidoM" validate:"omitempty,max=100"`
	Email     *string `json:"email" validate:"omitempty,email,max=255,ipn_domain"`
	Boleta    *string `json:"boleta" validate:"omitempty,boleta"`
	Role      *string `json:"rol" validate:"omitempty,oneof=general author admin"`
}
