package config

import "time"

// App carries the knobs the core flows consume. Everything has a sane default
// so the service boots with only the connection strings set.
type App struct {
	// Verification-code lifetime. Codes past this are deleted on first use.
	CodeTTL time.Duration
	// Session JWT lifetime, deliberately much shorter than CodeTTL.
	SessionTTL time.Duration

	// Outbox dispatcher settings.
	RetryCap     int
	PollInterval time.Duration
	BatchSize    int

	// Institutional email domains. StaffDomain grants the author role at
	// signup; StudentDomain requires a boleta.
	StaffDomain   string
	StudentDomain string

	// Base URL of the external author registry.
	AuthorsAPIURL string
}

// NewApp reads the application config from the environment.
func NewApp() App {
	return App{
		CodeTTL:       GetDuration("CODE_TTL", time.Hour),
		SessionTTL:    GetDuration("SESSION_TTL", 15*time.Minute),
		RetryCap:      GetInt("OUTBOX_RETRY_CAP", 5),
		PollInterval:  GetDuration("OUTBOX_POLL_INTERVAL", 5*time.Second),
		BatchSize:     GetInt("OUTBOX_BATCH_SIZE", 10),
		StaffDomain:   GetString("STAFF_EMAIL_DOMAIN", "@ipn.mx"),
		StudentDomain: GetString("STUDENT_EMAIL_DOMAIN", "@alumno.ipn.mx"),
		AuthorsAPIURL: GetString("AUTHORS_API_URL", "http://localhost:8081/repositorio"),
	}
}
