package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	cfgPkg "github.com/escomrepo/users-service/app/config"
	"github.com/escomrepo/users-service/app/dto"
	"github.com/escomrepo/users-service/app/errors"
	"github.com/escomrepo/users-service/app/logger"
	"github.com/escomrepo/users-service/app/metrics"
	appmw "github.com/escomrepo/users-service/app/middleware"
	"github.com/escomrepo/users-service/app/outbox"
	"github.com/escomrepo/users-service/app/services"
	"github.com/escomrepo/users-service/app/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

type application struct {
	config      config
	store       store.Storage
	userService *services.UserService
	redisClient *redis.Client
	db          interface {
		PingContext(ctx context.Context) error
		Close() error
	}
	rabbitConn interface {
		IsClosed() bool
		Close() error
	}
	rabbitCh interface {
		IsClosed() bool
		Close() error
	}
}

type dbConfig struct {
	addr         string
	maxOpenConns int
	maxIdleConns int
	maxIdleTime  string
}

type config struct {
	addr string
	app  cfgPkg.App
	db   dbConfig
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(appmw.RequestIDTracing()) // Propagate request ID to logger and context
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	//Set a timeout value on the request context (ctx), that will signal
	//through ctx.Done() that the request has time out and further
	//processing should be stopped.
	r.Use(middleware.Timeout(60 * time.Second))

	signUpLimit := appmw.RouteLimit{Name: "signUp", Capacity: 10, Window: 5 * time.Minute}
	signInLimit := appmw.RouteLimit{Name: "signIn", Capacity: 5, Window: time.Minute}
	verifyCodeLimit := appmw.RouteLimit{Name: "verifyCode", Capacity: 5, Window: time.Minute}
	healthCheckLimit := appmw.RouteLimit{Name: "healthCheck", Capacity: 20, Window: time.Minute}

	r.Get("/metrics", metrics.Handler().ServeHTTP)

	r.Route("/repositorio/usuarios", func(r chi.Router) {
		r.With(appmw.RateLimit(app.redisClient, healthCheckLimit, appmw.PrincipalIP())).Get("/health", http.HandlerFunc(app.healthCheckHandler))

		r.With(appmw.RateLimit(app.redisClient, signUpLimit, appmw.PrincipalIP())).Post("/signup", http.HandlerFunc(app.signUpHandler))
		r.With(appmw.RateLimit(app.redisClient, signInLimit, appmw.PrincipalIP())).Post("/signin", http.HandlerFunc(app.signInHandler))
		r.With(appmw.RateLimit(app.redisClient, verifyCodeLimit, appmw.PrincipalIP())).Post("/verifyCode", http.HandlerFunc(app.verifyCodeHandler))

		r.Get("/", http.HandlerFunc(app.listUsersHandler))
		r.Get("/{id}", http.HandlerFunc(app.getUserHandler))
		r.Put("/{id}", http.HandlerFunc(app.updateUserHandler))
		r.Delete("/{id}", http.HandlerFunc(app.deleteUserHandler))
	})
	return r
}

// runWithGracefulShutdown starts the server and the outbox dispatcher with
// graceful shutdown support. It handles SIGTERM and SIGINT signals, allowing
// in-flight requests and the current outbox batch to complete before closing
// connections.
func (app *application) runWithGracefulShutdown(
	mux http.Handler,
	dispatcher *outbox.Dispatcher,
	db interface{ Close() error },
	redisClient interface{ Close() error },
) error {
	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: 30 * time.Second,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  time.Minute,
	}

	// The dispatcher shares the process but not the request lifecycle; its
	// context is cancelled during shutdown.
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(dispatcherCtx)
	}()

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Logger.Info().Str("addr", app.config.addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case err := <-serverErrors:
		stopDispatcher()
		<-dispatcherDone
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Logger.Info().Str("signal", sig.String()).Msg("Received signal, starting graceful shutdown")
	}

	// Graceful shutdown with timeout
	shutdownTimeout := 30 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Shutdown server (stops accepting new connections, waits for in-flight requests)
	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}

	logger.Logger.Info().Msg("Server gracefully stopped")

	logger.Logger.Info().Msg("Stopping outbox dispatcher")
	stopDispatcher()
	select {
	case <-dispatcherDone:
	case <-ctx.Done():
		logger.Logger.Error().Msg("Outbox dispatcher did not stop in time")
	}

	// Close connections in order
	logger.Logger.Info().Msg("Closing database connection")
	if err := db.Close(); err != nil {
		logger.Logger.Error().Err(err).Msg("Error closing database")
	}

	logger.Logger.Info().Msg("Closing Redis connection")
	if err := redisClient.Close(); err != nil {
		logger.Logger.Error().Err(err).Msg("Error closing Redis")
	}

	if app.rabbitCh != nil {
		logger.Logger.Info().Msg("Closing RabbitMQ channel")
		if err := app.rabbitCh.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Error closing RabbitMQ channel")
		}
	}
	if app.rabbitConn != nil {
		logger.Logger.Info().Msg("Closing RabbitMQ connection")
		if err := app.rabbitConn.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Error closing RabbitMQ connection")
		}
	}

	logger.Logger.Info().Msg("Graceful shutdown completed")
	return nil
}

// signUpHandler registers a new user and emails a verification code. When the
// email already belongs to an unverified account it resends a fresh code
// instead, with 200 rather than 201.
func (app *application) signUpHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.SignUpRequest

	// 1. Parse JSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, errors.NewInvalidInput("invalid request body"))
		return
	}

	// 2. Sanitize inputs (before validation)
	req.Email = sanitizeEmail(req.Email, 255)
	req.Name = sanitizeInput(req.Name, 100, false)
	req.LastNameP = sanitizeInput(req.LastNameP, 100, false)
	req.LastNameM = sanitizeInput(req.LastNameM, 100, false)
	req.Boleta = strings.TrimSpace(req.Boleta)

	// 3. Validate DTO
	if err := validateRequest(&req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	// 4. Call service (already validated and sanitized)
	data, message, appErr := app.userService.SignUp(r.Context(), req)
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}

	// Both the fresh-account and the resend-to-unverified outcomes answer 200;
	// the message tells them apart.
	writeResponse(w, http.StatusOK, dto.Success(data, message))
}

// signInHandler mails a signin confirmation code to a verified account.
func (app *application) signInHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.SignInRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, errors.NewInvalidInput("invalid request body"))
		return
	}

	req.Email = sanitizeEmail(req.Email, 255)

	if err := validateRequest(&req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	data, appErr := app.userService.SignIn(r.Context(), req)
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}

	writeResponse(w, http.StatusOK, dto.Success(data, "a confirmation code has been sent to your email"))
}

// verifyCodeHandler consumes a verification code and returns a session token.
func (app *application) verifyCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyCodeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, errors.NewInvalidInput("invalid request body"))
		return
	}

	// Codes are displayed as XXX-XXX; accept that form too.
	req.Code = strings.ReplaceAll(strings.TrimSpace(req.Code), "-", "")

	if err := validateRequest(&req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	data, appErr := app.userService.VerifyCode(r.Context(), req)
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}

	writeResponse(w, http.StatusOK, dto.Success(data, "session started"))
}

func (app *application) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, appErr := app.userService.List(r.Context())
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}
	writeResponse(w, http.StatusOK, dto.Success(users, ""))
}

func (app *application) getUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	user, appErr := app.userService.Get(r.Context(), id)
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}
	writeResponse(w, http.StatusOK, dto.Success(user, ""))
}

func (app *application) updateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, errors.NewInvalidInput("invalid request body"))
		return
	}

	if req.Email != nil {
		e := sanitizeEmail(*req.Email, 255)
		req.Email = &e
	}
	if req.Name != nil {
		n := sanitizeInput(*req.Name, 100, false)
		req.Name = &n
	}
	if req.LastNameP != nil {
		n := sanitizeInput(*req.LastNameP, 100, false)
		req.LastNameP = &n
	}
	if req.LastNameM != nil {
		n := sanitizeInput(*req.LastNameM, 100, false)
		req.LastNameM = &n
	}

	if err := validateRequest(&req); err != nil {
		writeErrorResponse(w, err)
		return
	}

	user, appErr := app.userService.Update(r.Context(), id, req)
	if appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}
	writeResponse(w, http.StatusOK, dto.Success(user, "user updated"))
}

func (app *application) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	if appErr := app.userService.Delete(r.Context(), id); appErr != nil {
		writeErrorResponse(w, appErr)
		return
	}
	writeResponse(w, http.StatusOK, dto.Success(nil, "user deleted"))
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeErrorResponse(w, errors.NewInvalidInput("invalid user id"))
		return 0, false
	}
	return id, true
}

func writeResponse(w http.ResponseWriter, status int, resp dto.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// writeErrorResponse writes an error response in a consistent format
func writeErrorResponse(w http.ResponseWriter, appErr *errors.AppError) {
	writeResponse(w, appErr.Status, dto.Failure(appErr.Message, string(appErr.Code)))
}
