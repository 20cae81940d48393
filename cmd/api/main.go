package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"revlens-dashboard-layer/internal/application"
	"revlens-dashboard-layer/internal/domain"
	apiinfra "revlens-dashboard-layer/internal/infrastructure/api"
	"revlens-dashboard-layer/internal/infrastructure/inflight"
	"revlens-dashboard-layer/internal/infrastructure/metrics"
	"revlens-dashboard-layer/internal/infrastructure/pubsub"
	"revlens-dashboard-layer/internal/infrastructure/repository"
	shopifyinfra "revlens-dashboard-layer/internal/infrastructure/shopify"
	"revlens-dashboard-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// apiResponse is the envelope every endpoint answers with, mirroring the
// analytics backend's convention.
type apiResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	Data            any    `json:"data,omitempty"`
	OAuthURL        string `json:"oauth_url,omitempty"`
	Redirect        string `json:"redirect,omitempty"`
	RedirectAfterMS int64  `json:"redirect_after_ms,omitempty"`
}

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	backendURL := os.Getenv("ANALYTICS_BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:9000"
	}

	// Session store: MongoDB when configured, in-process otherwise.
	var sessionRepo ports.SessionRepository
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI != "" {
		client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())

		dbName := os.Getenv("MONGODB_DATABASE")
		if dbName == "" {
			dbName = "revlens"
		}
		sessionRepo = repository.NewMongoSessionRepository(client.Database(dbName))
	} else {
		logger.Warn().Msg("MONGODB_URI not set, using in-process session store")
		sessionRepo = repository.NewMemorySessionRepository()
	}

	// Sync guard: Redis when configured, in-process otherwise.
	var syncGuard ports.SyncGuard
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr != "" {
		syncGuard = inflight.NewRedisSyncGuard(redis.NewClient(&redis.Options{Addr: redisAddr}))
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, using in-process sync guard")
		syncGuard = inflight.NewMemorySyncGuard()
	}

	collector := metrics.New(prometheus.DefaultRegisterer)
	events := pubsub.NewEventPubSub(logger)

	// Any component may trip the token-invalid broadcast; it is idempotent,
	// so no coordination is needed.
	onUnauthorized := func(string) {
		events.Publish(&domain.IntegrationEvent{
			Type:       domain.EventSessionInvalidated,
			OccurredAt: time.Now(),
		})
	}

	backendClient := apiinfra.NewClient(backendURL, sessionRepo, onUnauthorized, collector, logger)
	tokenValidator := shopifyinfra.NewTokenValidator(logger)

	integrationService := application.NewIntegrationService(backendClient, syncGuard, tokenValidator, events, logger)
	stripeFlow := application.NewStripeFlow(backendClient, events, logger, nil)
	partnerFlow := application.NewShopifyPartnerFlow(backendClient, events, logger, nil)
	economicFlow := application.NewEconomicFlow(backendClient, events, logger, nil)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Use(createSessionMiddleware(sessionRepo, logger))

	// Public routes (no bearer token required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation - public
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // The URL pointing to API definition
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// Session cache (token issuance itself happens at the analytics backend)
	r.Post("/session", saveSessionHandler(sessionRepo, logger))
	r.Get("/session", getSessionHandler())
	r.Delete("/session", deleteSessionHandler(sessionRepo, logger))

	// Integration list and lifecycle
	r.Get("/integrations", overviewHandler(integrationService, logger))
	r.Post("/integrations", createIntegrationHandler(stripeFlow, backendClient, collector, logger))
	r.Get("/integrations/events", eventsHandler(events, logger))
	r.Post("/integrations/{id}/sync", syncHandler(integrationService, collector))
	r.Post("/integrations/{id}/disconnect", disconnectHandler(integrationService))
	r.Delete("/integrations/{id}", removeHandler(integrationService))

	// Shopify shop sub-resources
	r.Get("/integrations/{id}/shops", listShopsHandler(integrationService))
	r.Post("/integrations/{id}/shops/{shopDomain}/token", storeShopTokenHandler(integrationService))
	r.Delete("/integrations/{id}/shops/{shopDomain}/token", removeShopTokenHandler(integrationService))

	// Connection flows
	r.Post("/shopify/connect-partner", partnerConnectHandler(partnerFlow, collector))
	r.Get("/economic/oauth-url", economicOAuthURLHandler(economicFlow))
	r.Post("/economic/oauth-complete", economicOAuthCompleteHandler(economicFlow, collector))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Str("backend", backendURL).Msg("Starting dashboard layer")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// createSessionMiddleware extracts the bearer token, resolves the cached
// session, and attaches both to the request context. Public routes skip it.
func createSessionMiddleware(sessionRepo ports.SessionRepository, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "/health" ||
				path == "/metrics" ||
				path == "/swagger/doc.json" ||
				(len(path) > 9 && path[:9] == "/swagger/") {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, apiResponse{
					Success:  false,
					Message:  "Authorization token is required",
					Redirect: "/login",
				})
				return
			}

			ctx := domain.WithToken(r.Context(), token)
			session, err := sessionRepo.GetByToken(ctx, token)
			if err != nil {
				logger.Warn().Err(err).Msg("Failed to resolve session")
			}
			if session != nil && !session.Expired() {
				ctx = domain.WithSession(ctx, session)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the client-side error taxonomy onto HTTP responses. A 401
// always carries the /login redirect; the session itself was already cleared
// by the backend client.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var backendErr *domain.BackendError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: validationErr.Message})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, apiResponse{Success: false, Message: err.Error(), Redirect: "/login"})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, apiResponse{Success: false, Message: err.Error()})
	case errors.Is(err, domain.ErrSyncInFlight):
		writeJSON(w, http.StatusConflict, apiResponse{Success: false, Message: err.Error()})
	case errors.Is(err, domain.ErrNetwork):
		writeJSON(w, http.StatusBadGateway, apiResponse{Success: false, Message: err.Error()})
	case errors.As(err, &backendErr):
		status := backendErr.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, apiResponse{Success: false, Message: backendErr.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: err.Error()})
	}
}

func integrationID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, &domain.ValidationError{Field: "id", Message: "integration id must be numeric"}
	}
	return id, nil
}

func saveSessionHandler(sessionRepo ports.SessionRepository, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			User      domain.User `json:"user"`
			ExpiresAt time.Time   `json:"expires_at"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, &domain.ValidationError{Field: "body", Message: "invalid session payload"})
			return
		}

		session := &domain.Session{
			ID:        uuid.NewString(),
			Token:     domain.TokenFromContext(r.Context()),
			User:      body.User,
			ExpiresAt: body.ExpiresAt,
			CreatedAt: time.Now(),
		}
		if err := sessionRepo.Save(r.Context(), session); err != nil {
			logger.Error().Err(err).Msg("Failed to save session")
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: session.User})
	}
}

func getSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := domain.SessionFromContext(r.Context())
		if session == nil || session.Expired() {
			writeJSON(w, http.StatusUnauthorized, apiResponse{
				Success:  false,
				Message:  "no cached session",
				Redirect: "/login",
			})
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: session.User})
	}
}

func deleteSessionHandler(sessionRepo ports.SessionRepository, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := domain.TokenFromContext(r.Context())
		if _, err := sessionRepo.DeleteByToken(r.Context(), token); err != nil {
			logger.Error().Err(err).Msg("Failed to delete session")
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true})
	}
}

func overviewHandler(service *application.IntegrationService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := service.Overview(r.Context(), r.URL.Query().Get("currency"))
		if err != nil {
			logger.Error().Err(err).Msg("Failed to build integration overview")
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: views})
	}
}

// createIntegrationHandler routes Stripe submissions through the Stripe flow
// and passes any other platform's credentials straight to the backend.
func createIntegrationHandler(
	stripeFlow *application.StripeFlow,
	backendClient ports.BackendClient,
	collector *metrics.Collector,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input ports.CreateIntegrationInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, &domain.ValidationError{Field: "body", Message: "invalid integration payload"})
			return
		}

		if input.Platform == domain.PlatformStripe {
			result, err := stripeFlow.Submit(r.Context(), input.Credentials["secret_key"])
			if err != nil {
				collector.ObserveFlowSubmission(string(domain.PlatformStripe), "failure")
				writeError(w, err)
				return
			}
			collector.ObserveFlowSubmission(string(domain.PlatformStripe), "success")
			writeJSON(w, http.StatusOK, apiResponse{
				Success:         true,
				Message:         result.Message,
				Data:            result.Integration,
				Redirect:        result.RedirectTo,
				RedirectAfterMS: result.RedirectAfter.Milliseconds(),
			})
			return
		}

		integration, err := backendClient.CreateIntegration(r.Context(), input)
		if err != nil {
			collector.ObserveFlowSubmission(string(input.Platform), "failure")
			writeError(w, err)
			return
		}
		collector.ObserveFlowSubmission(string(input.Platform), "success")
		logger.Info().Str("platform", string(input.Platform)).Msg("Integration created")
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: integration})
	}
}

func partnerConnectHandler(flow *application.ShopifyPartnerFlow, collector *metrics.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input ports.PartnerConnectInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, &domain.ValidationError{Field: "body", Message: "invalid partner connect payload"})
			return
		}

		result, err := flow.Submit(r.Context(), input.PartnerAccessToken, input.OrganizationID)
		if err != nil {
			collector.ObserveFlowSubmission(string(domain.PlatformShopify), "failure")
			writeError(w, err)
			return
		}

		if result.AlreadyConnected {
			collector.ObserveFlowSubmission(string(domain.PlatformShopify), "already_connected")
			writeJSON(w, http.StatusConflict, apiResponse{
				Success:  false,
				Message:  "A Shopify Partner integration already exists",
				Redirect: result.NavigateTo,
			})
			return
		}

		collector.ObserveFlowSubmission(string(domain.PlatformShopify), "success")
		writeJSON(w, http.StatusOK, apiResponse{
			Success: true,
			Data:    map[string]int64{"integration_id": result.IntegrationID},
		})
	}
}

func economicOAuthURLHandler(flow *application.EconomicFlow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		oauthURL, err := flow.BeginAuthorization(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true, OAuthURL: oauthURL})
	}
}

func economicOAuthCompleteHandler(flow *application.EconomicFlow, collector *metrics.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			GrantToken string `json:"grant_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, &domain.ValidationError{Field: "body", Message: "invalid oauth payload"})
			return
		}

		message, err := flow.SubmitToken(r.Context(), body.GrantToken)
		if err != nil {
			collector.ObserveFlowSubmission(string(domain.PlatformEconomic), "failure")
			writeError(w, err)
			return
		}
		collector.ObserveFlowSubmission(string(domain.PlatformEconomic), "success")
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: message})
	}
}

func syncHandler(service *application.IntegrationService, collector *metrics.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := integrationID(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := service.TriggerSync(r.Context(), id); err != nil {
			if errors.Is(err, domain.ErrSyncInFlight) {
				collector.ObserveSyncSuppressed()
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true})
	}
}

func disconnectHandler(service *application.IntegrationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := integrationID(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := service.Disconnect(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true})
	}
}

// removeHandler hard-deletes an integration. The confirm discriminator is
// required so a disconnect can never be mistaken for a remove: their
// data-retention consequences differ.
func removeHandler(service *application.IntegrationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := integrationID(r)
		if err != nil {
			writeError(w, err)
			return
		}
		confirm := r.URL.Query().Get("confirm")
		if confirm != string(application.ActionRemove) {
			writeError(w, &domain.ValidationError{
				Field:   "confirm",
				Message: fmt.Sprintf("removal must be confirmed with confirm=%s", application.ActionRemove),
			})
			return
		}
		if err := service.Remove(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true})
	}
}

func listShopsHandler(service *application.IntegrationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := integrationID(r)
		if err != nil {
			writeError(w, err)
			return
		}
		shops, err := service.ListShops(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: shops})
	}
}

func storeShopTokenHandler(service *application.IntegrationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := integrationID(r)
		if err != nil {
			writeError(w, err)
			return
		}
		var body struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, &domain.ValidationError{Field: "body", Message: "invalid token payload"})
			return
		}
		if err := service.StoreShopToken(r.Context(), id, chi.URLParam(r, "shopDomain"), body.AccessToken); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true})
	}
}

func removeShopTokenHandler(service *application.IntegrationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := integrationID(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := service.RemoveShopToken(r.Context(), id, chi.URLParam(r, "shopDomain")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true})
	}
}

// eventsHandler streams integration lifecycle events over SSE for the live
// dashboard view.
func eventsHandler(events *pubsub.EventPubSub, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, fmt.Errorf("streaming unsupported"))
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher.Flush()

		channel := events.Subscribe(r.Context(), nil)
		for {
			select {
			case <-r.Context().Done():
				return
			case event, open := <-channel.Events:
				if !open {
					return
				}
				payload, err := json.Marshal(event)
				if err != nil {
					logger.Warn().Err(err).Msg("Failed to encode event")
					continue
				}
				fmt.Fprintf(w, "data: %s\n\n", payload)
				flusher.Flush()
			}
		}
	}
}
