package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/reelcraft/api/internal/auth"
	"github.com/reelcraft/api/internal/config"
	"github.com/reelcraft/api/internal/handler"
	"github.com/reelcraft/api/internal/middleware"
	"github.com/reelcraft/api/internal/service"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing.
type testApp struct {
	app *fiber.App
}

// recordingEnqueuer stands in for the asynq client; nothing consumes the
// queue in these tests.
type recordingEnqueuer struct {
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "test-task", Type: task.Type()}, nil
}

// setupApp creates a Fiber app wired the same way as main.go but against an
// in-process Redis and with unconfigured external clients, so services use
// their mock fallbacks.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	validate := validator.New()

	renderCfg := &config.RenderConfig{
		QueueName:               "render",
		TaskTimeout:             600,
		MaxRetry:                2,
		BulkDeleteCap:           50,
		BatchCap:                10,
		SignedURLTTL:            900,
		ErrorMaxBytes:           4096,
		ProjectedBytesPerSecond: 1_500_000,
	}

	// storage = nil → mock URLs; quota = unconfigured → allow everything
	renderService := service.NewRenderService(redisClient, &recordingEnqueuer{}, nil, &allowAllQuota{}, renderCfg)
	renderHandler := handler.NewRenderHandler(renderService, validate)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":   true,
				"storage": false,
				"encoder": false,
			},
		})
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	// Very high rate limits so tests never get blocked.
	render := api.Group("/render")
	render.Post("/jobs", rateLimiter.SubmitLimit(10000), renderHandler.Submit)
	render.Post("/batch", rateLimiter.BatchLimit(10000), renderHandler.SubmitBatch)
	render.Get("/jobs/:jobId", renderHandler.Status)
	render.Get("/jobs", renderHandler.List)
	render.Delete("/jobs", renderHandler.BulkDelete)

	return &testApp{app: app}
}

type allowAllQuota struct{}

func (q *allowAllQuota) CheckProjected(ctx context.Context, ownerID string, projectedBytes int64) (bool, error) {
	return true, nil
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateLegacyToken("test-user-123", "test@example.com", testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return token
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus fails the test if the response status does not match.
func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status = %d, want %d\nbody: %s", resp.StatusCode, want, readBody(t, resp))
	}
}
