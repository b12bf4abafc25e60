package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const apiKeyHeader = "X-LIFTSYNC-KEY"

var _ Store = (*Client)(nil)

// Client talks to the liftsync REST service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return NewClientWithHTTPClient(baseURL, apiKey, &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	})
}

func NewClientWithHTTPClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// createPhotoRequest mirrors api.CreatePhotoRequest.
type createPhotoRequest struct {
	Image []byte            `json:"image,omitempty"`
	Photo model.PhotoRecord `json:"photo"`
}

func (c *Client) UpsertProfile(ctx context.Context, userID string, profile model.Profile) (saved model.Profile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.profile.upsert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = c.do(ctx, http.MethodPut, c.userPath(userID, "profile"), nil, profile, &saved)
	return saved, err
}

func (c *Client) CreateWorkout(ctx context.Context, userID string, workout model.WorkoutRecord) (created model.WorkoutRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.workout.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = c.do(ctx, http.MethodPost, c.userPath(userID, "workouts"), nil, workout, &created)
	return created, err
}

func (c *Client) DeleteWorkout(ctx context.Context, userID string, startedAt time.Time, name string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.workout.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	query := url.Values{}
	query.Set("startedAt", startedAt.UTC().Format(time.RFC3339Nano))
	query.Set("name", name)
	return c.do(ctx, http.MethodDelete, c.userPath(userID, "workouts"), query, nil, nil)
}

func (c *Client) CreatePhoto(ctx context.Context, userID string, image []byte, meta model.PhotoRecord) (created model.PhotoRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.photo.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	req := createPhotoRequest{Image: image, Photo: meta}
	err = c.do(ctx, http.MethodPost, c.userPath(userID, "photos"), nil, req, &created)
	return created, err
}

func (c *Client) UpdatePhoto(ctx context.Context, userID, photoID string, patch model.PhotoPatch) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.photo.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return c.do(ctx, http.MethodPatch, c.userPath(userID, "photos", photoID), nil, patch, nil)
}

func (c *Client) DeletePhoto(ctx context.Context, userID, photoID, imageURL string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.photo.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	query := url.Values{}
	query.Set("imageUrl", imageURL)
	return c.do(ctx, http.MethodDelete, c.userPath(userID, "photos", photoID), query, nil, nil)
}

func (c *Client) CreateExerciseDefinition(ctx context.Context, userID string, exercise model.ExerciseDefinition) (created model.ExerciseDefinition, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.exercise.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = c.do(ctx, http.MethodPost, c.userPath(userID, "exercises"), nil, exercise, &created)
	return created, err
}

func (c *Client) DeleteExerciseDefinition(ctx context.Context, userID string, exercise model.ExerciseDefinition) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.exercise.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	query := url.Values{}
	if exercise.ID != "" {
		query.Set("id", exercise.ID)
	} else {
		query.Set("name", exercise.Name)
		query.Set("muscleGroup", exercise.MuscleGroup)
		if exercise.LocalKey != "" {
			query.Set("localKey", exercise.LocalKey)
		}
	}
	return c.do(ctx, http.MethodDelete, c.userPath(userID, "exercises"), query, nil, nil)
}

func (c *Client) CreateProgramTemplate(ctx context.Context, userID string, template model.ProgramTemplate) (created model.ProgramTemplate, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.template.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = c.do(ctx, http.MethodPost, c.userPath(userID, "templates"), nil, template, &created)
	return created, err
}

func (c *Client) UpdateProgramTemplate(ctx context.Context, userID string, template model.ProgramTemplate) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.template.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if template.ID == "" {
		return fmt.Errorf("update program template without id: %w", ErrInvalidInput)
	}
	return c.do(ctx, http.MethodPut, c.userPath(userID, "templates", template.ID), nil, template, nil)
}

func (c *Client) DeleteProgramTemplate(ctx context.Context, userID string, template model.ProgramTemplate) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.template.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	query := url.Values{}
	if template.ID != "" {
		query.Set("id", template.ID)
	} else {
		query.Set("name", template.Name)
		if template.LocalKey != "" {
			query.Set("localKey", template.LocalKey)
		}
	}
	return c.do(ctx, http.MethodDelete, c.userPath(userID, "templates"), query, nil, nil)
}

func (c *Client) GetFriendsFeed(ctx context.Context, userID string) (feed []model.FeedItem, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.feed.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = c.do(ctx, http.MethodGet, c.userPath(userID, "feed"), nil, nil, &feed)
	return feed, err
}

func (c *Client) LoadState(ctx context.Context, userID string) (state model.AppState, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "remote.state.load")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = c.do(ctx, http.MethodGet, c.userPath(userID, "state"), nil, nil, &state)
	return state, err
}

func (c *Client) userPath(userID string, parts ...string) string {
	path := "/users/" + url.PathEscape(userID)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

// do sends body as JSON and decodes the response into out (when not nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnf("close response body: %s", err)
		}
	}()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return statusError(method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s, decode response: %w", method, path, err)
	}
	return nil
}

func statusError(method, path string, statusCode int, msg string) error {
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case http.StatusBadRequest:
		return fmt.Errorf("%s %s [%s]: %w", method, path, msg, ErrInvalidInput)
	default:
		return fmt.Errorf("%s %s: status %d [%s]", method, path, statusCode, msg)
	}
}
