package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/2beens/liftsync/internal/imagestore"
	"github.com/2beens/liftsync/internal/middleware"
	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/remote"
	"github.com/2beens/liftsync/internal/telemetry/metrics"
	"github.com/2beens/liftsync/internal/telemetry/tracing"
	"github.com/2beens/liftsync/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=../remote/store.go -destination=store_mocks_test.go -package=api_test

// ImageOpener serves images hosted on local disk.
type ImageOpener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, string, error)
}

// CreatePhotoRequest carries the raw image bytes (base64 in JSON) next to the photo metadata.
type CreatePhotoRequest struct {
	Image []byte            `json:"image,omitempty"`
	Photo model.PhotoRecord `json:"photo"`
}

// Handler exposes a remote.Store over HTTP.
type Handler struct {
	store  remote.Store
	images ImageOpener
}

// NewHandler creates the handler. images may be nil when they are not hosted on local disk.
func NewHandler(store remote.Store, images ImageOpener) *Handler {
	return &Handler{
		store:  store,
		images: images,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	metricsManager *metrics.Manager,
	writesAllowedPerMin int,
) {
	if handler.images != nil {
		mainRouter.HandleFunc("/images/{name}", handler.HandleGetImage).Methods("GET", "OPTIONS").Name("get-image")
	}

	users := mainRouter.PathPrefix("/users/{userID}").Subrouter()
	users.HandleFunc("/state", handler.HandleGetState).Methods("GET", "OPTIONS").Name("get-state")
	users.HandleFunc("/feed", handler.HandleGetFeed).Methods("GET", "OPTIONS").Name("get-feed")

	writes := users.NewRoute().Subrouter()
	writes.HandleFunc("/profile", handler.HandleUpsertProfile).Methods("PUT", "OPTIONS").Name("upsert-profile")
	writes.HandleFunc("/workouts", handler.HandleCreateWorkout).Methods("POST", "OPTIONS").Name("new-workout")
	writes.HandleFunc("/workouts", handler.HandleDeleteWorkout).Methods("DELETE", "OPTIONS").Name("delete-workout")
	writes.HandleFunc("/photos", handler.HandleCreatePhoto).Methods("POST", "OPTIONS").Name("new-photo")
	writes.HandleFunc("/photos/{id}", handler.HandleUpdatePhoto).Methods("PATCH", "OPTIONS").Name("update-photo")
	writes.HandleFunc("/photos/{id}", handler.HandleDeletePhoto).Methods("DELETE", "OPTIONS").Name("delete-photo")
	writes.HandleFunc("/exercises", handler.HandleCreateExercise).Methods("POST", "OPTIONS").Name("new-exercise")
	writes.HandleFunc("/exercises", handler.HandleDeleteExercise).Methods("DELETE", "OPTIONS").Name("delete-exercise")
	writes.HandleFunc("/templates", handler.HandleCreateTemplate).Methods("POST", "OPTIONS").Name("new-template")
	writes.HandleFunc("/templates/{id}", handler.HandleUpdateTemplate).Methods("PUT", "OPTIONS").Name("update-template")
	writes.HandleFunc("/templates", handler.HandleDeleteTemplate).Methods("DELETE", "OPTIONS").Name("delete-template")

	if rateLimiter != nil && writesAllowedPerMin > 0 {
		writes.Use(middleware.RateLimit(rateLimiter, "writes", writesAllowedPerMin, metricsManager))
	}
}

func (handler *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.state.get")
	defer span.End()

	userID := mux.Vars(r)["userID"]
	state, err := handler.store.LoadState(ctx, userID)
	if err != nil {
		writeStoreError(w, "load state", err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (handler *Handler) HandleGetFeed(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.feed.get")
	defer span.End()

	userID := mux.Vars(r)["userID"]
	feed, err := handler.store.GetFriendsFeed(ctx, userID)
	if err != nil {
		writeStoreError(w, "get friends feed", err)
		return
	}
	if feed == nil {
		feed = []model.FeedItem{}
	}

	writeJSON(w, http.StatusOK, feed)
}

func (handler *Handler) HandleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profile.upsert")
	defer span.End()

	var profile model.Profile
	if !decodeJSON(w, r, &profile) {
		return
	}

	saved, err := handler.store.UpsertProfile(ctx, mux.Vars(r)["userID"], profile)
	if err != nil {
		writeStoreError(w, "upsert profile", err)
		return
	}

	writeJSON(w, http.StatusOK, saved)
}

func (handler *Handler) HandleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.new")
	defer span.End()

	var workout model.WorkoutRecord
	if !decodeJSON(w, r, &workout) {
		return
	}

	created, err := handler.store.CreateWorkout(ctx, mux.Vars(r)["userID"], workout)
	if err != nil {
		writeStoreError(w, "create workout", err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (handler *Handler) HandleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.delete")
	defer span.End()

	query := r.URL.Query()
	startedAt, err := time.Parse(time.RFC3339Nano, query.Get("startedAt"))
	if err != nil {
		http.Error(w, "error, invalid startedAt", http.StatusBadRequest)
		return
	}
	name := query.Get("name")
	if name == "" {
		http.Error(w, "error, name empty", http.StatusBadRequest)
		return
	}

	if err := handler.store.DeleteWorkout(ctx, mux.Vars(r)["userID"], startedAt, name); err != nil {
		writeStoreError(w, "delete workout", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (handler *Handler) HandleCreatePhoto(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.photo.new")
	defer span.End()

	var req CreatePhotoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	span.SetAttributes(attribute.Int("image.size", len(req.Image)))

	created, err := handler.store.CreatePhoto(ctx, mux.Vars(r)["userID"], req.Image, req.Photo)
	if err != nil {
		writeStoreError(w, "create photo", err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (handler *Handler) HandleUpdatePhoto(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.photo.update")
	defer span.End()

	var patch model.PhotoPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	vars := mux.Vars(r)
	if err := handler.store.UpdatePhoto(ctx, vars["userID"], vars["id"], patch); err != nil {
		writeStoreError(w, "update photo", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (handler *Handler) HandleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.photo.delete")
	defer span.End()

	vars := mux.Vars(r)
	imageURL := r.URL.Query().Get("imageUrl")
	if err := handler.store.DeletePhoto(ctx, vars["userID"], vars["id"], imageURL); err != nil {
		writeStoreError(w, "delete photo", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (handler *Handler) HandleCreateExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercise.new")
	defer span.End()

	var exercise model.ExerciseDefinition
	if !decodeJSON(w, r, &exercise) {
		return
	}

	created, err := handler.store.CreateExerciseDefinition(ctx, mux.Vars(r)["userID"], exercise)
	if err != nil {
		writeStoreError(w, "create exercise definition", err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (handler *Handler) HandleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercise.delete")
	defer span.End()

	query := r.URL.Query()
	exercise := model.ExerciseDefinition{
		ID:          query.Get("id"),
		LocalKey:    query.Get("localKey"),
		Name:        query.Get("name"),
		MuscleGroup: query.Get("muscleGroup"),
	}
	if exercise.ID == "" && exercise.LocalKey == "" && exercise.Name == "" {
		http.Error(w, "error, id, localKey or name required", http.StatusBadRequest)
		return
	}

	if err := handler.store.DeleteExerciseDefinition(ctx, mux.Vars(r)["userID"], exercise); err != nil {
		writeStoreError(w, "delete exercise definition", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (handler *Handler) HandleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.template.new")
	defer span.End()

	var template model.ProgramTemplate
	if !decodeJSON(w, r, &template) {
		return
	}

	created, err := handler.store.CreateProgramTemplate(ctx, mux.Vars(r)["userID"], template)
	if err != nil {
		writeStoreError(w, "create program template", err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (handler *Handler) HandleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.template.update")
	defer span.End()

	var template model.ProgramTemplate
	if !decodeJSON(w, r, &template) {
		return
	}

	vars := mux.Vars(r)
	template.ID = vars["id"]
	if err := handler.store.UpdateProgramTemplate(ctx, vars["userID"], template); err != nil {
		writeStoreError(w, "update program template", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (handler *Handler) HandleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.template.delete")
	defer span.End()

	query := r.URL.Query()
	template := model.ProgramTemplate{
		ID:       query.Get("id"),
		LocalKey: query.Get("localKey"),
		Name:     query.Get("name"),
	}
	if template.ID == "" && template.LocalKey == "" && template.Name == "" {
		http.Error(w, "error, id, localKey or name required", http.StatusBadRequest)
		return
	}

	if err := handler.store.DeleteProgramTemplate(ctx, mux.Vars(r)["userID"], template); err != nil {
		writeStoreError(w, "delete program template", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (handler *Handler) HandleGetImage(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.image.get")
	defer span.End()

	name := mux.Vars(r)["name"]
	image, mimeType, err := handler.images.Open(ctx, name)
	if err != nil {
		if errors.Is(err, imagestore.ErrImageNotFound) {
			http.Error(w, "image not found", http.StatusNotFound)
			return
		}
		log.Errorf("open image [%s]: %s", name, err)
		http.Error(w, "error, failed to get image", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := image.Close(); err != nil {
			log.Warnf("close image [%s]: %s", name, err)
		}
	}()

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, image); err != nil {
		log.Errorf("write image [%s]: %s", name, err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Tracef("%s %s, unmarshal json: %s", r.Method, r.URL.Path, err)
		http.Error(w, "error, invalid json body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	respJson, err := json.Marshal(v)
	if err != nil {
		log.Errorf("failed to marshal response: %s", err)
		http.Error(w, "error, failed to marshal response", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, statusCode)
}

// writeStoreError maps remote store errors onto status codes; remote.Client maps them back.
func writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, remote.ErrNotFound):
		http.Error(w, op+": not found", http.StatusNotFound)
	case errors.Is(err, remote.ErrInvalidInput):
		log.Debugf("%s: %s", op, err)
		http.Error(w, op+": "+err.Error(), http.StatusBadRequest)
	default:
		log.Errorf("%s: %s", op, err)
		http.Error(w, "error, failed to "+op, http.StatusInternalServerError)
	}
}
