package store

import (
	"context"
	"fmt"

	"github.com/2beens/liftsync/internal/model"
	"github.com/2beens/liftsync/internal/telemetry/tracing"
)

// LoadState reads everything the client hydrates its session from.
func (r *Repo) LoadState(ctx context.Context, userID string) (_ model.AppState, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.state.load")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var state model.AppState
	if state.Profile, err = r.getProfile(ctx, userID); err != nil {
		return model.AppState{}, err
	}
	if state.History, err = r.listWorkouts(ctx, userID); err != nil {
		return model.AppState{}, err
	}
	if state.ProgressPhotos, err = r.listPhotos(ctx, userID); err != nil {
		return model.AppState{}, err
	}
	if state.CustomExercises, err = r.listExerciseDefinitions(ctx, userID); err != nil {
		return model.AppState{}, err
	}
	if state.ProgramTemplates, err = r.listProgramTemplates(ctx, userID); err != nil {
		return model.AppState{}, err
	}
	if state.Friends, err = r.listFriends(ctx, userID); err != nil {
		return model.AppState{}, err
	}
	if state.FriendRequests, err = r.listFriendRequests(ctx, userID); err != nil {
		return model.AppState{}, err
	}
	if state.FriendsFeed, err = r.GetFriendsFeed(ctx, userID); err != nil {
		return model.AppState{}, fmt.Errorf("feed: %w", err)
	}

	return state, nil
}
