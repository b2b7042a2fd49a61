package store

import (
	"context"
	"net/http"
	"net/url"

	"github.com/anjiri1684/skill_exchange/api"
	"github.com/anjiri1684/skill_exchange/models"
)

type ReviewsState struct {
	SkillID string
	Reviews []models.Review
	// AverageRating is rounded to one decimal. HasRating is false while
	// the list is empty.
	AverageRating float64
	HasRating     bool
	// Submitted is set by a successful add and cleared when the next
	// operation starts.
	Submitted bool
	Lifecycle
}

func (st *ReviewsState) recompute() {
	st.AverageRating, st.HasRating = models.AverageRating(st.Reviews)
}

func reduceReviews(st *ReviewsState, a Action) {
	switch a.Type {
	case ActionSessionEnded, ActionResetReviews:
		*st = ReviewsState{}
		return
	}
	if a.Slice() != "reviews" {
		return
	}

	st.track(a)
	if a.Phase() == PhasePending {
		st.Submitted = false
	}
	switch {
	case a.Is(OpFetchReviews, PhaseFulfilled):
		st.SkillID = a.Arg.(string)
		st.Reviews = a.Payload.([]models.Review)
		st.recompute()
	case a.Is(OpAddReview, PhaseFulfilled):
		r := a.Payload.(models.Review)
		st.Reviews = upsertReview(st.Reviews, r)
		st.Submitted = true
		st.recompute()
	}
}

// upsertReview replaces the author's earlier review in place or prepends a
// new one.
func upsertReview(list []models.Review, r models.Review) []models.Review {
	sameAuthor := func(x models.Review) bool {
		return x.Author.ID != "" && x.Author.ID == r.Author.ID && (x.SkillID == "" || r.SkillID == "" || x.SkillID == r.SkillID)
	}
	for _, x := range list {
		if sameAuthor(x) {
			return replaceWhere(list, sameAuthor, r)
		}
	}
	return prepend(list, r)
}

// AddReview submits the caller's review. A second review by the same author
// for the same skill replaces the first.
func (s *Store) AddReview(ctx context.Context, in models.ReviewInput) (models.Review, error) {
	return run(ctx, s, thunk{op: OpAddReview, arg: in, auth: true},
		func(ctx context.Context) (models.Review, error) {
			var r models.Review
			if err := api.Validate(in); err != nil {
				return r, err
			}
			err := s.request(ctx, api.Request{Method: http.MethodPost, Path: "/reviews", Body: in, Auth: true}, &r)
			return r, err
		})
}

func (s *Store) FetchSkillReviews(ctx context.Context, skillID string) ([]models.Review, error) {
	return run(ctx, s, thunk{op: OpFetchReviews, arg: skillID},
		func(ctx context.Context) ([]models.Review, error) {
			var out []models.Review
			err := s.request(ctx, api.Request{Method: http.MethodGet, Path: "/reviews/" + url.PathEscape(skillID)}, &out)
			return out, err
		})
}

func (s *Store) ResetReviews() {
	s.Dispatch(Action{Type: ActionResetReviews})
}
