package store

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/anjiri1684/skill_exchange/api"
	"github.com/anjiri1684/skill_exchange/models"
)

type SkillsState struct {
	Catalog    []models.Skill
	Detail     *models.Skill
	Instructor []models.Skill
	Lifecycle
}

// UpdateSkillArg is the argument of the update operation.
type UpdateSkillArg struct {
	ID    string
	Input models.SkillInput
}

func skillID(id string) func(models.Skill) bool {
	return func(s models.Skill) bool { return s.ID == id }
}

func reduceSkills(st *SkillsState, a Action) {
	switch a.Type {
	case ActionSessionEnded:
		*st = SkillsState{}
		return
	case ActionResetSkillDetail:
		st.Detail = nil
		return
	case ActionClearSkillError:
		st.clearError()
		return
	}
	if a.Slice() != "skills" {
		return
	}

	st.track(a)
	switch {
	case a.Is(OpFetchSkills, PhaseFulfilled):
		st.Catalog = a.Payload.([]models.Skill)
	case a.Is(OpFetchSkill, PhasePending):
		st.Detail = nil
	case a.Is(OpFetchSkill, PhaseFulfilled):
		sk := a.Payload.(models.Skill)
		st.Detail = &sk
	case a.Is(OpFetchInstructorSkills, PhaseFulfilled):
		st.Instructor = a.Payload.([]models.Skill)
	case a.Is(OpCreateSkill, PhaseFulfilled):
		sk := a.Payload.(models.Skill)
		st.Catalog = prepend(st.Catalog, sk)
		st.Instructor = prepend(st.Instructor, sk)
	case a.Is(OpUpdateSkill, PhaseFulfilled):
		sk := a.Payload.(models.Skill)
		st.Catalog = replaceWhere(st.Catalog, skillID(sk.ID), sk)
		st.Instructor = replaceWhere(st.Instructor, skillID(sk.ID), sk)
		if st.Detail != nil && st.Detail.ID == sk.ID {
			st.Detail = &sk
		}
	case a.Is(OpDeleteSkill, PhaseFulfilled):
		id := a.Payload.(string)
		st.Catalog = removeWhere(st.Catalog, skillID(id))
		st.Instructor = removeWhere(st.Instructor, skillID(id))
		if st.Detail != nil && st.Detail.ID == id {
			st.Detail = nil
		}
	}
}

// skillList accepts both a bare array and {"skills": [...]}.
type skillList []models.Skill

func (l *skillList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var wrapped struct {
			Skills []models.Skill `json:"skills"`
		}
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return err
		}
		*l = wrapped.Skills
		return nil
	}
	var plain []models.Skill
	if err := json.Unmarshal(b, &plain); err != nil {
		return err
	}
	*l = plain
	return nil
}

func (s *Store) FetchSkills(ctx context.Context, f models.SkillFilter) ([]models.Skill, error) {
	return run(ctx, s, thunk{op: OpFetchSkills, arg: f},
		func(ctx context.Context) ([]models.Skill, error) {
			q := url.Values{}
			if f.Category != "" {
				q.Set("category", f.Category)
			}
			if f.Search != "" {
				q.Set("search", f.Search)
			}
			var out skillList
			err := s.request(ctx, api.Request{Method: http.MethodGet, Path: "/skills", Query: q}, &out)
			return []models.Skill(out), err
		})
}

// FetchSkill loads the detail view. The previous detail is cleared as soon
// as the request starts.
func (s *Store) FetchSkill(ctx context.Context, id string) (models.Skill, error) {
	return run(ctx, s, thunk{op: OpFetchSkill, arg: id},
		func(ctx context.Context) (models.Skill, error) {
			var sk models.Skill
			err := s.request(ctx, api.Request{Method: http.MethodGet, Path: "/skills/" + url.PathEscape(id)}, &sk)
			return sk, err
		})
}

func (s *Store) FetchInstructorSkills(ctx context.Context) ([]models.Skill, error) {
	return run(ctx, s, thunk{op: OpFetchInstructorSkills, auth: true},
		func(ctx context.Context) ([]models.Skill, error) {
			var out skillList
			err := s.request(ctx, api.Request{Method: http.MethodGet, Path: "/skills/instructor", Auth: true}, &out)
			return []models.Skill(out), err
		})
}

func (s *Store) CreateSkill(ctx context.Context, in models.SkillInput) (models.Skill, error) {
	return run(ctx, s, thunk{op: OpCreateSkill, arg: in, auth: true},
		func(ctx context.Context) (models.Skill, error) {
			var sk models.Skill
			if err := api.Validate(in); err != nil {
				return sk, err
			}
			err := s.request(ctx, api.Request{Method: http.MethodPost, Path: "/skills", Body: in, Auth: true}, &sk)
			return sk, err
		})
}

func (s *Store) UpdateSkill(ctx context.Context, id string, in models.SkillInput) (models.Skill, error) {
	return run(ctx, s, thunk{op: OpUpdateSkill, arg: UpdateSkillArg{ID: id, Input: in}, auth: true},
		func(ctx context.Context) (models.Skill, error) {
			var sk models.Skill
			if err := api.Validate(in); err != nil {
				return sk, err
			}
			err := s.request(ctx, api.Request{Method: http.MethodPut, Path: "/skills/" + url.PathEscape(id), Body: in, Auth: true}, &sk)
			return sk, err
		})
}

// DeleteSkill removes the skill from the catalog and instructor lists and
// clears the detail view when it shows that skill.
func (s *Store) DeleteSkill(ctx context.Context, id string) error {
	_, err := run(ctx, s, thunk{op: OpDeleteSkill, arg: id, auth: true},
		func(ctx context.Context) (string, error) {
			err := s.request(ctx, api.Request{Method: http.MethodDelete, Path: "/skills/" + url.PathEscape(id), Auth: true}, nil)
			return id, err
		})
	return err
}

func (s *Store) ResetSkillDetail() {
	s.Dispatch(Action{Type: ActionResetSkillDetail})
}

func (s *Store) ClearSkillError() {
	s.Dispatch(Action{Type: ActionClearSkillError})
}
