// Package projects manages projects and their membership.
package projects

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"strings"

	"sprintboard/internal/apperr"
	"sprintboard/internal/clock"
	"sprintboard/internal/models"
	"sprintboard/internal/storage"
)

var palette = []string{
	"#2563eb", // blue-600
	"#7c3aed", // violet-600
	"#dc2626", // red-600
	"#059669", // green-600
	"#ea580c", // orange-600
	"#d97706", // amber-600
	"#0ea5e9", // sky-500
}

func randomPaletteColor() string {
	return palette[rand.Intn(len(palette))]
}

type NewProject struct {
	Name        string
	Description string
	Color       string
	OwnerID     int64
	MemberIDs   []int64
}

// ProjectPatch holds optional edits. A blank name is rejected; a blank
// colour picks a new one from the palette.
type ProjectPatch struct {
	Name        *string
	Description *string
	Color       *string
}

type Service struct {
	repo   storage.Repository
	clock  clock.Clock
	logger *slog.Logger
}

func NewService(repo storage.Repository, clk clock.Clock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, clock: clock.OrSystem(clk), logger: logger}
}

// Create stores a project owned by in.OwnerID. Initial members must exist.
func (s *Service) Create(ctx context.Context, in NewProject) (models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Project{}, apperr.Validationf("project name is required")
	}
	if in.OwnerID <= 0 {
		return models.Project{}, apperr.Validationf("project owner is required")
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = randomPaletteColor()
	}

	var project models.Project
	err := s.repo.InTx(ctx, func(repo storage.Repository) error {
		if _, err := repo.GetUser(ctx, in.OwnerID); err != nil {
			return err
		}
		members, err := memberSet(ctx, repo, in.OwnerID, in.MemberIDs)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		project = models.Project{
			Name:        name,
			Description: in.Description,
			Color:       color,
			OwnerID:     in.OwnerID,
			MemberIDs:   members,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return repo.CreateProject(ctx, &project)
	})
	if err != nil {
		return models.Project{}, err
	}

	s.logger.Info("project created", slog.Int64("project_id", project.ID), slog.Int64("owner_id", project.OwnerID))
	return project, nil
}

// memberSet checks that every id is a user and drops the owner and duplicates.
func memberSet(ctx context.Context, repo storage.Repository, ownerID int64, ids []int64) ([]int64, error) {
	seen := map[int64]struct{}{ownerID: {}}
	out := []int64{}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		if _, err := repo.GetUser(ctx, id); err != nil {
			return nil, err
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (models.Project, error) {
	return s.repo.GetProject(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, patch ProjectPatch) (models.Project, error) {
	var project models.Project
	err := s.repo.InTx(ctx, func(repo storage.Repository) error {
		var err error
		project, err = repo.GetProject(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return apperr.Validationf("project name cannot be blank")
			}
			project.Name = name
		}
		if patch.Description != nil {
			project.Description = *patch.Description
		}
		if patch.Color != nil {
			project.Color = strings.TrimSpace(*patch.Color)
			if project.Color == "" {
				project.Color = randomPaletteColor()
			}
		}
		project.UpdatedAt = s.clock.Now()
		return repo.UpdateProject(ctx, project)
	})
	if err != nil {
		return models.Project{}, err
	}
	return project, nil
}

// Delete removes the project together with its sprints, tasks and reports.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", slog.Int64("project_id", id))
	return nil
}

// ListByUser returns the projects the user owns or belongs to, ordered by id.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]models.Project, error) {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	owned, err := s.repo.ListProjectsByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	joined, err := s.repo.ListProjectsByMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := map[int64]struct{}{}
	out := []models.Project{}
	for _, p := range append(owned, joined...) {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Service) AddMember(ctx context.Context, projectID, userID int64) (models.Project, error) {
	var project models.Project
	err := s.repo.InTx(ctx, func(repo storage.Repository) error {
		var err error
		project, err = repo.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		if _, err := repo.GetUser(ctx, userID); err != nil {
			return err
		}
		if project.HasMember(userID) {
			return apperr.Validationf("user %d is already a member of project %d", userID, projectID)
		}
		if err := repo.AddProjectMember(ctx, projectID, userID); err != nil {
			return err
		}
		project, err = repo.GetProject(ctx, projectID)
		return err
	})
	if err != nil {
		return models.Project{}, err
	}
	return project, nil
}

// RemoveMember drops a member and unassigns their tasks in the project.
// The owner cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, projectID, userID int64) (models.Project, error) {
	var project models.Project
	err := s.repo.InTx(ctx, func(repo storage.Repository) error {
		var err error
		project, err = repo.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		if project.OwnerID == userID {
			return apperr.Forbiddenf("the owner of project %d cannot be removed", projectID)
		}
		if !project.HasMember(userID) {
			return apperr.Validationf("user %d is not a member of project %d", userID, projectID)
		}
		if err := repo.RemoveProjectMember(ctx, projectID, userID); err != nil {
			return err
		}
		if err := repo.UnassignTasks(ctx, projectID, userID); err != nil {
			return err
		}
		project, err = repo.GetProject(ctx, projectID)
		return err
	})
	if err != nil {
		return models.Project{}, err
	}

	s.logger.Info("project member removed", slog.Int64("project_id", projectID), slog.Int64("user_id", userID))
	return project, nil
}

// IsMember reports whether the user owns or belongs to the project.
func (s *Service) IsMember(ctx context.Context, projectID, userID int64) (bool, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return false, err
	}
	return project.HasMember(userID), nil
}
