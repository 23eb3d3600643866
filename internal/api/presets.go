package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/sensornode/internal/api/models"
	"github.com/smazurov/sensornode/internal/presets"
)

func (s *Server) registerPresetRoutes() {
	if s.presets == nil {
		s.logger.Debug("Presets not configured, skipping preset routes")
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "list-presets",
		Method:      http.MethodGet,
		Path:        "/api/presets",
		Summary:     "List Presets",
		Description: "List stored control presets",
		Tags:        []string{"presets"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.PresetListResponse, error) {
		store := s.presets.Store()
		active := store.Active()

		resp := &models.PresetListResponse{}
		resp.Body.Active = active
		resp.Body.Presets = make([]models.PresetData, 0)
		for _, name := range store.Names() {
			if p, ok := store.Get(name); ok {
				resp.Body.Presets = append(resp.Body.Presets, presetData(name, p, active))
			}
		}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-preset",
		Method:      http.MethodGet,
		Path:        "/api/presets/{name}",
		Summary:     "Get Preset",
		Description: "Get one stored preset",
		Tags:        []string{"presets"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.PresetPath) (*models.PresetResponse, error) {
		store := s.presets.Store()
		p, ok := store.Get(input.Name)
		if !ok {
			return nil, huma.Error404NotFound("preset " + input.Name + " not found")
		}
		return &models.PresetResponse{Body: presetData(input.Name, p, store.Active())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "put-preset",
		Method:      http.MethodPut,
		Path:        "/api/presets/{name}",
		Summary:     "Save Preset",
		Description: "Create or replace a preset. It is not applied.",
		Tags:        []string{"presets"},
		Errors:      []int{400, 401, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.PresetPutRequest) (*models.PresetResponse, error) {
		store := s.presets.Store()
		p := presets.Preset{Description: input.Body.Description, Controls: input.Body.Controls}
		if err := store.Put(input.Name, p); err != nil {
			return nil, huma.Error500InternalServerError("failed to save preset", err)
		}
		return &models.PresetResponse{Body: presetData(input.Name, p, store.Active())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-preset",
		Method:      http.MethodDelete,
		Path:        "/api/presets/{name}",
		Summary:     "Delete Preset",
		Description: "Delete a stored preset",
		Tags:        []string{"presets"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.PresetPath) (*struct{}, error) {
		store := s.presets.Store()
		if _, ok := store.Get(input.Name); !ok {
			return nil, huma.Error404NotFound("preset " + input.Name + " not found")
		}
		if err := store.Delete(input.Name); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete preset", err)
		}
		return &struct{}{}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "apply-preset",
		Method:      http.MethodPost,
		Path:        "/api/presets/{name}/apply",
		Summary:     "Apply Preset",
		Description: "Apply a preset's controls and make it the active preset",
		Tags:        []string{"presets"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.PresetPath) (*models.PresetApplyResponse, error) {
		failed, err := s.presets.Apply(input.Name)
		if errors.Is(err, presets.ErrNotFound) {
			return nil, huma.Error404NotFound("preset " + input.Name + " not found")
		}
		if err != nil {
			return nil, mapSensorError(err)
		}

		resp := &models.PresetApplyResponse{}
		resp.Body.Preset = input.Name
		resp.Body.Failed = failed
		return resp, nil
	})
}

func presetData(name string, p presets.Preset, active string) models.PresetData {
	return models.PresetData{
		Name:        name,
		Description: p.Description,
		Controls:    p.Controls,
		Active:      name == active,
	}
}
