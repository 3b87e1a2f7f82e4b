package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Mapping is the configured speaker to preset assignment.
type Mapping struct {
	A       PresetID
	B       PresetID
	Default PresetID
}

func (m Mapping) lookup(speaker string) PresetID {
	switch speaker {
	case SpeakerA:
		return m.A
	case SpeakerB:
		return m.B
	}
	return m.Default
}

type Resolver interface {
	// Resolve picks the preset for a speaker tag: a stored override first,
	// then the configured mapping, then the default preset.
	Resolve(ctx context.Context, speaker string) (Preset, error)
}

func NewResolver(registry *Registry, repository OverrideRepository, mapping Mapping) (Resolver, error) {
	// Validate the fallback preset ID exists in the registry
	if _, ok := registry.Get(mapping.Default); !ok {
		return nil, fmt.Errorf("default preset ID %s not found in registry", mapping.Default)
	}
	for _, id := range []PresetID{mapping.A, mapping.B} {
		if id == "" {
			continue
		}
		if _, ok := registry.Get(id); !ok {
			return nil, fmt.Errorf("speaker preset ID %s not found in registry", id)
		}
	}

	return &resolverImpl{
		registry:   registry,
		repository: repository,
		mapping:    mapping,
	}, nil
}

type resolverImpl struct {
	registry   *Registry
	repository OverrideRepository
	mapping    Mapping
}

func (r *resolverImpl) Resolve(ctx context.Context, speaker string) (Preset, error) {
	speaker = NormalizeSpeaker(speaker)

	presetID, err := r.repository.Find(ctx, speaker)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			// just log the error to notify about the issue, but use the configured mapping
			slog.Warn("failed to find voice override", "speaker", speaker, "error", err)
		}
		presetID = r.mapping.lookup(speaker)
	}
	if presetID == "" {
		presetID = r.mapping.Default
	}

	preset, ok := r.registry.Get(presetID)
	if !ok {
		slog.Warn("preset not found in registry, using default", "presetID", presetID, "speaker", speaker)
		preset, ok = r.registry.Get(r.mapping.Default)
		if !ok {
			return Preset{}, fmt.Errorf("preset not found for ID %s", r.mapping.Default)
		}
	}

	return preset, nil
}
