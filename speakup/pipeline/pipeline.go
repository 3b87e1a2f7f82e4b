// Package pipeline turns a topic into a stored learning page: dialogue
// generation, per-line speech synthesis, merge and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/makeitchaccha/speakup/speakup/dialogue"
	"github.com/makeitchaccha/speakup/speakup/page"
	"github.com/makeitchaccha/speakup/speakup/task"
	"github.com/makeitchaccha/speakup/speakup/tts"
	"github.com/makeitchaccha/speakup/speakup/voice"
)

const (
	progressStarted   = 10
	progressGenerated = 40
	progressSynthesis = 40 // share of the bar covered by speech synthesis
)

// Services is the set of collaborators a job runs with. A job keeps the
// snapshot it was submitted with even if the configuration changes later.
type Services struct {
	Generator   dialogue.Generator
	Translator  dialogue.Translator
	Synthesizer tts.SpeechSynthesizer
	Voices      voice.Resolver
	Pages       page.Store
}

// Narrate synthesizes the lines in order and returns them with audio
// attached, plus the per-line outcomes. A line whose synthesis failed keeps
// no audio. progress, when set, is called after each line; an error from it
// or a done ctx stops narration.
func (s *Services) Narrate(ctx context.Context, lines []dialogue.Line, progress func(done, total int) error) ([]dialogue.Line, []tts.Outcome, error) {
	outcomes := make([]tts.Outcome, len(lines))
	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		outcomes[i] = s.narrateLine(ctx, line)
		if progress != nil {
			if err := progress(i+1, len(lines)); err != nil {
				return nil, nil, err
			}
		}
	}
	return merge(lines, outcomes), outcomes, nil
}

func (s *Services) narrateLine(ctx context.Context, line dialogue.Line) tts.Outcome {
	preset, err := s.Voices.Resolve(ctx, line.Speaker)
	if err != nil {
		slog.Warn("failed to resolve voice", slog.String("speaker", line.Speaker), slog.Any("err", err))
		return tts.Outcome{Text: line.Target, Error: err.Error()}
	}
	return s.Synthesizer.Synthesize(ctx, line.Target, preset.Voice())
}

type Job struct {
	TaskID    string
	Topic     string
	Exchanges int
	Services  *Services
}

type Pipeline struct {
	registry task.Registry
}

func New(registry task.Registry) *Pipeline {
	return &Pipeline{
		registry: registry,
	}
}

// Run executes job and records its outcome on the task. It never panics.
func (p *Pipeline) Run(ctx context.Context, job Job) {
	start := time.Now()
	logger := slog.With(slog.String("task", job.TaskID), slog.String("topic", job.Topic))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("pipeline panicked", slog.Any("panic", r))
			p.fail(ctx, job, fmt.Sprintf("internal error: %v", r))
		}
	}()

	result, err := p.run(ctx, job, logger)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) || errors.Is(err, task.ErrInvalidTransition) {
			logger.Warn("task vanished or changed while running", slog.Any("err", err))
			return
		}
		logger.Warn("pipeline failed", slog.Any("err", err), slog.Duration("elapsed", time.Since(start)))
		p.fail(ctx, job, err.Error())
		return
	}

	if err := p.update(ctx, job.TaskID, task.StatusCompleted, task.WithProgress(100), task.WithResult(result)); err != nil {
		logger.Error("failed to complete task", slog.Any("err", err))
		return
	}
	logger.Info("pipeline completed", slog.String("file", result.Filename), slog.Duration("elapsed", time.Since(start)))
}

func (p *Pipeline) run(ctx context.Context, job Job, logger *slog.Logger) (*task.Result, error) {
	if job.Services == nil {
		return nil, errors.New("services are not configured")
	}
	svc := job.Services

	if err := p.update(ctx, job.TaskID, task.StatusRunning, task.WithProgress(progressStarted)); err != nil {
		return nil, err
	}

	generated := svc.Generator.Generate(ctx, job.Topic, job.Exchanges)
	if !generated.Success {
		if generated.Error == "" {
			return nil, errors.New("dialogue generation failed")
		}
		return nil, errors.New(generated.Error)
	}
	if err := p.update(ctx, job.TaskID, task.StatusRunning, task.WithProgress(progressGenerated)); err != nil {
		return nil, err
	}

	merged, outcomes, err := svc.Narrate(ctx, generated.Dialogue, func(done, total int) error {
		return p.update(ctx, job.TaskID, task.StatusRunning, task.WithProgress(lineProgress(done-1, total)))
	})
	if err != nil {
		return nil, err
	}
	failed := lo.CountBy(outcomes, func(o tts.Outcome) bool { return !o.Success })
	if failed > 0 {
		logger.Warn("some lines have no audio", slog.Int("failed", failed), slog.Int("lines", len(outcomes)))
	}

	topic := generated.Topic
	if topic == "" {
		topic = job.Topic
	}
	saved, err := svc.Pages.Save(ctx, page.Page{
		Topic:    topic,
		Dialogue: merged,
		Keywords: generated.Keywords,
	})
	if err != nil {
		return nil, err
	}

	return &task.Result{
		Topic:    topic,
		Dialogue: merged,
		Keywords: generated.Keywords,
		Filename: saved.Filename,
		URL:      saved.URL,
	}, nil
}

// merge attaches audio to lines in their original order. Phonetic hints
// only guide synthesis and are not carried into the result.
func merge(lines []dialogue.Line, outcomes []tts.Outcome) []dialogue.Line {
	return lo.Map(lines, func(line dialogue.Line, i int) dialogue.Line {
		line.Phonetic = ""
		line.AudioURL = ""
		if outcomes[i].Success {
			line.AudioURL = outcomes[i].AudioURL
		}
		return line
	})
}

// lineProgress is the progress after line i of n has been synthesized.
func lineProgress(i, n int) int {
	return progressGenerated + int(math.Round(float64(progressSynthesis*(i+1))/float64(n)))
}

// update writes to the registry even when the job context is done, so that
// a timed out job can still be marked failed.
func (p *Pipeline) update(ctx context.Context, id string, status task.Status, opts ...task.UpdateOption) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return p.registry.Update(ctx, id, status, opts...)
}

func (p *Pipeline) fail(ctx context.Context, job Job, msg string) {
	if err := p.update(ctx, job.TaskID, task.StatusFailed, task.WithError(msg)); err != nil {
		slog.Error("failed to mark task failed", slog.String("task", job.TaskID), slog.Any("err", err))
	}
}
