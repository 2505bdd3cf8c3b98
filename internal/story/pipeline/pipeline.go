package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/raushan95a/HeartTales/internal/domain/story"
	"github.com/raushan95a/HeartTales/internal/generation"
)

// Backends are the three generation services the pipeline orchestrates.
type Backends struct {
	Text   generation.TextGenerator
	Image  generation.ImageGenerator
	Speech generation.SpeechSynthesizer
}

// Progress is a snapshot of how far generation has come, 0-100, with a
// human-readable status label.
type Progress struct {
	Percent float64
	Status  string
}

type Config struct {
	// AudioDelay is the pause inserted between consecutive speech requests
	// after the first, to stay under backend rate limits. Defaults to 1s.
	AudioDelay time.Duration
	OnProgress func(Progress)
	Logger     *logrus.Entry
}

// Generator assembles a full story from a prompt: text first, then one
// image per scene, then one audio clip per dialogue line. Only the text
// stage is fatal; image and audio failures degrade per item.
type Generator struct {
	backends   Backends
	audioDelay time.Duration
	onProgress func(Progress)
	log        *logrus.Entry

	mu      sync.Mutex
	percent float64
}

func New(backends Backends, cfg Config) *Generator {
	if cfg.AudioDelay == 0 {
		cfg.AudioDelay = time.Second
	}
	if cfg.OnProgress == nil {
		cfg.OnProgress = func(Progress) {}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Generator{
		backends:   backends,
		audioDelay: cfg.AudioDelay,
		onProgress: cfg.OnProgress,
		log:        cfg.Logger,
	}
}

// report moves the progress bar to at least pct. Progress never goes
// backwards, no matter how stage updates interleave. The callback runs
// under the lock so observers see values in order.
func (g *Generator) report(pct float64, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pct > g.percent {
		g.percent = pct
	}
	g.onProgress(Progress{Percent: g.percent, Status: status})
}

// add bumps progress by delta, capped at max.
func (g *Generator) add(delta, max float64, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.percent += delta
	if g.percent > max {
		g.percent = max
	}
	g.onProgress(Progress{Percent: g.percent, Status: status})
}

// Generate runs the full pipeline. The profile and characters are embedded
// into the returned story as snapshots. An empty character list is a valid
// solo-protagonist story; input validation is the caller's job.
func (g *Generator) Generate(ctx context.Context, profile story.UserProfile, characters []story.Character, prompt string) (*story.Story, error) {
	g.mu.Lock()
	g.percent = 0
	g.mu.Unlock()

	// Stage 1: story text. The only fatal stage; downstream work needs the
	// full scene list.
	g.report(5, "Weaving the story text...")
	draft, err := g.backends.Text.GenerateStoryText(ctx, generation.StoryContext{
		Profile:    profile,
		Characters: characters,
		Prompt:     prompt,
	})
	if err != nil {
		return nil, err
	}

	scenes := make([]story.Scene, len(draft.Scenes))
	for i, sd := range draft.Scenes {
		dialogue := make([]story.Dialogue, len(sd.Dialogue))
		for j, dd := range sd.Dialogue {
			ref := story.ResolveSpeaker(dd.Speaker, characters, profile)
			dialogue[j] = story.Dialogue{Speaker: dd.Speaker, Text: dd.Text, Ref: &ref}
		}
		scenes[i] = story.Scene{
			ID:                "scene-" + uuid.NewString(),
			VisualDescription: sd.VisualDescription,
			Narration:         sd.Narration,
			Dialogue:          dialogue,
		}
	}

	g.report(25, "Story written! Now sketching the scenes...")

	// Stage 2: one image per scene, requested jointly. A failed image
	// leaves the scene without one and never aborts the run.
	var wg sync.WaitGroup
	var sceneMu sync.Mutex
	perScene := 40.0 / float64(len(scenes))
	for i := range scenes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			url, err := g.backends.Image.GenerateImage(ctx, scenes[i].VisualDescription)
			if err != nil {
				g.log.WithError(err).WithField("scene", scenes[i].ID).Warn("scene image generation failed")
			} else {
				sceneMu.Lock()
				scenes[i].ImageURL = url
				sceneMu.Unlock()
			}
			g.add(perScene, 65, "Story written! Now sketching the scenes...")
		}(i)
	}
	wg.Wait()

	g.report(70, "Scenes drawn! Now recording voice actors...")

	// Stage 3: audio, strictly sequential in scene-then-line order with a
	// fixed delay between requests. Failures leave the line silent.
	type task struct {
		scene, line int
	}
	var tasks []task
	for i := range scenes {
		for j := range scenes[i].Dialogue {
			tasks = append(tasks, task{i, j})
		}
	}

	for n, tk := range tasks {
		if n > 0 {
			select {
			case <-time.After(g.audioDelay):
			case <-ctx.Done():
			}
		}

		d := &scenes[tk.scene].Dialogue[tk.line]
		audio, err := g.backends.Speech.GenerateSpeechAudio(ctx, d.Text, d.Ref.Voice)
		if err != nil {
			g.log.WithError(err).WithField("speaker", d.Speaker).Warn("dialogue audio generation failed")
		} else {
			d.AudioData = audio
		}
		pct := 70 + float64(n+1)/float64(len(tasks))*25
		g.report(pct, "Scenes drawn! Now recording voice actors...")
	}

	g.report(100, "Finalizing your book...")

	chars := make([]story.Character, len(characters))
	copy(chars, characters)

	return &story.Story{
		ID:          uuid.NewString(),
		Title:       draft.Title,
		Synopsis:    draft.Synopsis,
		CreatedAt:   time.Now(),
		UserProfile: profile,
		Characters:  chars,
		Scenes:      scenes,
	}, nil
}
