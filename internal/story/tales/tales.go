// Package tales wires the application together: persisted roster, profile
// and stories, the generation backends and the interactive commands.
package tales

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/raushan95a/HeartTales/internal/cli/scheme/colours"
	"github.com/raushan95a/HeartTales/internal/domain/story"
	"github.com/raushan95a/HeartTales/internal/generation"
	"github.com/raushan95a/HeartTales/internal/store"
	"github.com/raushan95a/HeartTales/internal/story/call"
	"github.com/raushan95a/HeartTales/internal/story/pipeline"
	"github.com/raushan95a/HeartTales/internal/story/playback"
	"github.com/raushan95a/HeartTales/internal/story/speech"
)

// Tales is the main application structure.
type Tales struct {
	store      *store.Store
	characters []story.Character
	stories    []story.Story
	profile    story.UserProfile
	hasProfile bool

	ai *generation.Client

	ctx    context.Context
	Cancel context.CancelFunc
}

func NewTales() *Tales {
	dir := viper.GetString("data.dir")
	if dir == "" {
		dir = store.DefaultDir()
	}

	st, err := store.New(dir)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open data directory")
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Tales{
		store:  st,
		ctx:    ctx,
		Cancel: cancel,
	}

	if _, err := st.Load(store.KeyCharacters, &t.characters); err != nil {
		logrus.WithError(err).Warn("could not load characters")
	}
	if _, err := st.Load(store.KeyStories, &t.stories); err != nil {
		logrus.WithError(err).Warn("could not load stories")
	}
	if ok, err := st.Load(store.KeyProfile, &t.profile); err != nil {
		logrus.WithError(err).Warn("could not load profile")
	} else {
		t.hasProfile = ok
	}

	return t
}

// aiClient builds the generation client on first use, so commands that
// never talk to a backend work without an API key.
func (t *Tales) aiClient() (*generation.Client, error) {
	if t.ai != nil {
		return t.ai, nil
	}
	client, err := generation.NewClient(generation.ClientConfig{
		APIKey:     viper.GetString("ai.api_key"),
		BaseURL:    viper.GetString("ai.base_url"),
		TextModel:  viper.GetString("ai.text_model"),
		ChatModel:  viper.GetString("ai.chat_model"),
		ImageModel: viper.GetString("ai.image_model"),
	})
	if err != nil {
		return nil, err
	}
	t.ai = client
	return client, nil
}

func (t *Tales) ShowWelcome() {
	fmt.Println()
	colours.Title.Println("💖 Welcome to HeartTales! 💖")
	fmt.Println()
	colours.Info.Println("📚 Available commands:")
	fmt.Println("  • hearttales characters - Manage your character roster")
	fmt.Println("  • hearttales profile    - Show or edit your profile")
	fmt.Println("  • hearttales create     - Generate a new comic story")
	fmt.Println("  • hearttales stories    - List your stories")
	fmt.Println("  • hearttales read       - Read a story aloud")
	fmt.Println("  • hearttales call       - Call one of your characters")
	fmt.Println()
	colours.Prompt.Println("✨ Ready to star in your own story? ✨")
}

func (t *Tales) ListCharacters(cmd *cobra.Command, args []string) {
	fmt.Println()
	colours.Title.Println("👥 Your Characters 👥")
	fmt.Println()

	if len(t.characters) == 0 {
		colours.Warning.Println("🔍 No characters yet.")
		colours.Info.Println("💡 Add one with: hearttales characters add <name>")
		return
	}

	for i, c := range t.characters {
		fmt.Printf("  %d. ", i+1)
		colours.Avatar(c.AvatarColor).Printf("%s", c.Name)
		fmt.Printf(" (%s, %s)\n", c.Relation, c.Gender)
		if c.Traits != "" {
			fmt.Printf("     🎭 %s\n", c.Traits)
		}
		if c.Description != "" {
			fmt.Printf("     💡 %s\n", c.Description)
		}
		colours.Info.Printf("     🎤 Voice: %s | ID: %s\n", c.Voice, c.ID)
		fmt.Println()
	}

	colours.Success.Printf("✨ %d characters in your roster\n", len(t.characters))
}

func (t *Tales) AddCharacter(cmd *cobra.Command, args []string) {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		colours.Error.Println("❌ A character needs a name! Try: hearttales characters add <name>")
		return
	}

	for _, c := range t.characters {
		if strings.EqualFold(c.Name, name) {
			colours.Error.Printf("❌ You already have a character named '%s'!\n", c.Name)
			return
		}
	}

	gender, _ := cmd.Flags().GetString("gender")
	relation, _ := cmd.Flags().GetString("relation")
	traits, _ := cmd.Flags().GetString("traits")
	description, _ := cmd.Flags().GetString("description")
	colorToken, _ := cmd.Flags().GetString("color")
	voice, _ := cmd.Flags().GetString("voice")

	g, ok := parseGender(gender)
	if !ok {
		colours.Error.Printf("❌ Unknown gender '%s' (use Male or Female)\n", gender)
		return
	}

	if colorToken == "" {
		colorToken = story.AvatarColors[rand.Intn(len(story.AvatarColors))]
	}
	if voice == "" {
		if g == story.GenderFemale {
			voice = "Kore"
		} else {
			voice = "Puck"
		}
	} else if !validVoice(voice) {
		colours.Error.Printf("❌ Unknown voice '%s' (options: %s)\n", voice, strings.Join(story.VoiceOptions, ", "))
		return
	}

	c := story.Character{
		ID:          uuid.NewString(),
		Name:        name,
		Gender:      g,
		Relation:    relation,
		Traits:      traits,
		Description: description,
		AvatarColor: colorToken,
		Voice:       voice,
	}

	t.characters = append(t.characters, c)
	if err := t.store.Save(store.KeyCharacters, t.characters); err != nil {
		colours.Error.Printf("❌ Failed to save: %v\n", err)
		return
	}

	colours.Success.Printf("✅ Added ")
	colours.Avatar(c.AvatarColor).Printf("%s", c.Name)
	colours.Success.Printf(" to your roster! 🎉\n")
}

func (t *Tales) RemoveCharacter(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		colours.Error.Println("❌ Who should go? Try: hearttales characters remove <name>")
		return
	}
	target := strings.Join(args, " ")

	for i, c := range t.characters {
		if strings.EqualFold(c.Name, target) || c.ID == target {
			t.characters = append(t.characters[:i], t.characters[i+1:]...)
			if err := t.store.Save(store.KeyCharacters, t.characters); err != nil {
				colours.Error.Printf("❌ Failed to save: %v\n", err)
				return
			}
			// Stories keep their own character snapshots, so nothing
			// else needs touching.
			colours.Success.Printf("👋 %s left the roster.\n", c.Name)
			return
		}
	}

	colours.Error.Printf("❌ No character named '%s' found!\n", target)
}

func (t *Tales) ShowProfile(cmd *cobra.Command, args []string) {
	fmt.Println()
	colours.Title.Println("🧑 Your Profile 🧑")
	fmt.Println()

	if !t.hasProfile {
		colours.Warning.Println("🔍 No profile yet.")
		colours.Info.Println("💡 Create one with: hearttales profile set --name <you> --gender <Male|Female>")
		return
	}

	fmt.Printf("  Name:        %s\n", t.profile.Name)
	fmt.Printf("  Gender:      %s\n", t.profile.Gender)
	fmt.Printf("  Description: %s\n", t.profile.Description)
	fmt.Printf("  Voice:       %s\n", t.profile.Voice)
}

func (t *Tales) SetProfile(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("name")
	gender, _ := cmd.Flags().GetString("gender")
	description, _ := cmd.Flags().GetString("description")
	voice, _ := cmd.Flags().GetString("voice")

	if name != "" {
		t.profile.Name = name
	}
	if gender != "" {
		g, ok := parseGender(gender)
		if !ok {
			colours.Error.Printf("❌ Unknown gender '%s' (use Male or Female)\n", gender)
			return
		}
		t.profile.Gender = g
	}
	if description != "" {
		t.profile.Description = description
	}
	if voice != "" {
		if !validVoice(voice) {
			colours.Error.Printf("❌ Unknown voice '%s' (options: %s)\n", voice, strings.Join(story.VoiceOptions, ", "))
			return
		}
		t.profile.Voice = voice
	}

	if t.profile.Name == "" || t.profile.Gender == "" {
		colours.Error.Println("❌ A profile needs at least a name and a gender!")
		return
	}
	if t.profile.Voice == "" {
		t.profile.Voice = story.DefaultVoice
	}

	t.hasProfile = true
	if err := t.store.Save(store.KeyProfile, t.profile); err != nil {
		colours.Error.Printf("❌ Failed to save: %v\n", err)
		return
	}
	colours.Success.Printf("✅ Profile saved. Hello, %s! 👋\n", t.profile.Name)
}

func (t *Tales) CreateStory(cmd *cobra.Command, args []string) {
	if !t.hasProfile || t.profile.Name == "" || t.profile.Gender == "" {
		colours.Error.Println("❌ Set up your profile first: hearttales profile set --name <you> --gender <Male|Female>")
		return
	}

	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		colours.Prompt.Print("💭 What should the story be about? ")
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		prompt = strings.TrimSpace(input)
	}
	if prompt == "" {
		colours.Error.Println("❌ Every story needs an idea!")
		return
	}

	cast, err := t.pickCast(cmd)
	if err != nil {
		colours.Error.Printf("❌ %v\n", err)
		return
	}
	if len(cast) == 0 {
		colours.Info.Println("🎭 No co-stars selected, this will be a solo adventure.")
	}

	client, err := t.aiClient()
	if err != nil {
		colours.Error.Printf("❌ %v\n", err)
		return
	}

	synth, err := generation.NewSynthesizer(t.ctx, viper.GetString("tts.type"), client)
	if err != nil {
		colours.Error.Printf("❌ %v\n", err)
		return
	}

	gen := pipeline.New(pipeline.Backends{
		Text:   client,
		Image:  client,
		Speech: synth,
	}, pipeline.Config{
		AudioDelay: time.Duration(viper.GetInt("pipeline.audio_delay_ms")) * time.Millisecond,
		OnProgress: func(p pipeline.Progress) {
			fmt.Printf("\r\033[K[%3.0f%%] %s", p.Percent, p.Status)
		},
		Logger: logrus.WithField("command", "create"),
	})

	fmt.Println()
	colours.Title.Println("📝 Creating your story... 📝")

	st, err := gen.Generate(t.ctx, t.profile, cast, prompt)
	fmt.Println()
	if err != nil {
		colours.Error.Printf("❌ Story generation failed: %v\n", err)
		return
	}

	t.stories = append(t.stories, *st)
	if err := t.store.Save(store.KeyStories, t.stories); err != nil {
		colours.Error.Printf("❌ Failed to save story: %v\n", err)
		return
	}

	fmt.Println()
	colours.Success.Println("🎉 Your story is ready! 🎉")
	colours.Title.Printf("📖 %s\n", st.Title)
	fmt.Printf("💡 %s\n", st.Synopsis)
	colours.Info.Printf("   %d scenes | ID: %s\n", len(st.Scenes), st.ID)
	colours.Prompt.Printf("🎧 Read it aloud with: hearttales read %s\n", st.ID)
}

// pickCast resolves the --characters flag into roster snapshots. Without
// the flag the whole roster stars in the story.
func (t *Tales) pickCast(cmd *cobra.Command) ([]story.Character, error) {
	names, _ := cmd.Flags().GetString("characters")
	if names == "" {
		cast := make([]story.Character, len(t.characters))
		copy(cast, t.characters)
		return cast, nil
	}

	var cast []story.Character
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		found := false
		for _, c := range t.characters {
			if strings.EqualFold(c.Name, name) {
				cast = append(cast, c)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("no character named '%s' in your roster", name)
		}
	}
	return cast, nil
}

func (t *Tales) ListStories(cmd *cobra.Command, args []string) {
	fmt.Println()
	colours.Title.Println("📚 Your Stories 📚")
	fmt.Println()

	if len(t.stories) == 0 {
		colours.Warning.Println("🔍 No stories yet.")
		colours.Info.Println("💡 Create one with: hearttales create <idea>")
		return
	}

	for i, st := range t.stories {
		fmt.Printf("  %d. ", i+1)
		colours.Title.Printf("%s", st.Title)
		fmt.Printf(" (%s)\n", st.CreatedAt.Format("2006-01-02"))
		fmt.Printf("     💡 %s\n", st.Synopsis)
		colours.Info.Printf("     ID: %s\n", st.ID)
		fmt.Println()
	}

	colours.Success.Printf("✨ %d stories on your shelf\n", len(t.stories))
}

func (t *Tales) ReadStory(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		colours.Error.Println("❌ Which story? Try: hearttales read <id-or-number>")
		return
	}

	st := t.findStory(args[0])
	if st == nil {
		colours.Error.Printf("❌ Story '%s' not found!\n", args[0])
		return
	}

	t.backfillImages(st)

	fmt.Println()
	colours.Title.Printf("📖 %s\n", st.Title)
	fmt.Printf("💡 %s\n", st.Synopsis)
	fmt.Println()

	for i, scene := range st.Scenes {
		colours.Title.Printf("── Scene %d ──\n", i+1)
		if scene.ImageURL != "" {
			colours.Info.Printf("🖼️  %s\n", scene.VisualDescription)
		} else {
			colours.Warning.Printf("🖼️  (no artwork) %s\n", scene.VisualDescription)
		}
		if scene.Narration != "" {
			colours.Narration.Printf("   %s\n", scene.Narration)
		}
		for _, d := range scene.Dialogue {
			t.speakerPrinter(st, d).Printf("   %s: ", d.Speaker)
			fmt.Println(d.Text)
		}
		fmt.Println()
	}

	noPlay, _ := cmd.Flags().GetBool("no-play")
	if noPlay {
		return
	}

	colours.Prompt.Print("🎧 Press Enter to hear the dialogue (or 'skip'): ")
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	if strings.EqualFold(strings.TrimSpace(input), "skip") {
		return
	}

	t.playStory(st)
}

// backfillImages restores artwork for stories saved before images were
// generated eagerly. Failures leave scenes as they are.
func (t *Tales) backfillImages(st *story.Story) {
	var missing []int
	for i, scene := range st.Scenes {
		if scene.ImageURL == "" {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return
	}

	client, err := t.aiClient()
	if err != nil {
		logrus.WithError(err).Debug("no image backend for backfill")
		return
	}

	colours.Info.Printf("🎨 Restoring artwork for %d scenes...\n", len(missing))
	restored := 0
	for _, i := range missing {
		url, err := client.GenerateImage(t.ctx, st.Scenes[i].VisualDescription)
		if err != nil {
			logrus.WithError(err).WithField("scene", st.Scenes[i].ID).Warn("artwork backfill failed")
			continue
		}
		st.Scenes[i].ImageURL = url
		restored++
	}

	if restored > 0 {
		if err := t.store.Save(store.KeyStories, t.stories); err != nil {
			logrus.WithError(err).Warn("could not persist restored artwork")
		}
	}
}

func (t *Tales) playStory(st *story.Story) {
	client, err := t.aiClient()
	if err != nil {
		colours.Error.Printf("❌ %v\n", err)
		return
	}
	synth, err := generation.NewSynthesizer(t.ctx, viper.GetString("tts.type"), client)
	if err != nil {
		colours.Error.Printf("❌ %v\n", err)
		return
	}

	seq := playback.NewSequencer(synth, playback.NewBeepPlayer(), playback.Config{
		Gap: time.Duration(viper.GetInt("playback.gap_ms")) * time.Millisecond,
		OnFocus: func(item playback.Item) {
			colours.Speaker.Printf("🔊 %s: ", item.Speaker)
			fmt.Println(item.Text)
		},
		Logger: logrus.WithField("story", st.ID),
	})

	fmt.Println()
	colours.Success.Println("🎵 Playing dialogue... 🎵")
	fmt.Println("💡 Press Ctrl+C to stop anytime")
	fmt.Println()

	if err := seq.PlayAll(t.ctx, playbackItems(st)); err != nil && t.ctx.Err() == nil {
		colours.Error.Printf("❌ Playback error: %v\n", err)
		return
	}
	colours.Success.Println("✅ The end! 🌟")
}

// playbackItems flattens a story into the sequencer's playlist. Lines from
// before speaker refs existed fall back to name matching.
func playbackItems(st *story.Story) []playback.Item {
	var items []playback.Item
	for _, scene := range st.Scenes {
		for j, d := range scene.Dialogue {
			voice := story.DetermineVoice(d.Speaker, st.Characters, st.UserProfile)
			if d.Ref != nil {
				voice = d.Ref.Voice
			}
			items = append(items, playback.Item{
				Key:     fmt.Sprintf("%s/%d", scene.ID, j),
				Text:    d.Text,
				Speaker: d.Speaker,
				Voice:   voice,
				Audio:   d.AudioData,
			})
		}
	}
	return items
}

// speakerPrinter picks the colour for a dialogue speaker, matching the
// avatar colour of the character who says the line.
func (t *Tales) speakerPrinter(st *story.Story, d story.Dialogue) *color.Color {
	if d.Ref != nil && d.Ref.Kind == story.SpeakerCharacter {
		for _, c := range st.Characters {
			if c.ID == d.Ref.CharacterID {
				return colours.Avatar(c.AvatarColor)
			}
		}
	}
	return colours.Speaker
}

func (t *Tales) CallCharacter(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		colours.Error.Println("❌ Who do you want to call? Try: hearttales call <name>")
		return
	}
	target := strings.Join(args, " ")

	var character *story.Character
	for i := range t.characters {
		if strings.EqualFold(t.characters[i].Name, target) {
			character = &t.characters[i]
			break
		}
	}
	if character == nil {
		colours.Error.Printf("❌ No character named '%s' in your roster!\n", target)
		return
	}
	if !t.hasProfile {
		colours.Error.Println("❌ Set up your profile first: hearttales profile set --name <you> --gender <Male|Female>")
		return
	}

	client, err := t.aiClient()
	if err != nil {
		colours.Error.Printf("❌ %v\n", err)
		return
	}

	spk, err := speech.NewSpeaker(viper.GetString("speech.engine"))
	if err != nil {
		logrus.WithError(err).Warn("no speech engine, the call will be text only")
		spk = speech.NewMockSpeaker()
	}

	var recognizer speech.Recognizer
	if mic, err := speech.NewMicRecognizer(client); err == nil {
		recognizer = mic
	} else {
		colours.Info.Println("🎙️  Voice input unavailable, type your messages instead.")
	}

	session := call.NewSession(*character, t.profile, client, recognizer, spk, call.Config{
		OnMessage: func(msg story.ChatMessage) {
			if msg.Role == story.RoleCharacter {
				fmt.Println()
				colours.Avatar(character.AvatarColor).Printf("%s: ", character.Name)
				fmt.Println(msg.Text)
			}
		},
		OnState: func(state call.State) {
			switch state {
			case call.StateConnecting:
				colours.Info.Printf("📞 Calling %s...\n", character.Name)
			case call.StateActive:
				colours.Success.Println("📞 Connected!")
			}
		},
	})

	if err := session.Start(t.ctx); err != nil {
		colours.Error.Printf("❌ %v\n", err)
		return
	}
	defer session.End()

	colours.Info.Println("💡 Type to talk. Commands: /listen /mute /unmute /bye")

	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-t.ctx.Done():
			return
		default:
		}

		input, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		input = strings.TrimSpace(input)

		switch strings.ToLower(input) {
		case "/bye", "/quit":
			session.End()
			colours.Success.Printf("📞 Call ended after %s. 👋\n", session.Duration().Round(time.Second))
			return
		case "/mute":
			session.SetSpeakerOn(false)
			colours.Warning.Println("🔇 Speaker muted")
		case "/unmute":
			session.SetSpeakerOn(true)
			colours.Success.Println("🔊 Speaker on")
		case "/listen":
			if err := session.StartListening(t.ctx); err != nil {
				colours.Error.Printf("❌ %v\n", err)
			} else {
				colours.Info.Println("🎙️  Listening... press Enter on /stop to finish")
			}
		case "/stop":
			session.StopListening()
		case "":
			continue
		default:
			session.Submit(t.ctx, input)
		}
	}
}

func (t *Tales) findStory(idOrNumber string) *story.Story {
	for i := range t.stories {
		if t.stories[i].ID == idOrNumber {
			return &t.stories[i]
		}
	}
	if n, err := strconv.Atoi(idOrNumber); err == nil && n >= 1 && n <= len(t.stories) {
		return &t.stories[n-1]
	}
	return nil
}

func parseGender(s string) (story.Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return story.GenderMale, true
	case "female", "f":
		return story.GenderFemale, true
	}
	return "", false
}

func validVoice(voice string) bool {
	for _, v := range story.VoiceOptions {
		if v == voice {
			return true
		}
	}
	return false
}
