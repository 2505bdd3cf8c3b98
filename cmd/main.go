package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/raushan95a/HeartTales/internal/cli/scheme/colours"
	"github.com/raushan95a/HeartTales/internal/config"
	"github.com/raushan95a/HeartTales/internal/story/tales"
)

func main() {

	config.SetDefaults()

	app := tales.NewTales()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		app.Cancel()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! See you in the next story! 💖"))
		os.Exit(0)
	}()

	rootCmd := &cobra.Command{
		Use:   "hearttales",
		Short: "💖 Comic stories starring you and yours",
		Long: `
┌─────────────────────────────────────┐
│  💖 Welcome to HeartTales! 📖      │
│  Comic stories starring you and     │
│  the people you love ✨            │
└─────────────────────────────────────┘

HeartTales turns your friends and family into comic book characters,
generates short illustrated stories about them, reads the dialogue
aloud, and even lets you call them for a chat.
		`,
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
	}

	// Characters command group
	charactersCmd := &cobra.Command{
		Use:   "characters",
		Short: "👥 Manage your character roster",
		Long:  "List, add or remove the characters who star in your stories",
		Run:   app.ListCharacters,
	}

	listCharactersCmd := &cobra.Command{
		Use:   "list",
		Short: "📋 List your characters",
		Run:   app.ListCharacters,
	}

	addCharacterCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "➕ Add a character",
		Long:  "Add a new character to your roster",
		Run:   app.AddCharacter,
	}

	removeCharacterCmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "➖ Remove a character",
		Long:  "Remove a character from your roster. Existing stories keep their copy.",
		Run:   app.RemoveCharacter,
	}

	charactersCmd.AddCommand(listCharactersCmd, addCharacterCmd, removeCharacterCmd)

	// Profile command group
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "🧑 Show or edit your profile",
		Long:  "Your profile is the main protagonist of every story",
		Run:   app.ShowProfile,
	}

	showProfileCmd := &cobra.Command{
		Use:   "show",
		Short: "👀 Show your profile",
		Run:   app.ShowProfile,
	}

	setProfileCmd := &cobra.Command{
		Use:   "set",
		Short: "✏️ Edit your profile",
		Run:   app.SetProfile,
	}

	profileCmd.AddCommand(showProfileCmd, setProfileCmd)

	// Create command
	createCmd := &cobra.Command{
		Use:   "create [idea]",
		Short: "✨ Generate a new comic story",
		Long:  "Generate a three-scene illustrated and voiced story from your idea",
		Run:   app.CreateStory,
	}

	// Stories command
	storiesCmd := &cobra.Command{
		Use:   "stories",
		Short: "📚 List your stories",
		Long:  "Display all stories on your shelf",
		Run:   app.ListStories,
	}

	// Read command
	readCmd := &cobra.Command{
		Use:   "read <id-or-number>",
		Short: "📖 Read a story",
		Long:  "Display a story scene by scene and play its dialogue aloud",
		Run:   app.ReadStory,
	}

	// Call command
	callCmd := &cobra.Command{
		Use:   "call <name>",
		Short: "📞 Call one of your characters",
		Long:  "Start a simulated voice call with a character from your roster",
		Run:   app.CallCharacter,
	}

	// Add flags
	addCharacterCmd.Flags().StringP("gender", "g", "", "Male or Female (required)")
	addCharacterCmd.Flags().StringP("relation", "r", "Friend", "Relationship to you")
	addCharacterCmd.Flags().StringP("traits", "t", "", "Personality traits")
	addCharacterCmd.Flags().StringP("description", "d", "", "Appearance and backstory")
	addCharacterCmd.Flags().StringP("color", "c", "", "Avatar colour")
	addCharacterCmd.Flags().StringP("voice", "v", "", "Synthesis voice")

	setProfileCmd.Flags().StringP("name", "n", "", "Your name")
	setProfileCmd.Flags().StringP("gender", "g", "", "Male or Female")
	setProfileCmd.Flags().StringP("description", "d", "", "How stories should picture you")
	setProfileCmd.Flags().StringP("voice", "v", "", "Synthesis voice for your lines")

	createCmd.Flags().StringP("characters", "c", "", "Comma separated co-stars (default: whole roster)")

	readCmd.Flags().Bool("no-play", false, "Skip audio playback")

	rootCmd.AddCommand(charactersCmd, profileCmd, createCmd, storiesCmd, readCmd, callCmd)

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

// Configuration management with Viper
func init() {
	viper.SetConfigName("hearttales")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.hearttales")
	viper.AddConfigPath(".")

	viper.ReadInConfig()
}
