package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/mafia-server/internal/config"
	"github.com/dom/mafia-server/internal/domain"
	"github.com/dom/mafia-server/internal/logger"
	"github.com/dom/mafia-server/internal/session"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global settings
	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	env := &environment{
		api: NewAPIClient(apiURL),
		client: config.ClientConfig{
			ReconnectAttempts: 3,
			ReconnectDelay:    2 * time.Second,
			EmitTimeout:       5 * time.Second,
		},
		log: zap.NewNop(),
	}
	if os.Getenv("SIMULATOR_VERBOSE") != "" {
		zl, err := logger.New(config.LogConfig{Level: "debug", Format: "console", Output: "stdout"})
		if err == nil {
			env.log = zl
		}
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "full":
		fullCmd(env, args)
	case "populate":
		populateCmd(env, args)
	case "history":
		historyCmd(env, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Game Simulator - Development tool for exercising Mafia rooms

USAGE:
  simulator <command> [options]

COMMANDS:
  full      Create a room, fill it with bots and play a game to the end
  populate  Add bots to an existing room; they ready up and play along
  history   List archived games for a room code
  help      Show this help message

ENVIRONMENT:
  API_URL            Backend API URL (default: http://localhost:8080)
  SIMULATOR_VERBOSE  Log session activity when set

EXAMPLES:
  # Play a full 7-player game, advancing phases every 500ms
  simulator full --players=7 --pace=500ms

  # Create a 10-seat room with 9 bots, leaving 1 seat for you
  simulator full --players=9 --max=10 --wait

  # Add 5 bots to an existing room
  simulator populate --room=ABC123 --count=5

  # Show the last games played in a room
  simulator history --room=ABC123`)
}

type environment struct {
	api    *APIClient
	client config.ClientConfig
	log    *zap.Logger
}

func (env *environment) newBot(name string) (*Bot, error) {
	guest, err := env.api.Guest(name)
	if err != nil {
		return nil, err
	}
	opts := session.OptionsFromConfig(env.api.WebSocketURL(), guest.AccessToken, env.client)
	return NewBot(guest.User.ID, name, opts, env.log), nil
}

func (env *environment) token(name string) string {
	guest, err := env.api.Guest(name)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return guest.AccessToken
}

// settingsFor deals roughly one mafioso per four seats; villagers fill the rest.
func settingsFor(maxPlayers int) domain.Settings {
	mafia := maxPlayers / 4
	if mafia < 1 {
		mafia = 1
	}
	return domain.Settings{
		MaxPlayers: maxPlayers,
		Roles:      domain.RoleCounts{Mafia: mafia, Detective: 1, Doctor: 1},
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func fullCmd(env *environment, args []string) {
	fs := flag.NewFlagSet("full", flag.ExitOnError)
	players := fs.Int("players", 7, "Number of bots to create")
	maxPlayers := fs.Int("max", 0, "Room capacity (defaults to --players)")
	pace := fs.Duration("pace", time.Second, "How long the host waits before advancing each phase")
	wait := fs.Bool("wait", false, "Leave the room open for real players instead of starting")
	fs.Parse(args)

	if *maxPlayers == 0 {
		*maxPlayers = *players
	}
	if *players < 1 || *players > *maxPlayers || *maxPlayers > domain.MaxMaxPlayers {
		fmt.Printf("Error: --players must be between 1 and --max (at most %d)\n", domain.MaxMaxPlayers)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Println("=== Game Simulator: Full Flow ===")
	fmt.Println()

	bots := make([]*Bot, 0, *players)
	defer func() {
		for _, b := range bots {
			b.Close()
		}
	}()

	fmt.Print("Connecting host and creating room... ")
	host, err := env.newBot("Host")
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	host.pace = *pace
	bots = append(bots, host)
	if err := host.Connect(ctx); err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	room, err := host.Create(ctx, settingsFor(*maxPlayers))
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK (code: %s)\n", room.Code)

	fmt.Println()
	fmt.Printf("Adding %d players to room:\n", *players-1)
	for i := 1; i < *players; i++ {
		name := fmt.Sprintf("Player%d", i)
		b, err := env.newBot(name)
		if err == nil {
			err = b.Connect(ctx)
		}
		if err == nil {
			err = b.Join(ctx, room.Code)
		}
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED: %v\n", i+1, *players, err)
			os.Exit(1)
		}
		bots = append(bots, b)
		fmt.Printf("  [%d/%d] %s joined\n", i+1, *players, name)
	}

	fmt.Println()
	fmt.Print("Setting all players ready... ")
	for _, b := range bots {
		if err := b.Ready(ctx); err != nil {
			fmt.Printf("FAILED\n  Error: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Println("OK")

	if *wait {
		fmt.Println()
		fmt.Println("=========================================")
		fmt.Printf("  ROOM WAITING FOR %d MORE PLAYER(S)\n", *maxPlayers-*players)
		fmt.Println("=========================================")
		fmt.Println()
		fmt.Printf("  Room code: %s\n", room.Code)
		fmt.Println()
		fmt.Println("  The bots are ready and will play once the game starts.")
		fmt.Println("  Press Ctrl+C to disconnect them.")
		<-ctx.Done()
		return
	}

	fmt.Print("Starting game... ")
	if err := host.Start(ctx); err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")

	report(ctx, host, bots)
}

func populateCmd(env *environment, args []string) {
	fs := flag.NewFlagSet("populate", flag.ExitOnError)
	code := fs.String("room", "", "Room code (required)")
	count := fs.Int("count", 5, "Number of bots to add")
	fs.Parse(args)

	if *code == "" {
		fmt.Println("Error: --room is required")
		fmt.Println("\nUsage: simulator populate --room=ABC123 [--count=5]")
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("Adding %d bots to room %s...\n\n", *count, *code)

	var bots []*Bot
	defer func() {
		for _, b := range bots {
			b.Close()
		}
	}()
	for i := 0; i < *count; i++ {
		name := fmt.Sprintf("Bot%d", i+1)
		b, err := env.newBot(name)
		if err == nil {
			err = b.Connect(ctx)
		}
		if err == nil {
			err = b.Join(ctx, *code)
		}
		if err == nil {
			err = b.Ready(ctx)
		}
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED: %v\n", i+1, *count, err)
			if b != nil {
				b.Close()
			}
			continue
		}
		bots = append(bots, b)
		fmt.Printf("  [%d/%d] %s joined and is ready\n", i+1, *count, name)
	}
	if len(bots) == 0 {
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Bots will play once the host starts the game. Press Ctrl+C to stop.")
	report(ctx, bots[0], bots)
}

func historyCmd(env *environment, args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	code := fs.String("room", "", "Room code (required)")
	limit := fs.Int("limit", 10, "Number of games to show")
	fs.Parse(args)

	if *code == "" {
		fmt.Println("Error: --room is required")
		fmt.Println("\nUsage: simulator history --room=ABC123")
		os.Exit(1)
	}

	records, err := env.api.ListGames(env.token("Historian"), *code, *limit)
	if err != nil {
		fmt.Printf("Failed to list games: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Printf("No archived games for room %s\n", *code)
		return
	}

	fmt.Printf("Games played in room %s:\n\n", *code)
	for _, r := range records {
		fmt.Printf("  %s  %-9s  %d round(s)  %s\n", r.EndedAt.Format(time.RFC3339), r.Winner, r.Rounds, r.ID)
	}
}

// report waits for watcher's game to end and prints the outcome.
func report(ctx context.Context, watcher *Bot, bots []*Bot) {
	result, err := watcher.Wait(ctx)
	if err != nil {
		fmt.Printf("\nGame did not finish: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("=========================================")
	fmt.Printf("  GAME OVER: %s WIN\n", result.Winner)
	fmt.Println("=========================================")
	fmt.Println()
	for _, b := range bots {
		fmt.Printf("  %-10s %s\n", b.Name, result.Roles[b.ID])
	}
	fmt.Println()
}
