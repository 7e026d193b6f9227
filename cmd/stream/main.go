package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kasuwa/searchstream/internal/adapters/positioning"
	"github.com/kasuwa/searchstream/internal/adapters/storage"
	"github.com/kasuwa/searchstream/internal/adapters/transport"
	"github.com/kasuwa/searchstream/internal/domain/entities"
	"github.com/kasuwa/searchstream/internal/domain/providers"
	"github.com/kasuwa/searchstream/internal/infrastructure/observability"
	"github.com/kasuwa/searchstream/internal/stream"
	"github.com/kasuwa/searchstream/pkg/config"
)

var (
	jsonOutput bool
	waitFor    time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "searchstream",
		Short: "Real-time directory search client",
		Long: `Searchstream keeps a persistent connection to the directory
search backend, streams user queries up and normalized result
events back down.`,
	}

	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output events as JSON")
	rootCmd.PersistentFlags().DurationVar(&waitFor, "wait", 10*time.Second, "How long to wait for result events")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "query <message>",
		Short: "Send one search query and print the streamed results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), args[0])
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "listen",
		Short: "Connect and print every inbound event until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListen(cmd.Context())
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildClient is the composition root: every collaborator is constructed
// here and injected, and the caller owns the client's lifecycle.
func buildClient(cfg *config.Config) (*stream.Client, error) {
	observability.InitLogger("searchstream", cfg.Environment)
	logger := *observability.GetLogger()

	endpoint := stream.ResolveEndpoint(cfg.Environment, cfg.Endpoint)
	ws := transport.NewWebSocket(endpoint, logger)

	store, err := storage.NewFileLocationStore(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}

	var positioner providers.Positioner
	switch cfg.Positioning.Provider {
	case "google":
		positioner = positioning.NewHTTPPositioner(cfg.Positioning.APIKey)
	case "static":
		positioner = positioning.NewStaticPositioner(cfg.Positioning.StaticLat, cfg.Positioning.StaticLon)
	default:
		// No positioning capability: location requests resolve as
		// unavailable.
	}

	return stream.New(ws, positioner, store, logger), nil
}

func runQuery(ctx context.Context, message string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	done := make(chan struct{}, 1)
	sub := client.OnSearchResults(func(event *entities.CanonicalSearchEvent) {
		printResults(event)
		select {
		case done <- struct{}{}:
		default:
		}
	})
	defer sub.Cancel()

	convSub := client.OnConversation(func(msg *entities.ConversationalMessage) {
		if text, ok := msg.Parameters["message"].(string); ok && !jsonOutput {
			fmt.Println(text)
		}
	})
	defer convSub.Cancel()

	if err := client.Start(ctx); err != nil {
		return err
	}
	if err := client.SendQuery(ctx, message); err != nil {
		return err
	}

	select {
	case <-done:
	case <-time.After(waitFor):
		fmt.Fprintln(os.Stderr, "no results arrived in time")
	case <-ctx.Done():
	}
	return nil
}

func runListen(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client, err := buildClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	client.OnSearchResults(func(event *entities.CanonicalSearchEvent) {
		printResults(event)
	})
	client.OnConversation(func(msg *entities.ConversationalMessage) {
		printJSON(msg)
	})
	client.OnLocationOutcome(func(outcome *entities.LocationOutcome) {
		printJSON(outcome)
	})

	if err := client.Start(ctx); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	return nil
}

func printResults(event *entities.CanonicalSearchEvent) {
	if jsonOutput {
		printJSON(event)
		return
	}
	for _, item := range event.FlatResults {
		marker := " "
		if item.Recommended {
			marker = "*"
		}
		fmt.Printf("%s %-28s %-20s %.1f\n", marker, item.Name, item.Specialty, item.Rating)
	}
	if event.HumanSummaryText != "" {
		fmt.Println(event.HumanSummaryText)
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
