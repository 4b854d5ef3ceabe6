package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"caption-llm/internal/client"
)

type options struct {
	server     string
	imageURL   string
	imageFile  string
	tones      []string
	maxWords   int
	limit      int
	window     time.Duration
	statePath  string
	timeout    time.Duration
	verbose    bool
	showRemain bool
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:           "caption_cli",
		Short:         "Generate an image caption through the caption API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd.Context(), opts)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "error:", client.UserMessage(err))
			}
			return err
		},
	}

	serverDefault := os.Getenv("CAPTION_API_URL")
	if serverDefault == "" {
		serverDefault = "http://localhost:8080"
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.server, "server", serverDefault, "caption API base URL")
	flags.StringVar(&opts.imageURL, "url", "", "image URL")
	flags.StringVar(&opts.imageFile, "file", "", "local image file (sent as a data URI)")
	flags.StringSliceVar(&opts.tones, "tone", nil, "caption tone: Professional, Fun, Poetic, Casual (repeatable)")
	flags.IntVar(&opts.maxWords, "max-words", client.DefaultMaxWords, "maximum words in the caption (1-50)")
	flags.IntVar(&opts.limit, "limit", 10, "client-side requests allowed per window")
	flags.DurationVar(&opts.window, "window", time.Hour, "client-side rate limit window")
	flags.StringVar(&opts.statePath, "state", client.DefaultStatePath(), "file that stores the client-side request counter")
	flags.DurationVar(&opts.timeout, "timeout", 90*time.Second, "request timeout")
	flags.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	flags.BoolVar(&opts.showRemain, "remaining", false, "only print the remaining client-side requests")
	cmd.MarkFlagsMutuallyExclusive("url", "file")

	return cmd
}

func run(ctx context.Context, opts options) error {
	logger := zap.NewNop()
	if opts.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Printf("warning: dev logger: %v", err)
		} else {
			logger = l
		}
	}
	defer logger.Sync()

	limiter := client.NewClientRateLimiter(opts.statePath, opts.limit, opts.window)
	if opts.showRemain {
		fmt.Printf("Remaining requests: %d\n", limiter.RemainingRequests())
		return nil
	}

	form := client.NewCaptionForm()
	form.SetImageURL(opts.imageURL)
	form.SetImageFile(opts.imageFile)
	if err := form.SetMaxWords(opts.maxWords); err != nil {
		return err
	}
	if err := form.SetTones(opts.tones); err != nil {
		return err
	}

	logger.Debug("generating caption",
		zap.String("server", opts.server),
		zap.String("prompt", form.Prompt()),
		zap.Int("remaining", limiter.RemainingRequests()),
	)

	api := client.NewAPIClient(opts.server, opts.timeout)
	res, err := client.GenerateCaption(ctx, form, limiter, api)
	if err != nil {
		logger.Debug("caption failed", zap.Error(err))
		return err
	}

	fmt.Println(res.Caption)
	if res.StateErr != nil {
		logger.Debug("client rate limit not saved", zap.Error(res.StateErr))
		fmt.Fprintf(os.Stderr, "warning: %v\n", res.StateErr)
	}
	fmt.Printf("Remaining requests: %d\n", res.RemainingRequests)
	return nil
}
