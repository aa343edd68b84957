// Package cli contains the Cobra commands of queue-keeper-emit, a tool that
// publishes store lifecycle events onto the inbound queue.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"queue-keeper/internal/config"
	"queue-keeper/internal/emitter"
	"queue-keeper/internal/queue"
	kafkaqueue "queue-keeper/internal/queue/kafka"
	sqsqueue "queue-keeper/internal/queue/sqs"
)

// Targets a command can publish to.
const (
	TargetSQS   = "sqs"
	TargetKafka = "kafka"
	TargetLog   = "log"
)

// ValidTargets defines the allowed --target values.
var ValidTargets = []string{TargetSQS, TargetKafka, TargetLog}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Target     string
	Verbose    bool

	// OpenPublisher builds the publisher for a target. Tests replace it.
	OpenPublisher func(ctx context.Context, target string, cfg *config.Config, out io.Writer) (queue.Publisher, error)
}

// NewRootCommand creates the root command for queue-keeper-emit.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{OpenPublisher: OpenPublisher})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue-keeper-emit",
		Short: "Publish store lifecycle events",
		Long: `Publish store lifecycle events onto the queue queue-keeper consumes.

Targets:
  sqs     the FIFO queue at AWS_SQS_QUEUE_URL, grouped by routing key
  kafka   the configured Kafka topic, keyed by routing key
  log     print the message instead of sending it`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidTarget(opts.Target) {
				return fmt.Errorf("invalid target %q: must be one of %v", opts.Target, ValidTargets)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "config/config.yaml", "path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.Target, "target", TargetLog, "where to publish (sqs|kafka|log)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	cmd.AddCommand(newCreateCommand(opts))
	cmd.AddCommand(newUpdateCommand(opts))
	cmd.AddCommand(newDeactivateCommand(opts))

	return cmd
}

// OpenPublisher connects to the transport named by target.
func OpenPublisher(ctx context.Context, target string, cfg *config.Config, out io.Writer) (queue.Publisher, error) {
	switch target {
	case TargetSQS:
		client, err := sqsqueue.NewClient(ctx, &cfg.SQS)
		if err != nil {
			return nil, err
		}
		return sqsqueue.NewPublisher(client, cfg.SQS.QueueURL), nil
	case TargetKafka:
		return kafkaqueue.NewPublisher(kafkaqueue.NewWriter(&cfg.Kafka, cfg.Kafka.Topic)), nil
	default:
		return &printPublisher{out: out}, nil
	}
}

// withEmitter loads the configuration, opens the target and runs fn.
func withEmitter(cmd *cobra.Command, opts *RootOptions, fn func(*emitter.Service) error) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	publisher, err := opts.OpenPublisher(cmd.Context(), opts.Target, cfg, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("open %s target: %w", opts.Target, err)
	}
	defer publisher.Close()

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	return fn(emitter.NewService(publisher, logger))
}

// isValidTarget checks if the target is one of the allowed values.
func isValidTarget(target string) bool {
	for _, t := range ValidTargets {
		if t == target {
			return true
		}
	}
	return false
}

// printPublisher writes each message to out.
type printPublisher struct {
	out io.Writer
}

func (p *printPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	_, err := fmt.Fprintf(p.out, "%s %s\n", routingKey, body)
	return err
}

func (p *printPublisher) Close() error {
	return nil
}
