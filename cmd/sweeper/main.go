// Command sweeper is the DynamoDB Streams Lambda that deletes relationship
// rows left behind by removed projects.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/jacentio/projects/internal/config"
	"github.com/jacentio/projects/internal/logging"
	"github.com/jacentio/projects/store"
	"github.com/jacentio/projects/stream"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "sweeper: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	table := store.New(dynamodb.NewFromConfig(awsCfg), cfg.Store(), logger.Named("store"))
	handler := stream.NewHandler(table, logger.Named("sweeper"))

	logger.Info("starting sweeper", zap.String("table", cfg.TableName))
	lambda.Start(handler.HandleProjectRemoved)
	return nil
}
