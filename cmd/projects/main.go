// Command projects is the API Gateway Lambda serving the projects API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/jacentio/projects/api"
	"github.com/jacentio/projects/audit"
	"github.com/jacentio/projects/internal/config"
	"github.com/jacentio/projects/internal/logging"
	"github.com/jacentio/projects/objectstore"
	"github.com/jacentio/projects/project"
	"github.com/jacentio/projects/store"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "projects: %v\n", err)
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
	service := project.NewService(table, cfg.Project(),
		project.WithLogger(logger.Named("project")),
		project.WithSigner(objectstore.NewS3Signer(s3.NewFromConfig(awsCfg))),
		project.WithAuditor(audit.NewEmitter(audit.NewTableSink(table), logger.Named("audit"))),
	)
	handler := api.NewHandler(service, logger)

	logger.Info("starting projects handler", zap.String("table", cfg.TableName))
	lambda.Start(handler.Handle)
	return nil
}
