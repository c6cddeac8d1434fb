package cluster

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"dwhpipe/pkg/models"
)

// Clients bundles the AWS service clients the pipeline touches.
type Clients struct {
	Redshift *redshift.Client
	IAM      *iam.Client
	S3       *s3.Client
}

// NewClients builds the AWS clients from the configured credentials.
// When no access key is configured the default credential chain applies.
func NewClients(ctx context.Context, cfg models.AWS) (*Clients, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &Clients{
		Redshift: redshift.NewFromConfig(awsCfg),
		IAM:      iam.NewFromConfig(awsCfg),
		S3:       s3.NewFromConfig(awsCfg),
	}, nil
}
