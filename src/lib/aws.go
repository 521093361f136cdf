package lib

import (
	"context"
	"eventhub/src/config"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// NewAWSConfig loads the default credential chain and, when an IAM role is
// configured, swaps in temporary credentials for that role.
func NewAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading default aws config: %w", err)
	}
	if cfg.IAMRoleARN == "" {
		return awsCfg, nil
	}
	stsClient := sts.NewFromConfig(awsCfg)
	output, err := stsClient.AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(cfg.IAMRoleARN),
		RoleSessionName: aws.String("eventhub-api"),
	})
	if err != nil {
		return aws.Config{}, fmt.Errorf("assuming role %s: %w", cfg.IAMRoleARN, err)
	}
	creds := output.Credentials
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(*creds.AccessKeyId, *creds.SecretAccessKey, *creds.SessionToken),
		),
	)
}
