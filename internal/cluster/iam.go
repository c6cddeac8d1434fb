package cluster

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	apperrors "dwhpipe/pkg/errors"
)

// s3ReadOnlyPolicyARN grants the cluster read access to the source buckets.
const s3ReadOnlyPolicyARN = "arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess"

const assumeRolePolicy = `{
  "Version": "2012-10-17",
  "Statement": [{
    "Action": "sts:AssumeRole",
    "Effect": "Allow",
    "Principal": {"Service": "redshift.amazonaws.com"}
  }]
}`

// RoleAPI is the slice of the IAM API the role management needs. The real
// iam.Client satisfies it.
type RoleAPI interface {
	GetRole(ctx context.Context, params *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	CreateRole(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	AttachRolePolicy(ctx context.Context, params *iam.AttachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
	DetachRolePolicy(ctx context.Context, params *iam.DetachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.DetachRolePolicyOutput, error)
	DeleteRole(ctx context.Context, params *iam.DeleteRoleInput, optFns ...func(*iam.Options)) (*iam.DeleteRoleOutput, error)
}

// EnsureRole returns the ARN of the storage-access role, creating it and
// attaching the read-only policy when it does not exist yet.
func EnsureRole(ctx context.Context, api RoleAPI, name string) (string, error) {
	got, err := api.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
	if err == nil {
		return aws.ToString(got.Role.Arn), nil
	}
	var noSuchEntity *iamtypes.NoSuchEntityException
	if !errors.As(err, &noSuchEntity) {
		return "", apperrors.Wrap(err, apperrors.ErrCodeIAMRole, "Failed to look up IAM role").
			WithContext("role", name)
	}

	created, err := api.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(name),
		Path:                     aws.String("/"),
		Description:              aws.String("Allows Redshift clusters to call AWS services on your behalf."),
		AssumeRolePolicyDocument: aws.String(assumeRolePolicy),
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeIAMRole, "Failed to create IAM role").
			WithContext("role", name)
	}

	if _, err := api.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(name),
		PolicyArn: aws.String(s3ReadOnlyPolicyARN),
	}); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeIAMRole, "Failed to attach storage policy").
			WithContext("role", name)
	}

	return aws.ToString(created.Role.Arn), nil
}

// RemoveRole detaches the storage policy and deletes the role. A role that
// is already gone is not an error.
func RemoveRole(ctx context.Context, api RoleAPI, name string) error {
	var noSuchEntity *iamtypes.NoSuchEntityException

	if _, err := api.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
		RoleName:  aws.String(name),
		PolicyArn: aws.String(s3ReadOnlyPolicyARN),
	}); err != nil && !errors.As(err, &noSuchEntity) {
		return apperrors.Wrap(err, apperrors.ErrCodeIAMRole, "Failed to detach storage policy").
			WithContext("role", name)
	}

	if _, err := api.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: aws.String(name)}); err != nil {
		if errors.As(err, &noSuchEntity) {
			return nil
		}
		return apperrors.Wrap(err, apperrors.ErrCodeIAMRole, "Failed to delete IAM role").
			WithContext("role", name)
	}
	return nil
}
