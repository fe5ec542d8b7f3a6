// Package aws implements the provider adapter for EC2 instances.
package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"go.uber.org/zap"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
	"github.com/opscart/cloud-cost-advisor/pkg/provider"
	"github.com/opscart/cloud-cost-advisor/pkg/ratelimit"
)

// ErrUnsupportedAction is returned for action types this adapter does
// not implement.
var ErrUnsupportedAction = errors.New("action not supported by aws adapter")

// Adapter mutates EC2 instances. Resize changes the instance type;
// cleanup terminates the instance. Commitment purchases go through the
// billing APIs, which this adapter does not cover.
type Adapter struct {
	client  ec2iface.EC2API
	limiter *ratelimit.Limiter
	logger  *zap.Logger
}

// New creates an adapter on a fresh session for the given region.
func New(region string, logger *zap.Logger) (*Adapter, error) {
	sess, err := session.NewSession(aws.NewConfig().WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewWithClient(ec2.New(sess), logger), nil
}

// NewWithClient creates an adapter on an existing EC2 client. Used by
// tests to inject a fake.
func NewWithClient(client ec2iface.EC2API, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		client:  client,
		limiter: ratelimit.New(ratelimit.DefaultConfig(), logger),
		logger:  logger,
	}
}

func (a *Adapter) Name() string {
	return "aws"
}

// GetResourceState captures the instance type and run state.
func (a *Adapter) GetResourceState(ctx context.Context, resourceID string) (*models.Snapshot, error) {
	var out *ec2.DescribeInstancesOutput
	err := a.limiter.Execute(ctx, "DescribeInstances", func() error {
		var callErr error
		out, callErr = a.client.DescribeInstancesWithContext(ctx, &ec2.DescribeInstancesInput{
			InstanceIds: []*string{aws.String(resourceID)},
		})
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe instance %s: %w", resourceID, err)
	}
	if len(out.Reservations) == 0 || len(out.Reservations[0].Instances) == 0 {
		return nil, fmt.Errorf("instance %s not found", resourceID)
	}

	instance := out.Reservations[0].Instances[0]
	return &models.Snapshot{
		ResourceID: resourceID,
		Provider:   a.Name(),
		CapturedAt: time.Now(),
		State: map[string]string{
			"instance_type": aws.StringValue(instance.InstanceType),
			"state":         aws.StringValue(instance.State.Name),
		},
	}, nil
}

// RestoreState sets the instance type back to the snapshot's value.
func (a *Adapter) RestoreState(ctx context.Context, resourceID string, snapshot *models.Snapshot) error {
	instanceType, ok := snapshot.State["instance_type"]
	if !ok {
		return fmt.Errorf("snapshot for %s carries no instance_type", resourceID)
	}

	err := a.limiter.Execute(ctx, "ModifyInstanceAttribute", func() error {
		_, callErr := a.client.ModifyInstanceAttributeWithContext(ctx, &ec2.ModifyInstanceAttributeInput{
			InstanceId: aws.String(resourceID),
			InstanceType: &ec2.AttributeValue{
				Value: aws.String(instanceType),
			},
		})
		return callErr
	})
	if err != nil {
		return fmt.Errorf("failed to restore instance type for %s: %w", resourceID, err)
	}

	a.logger.Info("restored instance type",
		zap.String("instance_id", resourceID),
		zap.String("instance_type", instanceType))
	return nil
}

// Resize changes the instance type. The instance must be stopped; the
// surrounding change window is the operator's responsibility.
func (a *Adapter) Resize(ctx context.Context, resourceID string, params *models.ResizeParams) (*provider.Result, error) {
	if params == nil || params.TargetSize == "" {
		return nil, fmt.Errorf("resize for %s requires a target instance type", resourceID)
	}

	err := a.limiter.Execute(ctx, "ModifyInstanceAttribute", func() error {
		_, callErr := a.client.ModifyInstanceAttributeWithContext(ctx, &ec2.ModifyInstanceAttributeInput{
			InstanceId: aws.String(resourceID),
			InstanceType: &ec2.AttributeValue{
				Value: aws.String(params.TargetSize),
			},
		})
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resize instance %s: %w", resourceID, err)
	}

	a.logger.Info("resized instance",
		zap.String("instance_id", resourceID),
		zap.String("instance_type", params.TargetSize))
	return &provider.Result{
		ResourceID: resourceID,
		Detail:     fmt.Sprintf("instance type set to %s", params.TargetSize),
	}, nil
}

// AdjustCommitment is not implemented; reserved-instance purchases go
// through billing, not the EC2 control plane.
func (a *Adapter) AdjustCommitment(ctx context.Context, resourceID string, params *models.CommitmentParams) (*provider.Result, error) {
	return nil, fmt.Errorf("%w: commitment", ErrUnsupportedAction)
}

// Cleanup terminates the instance.
func (a *Adapter) Cleanup(ctx context.Context, resourceID string, params *models.CleanupParams) (*provider.Result, error) {
	err := a.limiter.Execute(ctx, "TerminateInstances", func() error {
		_, callErr := a.client.TerminateInstancesWithContext(ctx, &ec2.TerminateInstancesInput{
			InstanceIds: []*string{aws.String(resourceID)},
		})
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to terminate instance %s: %w", resourceID, err)
	}

	a.logger.Info("terminated instance", zap.String("instance_id", resourceID))
	return &provider.Result{ResourceID: resourceID, Detail: "instance terminated"}, nil
}
