package cluster

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	"github.com/aws/aws-sdk-go-v2/service/redshift/types"

	apperrors "dwhpipe/pkg/errors"
	"dwhpipe/pkg/models"
)

// State is the cluster lifecycle state exposed to callers.
type State string

const (
	StateCreating  State = "creating"
	StateAvailable State = "available"
	StateDeleting  State = "deleting"
	StateDeleted   State = "deleted"
	StateFailed    State = "failed"
)

// API is the slice of the Redshift provisioning API the manager needs.
// The real redshift.Client satisfies it.
type API interface {
	CreateCluster(ctx context.Context, params *redshift.CreateClusterInput, optFns ...func(*redshift.Options)) (*redshift.CreateClusterOutput, error)
	DescribeClusters(ctx context.Context, params *redshift.DescribeClustersInput, optFns ...func(*redshift.Options)) (*redshift.DescribeClustersOutput, error)
	DeleteCluster(ctx context.Context, params *redshift.DeleteClusterInput, optFns ...func(*redshift.Options)) (*redshift.DeleteClusterOutput, error)
}

// Manager drives the transient cluster through its lifecycle. It submits
// provisioning calls and polls status; it never retries a failed creation.
type Manager struct {
	api     API
	cluster models.Cluster
	master  models.Warehouse
	poll    models.Poll
	roleARN string

	// sleep is swapped for a recorded no-op in tests.
	sleep func(time.Duration)
}

// NewManager creates a cluster manager from the settings value.
func NewManager(api API, cfg models.Config, roleARN string) *Manager {
	return &Manager{
		api:     api,
		cluster: cfg.Cluster,
		master:  cfg.Warehouse,
		poll:    cfg.Poll,
		roleARN: roleARN,
		sleep:   time.Sleep,
	}
}

// Create submits a cluster creation request. If a cluster with the same
// identifier already exists, its current state is returned and no
// duplicate request is submitted.
func (m *Manager) Create(ctx context.Context) (State, error) {
	state, err := m.Status(ctx)
	if err != nil {
		return StateFailed, err
	}
	if state != StateDeleted {
		return state, nil
	}

	input := &redshift.CreateClusterInput{
		ClusterIdentifier:  aws.String(m.cluster.Identifier),
		ClusterType:        aws.String(m.cluster.ClusterType),
		NodeType:           aws.String(m.cluster.NodeType),
		DBName:             aws.String(m.master.Database),
		MasterUsername:     aws.String(m.master.Username),
		MasterUserPassword: aws.String(m.master.Password),
		IamRoles:           []string{m.roleARN},
	}
	if m.cluster.ClusterType == "multi-node" {
		input.NumberOfNodes = aws.Int32(int32(m.cluster.NumNodes))
	}

	if _, err := m.api.CreateCluster(ctx, input); err != nil {
		return StateFailed, apperrors.ProvisioningError(apperrors.ErrCodeClusterCreate,
			"Failed to submit cluster creation", m.cluster.Identifier, err)
	}
	return StateCreating, nil
}

// Status returns the current lifecycle state. A missing cluster reports
// deleted rather than an error.
func (m *Manager) Status(ctx context.Context) (State, error) {
	out, err := m.api.DescribeClusters(ctx, &redshift.DescribeClustersInput{
		ClusterIdentifier: aws.String(m.cluster.Identifier),
	})
	if err != nil {
		var notFound *types.ClusterNotFoundFault
		if errors.As(err, &notFound) {
			return StateDeleted, nil
		}
		return StateFailed, apperrors.ProvisioningError(apperrors.ErrCodeClusterFailed,
			"Failed to describe cluster", m.cluster.Identifier, err)
	}
	if len(out.Clusters) == 0 {
		return StateDeleted, nil
	}
	return stateFromStatus(aws.ToString(out.Clusters[0].ClusterStatus)), nil
}

// Endpoint returns the connection host and port once the cluster is
// available.
func (m *Manager) Endpoint(ctx context.Context) (string, int, error) {
	out, err := m.api.DescribeClusters(ctx, &redshift.DescribeClustersInput{
		ClusterIdentifier: aws.String(m.cluster.Identifier),
	})
	if err != nil {
		return "", 0, apperrors.ProvisioningError(apperrors.ErrCodeEndpointNotReady,
			"Failed to describe cluster", m.cluster.Identifier, err)
	}
	if len(out.Clusters) == 0 || out.Clusters[0].Endpoint == nil {
		return "", 0, apperrors.ProvisioningError(apperrors.ErrCodeEndpointNotReady,
			"Cluster endpoint not available yet", m.cluster.Identifier, nil)
	}
	ep := out.Clusters[0].Endpoint
	return aws.ToString(ep.Address), int(aws.ToInt32(ep.Port)), nil
}

// Delete submits a deletion request without a final snapshot. Deleting a
// cluster that no longer exists is not an error.
func (m *Manager) Delete(ctx context.Context) error {
	_, err := m.api.DeleteCluster(ctx, &redshift.DeleteClusterInput{
		ClusterIdentifier:        aws.String(m.cluster.Identifier),
		SkipFinalClusterSnapshot: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ClusterNotFoundFault
		if errors.As(err, &notFound) {
			return nil
		}
		return apperrors.ProvisioningError(apperrors.ErrCodeClusterDelete,
			"Failed to submit cluster deletion", m.cluster.Identifier, err)
	}
	return nil
}

// WaitForAvailable polls until the cluster is available, a terminal
// failure surfaces, or the attempt budget runs out.
func (m *Manager) WaitForAvailable(ctx context.Context) (State, error) {
	return m.wait(ctx, StateAvailable)
}

// WaitForDeleted polls until the cluster is gone.
func (m *Manager) WaitForDeleted(ctx context.Context) (State, error) {
	return m.wait(ctx, StateDeleted)
}

func (m *Manager) wait(ctx context.Context, want State) (State, error) {
	state := StateCreating
	for attempt := 0; attempt < m.poll.MaxAttempts; attempt++ {
		var err error
		state, err = m.Status(ctx)
		if err != nil {
			return state, err
		}
		switch state {
		case want:
			return state, nil
		case StateFailed:
			return state, apperrors.ProvisioningError(apperrors.ErrCodeClusterFailed,
				"Cluster reached a terminal failure state", m.cluster.Identifier, nil)
		case StateDeleted:
			// Waiting for available but the cluster vanished.
			return state, apperrors.ProvisioningError(apperrors.ErrCodeClusterFailed,
				"Cluster no longer exists", m.cluster.Identifier, nil)
		}
		m.sleep(m.poll.IntervalDuration())
		if err := ctx.Err(); err != nil {
			return state, err
		}
	}
	return state, apperrors.ProvisioningError(apperrors.ErrCodeClusterTimeout,
		"Timed out waiting for cluster", m.cluster.Identifier, nil).
		WithContext("attempts", m.poll.MaxAttempts)
}

// stateFromStatus maps the provider's status strings onto the lifecycle
// states. Transitional statuses (modifying, resizing, ...) report as
// creating since the only decision callers make is whether to keep polling.
func stateFromStatus(status string) State {
	switch {
	case status == "available":
		return StateAvailable
	case status == "deleting" || status == "final-snapshot":
		return StateDeleting
	case strings.Contains(status, "failed") || strings.Contains(status, "incompatible"):
		return StateFailed
	default:
		return StateCreating
	}
}
