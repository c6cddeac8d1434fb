package cluster

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	"github.com/aws/aws-sdk-go-v2/service/redshift/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "dwhpipe/pkg/errors"
	"dwhpipe/pkg/models"
)

const testRoleARN = "arn:aws:iam::123456789012:role/dwhpipe-s3-read"

// fakeAPI plays back one status string per DescribeClusters call; an empty
// string means the cluster does not exist.
type fakeAPI struct {
	statuses    []string
	endpoint    *types.Endpoint
	describeErr error

	createInput *redshift.CreateClusterInput
	createErr   error
	createCalls int

	deleteInput *redshift.DeleteClusterInput
	deleteErr   error

	describeCalls int
}

func (f *fakeAPI) DescribeClusters(ctx context.Context, params *redshift.DescribeClustersInput, optFns ...func(*redshift.Options)) (*redshift.DescribeClustersOutput, error) {
	idx := f.describeCalls
	f.describeCalls++
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	status := f.statuses[idx]
	if status == "" {
		return nil, &types.ClusterNotFoundFault{}
	}
	return &redshift.DescribeClustersOutput{
		Clusters: []types.Cluster{{
			ClusterStatus: aws.String(status),
			Endpoint:      f.endpoint,
		}},
	}, nil
}

func (f *fakeAPI) CreateCluster(ctx context.Context, params *redshift.CreateClusterInput, optFns ...func(*redshift.Options)) (*redshift.CreateClusterOutput, error) {
	f.createCalls++
	f.createInput = params
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &redshift.CreateClusterOutput{}, nil
}

func (f *fakeAPI) DeleteCluster(ctx context.Context, params *redshift.DeleteClusterInput, optFns ...func(*redshift.Options)) (*redshift.DeleteClusterOutput, error) {
	f.deleteInput = params
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &redshift.DeleteClusterOutput{}, nil
}

func testClusterConfig() models.Config {
	return models.Config{
		Warehouse: models.Warehouse{
			Database: "dwh",
			Username: "dwhuser",
			Password: "Passw0rd",
			Timeout:  "5s",
		},
		Cluster: models.Cluster{
			Identifier:  "dwh-cluster",
			ClusterType: "single-node",
			NodeType:    "dc2.large",
			NumNodes:    1,
		},
		Poll: models.Poll{Interval: "30s", MaxAttempts: 5},
	}
}

func newTestManager(api *fakeAPI, cfg models.Config) (*Manager, *[]time.Duration) {
	m := NewManager(api, cfg, testRoleARN)
	sleeps := &[]time.Duration{}
	m.sleep = func(d time.Duration) { *sleeps = append(*sleeps, d) }
	return m, sleeps
}

func TestCreateSubmits(t *testing.T) {
	api := &fakeAPI{statuses: []string{""}}
	m, _ := newTestManager(api, testClusterConfig())

	state, err := m.Create(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateCreating, state)
	require.Equal(t, 1, api.createCalls)
	assert.Equal(t, "dwh-cluster", aws.ToString(api.createInput.ClusterIdentifier))
	assert.Equal(t, "dwh", aws.ToString(api.createInput.DBName))
	assert.Equal(t, "dwhuser", aws.ToString(api.createInput.MasterUsername))
	assert.Equal(t, []string{testRoleARN}, api.createInput.IamRoles)
	assert.Nil(t, api.createInput.NumberOfNodes)
}

func TestCreateMultiNode(t *testing.T) {
	cfg := testClusterConfig()
	cfg.Cluster.ClusterType = "multi-node"
	cfg.Cluster.NumNodes = 4
	api := &fakeAPI{statuses: []string{""}}
	m, _ := newTestManager(api, cfg)

	_, err := m.Create(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int32(4), aws.ToInt32(api.createInput.NumberOfNodes))
}

func TestCreateWhenClusterExists(t *testing.T) {
	api := &fakeAPI{statuses: []string{"available"}}
	m, _ := newTestManager(api, testClusterConfig())

	state, err := m.Create(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateAvailable, state)
	assert.Zero(t, api.createCalls, "no duplicate creation request")
}

func TestCreateWhileStillCreating(t *testing.T) {
	api := &fakeAPI{statuses: []string{"creating"}}
	m, _ := newTestManager(api, testClusterConfig())

	state, err := m.Create(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateCreating, state)
	assert.Zero(t, api.createCalls)
}

func TestCreateSubmitError(t *testing.T) {
	api := &fakeAPI{statuses: []string{""}, createErr: fmt.Errorf("quota exceeded")}
	m, _ := newTestManager(api, testClusterConfig())

	_, err := m.Create(context.Background())

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeClusterCreate, apperrors.GetErrorCode(err))
}

func TestWaitForAvailable(t *testing.T) {
	api := &fakeAPI{statuses: []string{"creating", "creating", "available"}}
	m, sleeps := newTestManager(api, testClusterConfig())

	state, err := m.WaitForAvailable(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateAvailable, state)
	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second}, *sleeps)
}

func TestWaitForAvailableTerminalFailure(t *testing.T) {
	api := &fakeAPI{statuses: []string{"creating", "create-failed"}}
	m, _ := newTestManager(api, testClusterConfig())

	state, err := m.WaitForAvailable(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateFailed, state)
	assert.Equal(t, apperrors.ErrCodeClusterFailed, apperrors.GetErrorCode(err))
	assert.False(t, apperrors.IsRecoverable(err))
}

func TestWaitForAvailableTimeout(t *testing.T) {
	cfg := testClusterConfig()
	cfg.Poll.MaxAttempts = 3
	api := &fakeAPI{statuses: []string{"creating"}}
	m, sleeps := newTestManager(api, cfg)

	_, err := m.WaitForAvailable(context.Background())

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeClusterTimeout, apperrors.GetErrorCode(err))
	assert.Len(t, *sleeps, 3)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 3, appErr.Context["attempts"])
}

func TestWaitForAvailableClusterVanished(t *testing.T) {
	api := &fakeAPI{statuses: []string{"creating", ""}}
	m, _ := newTestManager(api, testClusterConfig())

	state, err := m.WaitForAvailable(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateDeleted, state)
	assert.Contains(t, err.Error(), "no longer exists")
}

func TestWaitForDeleted(t *testing.T) {
	api := &fakeAPI{statuses: []string{"deleting", "deleting", ""}}
	m, sleeps := newTestManager(api, testClusterConfig())

	state, err := m.WaitForDeleted(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateDeleted, state)
	assert.Len(t, *sleeps, 2)
}

func TestWaitHonorsContext(t *testing.T) {
	api := &fakeAPI{statuses: []string{"creating"}}
	m, _ := newTestManager(api, testClusterConfig())

	ctx, cancel := context.WithCancel(context.Background())
	m.sleep = func(time.Duration) { cancel() }

	_, err := m.WaitForAvailable(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatusNotFound(t *testing.T) {
	api := &fakeAPI{statuses: []string{""}}
	m, _ := newTestManager(api, testClusterConfig())

	state, err := m.Status(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateDeleted, state)
}

func TestDelete(t *testing.T) {
	api := &fakeAPI{statuses: []string{"available"}}
	m, _ := newTestManager(api, testClusterConfig())

	require.NoError(t, m.Delete(context.Background()))
	assert.Equal(t, "dwh-cluster", aws.ToString(api.deleteInput.ClusterIdentifier))
	assert.True(t, aws.ToBool(api.deleteInput.SkipFinalClusterSnapshot))
}

func TestDeleteNotFound(t *testing.T) {
	api := &fakeAPI{deleteErr: &types.ClusterNotFoundFault{}}
	m, _ := newTestManager(api, testClusterConfig())

	assert.NoError(t, m.Delete(context.Background()))
}

func TestEndpoint(t *testing.T) {
	api := &fakeAPI{
		statuses: []string{"available"},
		endpoint: &types.Endpoint{
			Address: aws.String("dwh-cluster.abc123.us-west-2.redshift.amazonaws.com"),
			Port:    aws.Int32(5439),
		},
	}
	m, _ := newTestManager(api, testClusterConfig())

	host, port, err := m.Endpoint(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "dwh-cluster.abc123.us-west-2.redshift.amazonaws.com", host)
	assert.Equal(t, 5439, port)
}

func TestEndpointNotReady(t *testing.T) {
	api := &fakeAPI{statuses: []string{"creating"}}
	m, _ := newTestManager(api, testClusterConfig())

	_, _, err := m.Endpoint(context.Background())

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeEndpointNotReady, apperrors.GetErrorCode(err))
}

func TestStateFromStatus(t *testing.T) {
	tests := []struct {
		status string
		want   State
	}{
		{"available", StateAvailable},
		{"creating", StateCreating},
		{"modifying", StateCreating},
		{"resizing", StateCreating},
		{"deleting", StateDeleting},
		{"final-snapshot", StateDeleting},
		{"create-failed", StateFailed},
		{"incompatible-network", StateFailed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, stateFromStatus(tt.status), tt.status)
	}
}
