package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"inventory-sync/core/storage"
	"inventory-sync/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPutJSON(t *testing.T) {
	client := new(mocks.Client)
	var body string
	client.On("PutObject", mock.Anything, "bucket", "reports/a.json", mock.Anything, mock.AnythingOfType("int64"),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType == "application/json" })).
		Run(func(args mock.Arguments) {
			data, _ := io.ReadAll(args.Get(3).(io.Reader))
			body = string(data)
		}).
		Return(minio.UploadInfo{}, nil)

	err := storage.PutJSON(context.Background(), client, "bucket", "reports/a.json", map[string]int{"created": 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"created": 2}`, body)
	client.AssertExpectations(t)
}

func TestGetJSON(t *testing.T) {
	client := new(mocks.Client)
	client.On("GetObject", mock.Anything, "bucket", "snap.json", mock.Anything).
		Return(io.NopCloser(strings.NewReader(`{"name":"nova"}`)), nil)
	client.On("GetObject", mock.Anything, "bucket", "missing.json", mock.Anything).
		Return(nil, errors.New("not found"))

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, storage.GetJSON(context.Background(), client, "bucket", "snap.json", &out))
	assert.Equal(t, "nova", out.Name)

	err := storage.GetJSON(context.Background(), client, "bucket", "missing.json", &out)
	assert.ErrorContains(t, err, "missing.json")
}

func TestPrune(t *testing.T) {
	client := new(mocks.Client)
	listed := make(chan minio.ObjectInfo, 4)
	for _, key := range []string{"reports/os1/003.json", "reports/os1/001.json", "reports/os1/002.json", "reports/os1/"} {
		listed <- minio.ObjectInfo{Key: key}
	}
	close(listed)
	var ro <-chan minio.ObjectInfo = listed
	client.On("ListObjects", mock.Anything, "bucket", mock.Anything).Return(ro)

	var removed []string
	client.On("RemoveObjects", mock.Anything, "bucket", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			for obj := range args.Get(2).(<-chan minio.ObjectInfo) {
				removed = append(removed, obj.Key)
			}
		}).
		Return(nil)

	n, err := storage.Prune(context.Background(), client, "bucket", "reports/os1/", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"reports/os1/001.json", "reports/os1/002.json"}, removed)
}

func TestPruneKeepsAllWhenDisabled(t *testing.T) {
	client := new(mocks.Client)
	n, err := storage.Prune(context.Background(), client, "bucket", "reports/", 0)
	require.NoError(t, err)
	assert.Zero(t, n)
	client.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
}

func TestPruneDrainsRemoveErrors(t *testing.T) {
	client := new(mocks.Client)
	listed := make(chan minio.ObjectInfo, 3)
	for _, key := range []string{"r/1.json", "r/2.json", "r/3.json"} {
		listed <- minio.ObjectInfo{Key: key}
	}
	close(listed)
	var ro <-chan minio.ObjectInfo = listed
	client.On("ListObjects", mock.Anything, "bucket", mock.Anything).Return(ro)

	results := make(chan minio.RemoveObjectError)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(results)
		results <- minio.RemoveObjectError{ObjectName: "r/1.json", Err: errors.New("denied")}
		results <- minio.RemoveObjectError{ObjectName: "r/2.json", Err: errors.New("denied")}
	}()
	var rc <-chan minio.RemoveObjectError = results
	client.On("RemoveObjects", mock.Anything, "bucket", mock.Anything, mock.Anything).Return(rc)

	n, err := storage.Prune(context.Background(), client, "bucket", "r/", 1)
	assert.Zero(t, n)
	assert.ErrorContains(t, err, "r/1.json")
	assert.ErrorContains(t, err, "r/2.json")
	<-done
}
