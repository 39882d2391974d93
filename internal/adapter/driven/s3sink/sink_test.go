package s3sink_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/stadatax/internal/adapter/driven/s3sink"
)

// fakeObjects is an in-memory ObjectAPI.
type fakeObjects struct {
	objects     map[string][]byte
	contentType map[string]string
	headErr     error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, contentType: map[string]string{}}
}

func (f *fakeObjects) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	k := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[k] = body
	f.contentType[k] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestParseDestination(t *testing.T) {
	bucket, key, err := s3sink.ParseDestination("s3://exports/bps/2024/data.csv")
	require.NoError(t, err)
	assert.Equal(t, "exports", bucket)
	assert.Equal(t, "bps/2024/data.csv", key)

	for _, bad := range []string{"exports/data.csv", "s3://exports", "s3:///data.csv", "s3://exports/dir/"} {
		_, _, err := s3sink.ParseDestination(bad)
		assert.Error(t, err, bad)
	}
}

func TestSink_WriteAndExists(t *testing.T) {
	fake := newFakeObjects()
	sink := s3sink.NewWithAPI(fake)
	ctx := context.Background()

	ok, err := sink.Exists(ctx, "s3://exports/out.csv")
	require.NoError(t, err)
	assert.False(t, ok)

	loc, err := sink.Write(ctx, "s3://exports/out.csv", []byte("a,b\n"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "s3://exports/out.csv", loc)
	assert.Equal(t, []byte("a,b\n"), fake.objects["exports/out.csv"])
	assert.Equal(t, "text/csv", fake.contentType["exports/out.csv"])

	ok, err = sink.Exists(ctx, "s3://exports/out.csv")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSink_ExistsPropagatesOtherErrors(t *testing.T) {
	fake := newFakeObjects()
	fake.headErr = errors.New("access denied")
	sink := s3sink.NewWithAPI(fake)

	_, err := sink.Exists(context.Background(), "s3://exports/out.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestSink_ExistsTreatsGenericNotFoundAsAbsent(t *testing.T) {
	for _, code := range []string{"NotFound", "NoSuchKey"} {
		t.Run(code, func(t *testing.T) {
			fake := newFakeObjects()
			fake.headErr = &smithy.GenericAPIError{Code: code, Message: "missing"}
			sink := s3sink.NewWithAPI(fake)

			exists, err := sink.Exists(context.Background(), "s3://exports/out.csv")
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}
