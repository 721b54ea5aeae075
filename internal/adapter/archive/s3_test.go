package archive

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestArchivePage(t *testing.T) {
	fp := &fakePutter{}
	s := &Store{client: fp, bucket: "water-raw", prefix: "raw"}

	err := s.ArchivePage(context.Background(), "run-1", "data_gov_in", 3, []byte(`{"records":[]}`))
	require.NoError(t, err)

	require.Len(t, fp.inputs, 1)
	in := fp.inputs[0]
	assert.Equal(t, "water-raw", aws.ToString(in.Bucket))
	assert.Equal(t, "raw/data_gov_in/run-1/page-0003.json", aws.ToString(in.Key))
	assert.Equal(t, "application/json", aws.ToString(in.ContentType))
	assert.Equal(t, "run-1", in.Metadata["run-id"])
	assert.JSONEq(t, `{"records":[]}`, string(fp.bodies[0]))
}

func TestArchivePage_NoPrefix(t *testing.T) {
	s := &Store{bucket: "b"}
	assert.Equal(t, "cpcb/run-9/page-0001.json", s.key("run-9", "cpcb", 1))
}

func TestArchivePage_Error(t *testing.T) {
	s := &Store{client: &fakePutter{err: errors.New("access denied")}, bucket: "b", prefix: "raw"}

	err := s.ArchivePage(context.Background(), "run-1", "data_gov_in", 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "raw/data_gov_in/run-1/page-0001.json")
	assert.Contains(t, err.Error(), "access denied")
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}

func TestNew_CustomEndpoint(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	s, err := New(context.Background(), Config{Bucket: "water-raw", Prefix: "raw", Endpoint: "http://localhost:9000"})
	require.NoError(t, err)
	assert.Equal(t, "water-raw", s.bucket)
	assert.IsType(t, &s3.Client{}, s.client)
}
