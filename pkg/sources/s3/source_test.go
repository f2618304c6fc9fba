package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/source"
)

type fakeClient struct {
	objects map[string]string
	gotKey  string
}

func (f *fakeClient) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gotKey = aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	body, ok := f.objects[f.gotKey]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		raw     string
		bucket  string
		key     string
		wantErr bool
	}{
		{raw: "s3://data/exports/users.csv", bucket: "data", key: "exports/users.csv"},
		{raw: "s3://data/", wantErr: true},
		{raw: "https://data/users.csv", wantErr: true},
		{raw: "users.csv", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			bucket, key, err := ParseURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestSource_Load(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{objects: map[string]string{
		"data/users.tsv": "id\temail\n1\ta@x.com\n2\t\n",
	}}

	src := NewWithClient(nil, client)
	require.NoError(t, src.Open(ctx, source.Config{Path: "s3://data/users.tsv", Params: map[string]any{"region": "eu-central-1"}}))

	ds, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "data/users.tsv", client.gotKey)
	assert.Equal(t, "s3://data/users.tsv", ds.Name)
	assert.Equal(t, []string{"id", "email"}, ds.Columns())
	assert.Equal(t, core.Int(2), ds.Cell(1, 0))
	assert.True(t, ds.Cell(1, 1).IsMissing())
}

func TestSource_LoadMissingObject(t *testing.T) {
	ctx := context.Background()
	src := NewWithClient(nil, &fakeClient{})
	require.NoError(t, src.Open(ctx, source.Config{Path: "s3://data/none.csv"}))

	_, err := src.Load(ctx)
	assert.EqualError(t, err, "object s3://data/none.csv not found")
}
