package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	"sheetmerge/internal/objectstore"
)

// fakeS3 keeps objects in a map keyed by "bucket/key".
type fakeS3 struct {
	objects  map[string][]byte
	ctypes   map[string]string
	getErr   error
	putErr   error
	lastPut  *s3.PutObjectInput
	getCalls int
}

func newFake() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, ctypes: map[string]string{}}
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	b, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.lastPut = in
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	k := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[k] = b
	f.ctypes[k] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestStore_PutThenGet(t *testing.T) {
	t.Parallel()

	fake := newFake()
	s := newWithAPI(fake)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "out", "merged.csv", []byte("UID\n"), "text/csv"))
	require.Equal(t, int64(4), aws.ToInt64(fake.lastPut.ContentLength))
	require.Equal(t, "text/csv", fake.ctypes["out/merged.csv"])

	b, err := s.Get(ctx, "out", "merged.csv")
	require.NoError(t, err)
	require.Equal(t, "UID\n", string(b))
}

func TestStore_GetMapsNoSuchKey(t *testing.T) {
	t.Parallel()

	s := newWithAPI(newFake())
	_, err := s.Get(context.Background(), "in", "pivot.xlsx")
	require.ErrorIs(t, err, objectstore.ErrNotFound)
	require.ErrorContains(t, err, "s3://in/pivot.xlsx")
}

func TestStore_WrapsTransportErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("access denied")
	fake := newFake()
	fake.getErr = boom
	fake.putErr = boom
	s := newWithAPI(fake)

	_, err := s.Get(context.Background(), "in", "k")
	require.ErrorIs(t, err, boom)
	require.False(t, errors.Is(err, objectstore.ErrNotFound))

	err = s.Put(context.Background(), "out", "k", nil, "")
	require.ErrorIs(t, err, boom)
	require.Nil(t, fake.lastPut.ContentType)
}
