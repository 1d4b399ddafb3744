package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"linkup-backend/internal/apperr"
	"linkup-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	input   *s3.PutObjectInput
	expires time.Duration
	err     error
}

func (p *fakePresigner) PresignPutObject(_ context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.input = params
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	p.expires = opts.Expires
	return &v4.PresignedHTTPRequest{
		URL:    "https://upload.example/" + aws.ToString(params.Key) + "?sig=1",
		Method: "PUT",
	}, nil
}

func TestCreateUploadURL(t *testing.T) {
	presigner := &fakePresigner{}
	svc := NewAvatarService(repository.NewMemoryStore(), presigner, "avatars-bucket", "")

	upload, err := svc.CreateUploadURL(context.Background(), "alice", "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(upload.Key, "avatars/alice/"))
	assert.True(t, strings.HasSuffix(upload.Key, ".png"))
	assert.Contains(t, upload.UploadURL, upload.Key)
	assert.Equal(t, 300, upload.ExpiresIn)

	require.NotNil(t, presigner.input)
	assert.Equal(t, "avatars-bucket", aws.ToString(presigner.input.Bucket))
	assert.Equal(t, "image/png", aws.ToString(presigner.input.ContentType))
	assert.Equal(t, 5*time.Minute, presigner.expires)
}

func TestCreateUploadURL_Errors(t *testing.T) {
	svc := NewAvatarService(repository.NewMemoryStore(), &fakePresigner{}, "b", "")
	_, err := svc.CreateUploadURL(context.Background(), "alice", "application/pdf")
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))

	svc = NewAvatarService(repository.NewMemoryStore(), &fakePresigner{err: errors.New("no creds")}, "b", "")
	_, err = svc.CreateUploadURL(context.Background(), "alice", "image/jpeg")
	assert.Error(t, err)
}

func TestConfirmUpload(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "Alice")
	ctx := context.Background()

	svc := NewAvatarService(f.store, &fakePresigner{}, "bucket", "https://cdn.example/")

	url, err := svc.ConfirmUpload(ctx, "alice", "avatars/alice/abc.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/avatars/alice/abc.png", url)
	assert.Equal(t, url, f.user(t, "alice").ProfilePic)

	for _, key := range []string{"avatars/bob/abc.png", "avatars/alice/../bob/x.png", "alice/abc.png"} {
		_, err = svc.ConfirmUpload(ctx, "alice", key)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), key)
	}
	assert.Equal(t, url, f.user(t, "alice").ProfilePic)
}

func TestConfirmUpload_DefaultURL(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "Alice")

	svc := NewAvatarService(f.store, &fakePresigner{}, "bucket", "")
	url, err := svc.ConfirmUpload(context.Background(), "alice", "avatars/alice/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/avatars/alice/x.jpg", url)
}
