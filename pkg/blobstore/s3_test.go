package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/angelmondragon/inventory-backend/pkg/config"
)

type fakeS3 struct {
	objects      map[string][]byte
	getErr       error
	createOut    *s3.CreateMultipartUploadOutput
	createInput  *s3.CreateMultipartUploadInput
	uploadInputs []*s3.UploadPartInput
	completeIn   *s3.CompleteMultipartUploadInput
	completeOut  *s3.CompleteMultipartUploadOutput
	aborted      int
	headErr      error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) CreateMultipartUpload(_ context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	f.createInput = in
	return f.createOut, nil
}

func (f *fakeS3) UploadPart(_ context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	f.uploadInputs = append(f.uploadInputs, in)
	return &s3.UploadPartOutput{ETag: aws.String("etag-" + string(rune('0'+aws.ToInt32(in.PartNumber))))}, nil
}

func (f *fakeS3) CompleteMultipartUpload(_ context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	f.completeIn = in
	if f.completeOut == nil {
		return &s3.CompleteMultipartUploadOutput{}, nil
	}
	return f.completeOut, nil
}

func (f *fakeS3) AbortMultipartUpload(_ context.Context, _ *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	f.aborted++
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func TestS3StoreGetObject(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"output/job-1/result.txt": []byte(`{"ok":true}`)}}
	store := &S3Store{client: fake, bucket: "media"}

	data, err := store.GetObject(context.Background(), "", "output/job-1/result.txt")
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Fatalf("unexpected body %s", data)
	}

	if _, err := store.GetObject(context.Background(), "", "output/job-1/error.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	fake.getErr = &smithy.GenericAPIError{Code: "NotFound"}
	if _, err := store.GetObject(context.Background(), "", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected generic NotFound to map to ErrNotFound, got %v", err)
	}

	fake.getErr = errors.New("timeout")
	if _, err := store.GetObject(context.Background(), "", "x"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestS3StoreMultipartLifecycle(t *testing.T) {
	fake := &fakeS3{createOut: &s3.CreateMultipartUploadOutput{UploadId: aws.String("up-1")}}
	store := &S3Store{client: fake, bucket: "media", publicBaseURL: "https://media.example.com", publicRead: true}
	ctx := context.Background()

	session, err := store.BeginMultipart(ctx, "", "input/a b.mp4", "video/mp4")
	if err != nil {
		t.Fatalf("BeginMultipart: %v", err)
	}
	if session.UploadID != "up-1" || session.Bucket != "media" {
		t.Fatalf("unexpected session %+v", session)
	}
	if fake.createInput.ACL != types.ObjectCannedACLPublicRead {
		t.Fatalf("expected public-read acl, got %q", fake.createInput.ACL)
	}

	part, err := store.UploadPart(ctx, session, 2, []byte("chunk"))
	if err != nil {
		t.Fatalf("UploadPart: %v", err)
	}
	if part.PartNumber != 2 || part.ETag != "etag-2" {
		t.Fatalf("unexpected part %+v", part)
	}
	if got := aws.ToInt64(fake.uploadInputs[0].ContentLength); got != 5 {
		t.Fatalf("expected content length 5, got %d", got)
	}

	location, err := store.CompleteMultipart(ctx, session, []CompletedPart{{PartNumber: 1, ETag: "a"}, {PartNumber: 2, ETag: "b"}})
	if err != nil {
		t.Fatalf("CompleteMultipart: %v", err)
	}
	if location != "https://media.example.com/input/a%20b.mp4" {
		t.Fatalf("unexpected fallback location %s", location)
	}
	parts := fake.completeIn.MultipartUpload.Parts
	if len(parts) != 2 || aws.ToInt32(parts[0].PartNumber) != 1 || aws.ToInt32(parts[1].PartNumber) != 2 {
		t.Fatalf("parts not forwarded in order: %+v", parts)
	}

	fake.completeOut = &s3.CompleteMultipartUploadOutput{Location: aws.String("https://s3/loc")}
	if location, _ := store.CompleteMultipart(ctx, session, nil); location != "https://s3/loc" {
		t.Fatalf("expected store location, got %s", location)
	}

	if err := store.AbortMultipart(ctx, session); err != nil {
		t.Fatalf("AbortMultipart: %v", err)
	}
	if fake.aborted != 1 {
		t.Fatalf("expected one abort, got %d", fake.aborted)
	}
}

func TestS3StoreBeginRejectsEmptyUploadID(t *testing.T) {
	store := &S3Store{client: &fakeS3{createOut: &s3.CreateMultipartUploadOutput{}}, bucket: "media"}
	if _, err := store.BeginMultipart(context.Background(), "", "k", "video/mp4"); err == nil {
		t.Fatal("expected error for empty upload id")
	}
}

func TestNewS3StoreUsesSeams(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	defer func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	}()

	var loaded bool
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		loaded = true
		opts := awsconfig.LoadOptions{}
		for _, fn := range optFns {
			if err := fn(&opts); err != nil {
				return aws.Config{}, err
			}
		}
		if opts.Region != "eu-west-1" {
			t.Fatalf("expected region to be forwarded, got %q", opts.Region)
		}
		if opts.Credentials == nil {
			t.Fatalf("expected static credentials provider")
		}
		return aws.Config{Region: opts.Region}, nil
	}
	var endpoint string
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		o := s3.Options{}
		for _, fn := range optFns {
			fn(&o)
		}
		endpoint = aws.ToString(o.BaseEndpoint)
		return s3.New(o)
	}

	store, err := NewS3Store(context.Background(),
		config.S3Config{Region: "eu-west-1", Endpoint: "http://localhost:9000", AccessKeyID: "k", SecretAccessKey: "s", UsePathStyle: true},
		config.BlobConfig{Bucket: "media"},
	)
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	if !loaded || endpoint != "http://localhost:9000" {
		t.Fatalf("seams not used: loaded=%v endpoint=%q", loaded, endpoint)
	}
	if store.publicBaseURL != "http://localhost:9000/media" {
		t.Fatalf("unexpected base url %q", store.publicBaseURL)
	}

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no creds")
	}
	if _, err := NewS3Store(context.Background(), config.S3Config{}, config.BlobConfig{Bucket: "media"}); err == nil {
		t.Fatal("expected load error to propagate")
	}
}

func TestObjectURL(t *testing.T) {
	if got := ObjectURL("https://cdn.example.com/", "/thumbnails/x y.jpeg"); got != "https://cdn.example.com/thumbnails/x%20y.jpeg" {
		t.Fatalf("unexpected url %s", got)
	}
}
