package store

import (
	"bytes"
	"io"
	"io/ioutil"
	"log"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	raven "github.com/getsentry/raven-go"
)

// A S3 store represents a store that is kept on AWS S3 storage.
// Do not change Bucket or Prefix concurrently with calls using the structure.
type S3 struct {
	svc    s3iface.S3API
	Bucket string
	Prefix string
}

var (
	_ Store = &S3{}
)

// NewS3 creates a new S3 store. It will use the given bucket and will prepend
// prefix to all keys. This is to allow for a bucket to be used for more than
// one store. For example if prefix were "outbox/" then an Open("hello") would
// look for the key "outbox/hello" in the bucket. The authorization method and
// credentials in the session are used for all accesses.
func NewS3(bucket, prefix string, awsSession *session.Session) *S3 {
	return NewS3Client(bucket, prefix, s3.New(awsSession))
}

// NewS3Client is like NewS3 but takes an already configured client.
func NewS3Client(bucket, prefix string, svc s3iface.S3API) *S3 {
	return &S3{
		Bucket: bucket,
		Prefix: prefix,
		svc:    svc,
	}
}

// List returns the keys in this store that have the given prefix.
// The argument prefix is added to the store's Prefix.
func (s *S3) List(prefix string) ([]string, error) {
	var result []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(s.Prefix + prefix),
	}
	err := s.svc.ListObjectsV2Pages(input,
		func(page *s3.ListObjectsV2Output, lastpage bool) bool {
			for _, item := range page.Contents {
				result = append(result, strings.TrimPrefix(*item.Key, s.Prefix))
			}
			return !lastpage
		})
	if err != nil {
		log.Println("S3 List:", s.Prefix, prefix, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix, "Pattern": prefix})
	}
	sort.Strings(result)
	return result, err
}

// Open downloads the object for key. Packages are small enough that the
// whole object is kept in memory.
func (s *S3) Open(key string) (ReadAtCloser, int64, error) {
	out, err := s.svc.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, 0, ErrNotFound
		}
		log.Println("S3 Open:", s.Prefix, key, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix, "Key": key})
		return nil, 0, err
	}
	defer out.Body.Close()
	data, err := ioutil.ReadAll(out.Body)
	if err != nil {
		return nil, 0, err
	}
	return nopCloser{bytes.NewReader(data)}, int64(len(data)), nil
}

// Create will return a WriteCloser to upload content to the given key. Data
// is buffered and uploaded when the writer is closed.
func (s *S3) Create(key string) (io.WriteCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	_, err := s.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err == nil {
		return nil, ErrKeyExists
	} else if !isNotFound(err) {
		return nil, err
	}
	return &s3WriteCloser{s: s, key: key}, nil
}

type s3WriteCloser struct {
	s   *S3
	key string
	buf bytes.Buffer
}

func (w *s3WriteCloser) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *s3WriteCloser) Close() error {
	_, err := w.s.svc.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(w.s.Bucket),
		Key:    aws.String(w.s.Prefix + w.key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	if err != nil {
		log.Println("S3 Create:", w.s.Prefix, w.key, err)
		raven.CaptureError(err, map[string]string{"Bucket": w.s.Bucket, "Prefix": w.s.Prefix, "Key": w.key})
	}
	return err
}

// Delete will remove the given key from the store. The store's Prefix is
// prepended first. It is not an error to delete something that doesn't exist.
func (s *S3) Delete(key string) error {
	_, err := s.svc.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		log.Println("S3 Delete:", s.Prefix, key, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix, "Key": key})
	}
	return err
}

func isNotFound(err error) bool {
	if aerr, ok := err.(awserr.RequestFailure); ok {
		return aerr.StatusCode() == 404
	}
	if aerr, ok := err.(awserr.Error); ok {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
	}
	return false
}
