package storage

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Disk stores blobs in an S3 bucket, optionally fronted by CloudFront.
type S3Disk struct {
	svc           *s3.S3
	bucket        string
	region        string
	cloudFrontURL string
}

func NewS3(bucket, region, cloudFrontURL string) (*S3Disk, error) {
	if bucket == "" || region == "" {
		return nil, fmt.Errorf("S3 storage requires S3_BUCKET and S3_REGION")
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}

	return &S3Disk{
		svc:           s3.New(sess),
		bucket:        bucket,
		region:        region,
		cloudFrontURL: cloudFrontURL,
	}, nil
}

func (d *S3Disk) Exists(path string) bool {
	_, err := d.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(path),
	})
	return err == nil
}

// MakeDirectory is a no-op: S3 keys are prefix-based, directories do not exist.
func (d *S3Disk) MakeDirectory(path string) error {
	return nil
}

func (d *S3Disk) Put(path string, data []byte) error {
	_, err := d.svc.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(http.DetectContentType(data)),
		ACL:         aws.String("public-read"),
	})
	return err
}

func (d *S3Disk) Size(path string) (int64, error) {
	head, err := d.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return 0, err
	}
	return aws.Int64Value(head.ContentLength), nil
}

func (d *S3Disk) ProbeMimeType(path string) (string, error) {
	head, err := d.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return "", err
	}
	return aws.StringValue(head.ContentType), nil
}

func (d *S3Disk) Delete(path string) error {
	_, err := d.svc.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(path),
	})
	if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
		return fmt.Errorf("file not found: %s", path)
	}
	return err
}

func (d *S3Disk) URL(path string) string {
	if d.cloudFrontURL != "" {
		return d.cloudFrontURL + "/" + path
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", d.bucket, d.region, path)
}
